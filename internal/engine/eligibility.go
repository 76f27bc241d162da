package engine

import (
	"strings"

	"github.com/intelliroute/intelliroute/internal/store"
)

// Eligible filters the engineer pool down to those who can take the query:
// available, enough free capacity for the query's required units, senior
// enough for its complexity and priority, and matching at least one skill
// signal when the query carries any. An empty result is a normal outcome.
func Eligible(q *store.SupportQuery, engineers []*store.Engineer, policy RoutingPolicy) []*store.Engineer {
	units := policy.RequiredUnits(q.Priority, q.ComplexityScore)
	minDesignation := policy.MinDesignation(q.Priority, q.ComplexityScore)

	var eligible []*store.Engineer
	for _, e := range engineers {
		if !e.Available {
			continue
		}
		if e.FreeCapacity() < units {
			continue
		}
		if e.Designation.Rank() < minDesignation.Rank() {
			continue
		}
		if !skillMatch(q, e) {
			continue
		}
		eligible = append(eligible, e)
	}
	return eligible
}

// skillMatch reports whether the engineer covers any of the query's tags or
// its domain, case-insensitively. A query with no tags and no domain carries
// no matching signal, so the check is skipped entirely.
func skillMatch(q *store.SupportQuery, e *store.Engineer) bool {
	if len(q.Tags) == 0 && q.Domain == "" {
		return true
	}
	for _, skill := range e.Skills {
		if q.Domain != "" && strings.EqualFold(skill, q.Domain) {
			return true
		}
		for _, tag := range q.Tags {
			if strings.EqualFold(skill, tag) {
				return true
			}
		}
	}
	return false
}
