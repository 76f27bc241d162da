package engine

import (
	"sort"

	"github.com/intelliroute/intelliroute/internal/store"
)

// Select picks the best engineer for the query from an eligible set, or nil
// when the set is empty. Ordering, best first:
//  1. lowest designation that still meets the minimum — simple work should
//     not consume senior engineers,
//  2. lowest utilization after taking the query on,
//  3. engineer id, so identical inputs always pick the same engineer.
func Select(q *store.SupportQuery, eligible []*store.Engineer, policy RoutingPolicy) *store.Engineer {
	if len(eligible) == 0 {
		return nil
	}
	units := policy.RequiredUnits(q.Priority, q.ComplexityScore)

	ranked := make([]*store.Engineer, len(eligible))
	copy(ranked, eligible)

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Designation.Rank() != b.Designation.Rank() {
			return a.Designation.Rank() < b.Designation.Rank()
		}
		ua := utilization(a, units)
		ub := utilization(b, units)
		if ua != ub {
			return ua < ub
		}
		return a.ID.String() < b.ID.String()
	})

	return ranked[0]
}

func utilization(e *store.Engineer, units int) float64 {
	return float64(e.CurrentLoad+units) / float64(e.Capacity)
}
