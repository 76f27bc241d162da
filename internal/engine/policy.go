package engine

import (
	"github.com/intelliroute/intelliroute/internal/store"
)

// RoutingPolicy holds the numeric mapping from (priority, complexity) to
// required load units and minimum designation. The exact thresholds are
// deployment configuration, not algorithm; defaults follow the 1.0-5.0
// complexity scale.
type RoutingPolicy struct {
	// Complexity bands. Scores at or below JuniorMax can go to juniors,
	// at or below MidMax to mids, anything above needs a senior.
	JuniorMax float64
	MidMax    float64

	// MaxAttempts is the number of consecutive no-match cycles after which
	// a pending query escalates, when AutoEscalate is set.
	MaxAttempts  int
	AutoEscalate bool
}

func DefaultPolicy() RoutingPolicy {
	return RoutingPolicy{
		JuniorMax:    2.0,
		MidMax:       3.5,
		MaxAttempts:  3,
		AutoEscalate: true,
	}
}

// band maps a complexity score onto the designation that complexity alone
// calls for. A nil score uses the conservative mid band.
func (p RoutingPolicy) band(score *float64) store.Designation {
	if score == nil {
		return store.DesignationMid
	}
	switch {
	case *score <= p.JuniorMax:
		return store.DesignationJunior
	case *score <= p.MidMax:
		return store.DesignationMid
	default:
		return store.DesignationSenior
	}
}

// MinDesignation is the least senior designation allowed to take the query.
// P1 urgency never routes below mid, whatever the complexity says.
func (p RoutingPolicy) MinDesignation(priority store.Priority, score *float64) store.Designation {
	min := p.band(score)
	if priority == store.PriorityP1 && min.Rank() < store.DesignationMid.Rank() {
		min = store.DesignationMid
	}
	return min
}

// RequiredUnits is the load an assignment for this query consumes. Pure and
// total: every (priority, score) pair maps to a value, nil score included.
// One base unit, one more for complexity above the mid band, one more for P1.
func (p RoutingPolicy) RequiredUnits(priority store.Priority, score *float64) int {
	units := 1
	if score != nil && *score > p.MidMax {
		units++
	}
	if priority == store.PriorityP1 {
		units++
	}
	return units
}
