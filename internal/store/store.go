package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Designation string

const (
	DesignationJunior   Designation = "junior"
	DesignationMid      Designation = "mid"
	DesignationSenior   Designation = "senior"
	DesignationTechLead Designation = "tech_lead"
)

// Rank orders designations by seniority; higher means more senior.
func (d Designation) Rank() int {
	switch d {
	case DesignationJunior:
		return 1
	case DesignationMid:
		return 2
	case DesignationSenior:
		return 3
	case DesignationTechLead:
		return 4
	default:
		return 0
	}
}

func ParseDesignation(s string) (Designation, error) {
	d := Designation(s)
	if d.Rank() == 0 {
		return "", fmt.Errorf("unknown designation %q", s)
	}
	return d, nil
}

type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Rank orders priorities by urgency; lower means more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	case PriorityP3:
		return 3
	default:
		return 0
	}
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if p.Rank() == 0 {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

type QueryStatus string

const (
	QueryPending   QueryStatus = "pending"
	QueryAssigned  QueryStatus = "assigned"
	QueryResolved  QueryStatus = "resolved"
	QueryEscalated QueryStatus = "escalated"
)

type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentEscalated AssignmentStatus = "escalated"
)

type Engineer struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Designation Designation `json:"designation"`
	Capacity    int         `json:"capacity"`
	CurrentLoad int         `json:"current_load"`
	Available   bool        `json:"available"`
	Skills      []string    `json:"skills"`
	Timezone    string      `json:"timezone,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FreeCapacity is the number of load units the engineer can still take on.
func (e *Engineer) FreeCapacity() int {
	return e.Capacity - e.CurrentLoad
}

type SupportQuery struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`

	// ComplexityScore is nil until the scorer has run; bounded to [1.0, 5.0].
	ComplexityScore *float64 `json:"complexity_score,omitempty"`

	Priority Priority    `json:"priority"`
	Status   QueryStatus `json:"status"`
	Tags     []string    `json:"tags"`
	Domain   string      `json:"domain,omitempty"`

	// AttemptCount counts cycles that found no eligible engineer.
	AttemptCount int `json:"attempt_count"`

	SLADueAt  *time.Time `json:"sla_due_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Assignment struct {
	ID         uuid.UUID `json:"id"`
	EngineerID uuid.UUID `json:"engineer_id"`
	QueryID    uuid.UUID `json:"query_id"`

	// Units is the integer load this assignment consumes on its engineer.
	Units             int     `json:"units"`
	AllocationPercent float64 `json:"allocation_percent"`

	Status      AssignmentStatus `json:"status"`
	AssignedAt  time.Time        `json:"assigned_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

type EngineerFilter struct {
	Available *bool
	Skill     string

	// Limit caps results; zero applies the default page size and a
	// negative value removes the cap. Routing passes -1: the cycle must
	// see the whole pool, not a page of it.
	Limit  int
	Offset int
}

type QueryFilter struct {
	Status   *QueryStatus
	Priority *Priority
	Domain   string
	Limit    int
	Offset   int
}

type AssignmentFilter struct {
	Status     *AssignmentStatus
	EngineerID *uuid.UUID
	QueryID    *uuid.UUID
	Limit      int
	Offset     int
}

type RoutingStats struct {
	EngineersTotal     int     `json:"engineers_total"`
	EngineersAvailable int     `json:"engineers_available"`
	QueriesPending     int     `json:"queries_pending"`
	QueriesAssigned    int     `json:"queries_assigned"`
	QueriesResolved    int     `json:"queries_resolved"`
	QueriesEscalated   int     `json:"queries_escalated"`
	AssignmentsActive  int     `json:"assignments_active"`
	AvgComplexity      float64 `json:"avg_complexity"`
}

type Store interface {
	CreateEngineer(ctx context.Context, e *Engineer) error
	GetEngineer(ctx context.Context, id uuid.UUID) (*Engineer, error)
	ListEngineers(ctx context.Context, filter EngineerFilter) ([]*Engineer, error)
	UpdateEngineer(ctx context.Context, e *Engineer) error

	CreateQuery(ctx context.Context, q *SupportQuery) error
	GetQuery(ctx context.Context, id uuid.UUID) (*SupportQuery, error)
	ListQueries(ctx context.Context, filter QueryFilter) ([]*SupportQuery, error)
	UpdateQuery(ctx context.Context, q *SupportQuery) error

	// GetPendingQueries returns pending queries ordered by priority
	// (P1 first) and then by creation time, oldest first.
	GetPendingQueries(ctx context.Context) ([]*SupportQuery, error)

	// GetPastSLAQueries returns pending queries whose SLA deadline has passed.
	GetPastSLAQueries(ctx context.Context, now time.Time) ([]*SupportQuery, error)

	CreateAssignment(ctx context.Context, a *Assignment) error
	GetAssignment(ctx context.Context, id uuid.UUID) (*Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]*Assignment, error)
	UpdateAssignment(ctx context.Context, a *Assignment) error
	GetActiveAssignmentForQuery(ctx context.Context, queryID uuid.UUID) (*Assignment, error)

	GetStats(ctx context.Context) (*RoutingStats, error)

	Close() error
}
