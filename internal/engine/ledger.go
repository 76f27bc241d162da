package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/intelliroute/intelliroute/internal/events"
	"github.com/intelliroute/intelliroute/internal/metrics"
	"github.com/intelliroute/intelliroute/internal/store"
)

// Ledger owns every committed mutation of the {engineers, queries,
// assignments} aggregate. A single mutex serializes commit, completion, and
// escalation so no reader ever observes a partial transition and an
// engineer's load can never transiently exceed capacity.
type Ledger struct {
	store   store.Store
	events  events.Client
	metrics *metrics.Collector
	logger  *slog.Logger

	mu sync.Mutex
}

func NewLedger(s store.Store, ev events.Client, m *metrics.Collector, logger *slog.Logger) *Ledger {
	return &Ledger{store: s, events: ev, metrics: m, logger: logger}
}

// Commit atomically binds a pending query to an engineer: it creates an
// active assignment, marks the query assigned, and charges the engineer's
// load. Both entities are re-read under the lock, so a selection made
// against stale state is rejected rather than double-applied.
func (l *Ledger) Commit(ctx context.Context, queryID, engineerID uuid.UUID, units int) (*store.Assignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, err := l.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, &NotFoundError{Entity: "query", ID: queryID.String()}
	}
	if q.Status != store.QueryPending {
		return nil, &ConflictError{Entity: "query", ID: queryID.String(), Reason: "not pending"}
	}

	e, err := l.store.GetEngineer(ctx, engineerID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &NotFoundError{Entity: "engineer", ID: engineerID.String()}
	}
	if !e.Available || e.FreeCapacity() < units {
		return nil, &ConflictError{Entity: "engineer", ID: engineerID.String(), Reason: "insufficient capacity"}
	}

	a := &store.Assignment{
		EngineerID:        e.ID,
		QueryID:           q.ID,
		Units:             units,
		AllocationPercent: float64(units) / float64(e.Capacity) * 100,
		Status:            store.AssignmentActive,
		AssignedAt:        time.Now(),
	}
	if err := l.store.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}

	q.Status = store.QueryAssigned
	if err := l.store.UpdateQuery(ctx, q); err != nil {
		return nil, err
	}

	e.CurrentLoad += units
	if err := l.store.UpdateEngineer(ctx, e); err != nil {
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.RecordAssignment()
	}
	if l.events != nil {
		_ = l.events.Publish(events.SubjectAssignmentCreated(a.ID.String()), events.AssignmentEvent{
			AssignmentID: a.ID.String(),
			QueryID:      q.ID.String(),
			EngineerID:   e.ID.String(),
			Units:        units,
		})
		_ = l.events.Publish(events.SubjectQueryAssigned(q.ID.String()), q)
	}

	l.logger.Info("assignment committed",
		"assignment_id", a.ID, "query_id", q.ID, "engineer_id", e.ID,
		"units", units, "engineer_load", e.CurrentLoad, "capacity", e.Capacity)
	return a, nil
}

// RecordScore persists a freshly computed complexity score. The query is
// re-read under the lock and the write is refused unless it is still pending,
// so a stale routing snapshot can never overwrite a concurrent escalation or
// assignment.
func (l *Ledger) RecordScore(ctx context.Context, queryID uuid.UUID, score float64) (*store.SupportQuery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, err := l.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, &NotFoundError{Entity: "query", ID: queryID.String()}
	}
	if q.Status != store.QueryPending {
		return nil, &ConflictError{Entity: "query", ID: queryID.String(), Reason: "not pending"}
	}

	q.ComplexityScore = &score
	if err := l.store.UpdateQuery(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// RecordAttempt bumps the no-match counter for a pending query and returns
// the updated row. Same pending-only rule as RecordScore.
func (l *Ledger) RecordAttempt(ctx context.Context, queryID uuid.UUID) (*store.SupportQuery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, err := l.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, &NotFoundError{Entity: "query", ID: queryID.String()}
	}
	if q.Status != store.QueryPending {
		return nil, &ConflictError{Entity: "query", ID: queryID.String(), Reason: "not pending"}
	}

	q.AttemptCount++
	if err := l.store.UpdateQuery(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Complete finishes an active assignment: assignment → completed, query →
// resolved, and the engineer's load is released by exactly the units the
// commit charged. Completing a non-active assignment is a conflict, never a
// silent no-op.
func (l *Ledger) Complete(ctx context.Context, assignmentID uuid.UUID) (*store.Assignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &NotFoundError{Entity: "assignment", ID: assignmentID.String()}
	}
	if a.Status != store.AssignmentActive {
		return nil, &ConflictError{Entity: "assignment", ID: assignmentID.String(), Reason: "not active"}
	}

	now := time.Now()
	a.Status = store.AssignmentCompleted
	a.CompletedAt = &now
	if err := l.store.UpdateAssignment(ctx, a); err != nil {
		return nil, err
	}

	if err := l.resolveQuery(ctx, a.QueryID); err != nil {
		return nil, err
	}
	if err := l.releaseLoad(ctx, a.EngineerID, a.Units); err != nil {
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.RecordCompletion(now.Sub(a.AssignedAt).Seconds())
	}
	if l.events != nil {
		_ = l.events.Publish(events.SubjectAssignmentCompleted(a.ID.String()), events.AssignmentEvent{
			AssignmentID: a.ID.String(),
			QueryID:      a.QueryID.String(),
			EngineerID:   a.EngineerID.String(),
			Units:        a.Units,
		})
	}

	l.logger.Info("assignment completed", "assignment_id", a.ID, "query_id", a.QueryID)
	return a, nil
}

// EscalateAssignment hands an active assignment off the automatic routing
// path: the load returns to the engineer and both the assignment and its
// query become escalated.
func (l *Ledger) EscalateAssignment(ctx context.Context, assignmentID uuid.UUID) (*store.Assignment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &NotFoundError{Entity: "assignment", ID: assignmentID.String()}
	}
	if a.Status != store.AssignmentActive {
		return nil, &ConflictError{Entity: "assignment", ID: assignmentID.String(), Reason: "not active"}
	}

	now := time.Now()
	a.Status = store.AssignmentEscalated
	a.CompletedAt = &now
	if err := l.store.UpdateAssignment(ctx, a); err != nil {
		return nil, err
	}

	q, err := l.store.GetQuery(ctx, a.QueryID)
	if err != nil {
		return nil, err
	}
	if q != nil {
		q.Status = store.QueryEscalated
		if err := l.store.UpdateQuery(ctx, q); err != nil {
			return nil, err
		}
	}
	if err := l.releaseLoad(ctx, a.EngineerID, a.Units); err != nil {
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.RecordEscalation()
	}
	if l.events != nil {
		_ = l.events.Publish(events.SubjectAssignmentEscalated(a.ID.String()), events.AssignmentEvent{
			AssignmentID: a.ID.String(),
			QueryID:      a.QueryID.String(),
			EngineerID:   a.EngineerID.String(),
			Units:        a.Units,
		})
	}

	l.logger.Warn("assignment escalated", "assignment_id", a.ID, "query_id", a.QueryID)
	return a, nil
}

// EscalateQuery escalates a pending query that routing cannot place. Used by
// the orchestrator after repeated no-match cycles, the SLA sweep, and manual
// escalation requests.
func (l *Ledger) EscalateQuery(ctx context.Context, queryID uuid.UUID, reason string) (*store.SupportQuery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, err := l.store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, &NotFoundError{Entity: "query", ID: queryID.String()}
	}
	if q.Status != store.QueryPending {
		return nil, &ConflictError{Entity: "query", ID: queryID.String(), Reason: "not pending"}
	}

	q.Status = store.QueryEscalated
	if err := l.store.UpdateQuery(ctx, q); err != nil {
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.RecordEscalation()
	}
	if l.events != nil {
		_ = l.events.Publish(events.SubjectQueryEscalated(q.ID.String()), events.QueryEscalatedEvent{
			QueryID: q.ID.String(),
			Reason:  reason,
		})
	}

	l.logger.Warn("query escalated", "query_id", q.ID, "reason", reason)
	return q, nil
}

func (l *Ledger) resolveQuery(ctx context.Context, queryID uuid.UUID) error {
	q, err := l.store.GetQuery(ctx, queryID)
	if err != nil || q == nil {
		return err
	}
	q.Status = store.QueryResolved
	if err := l.store.UpdateQuery(ctx, q); err != nil {
		return err
	}
	if l.events != nil {
		_ = l.events.Publish(events.SubjectQueryResolved(q.ID.String()), q)
	}
	return nil
}

func (l *Ledger) releaseLoad(ctx context.Context, engineerID uuid.UUID, units int) error {
	e, err := l.store.GetEngineer(ctx, engineerID)
	if err != nil || e == nil {
		return err
	}
	e.CurrentLoad -= units
	if e.CurrentLoad < 0 {
		e.CurrentLoad = 0
	}
	return l.store.UpdateEngineer(ctx, e)
}
