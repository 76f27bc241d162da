package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/intelliroute/intelliroute/internal/store"
)

func newTestLedger(s store.Store) *Ledger {
	return NewLedger(s, nil, nil, testLogger())
}

func TestLedgerCommitAndCompleteRoundTrip(t *testing.T) {
	ms := newMockStore()
	ledger := newTestLedger(ms)
	ctx := context.Background()

	e := addEngineer(t, ms, "eng", store.DesignationMid, 4)
	q := addQuery(t, ms, "round trip", store.PriorityP2, time.Now())

	a, err := ledger.Commit(ctx, q.ID, e.ID, 2)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if a.Status != store.AssignmentActive {
		t.Errorf("status = %s, want active", a.Status)
	}
	if a.AllocationPercent != 50.0 {
		t.Errorf("allocation = %.1f, want 50.0", a.AllocationPercent)
	}
	if mustEngineer(t, ms, e.ID).CurrentLoad != 2 {
		t.Errorf("load after commit = %d, want 2", mustEngineer(t, ms, e.ID).CurrentLoad)
	}

	done, err := ledger.Complete(ctx, a.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != store.AssignmentCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if load := mustEngineer(t, ms, e.ID).CurrentLoad; load != 0 {
		t.Errorf("load after complete = %d, want 0", load)
	}
	if got, _ := ms.GetQuery(ctx, q.ID); got.Status != store.QueryResolved {
		t.Errorf("query status = %s, want resolved", got.Status)
	}
}

func TestLedgerRecordScoreOnlyWhenPending(t *testing.T) {
	ms := newMockStore()
	ledger := newTestLedger(ms)
	ctx := context.Background()
	q := addQuery(t, ms, "scored then escalated", store.PriorityP2, time.Now())

	updated, err := ledger.RecordScore(ctx, q.ID, 3.3)
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	if updated.ComplexityScore == nil || *updated.ComplexityScore != 3.3 {
		t.Fatalf("score = %v, want 3.3", updated.ComplexityScore)
	}

	if _, err := ledger.EscalateQuery(ctx, q.ID, "manual escalation"); err != nil {
		t.Fatalf("EscalateQuery: %v", err)
	}

	// A stale routing pass must not write through the terminal state.
	if _, err := ledger.RecordScore(ctx, q.ID, 1.1); !errors.Is(err, ErrConflict) {
		t.Errorf("RecordScore on escalated query: err = %v, want conflict", err)
	}
	got, _ := ms.GetQuery(ctx, q.ID)
	if got.Status != store.QueryEscalated {
		t.Errorf("status = %s, want escalated", got.Status)
	}
	if *got.ComplexityScore != 3.3 {
		t.Errorf("score = %v, want the original 3.3", *got.ComplexityScore)
	}

	if _, err := ledger.RecordScore(ctx, uuid.New(), 2.0); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown query: err = %v, want not found", err)
	}
}

func TestLedgerRecordAttemptOnlyWhenPending(t *testing.T) {
	ms := newMockStore()
	ledger := newTestLedger(ms)
	ctx := context.Background()
	q := addQuery(t, ms, "unmatched then escalated", store.PriorityP2, time.Now())

	updated, err := ledger.RecordAttempt(ctx, q.ID)
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if updated.AttemptCount != 1 {
		t.Fatalf("attempts = %d, want 1", updated.AttemptCount)
	}

	if _, err := ledger.EscalateQuery(ctx, q.ID, "sla_breach"); err != nil {
		t.Fatalf("EscalateQuery: %v", err)
	}
	if _, err := ledger.RecordAttempt(ctx, q.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("RecordAttempt on escalated query: err = %v, want conflict", err)
	}

	got, _ := ms.GetQuery(ctx, q.ID)
	if got.Status != store.QueryEscalated {
		t.Errorf("status = %s, want escalated", got.Status)
	}
	if got.AttemptCount != 1 {
		t.Errorf("attempts = %d, want unchanged 1", got.AttemptCount)
	}
}

func TestLedgerCommitRejectsNonPendingQuery(t *testing.T) {
	ms := newMockStore()
	ledger := newTestLedger(ms)
	ctx := context.Background()

	e := addEngineer(t, ms, "eng", store.DesignationMid, 4)
	q := addQuery(t, ms, "taken twice", store.PriorityP2, time.Now())

	if _, err := ledger.Commit(ctx, q.ID, e.ID, 1); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	_, err := ledger.Commit(ctx, q.ID, e.ID, 1)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("second commit err = %v, want conflict", err)
	}
	// The double commit must not double-charge the engineer.
	if load := mustEngineer(t, ms, e.ID).CurrentLoad; load != 1 {
		t.Errorf("load = %d, want 1", load)
	}
}

func TestLedgerCommitRejectsOverCapacity(t *testing.T) {
	ms := newMockStore()
	ledger := newTestLedger(ms)
	ctx := context.Background()

	e := addEngineer(t, ms, "small", store.DesignationMid, 1)
	q := addQuery(t, ms, "too big", store.PriorityP2, time.Now())

	_, err := ledger.Commit(ctx, q.ID, e.ID, 2)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
	if got, _ := ms.GetQuery(ctx, q.ID); got.Status != store.QueryPending {
		t.Errorf("query status = %s, want still pending", got.Status)
	}
}

func TestLedgerCommitUnknownEntities(t *testing.T) {
	ms := newMockStore()
	ledger := newTestLedger(ms)
	ctx := context.Background()

	e := addEngineer(t, ms, "eng", store.DesignationMid, 4)
	q := addQuery(t, ms, "known", store.PriorityP2, time.Now())

	if _, err := ledger.Commit(ctx, q.ID, uuid.New(), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown engineer err = %v, want not found", err)
	}
	if _, err := ledger.Commit(ctx, uuid.New(), e.ID, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown query err = %v, want not found", err)
	}
}

func TestLedgerCompleteTwiceConflicts(t *testing.T) {
	ms := newMockStore()
	ledger := newTestLedger(ms)
	ctx := context.Background()

	e := addEngineer(t, ms, "eng", store.DesignationMid, 4)
	q := addQuery(t, ms, "done once", store.PriorityP2, time.Now())
	a, err := ledger.Commit(ctx, q.ID, e.ID, 1)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := ledger.Complete(ctx, a.ID); err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	_, err = ledger.Complete(ctx, a.ID)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("second Complete err = %v, want conflict", err)
	}
	// The second completion must not release load again.
	if load := mustEngineer(t, ms, e.ID).CurrentLoad; load != 0 {
		t.Errorf("load = %d, want 0", load)
	}
}

func TestLedgerEscalateAssignmentReleasesLoad(t *testing.T) {
	ms := newMockStore()
	ledger := newTestLedger(ms)
	ctx := context.Background()

	e := addEngineer(t, ms, "eng", store.DesignationSenior, 4)
	q := addQuery(t, ms, "stuck", store.PriorityP1, time.Now())
	a, err := ledger.Commit(ctx, q.ID, e.ID, 2)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	esc, err := ledger.EscalateAssignment(ctx, a.ID)
	if err != nil {
		t.Fatalf("EscalateAssignment: %v", err)
	}
	if esc.Status != store.AssignmentEscalated {
		t.Errorf("status = %s, want escalated", esc.Status)
	}
	if load := mustEngineer(t, ms, e.ID).CurrentLoad; load != 0 {
		t.Errorf("load = %d, want 0", load)
	}
	if got, _ := ms.GetQuery(ctx, q.ID); got.Status != store.QueryEscalated {
		t.Errorf("query status = %s, want escalated", got.Status)
	}
}

func TestLedgerEscalateQueryOnlyWhenPending(t *testing.T) {
	ms := newMockStore()
	ledger := newTestLedger(ms)
	ctx := context.Background()

	q := addQuery(t, ms, "cannot place", store.PriorityP2, time.Now())
	esc, err := ledger.EscalateQuery(ctx, q.ID, "no eligible engineer")
	if err != nil {
		t.Fatalf("EscalateQuery: %v", err)
	}
	if esc.Status != store.QueryEscalated {
		t.Errorf("status = %s, want escalated", esc.Status)
	}

	_, err = ledger.EscalateQuery(ctx, q.ID, "again")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("repeat err = %v, want conflict", err)
	}
}

// Concurrent commits against one engineer must never push load past capacity:
// exactly capacity/units of them win, the rest get conflicts.
func TestLedgerConcurrentCommitsHoldCapacityInvariant(t *testing.T) {
	ms := newMockStore()
	ledger := newTestLedger(ms)
	ctx := context.Background()

	const capacity = 4
	const contenders = 16
	e := addEngineer(t, ms, "contended", store.DesignationSenior, capacity)

	queries := make([]*store.SupportQuery, contenders)
	for i := range queries {
		queries[i] = addQuery(t, ms, "contended work", store.PriorityP3, time.Now())
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, conflicts int
	for _, q := range queries {
		wg.Add(1)
		go func(q *store.SupportQuery) {
			defer wg.Done()
			_, err := ledger.Commit(ctx, q.ID, e.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(q)
	}
	wg.Wait()

	if wins != capacity {
		t.Errorf("wins = %d, want %d", wins, capacity)
	}
	if conflicts != contenders-capacity {
		t.Errorf("conflicts = %d, want %d", conflicts, contenders-capacity)
	}
	if load := mustEngineer(t, ms, e.ID).CurrentLoad; load != capacity {
		t.Errorf("load = %d, want %d", load, capacity)
	}
}
