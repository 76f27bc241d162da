// Package engine implements the routing core: eligibility filtering,
// deterministic selection, the assignment ledger, and the cycle orchestrator
// that drives pending queries to engineers.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/intelliroute/intelliroute/internal/events"
	"github.com/intelliroute/intelliroute/internal/metrics"
	"github.com/intelliroute/intelliroute/internal/scoring"
	"github.com/intelliroute/intelliroute/internal/store"
)

// SLA windows per priority. A query escalates when it is still pending past
// its window.
var slaWindows = map[store.Priority]time.Duration{
	store.PriorityP1: 4 * time.Hour,
	store.PriorityP2: 24 * time.Hour,
	store.PriorityP3: 72 * time.Hour,
}

// Engine runs assignment cycles over the pending query backlog. One Engine
// owns the backlog: cycleMu serializes ticker-driven and manually triggered
// cycles so two cycles never race over the same engineer pool.
type Engine struct {
	store   store.Store
	scorer  *scoring.Adapter
	ledger  *Ledger
	policy  RoutingPolicy
	events  events.Client
	metrics *metrics.Collector
	logger  *slog.Logger

	tickInterval     time.Duration
	slaCheckInterval time.Duration

	cycleMu  sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Options struct {
	TickInterval     time.Duration
	SLACheckInterval time.Duration
	Policy           RoutingPolicy
}

func New(s store.Store, scorer *scoring.Adapter, ledger *Ledger, ev events.Client, m *metrics.Collector, logger *slog.Logger, opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 5 * time.Second
	}
	if opts.SLACheckInterval <= 0 {
		opts.SLACheckInterval = time.Minute
	}
	if opts.Policy.MidMax == 0 {
		opts.Policy = DefaultPolicy()
	}
	return &Engine{
		store:            s,
		scorer:           scorer,
		ledger:           ledger,
		policy:           opts.Policy,
		events:           ev,
		metrics:          m,
		logger:           logger,
		tickInterval:     opts.TickInterval,
		slaCheckInterval: opts.SLACheckInterval,
		stopCh:           make(chan struct{}),
	}
}

func (e *Engine) Policy() RoutingPolicy { return e.policy }

func (e *Engine) Ledger() *Ledger { return e.ledger }

// SubmitQuery validates and persists a new support query, stamps its SLA
// deadline from its priority, and announces it on the bus. Routing happens on
// the next cycle, not inline.
func (e *Engine) SubmitQuery(ctx context.Context, q *store.SupportQuery) error {
	if strings.TrimSpace(q.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if q.Priority == "" {
		q.Priority = store.PriorityP3
	}
	if q.Priority.Rank() == 0 {
		return &ValidationError{Field: "priority", Reason: "must be P1, P2, or P3"}
	}

	q.Status = store.QueryPending
	q.AttemptCount = 0
	if q.SLADueAt == nil {
		due := time.Now().Add(slaWindows[q.Priority])
		q.SLADueAt = &due
	}
	if err := e.store.CreateQuery(ctx, q); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.RecordQueryCreated()
	}
	if e.events != nil {
		_ = e.events.Publish(events.SubjectQueryCreated(q.ID.String()), q)
	}
	e.logger.Info("query submitted", "query_id", q.ID, "priority", q.Priority, "domain", q.Domain)
	return nil
}

// RunCycle executes one assignment cycle: score what needs scoring, then walk
// the pending backlog in priority order and commit the best match for each
// query. The engineer pool is re-read after every commit so one cycle's own
// assignments constrain its later ones. Per-query failures are absorbed; the
// cycle only fails when the backlog itself cannot be read.
func (e *Engine) RunCycle(ctx context.Context) ([]*store.Assignment, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	started := time.Now()
	pending, err := e.store.GetPendingQueries(ctx)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.SetPendingQueries(len(pending))
	}

	var committed []*store.Assignment
	for _, q := range pending {
		if ctx.Err() != nil {
			return committed, ctx.Err()
		}
		a, err := e.routeOne(ctx, q)
		if err != nil {
			e.logger.Error("failed to route query", "query_id", q.ID, "error", err)
			continue
		}
		if a != nil {
			committed = append(committed, a)
		}
	}

	if e.metrics != nil {
		e.metrics.ObserveCycleDuration(time.Since(started).Seconds())
	}
	if len(committed) > 0 {
		e.logger.Info("cycle complete", "assignments", len(committed), "pending", len(pending))
	}
	return committed, nil
}

// routeOne scores, filters, selects, and commits a single pending query.
// Returns (nil, nil) when no engineer can take it this cycle.
func (e *Engine) routeOne(ctx context.Context, q *store.SupportQuery) (*store.Assignment, error) {
	if q.ComplexityScore == nil {
		score := e.scorer.ScoreQuery(ctx, q.ID, q.Description)
		updated, err := e.ledger.RecordScore(ctx, q.ID, score)
		if err != nil {
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				// The query left the pending state while we were scoring
				// (SLA sweep or manual escalation). It is no longer ours
				// to route.
				e.scorer.Forget(q.ID)
				e.logger.Info("query moved on during scoring", "query_id", q.ID)
				return nil, nil
			}
			return nil, err
		}
		e.scorer.Forget(q.ID)
		q = updated
	}

	// Fresh pool each query: commits earlier in this cycle have already
	// changed engineer loads. No page cap: routing must see every engineer.
	available := true
	pool, err := e.store.ListEngineers(ctx, store.EngineerFilter{Available: &available, Limit: -1})
	if err != nil {
		return nil, err
	}

	eligible := Eligible(q, pool, e.policy)
	pick := Select(q, eligible, e.policy)
	if pick == nil {
		return nil, e.handleUnmatched(ctx, q)
	}

	units := e.policy.RequiredUnits(q.Priority, q.ComplexityScore)
	a, err := e.ledger.Commit(ctx, q.ID, pick.ID, units)
	if err != nil {
		// Conflicts mean the pool moved under us; the query stays pending
		// and the next cycle retries.
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			e.logger.Warn("commit conflict, retrying next cycle", "query_id", q.ID, "reason", conflict.Reason)
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// handleUnmatched records a no-match cycle for the query and escalates it once
// the attempt limit is reached.
func (e *Engine) handleUnmatched(ctx context.Context, q *store.SupportQuery) error {
	updated, err := e.ledger.RecordAttempt(ctx, q.ID)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			// Escalated or assigned out from under the cycle; no attempt
			// to record.
			return nil
		}
		return err
	}
	q = updated

	if e.events != nil {
		_ = e.events.Publish(events.SubjectQueryUnmatched(q.ID.String()), events.QueryUnmatchedEvent{
			QueryID:      q.ID.String(),
			Tags:         q.Tags,
			Domain:       q.Domain,
			AttemptCount: q.AttemptCount,
		})
	}
	e.logger.Info("no eligible engineer", "query_id", q.ID, "attempts", q.AttemptCount)

	if e.policy.AutoEscalate && q.AttemptCount >= e.policy.MaxAttempts {
		_, err := e.ledger.EscalateQuery(ctx, q.ID, "no eligible engineer after max attempts")
		return err
	}
	return nil
}

// escalatePastSLA sweeps pending queries whose SLA deadline has passed.
func (e *Engine) escalatePastSLA(ctx context.Context) {
	overdue, err := e.store.GetPastSLAQueries(ctx, time.Now())
	if err != nil {
		e.logger.Error("failed to list past-SLA queries", "error", err)
		return
	}
	for _, q := range overdue {
		if _, err := e.ledger.EscalateQuery(ctx, q.ID, "sla_breach"); err != nil {
			// A conflict means routing got there first; nothing to do.
			var conflict *ConflictError
			if !errors.As(err, &conflict) {
				e.logger.Error("failed to escalate past-SLA query", "query_id", q.ID, "error", err)
			}
		}
	}
}

// Start launches the cycle ticker and the SLA sweep in the background.
func (e *Engine) Start() {
	e.wg.Add(2)
	go e.cycleLoop()
	go e.slaLoop()
	e.logger.Info("engine started",
		"tick_interval", e.tickInterval, "sla_check_interval", e.slaCheckInterval)
}

// Stop halts the background loops and waits for in-flight cycles to finish.
// Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

func (e *Engine) cycleLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if _, err := e.RunCycle(context.Background()); err != nil {
				e.logger.Error("assignment cycle failed", "error", err)
			}
		}
	}
}

func (e *Engine) slaLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.slaCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.escalatePastSLA(context.Background())
		}
	}
}

// SetupSubscriptions wires inbound bus subjects so queries can arrive over
// NATS as well as HTTP.
func (e *Engine) SetupSubscriptions() error {
	if e.events == nil {
		return nil
	}
	return e.events.Subscribe(events.SubjectQueryRequest, func(subject string, data []byte) {
		var req events.QueryRequestEvent
		if err := json.Unmarshal(data, &req); err != nil {
			e.logger.Error("malformed query request event", "subject", subject, "error", err)
			return
		}
		q := &store.SupportQuery{
			ID:          uuid.New(),
			Description: req.Description,
			Priority:    store.Priority(req.Priority),
			Tags:        req.Tags,
			Domain:      req.Domain,
		}
		if req.Priority == "" {
			q.Priority = store.PriorityP3
		}
		if err := e.SubmitQuery(context.Background(), q); err != nil {
			e.logger.Error("failed to submit query from bus", "error", err)
		}
	})
}
