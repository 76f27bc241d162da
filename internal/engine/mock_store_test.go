package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/intelliroute/intelliroute/internal/store"
)

// mockStore is an in-memory store.Store. It copies entities on every read and
// write so callers holding pointers cannot mutate stored state behind its
// back, matching database semantics.
type mockStore struct {
	mu          sync.Mutex
	engineers   map[uuid.UUID]*store.Engineer
	queries     map[uuid.UUID]*store.SupportQuery
	assignments map[uuid.UUID]*store.Assignment
}

func newMockStore() *mockStore {
	return &mockStore{
		engineers:   make(map[uuid.UUID]*store.Engineer),
		queries:     make(map[uuid.UUID]*store.SupportQuery),
		assignments: make(map[uuid.UUID]*store.Assignment),
	}
}

func copyEngineer(e *store.Engineer) *store.Engineer {
	c := *e
	c.Skills = append([]string(nil), e.Skills...)
	return &c
}

func copyQuery(q *store.SupportQuery) *store.SupportQuery {
	c := *q
	c.Tags = append([]string(nil), q.Tags...)
	if q.ComplexityScore != nil {
		score := *q.ComplexityScore
		c.ComplexityScore = &score
	}
	if q.SLADueAt != nil {
		due := *q.SLADueAt
		c.SLADueAt = &due
	}
	return &c
}

func copyAssignment(a *store.Assignment) *store.Assignment {
	c := *a
	if a.CompletedAt != nil {
		at := *a.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

func (m *mockStore) CreateEngineer(_ context.Context, e *store.Engineer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.engineers[e.ID] = copyEngineer(e)
	return nil
}

func (m *mockStore) GetEngineer(_ context.Context, id uuid.UUID) (*store.Engineer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engineers[id]
	if !ok {
		return nil, nil
	}
	return copyEngineer(e), nil
}

func (m *mockStore) ListEngineers(_ context.Context, filter store.EngineerFilter) ([]*store.Engineer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Engineer
	for _, e := range m.engineers {
		if filter.Available != nil && e.Available != *filter.Available {
			continue
		}
		if filter.Skill != "" && !hasSkillFold(e.Skills, filter.Skill) {
			continue
		}
		out = append(out, copyEngineer(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func hasSkillFold(skills []string, want string) bool {
	for _, s := range skills {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

func (m *mockStore) UpdateEngineer(_ context.Context, e *store.Engineer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.UpdatedAt = time.Now()
	m.engineers[e.ID] = copyEngineer(e)
	return nil
}

func (m *mockStore) CreateQuery(_ context.Context, q *store.SupportQuery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	q.UpdatedAt = q.CreatedAt
	m.queries[q.ID] = copyQuery(q)
	return nil
}

func (m *mockStore) GetQuery(_ context.Context, id uuid.UUID) (*store.SupportQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queries[id]
	if !ok {
		return nil, nil
	}
	return copyQuery(q), nil
}

func (m *mockStore) ListQueries(_ context.Context, filter store.QueryFilter) ([]*store.SupportQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.SupportQuery
	for _, q := range m.queries {
		if filter.Status != nil && q.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && q.Priority != *filter.Priority {
			continue
		}
		if filter.Domain != "" && !strings.EqualFold(q.Domain, filter.Domain) {
			continue
		}
		out = append(out, copyQuery(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockStore) UpdateQuery(_ context.Context, q *store.SupportQuery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.UpdatedAt = time.Now()
	m.queries[q.ID] = copyQuery(q)
	return nil
}

func (m *mockStore) GetPendingQueries(_ context.Context) ([]*store.SupportQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.SupportQuery
	for _, q := range m.queries {
		if q.Status == store.QueryPending {
			out = append(out, copyQuery(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() < out[j].Priority.Rank()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockStore) GetPastSLAQueries(_ context.Context, now time.Time) ([]*store.SupportQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.SupportQuery
	for _, q := range m.queries {
		if q.Status == store.QueryPending && q.SLADueAt != nil && q.SLADueAt.Before(now) {
			out = append(out, copyQuery(q))
		}
	}
	return out, nil
}

func (m *mockStore) CreateAssignment(_ context.Context, a *store.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	m.assignments[a.ID] = copyAssignment(a)
	return nil
}

func (m *mockStore) GetAssignment(_ context.Context, id uuid.UUID) (*store.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, nil
	}
	return copyAssignment(a), nil
}

func (m *mockStore) ListAssignments(_ context.Context, filter store.AssignmentFilter) ([]*store.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Assignment
	for _, a := range m.assignments {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.EngineerID != nil && a.EngineerID != *filter.EngineerID {
			continue
		}
		if filter.QueryID != nil && a.QueryID != *filter.QueryID {
			continue
		}
		out = append(out, copyAssignment(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.Before(out[j].AssignedAt) })
	return out, nil
}

func (m *mockStore) UpdateAssignment(_ context.Context, a *store.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ID] = copyAssignment(a)
	return nil
}

func (m *mockStore) GetActiveAssignmentForQuery(_ context.Context, queryID uuid.UUID) (*store.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.QueryID == queryID && a.Status == store.AssignmentActive {
			return copyAssignment(a), nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetStats(_ context.Context) (*store.RoutingStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &store.RoutingStats{}
	var scoreSum float64
	var scored int
	for _, e := range m.engineers {
		stats.EngineersTotal++
		if e.Available {
			stats.EngineersAvailable++
		}
	}
	for _, q := range m.queries {
		switch q.Status {
		case store.QueryPending:
			stats.QueriesPending++
		case store.QueryAssigned:
			stats.QueriesAssigned++
		case store.QueryResolved:
			stats.QueriesResolved++
		case store.QueryEscalated:
			stats.QueriesEscalated++
		}
		if q.ComplexityScore != nil {
			scoreSum += *q.ComplexityScore
			scored++
		}
	}
	for _, a := range m.assignments {
		if a.Status == store.AssignmentActive {
			stats.AssignmentsActive++
		}
	}
	if scored > 0 {
		stats.AvgComplexity = scoreSum / float64(scored)
	}
	return stats, nil
}

func (m *mockStore) Close() error { return nil }
