package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS engineers (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name TEXT NOT NULL,
	designation TEXT NOT NULL,
	capacity INT NOT NULL,
	current_load INT NOT NULL DEFAULT 0,
	available BOOLEAN NOT NULL DEFAULT TRUE,
	skills TEXT[] NOT NULL DEFAULT '{}',
	timezone TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS support_queries (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	description TEXT NOT NULL,
	complexity_score DOUBLE PRECISION,
	priority TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	tags TEXT[] NOT NULL DEFAULT '{}',
	domain TEXT NOT NULL DEFAULT '',
	attempt_count INT NOT NULL DEFAULT 0,
	sla_due_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS assignments (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	engineer_id UUID NOT NULL REFERENCES engineers(id),
	query_id UUID NOT NULL REFERENCES support_queries(id),
	units INT NOT NULL,
	allocation_percent DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	assigned_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_queries_status ON support_queries(status);
CREATE INDEX IF NOT EXISTS idx_assignments_query ON assignments(query_id) WHERE status = 'active';
`

// Migrate creates the schema when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return err
}

const engineerColumns = `id, name, designation, capacity, current_load, available,
	skills, timezone, created_at, updated_at`

func (s *PostgresStore) CreateEngineer(ctx context.Context, e *Engineer) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO engineers (name, designation, capacity, current_load, available, skills, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		e.Name, e.Designation, e.Capacity, e.CurrentLoad, e.Available, e.Skills, e.Timezone,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (s *PostgresStore) GetEngineer(ctx context.Context, id uuid.UUID) (*Engineer, error) {
	e := &Engineer{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+engineerColumns+`
		FROM engineers WHERE id = $1`, id,
	).Scan(
		&e.ID, &e.Name, &e.Designation, &e.Capacity, &e.CurrentLoad, &e.Available,
		&e.Skills, &e.Timezone, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *PostgresStore) ListEngineers(ctx context.Context, filter EngineerFilter) ([]*Engineer, error) {
	query := `SELECT ` + engineerColumns + ` FROM engineers WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Available != nil {
		n++
		query += fmt.Sprintf(" AND available = $%d", n)
		args = append(args, *filter.Available)
	}
	if filter.Skill != "" {
		n++
		query += fmt.Sprintf(" AND $%d ILIKE ANY(skills)", n)
		args = append(args, filter.Skill)
	}

	query += " ORDER BY created_at ASC"

	if filter.Limit >= 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = 100
		}
		n++
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, limit)
	}

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEngineers(rows)
}

func (s *PostgresStore) UpdateEngineer(ctx context.Context, e *Engineer) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE engineers SET
			name = $2, designation = $3, capacity = $4, current_load = $5,
			available = $6, skills = $7, timezone = $8, updated_at = now()
		WHERE id = $1`,
		e.ID, e.Name, e.Designation, e.Capacity, e.CurrentLoad,
		e.Available, e.Skills, e.Timezone,
	)
	return err
}

const queryColumns = `id, description, complexity_score, priority, status,
	tags, domain, attempt_count, sla_due_at, created_at, updated_at`

func (s *PostgresStore) CreateQuery(ctx context.Context, q *SupportQuery) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO support_queries (description, complexity_score, priority, status, tags, domain, sla_due_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		q.Description, q.ComplexityScore, q.Priority, q.Status, q.Tags, q.Domain, q.SLADueAt,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

func (s *PostgresStore) GetQuery(ctx context.Context, id uuid.UUID) (*SupportQuery, error) {
	q := &SupportQuery{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+queryColumns+`
		FROM support_queries WHERE id = $1`, id,
	).Scan(
		&q.ID, &q.Description, &q.ComplexityScore, &q.Priority, &q.Status,
		&q.Tags, &q.Domain, &q.AttemptCount, &q.SLADueAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *PostgresStore) ListQueries(ctx context.Context, filter QueryFilter) ([]*SupportQuery, error) {
	query := `SELECT ` + queryColumns + ` FROM support_queries WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		n++
		query += fmt.Sprintf(" AND priority = $%d", n)
		args = append(args, string(*filter.Priority))
	}
	if filter.Domain != "" {
		n++
		query += fmt.Sprintf(" AND domain = $%d", n)
		args = append(args, filter.Domain)
	}

	query += " ORDER BY created_at ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueries(rows)
}

func (s *PostgresStore) UpdateQuery(ctx context.Context, q *SupportQuery) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE support_queries SET
			description = $2, complexity_score = $3, priority = $4, status = $5,
			tags = $6, domain = $7, attempt_count = $8, sla_due_at = $9, updated_at = now()
		WHERE id = $1`,
		q.ID, q.Description, q.ComplexityScore, q.Priority, q.Status,
		q.Tags, q.Domain, q.AttemptCount, q.SLADueAt,
	)
	return err
}

func (s *PostgresStore) GetPendingQueries(ctx context.Context) ([]*SupportQuery, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+queryColumns+`
		FROM support_queries WHERE status = 'pending'
		ORDER BY CASE priority WHEN 'P1' THEN 1 WHEN 'P2' THEN 2 ELSE 3 END, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueries(rows)
}

func (s *PostgresStore) GetPastSLAQueries(ctx context.Context, now time.Time) ([]*SupportQuery, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+queryColumns+`
		FROM support_queries
		WHERE status = 'pending' AND sla_due_at IS NOT NULL AND sla_due_at < $1
		ORDER BY sla_due_at ASC`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueries(rows)
}

const assignmentColumns = `id, engineer_id, query_id, units, allocation_percent,
	status, assigned_at, completed_at`

func (s *PostgresStore) CreateAssignment(ctx context.Context, a *Assignment) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO assignments (engineer_id, query_id, units, allocation_percent, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, assigned_at`,
		a.EngineerID, a.QueryID, a.Units, a.AllocationPercent, a.Status,
	).Scan(&a.ID, &a.AssignedAt)
}

func (s *PostgresStore) GetAssignment(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	a := &Assignment{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments WHERE id = $1`, id,
	).Scan(
		&a.ID, &a.EngineerID, &a.QueryID, &a.Units, &a.AllocationPercent,
		&a.Status, &a.AssignedAt, &a.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]*Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.EngineerID != nil {
		n++
		query += fmt.Sprintf(" AND engineer_id = $%d", n)
		args = append(args, *filter.EngineerID)
	}
	if filter.QueryID != nil {
		n++
		query += fmt.Sprintf(" AND query_id = $%d", n)
		args = append(args, *filter.QueryID)
	}

	query += " ORDER BY assigned_at ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (s *PostgresStore) UpdateAssignment(ctx context.Context, a *Assignment) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE assignments SET
			engineer_id = $2, query_id = $3, units = $4, allocation_percent = $5,
			status = $6, completed_at = $7
		WHERE id = $1`,
		a.ID, a.EngineerID, a.QueryID, a.Units, a.AllocationPercent,
		a.Status, a.CompletedAt,
	)
	return err
}

func (s *PostgresStore) GetActiveAssignmentForQuery(ctx context.Context, queryID uuid.UUID) (*Assignment, error) {
	a := &Assignment{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments WHERE query_id = $1 AND status = 'active'`, queryID,
	).Scan(
		&a.ID, &a.EngineerID, &a.QueryID, &a.Units, &a.AllocationPercent,
		&a.Status, &a.AssignedAt, &a.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) GetStats(ctx context.Context) (*RoutingStats, error) {
	stats := &RoutingStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM engineers),
			(SELECT COUNT(*) FROM engineers WHERE available),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'assigned' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'resolved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'escalated' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM assignments WHERE status = 'active'),
			COALESCE(AVG(complexity_score), 0)
		FROM support_queries`,
	).Scan(
		&stats.EngineersTotal, &stats.EngineersAvailable,
		&stats.QueriesPending, &stats.QueriesAssigned,
		&stats.QueriesResolved, &stats.QueriesEscalated,
		&stats.AssignmentsActive, &stats.AvgComplexity,
	)
	return stats, err
}

func scanEngineers(rows pgx.Rows) ([]*Engineer, error) {
	var engineers []*Engineer
	for rows.Next() {
		e := &Engineer{}
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Designation, &e.Capacity, &e.CurrentLoad, &e.Available,
			&e.Skills, &e.Timezone, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		engineers = append(engineers, e)
	}
	return engineers, rows.Err()
}

func scanQueries(rows pgx.Rows) ([]*SupportQuery, error) {
	var queries []*SupportQuery
	for rows.Next() {
		q := &SupportQuery{}
		if err := rows.Scan(
			&q.ID, &q.Description, &q.ComplexityScore, &q.Priority, &q.Status,
			&q.Tags, &q.Domain, &q.AttemptCount, &q.SLADueAt, &q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

func scanAssignments(rows pgx.Rows) ([]*Assignment, error) {
	var assignments []*Assignment
	for rows.Next() {
		a := &Assignment{}
		if err := rows.Scan(
			&a.ID, &a.EngineerID, &a.QueryID, &a.Units, &a.AllocationPercent,
			&a.Status, &a.AssignedAt, &a.CompletedAt,
		); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
