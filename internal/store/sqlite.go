package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a single-file store for local and development deployments.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS engineers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	designation TEXT NOT NULL,
	capacity INTEGER NOT NULL,
	current_load INTEGER NOT NULL DEFAULT 0,
	available INTEGER NOT NULL DEFAULT 1,
	skills TEXT NOT NULL DEFAULT '[]',
	timezone TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS support_queries (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	complexity_score REAL,
	priority TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	tags TEXT NOT NULL DEFAULT '[]',
	domain TEXT NOT NULL DEFAULT '',
	attempt_count INTEGER NOT NULL DEFAULT 0,
	sla_due_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	id TEXT PRIMARY KEY,
	engineer_id TEXT NOT NULL REFERENCES engineers(id),
	query_id TEXT NOT NULL REFERENCES support_queries(id),
	units INTEGER NOT NULL,
	allocation_percent REAL NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	assigned_at TEXT NOT NULL,
	completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_queries_status ON support_queries(status);
CREATE INDEX IF NOT EXISTS idx_assignments_query ON assignments(query_id);
`

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return err
}

// sqliteTimeFormat is fixed-width so lexicographic ordering of the stored
// text matches chronological ordering. RFC3339Nano trims trailing zeros and
// breaks that.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func marshalTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func unmarshalTags(raw string) []string {
	var tags []string
	_ = json.Unmarshal([]byte(raw), &tags)
	return tags
}

func (s *SQLiteStore) CreateEngineer(ctx context.Context, e *Engineer) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engineers (id, name, designation, capacity, current_load, available, skills, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Name, string(e.Designation), e.Capacity, e.CurrentLoad,
		boolToInt(e.Available), marshalTags(e.Skills), e.Timezone, formatTime(now), formatTime(now),
	)
	return err
}

func (s *SQLiteStore) GetEngineer(ctx context.Context, id uuid.UUID) (*Engineer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, designation, capacity, current_load, available, skills, timezone, created_at, updated_at
		FROM engineers WHERE id = ?`, id.String())
	e, err := scanEngineerRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *SQLiteStore) ListEngineers(ctx context.Context, filter EngineerFilter) ([]*Engineer, error) {
	query := `SELECT id, name, designation, capacity, current_load, available, skills, timezone, created_at, updated_at
		FROM engineers WHERE 1=1`
	args := []interface{}{}

	if filter.Available != nil {
		query += " AND available = ?"
		args = append(args, boolToInt(*filter.Available))
	}

	query += " ORDER BY created_at ASC"

	if filter.Limit >= 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = 100
		}
		query += " LIMIT ?"
		args = append(args, limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var engineers []*Engineer
	for rows.Next() {
		e, err := scanEngineerRow(rows)
		if err != nil {
			return nil, err
		}
		// Skill filtering happens here; SQLite keeps skills as a JSON blob.
		if filter.Skill != "" && !hasSkill(e.Skills, filter.Skill) {
			continue
		}
		engineers = append(engineers, e)
	}
	return engineers, rows.Err()
}

func (s *SQLiteStore) UpdateEngineer(ctx context.Context, e *Engineer) error {
	e.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE engineers SET
			name = ?, designation = ?, capacity = ?, current_load = ?,
			available = ?, skills = ?, timezone = ?, updated_at = ?
		WHERE id = ?`,
		e.Name, string(e.Designation), e.Capacity, e.CurrentLoad,
		boolToInt(e.Available), marshalTags(e.Skills), e.Timezone, formatTime(e.UpdatedAt),
		e.ID.String(),
	)
	return err
}

func (s *SQLiteStore) CreateQuery(ctx context.Context, q *SupportQuery) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	now := time.Now()
	q.CreatedAt = now
	q.UpdatedAt = now
	var sla interface{}
	if q.SLADueAt != nil {
		sla = formatTime(*q.SLADueAt)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO support_queries (id, description, complexity_score, priority, status, tags, domain, attempt_count, sla_due_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID.String(), q.Description, q.ComplexityScore, string(q.Priority), string(q.Status),
		marshalTags(q.Tags), q.Domain, q.AttemptCount, sla, formatTime(now), formatTime(now),
	)
	return err
}

func (s *SQLiteStore) GetQuery(ctx context.Context, id uuid.UUID) (*SupportQuery, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, complexity_score, priority, status, tags, domain, attempt_count, sla_due_at, created_at, updated_at
		FROM support_queries WHERE id = ?`, id.String())
	q, err := scanQueryRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return q, err
}

func (s *SQLiteStore) ListQueries(ctx context.Context, filter QueryFilter) ([]*SupportQuery, error) {
	query := `SELECT id, description, complexity_score, priority, status, tags, domain, attempt_count, sla_due_at, created_at, updated_at
		FROM support_queries WHERE 1=1`
	args := []interface{}{}

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		query += " AND priority = ?"
		args = append(args, string(*filter.Priority))
	}
	if filter.Domain != "" {
		query += " AND domain = ?"
		args = append(args, filter.Domain)
	}

	query += " ORDER BY created_at ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueryRows(rows)
}

func (s *SQLiteStore) UpdateQuery(ctx context.Context, q *SupportQuery) error {
	q.UpdatedAt = time.Now()
	var sla interface{}
	if q.SLADueAt != nil {
		sla = formatTime(*q.SLADueAt)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE support_queries SET
			description = ?, complexity_score = ?, priority = ?, status = ?,
			tags = ?, domain = ?, attempt_count = ?, sla_due_at = ?, updated_at = ?
		WHERE id = ?`,
		q.Description, q.ComplexityScore, string(q.Priority), string(q.Status),
		marshalTags(q.Tags), q.Domain, q.AttemptCount, sla, formatTime(q.UpdatedAt),
		q.ID.String(),
	)
	return err
}

func (s *SQLiteStore) GetPendingQueries(ctx context.Context) ([]*SupportQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, complexity_score, priority, status, tags, domain, attempt_count, sla_due_at, created_at, updated_at
		FROM support_queries WHERE status = 'pending'
		ORDER BY CASE priority WHEN 'P1' THEN 1 WHEN 'P2' THEN 2 ELSE 3 END, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueryRows(rows)
}

func (s *SQLiteStore) GetPastSLAQueries(ctx context.Context, now time.Time) ([]*SupportQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, complexity_score, priority, status, tags, domain, attempt_count, sla_due_at, created_at, updated_at
		FROM support_queries
		WHERE status = 'pending' AND sla_due_at IS NOT NULL AND sla_due_at < ?
		ORDER BY sla_due_at ASC`, formatTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueryRows(rows)
}

func (s *SQLiteStore) CreateAssignment(ctx context.Context, a *Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (id, engineer_id, query_id, units, allocation_percent, status, assigned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.EngineerID.String(), a.QueryID.String(),
		a.Units, a.AllocationPercent, string(a.Status), formatTime(a.AssignedAt),
	)
	return err
}

func (s *SQLiteStore) GetAssignment(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, engineer_id, query_id, units, allocation_percent, status, assigned_at, completed_at
		FROM assignments WHERE id = ?`, id.String())
	a, err := scanAssignmentRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (s *SQLiteStore) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]*Assignment, error) {
	query := `SELECT id, engineer_id, query_id, units, allocation_percent, status, assigned_at, completed_at
		FROM assignments WHERE 1=1`
	args := []interface{}{}

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.EngineerID != nil {
		query += " AND engineer_id = ?"
		args = append(args, filter.EngineerID.String())
	}
	if filter.QueryID != nil {
		query += " AND query_id = ?"
		args = append(args, filter.QueryID.String())
	}

	query += " ORDER BY assigned_at ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*Assignment
	for rows.Next() {
		a, err := scanAssignmentRow(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func (s *SQLiteStore) UpdateAssignment(ctx context.Context, a *Assignment) error {
	var completed interface{}
	if a.CompletedAt != nil {
		completed = formatTime(*a.CompletedAt)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE assignments SET
			engineer_id = ?, query_id = ?, units = ?, allocation_percent = ?,
			status = ?, completed_at = ?
		WHERE id = ?`,
		a.EngineerID.String(), a.QueryID.String(), a.Units, a.AllocationPercent,
		string(a.Status), completed, a.ID.String(),
	)
	return err
}

func (s *SQLiteStore) GetActiveAssignmentForQuery(ctx context.Context, queryID uuid.UUID) (*Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, engineer_id, query_id, units, allocation_percent, status, assigned_at, completed_at
		FROM assignments WHERE query_id = ? AND status = 'active'`, queryID.String())
	a, err := scanAssignmentRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (s *SQLiteStore) GetStats(ctx context.Context) (*RoutingStats, error) {
	stats := &RoutingStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM engineers),
			(SELECT COUNT(*) FROM engineers WHERE available = 1),
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEngineerRow(row rowScanner) (*Engineer, error) {
	e := &Engineer{}
	var id, skills, createdAt, updatedAt string
	var available int
	if err := row.Scan(
		&id, &e.Name, &e.Designation, &e.Capacity, &e.CurrentLoad, &available,
		&skills, &e.Timezone, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	e.ID, _ = uuid.Parse(id)
	e.Available = available != 0
	e.Skills = unmarshalTags(skills)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

func scanQueryRow(row rowScanner) (*SupportQuery, error) {
	q := &SupportQuery{}
	var id, tags, createdAt, updatedAt string
	var sla sql.NullString
	if err := row.Scan(
		&id, &q.Description, &q.ComplexityScore, &q.Priority, &q.Status,
		&tags, &q.Domain, &q.AttemptCount, &sla, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	q.ID, _ = uuid.Parse(id)
	q.Tags = unmarshalTags(tags)
	if sla.Valid {
		t := parseTime(sla.String)
		q.SLADueAt = &t
	}
	q.CreatedAt = parseTime(createdAt)
	q.UpdatedAt = parseTime(updatedAt)
	return q, nil
}

func scanQueryRows(rows *sql.Rows) ([]*SupportQuery, error) {
	var queries []*SupportQuery
	for rows.Next() {
		q, err := scanQueryRow(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

func scanAssignmentRow(row rowScanner) (*Assignment, error) {
	a := &Assignment{}
	var id, engineerID, queryID, assignedAt string
	var completed sql.NullString
	if err := row.Scan(
		&id, &engineerID, &queryID, &a.Units, &a.AllocationPercent,
		&a.Status, &assignedAt, &completed,
	); err != nil {
		return nil, err
	}
	a.ID, _ = uuid.Parse(id)
	a.EngineerID, _ = uuid.Parse(engineerID)
	a.QueryID, _ = uuid.Parse(queryID)
	a.AssignedAt = parseTime(assignedAt)
	if completed.Valid {
		t := parseTime(completed.String)
		a.CompletedAt = &t
	}
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func hasSkill(skills []string, skill string) bool {
	for _, s := range skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}
