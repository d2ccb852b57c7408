package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"botwright/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// SaveRun inserts a run record. An existing ID is replaced so a retried save
// after a partial failure cannot duplicate history.
func (s *LibSQLStore) SaveRun(ctx context.Context, run *RunRecord) error {
	metrics, err := nullableJSON(run.Metrics)
	if err != nil {
		return fmt.Errorf("marshal run metrics: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, bot_name, correlation_id, success, total_actions, successful, failed, duration, metrics, started_at, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   success=excluded.success, total_actions=excluded.total_actions,
		   successful=excluded.successful, failed=excluded.failed,
		   duration=excluded.duration, metrics=excluded.metrics,
		   started_at=excluded.started_at, completed_at=excluded.completed_at`,
		run.ID, run.BotName, run.CorrelationID, boolInt(run.Success),
		run.TotalActions, run.Successful, run.Failed, run.Duration,
		metrics, nullTime(run.StartedAt), nullTime(run.CompletedAt), timeOrNow(run.CreatedAt),
	)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "save run").WithCause(err)
	}
	return nil
}

func (s *LibSQLStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	r := &RunRecord{}
	var (
		success                int
		metrics                sql.NullString
		startedAt, completedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, bot_name, correlation_id, success, total_actions, successful, failed, duration, metrics, started_at, completed_at, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.BotName, &r.CorrelationID, &success, &r.TotalActions, &r.Successful,
		&r.Failed, &r.Duration, &metrics, &startedAt, &completedAt, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("run", id)
	}
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "get run").WithCause(err)
	}
	r.Success = success != 0
	r.Metrics = rawOrNil(metrics)
	if startedAt.Valid {
		r.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	return r, nil
}

func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error) {
	var where []string
	var args []any

	if filter.BotName != "" {
		where = append(where, "bot_name = ?")
		args = append(args, filter.BotName)
	}
	if filter.Success != nil {
		where = append(where, "success = ?")
		args = append(args, boolInt(*filter.Success))
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.Since)
	}

	query := "SELECT id, bot_name, correlation_id, success, total_actions, successful, failed, duration, metrics, started_at, completed_at, created_at FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "list runs").WithCause(err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		r := &RunRecord{}
		var (
			success                int
			metrics                sql.NullString
			startedAt, completedAt sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.BotName, &r.CorrelationID, &success, &r.TotalActions,
			&r.Successful, &r.Failed, &r.Duration, &metrics, &startedAt, &completedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Success = success != 0
		r.Metrics = rawOrNil(metrics)
		if startedAt.Valid {
			r.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			r.CompletedAt = &completedAt.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *LibSQLStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "delete run").WithCause(err)
	}
	return checkRowsAffected(res, "run", id)
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.BotError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

func nullableJSON(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return string(raw), nil
}
