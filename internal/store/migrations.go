package store

import (
	"context"
	_ "embed"
	"strings"

	"botwright/pkg/schema"
)

//go:embed migrations/001_initial_schema.sql
var initialSchema string

// schemaMigrations is the ordered migration history. Append only; versions
// already applied on a database are never re-run.
var schemaMigrations = []struct {
	version int
	name    string
	script  string
}{
	{1, "initial_schema", initialSchema},
}

// Migrate brings the database schema up to date. Each pending migration runs
// in its own transaction and is recorded in schema_version on commit, so a
// failed migration leaves the database at the last good version.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "ensure schema_version table: %s", err.Error()).WithCause(err)
	}

	var applied int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&applied); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "read schema version: %s", err.Error()).WithCause(err)
	}

	for _, m := range schemaMigrations {
		if m.version <= applied {
			continue
		}
		if err := s.applyMigration(ctx, m.version, m.name, m.script); err != nil {
			return err
		}
	}
	return nil
}

func (s *LibSQLStore) applyMigration(ctx context.Context, version int, name, script string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "begin migration %q: %s", name, err.Error()).WithCause(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range sqlStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return schema.NewErrorf(schema.ErrCodeStore,
				"apply migration %d %q: %s", version, name, err.Error()).WithCause(err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, name) VALUES (?, ?)`, version, name); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "record migration %q: %s", name, err.Error()).WithCause(err)
	}
	if err := tx.Commit(); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "commit migration %q: %s", name, err.Error()).WithCause(err)
	}
	return nil
}

// sqlStatements strips -- comments from a migration script and splits it into
// individual statements on semicolons. Good enough for DDL; scripts here never
// embed semicolons or dashes inside literals.
func sqlStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	var stmts []string
	for _, part := range strings.Split(b.String(), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
