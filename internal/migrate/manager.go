// Package migrate applies embedded SQL migrations and seed data against a
// PostgreSQL database. Migration files are named NNNN_name.up.sql with a
// matching NNNN_name.down.sql; seeds are plain .sql files. Bookkeeping is
// keyed by file name in two tables.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"colschool.org/internal/obs"
)

const (
	defaultMigrationsTable = "schema_migrations"
	defaultSeedsTable      = "schema_seeds"
)

// Manager drives schema migrations from embedded SQL filesystems.
type Manager struct {
	db     *sql.DB
	schema fs.FS
	seeds  fs.FS

	migrationsTable string
	seedsTable      string
}

// Option configures Manager.
type Option func(*Manager)

// WithMigrationsTable overrides the migrations bookkeeping table.
func WithMigrationsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.migrationsTable = name
		}
	}
}

// WithSeedsTable overrides the seeds bookkeeping table.
func WithSeedsTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.seedsTable = name
		}
	}
}

// NewManager constructs a Manager over the schema and seed filesystems.
// Either filesystem may be nil, which disables that half.
func NewManager(db *sql.DB, schema, seeds fs.FS, opts ...Option) *Manager {
	m := &Manager{
		db:              db,
		schema:          schema,
		seeds:           seeds,
		migrationsTable: defaultMigrationsTable,
		seedsTable:      defaultSeedsTable,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies every pending migration in file-name order.
func (m *Manager) Up(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	applied, err := m.appliedSet(ctx, m.migrationsTable)
	if err != nil {
		return err
	}
	names, err := listSQL(m.schema, ".up.sql")
	if err != nil {
		return err
	}
	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := m.apply(ctx, m.schema, name); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if err := m.record(ctx, m.migrationsTable, name); err != nil {
			return err
		}
		obs.Emit(map[string]any{"type": "migrate", "event": "applied", "name": name})
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	history, err := m.history(ctx, m.migrationsTable)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return errors.New("no migrations applied")
	}
	last := history[len(history)-1]
	downName := strings.TrimSuffix(last, ".up.sql") + ".down.sql"
	if _, err := fs.Stat(m.schema, downName); err != nil {
		return fmt.Errorf("missing down migration for %s", last)
	}
	if err := m.apply(ctx, m.schema, downName); err != nil {
		return fmt.Errorf("rollback migration %s: %w", last, err)
	}
	if _, err := m.db.ExecContext(ctx,
		fmt.Sprintf(`delete from %s where name = $1`, m.migrationsTable), last); err != nil {
		return err
	}
	obs.Emit(map[string]any{"type": "migrate", "event": "rolled_back", "name": last})
	return nil
}

// Seed applies pending seed files. Seeds are expected to be idempotent on
// their own; bookkeeping just avoids re-running them.
func (m *Manager) Seed(ctx context.Context) error {
	if err := m.ensureTables(ctx); err != nil {
		return err
	}
	applied, err := m.appliedSet(ctx, m.seedsTable)
	if err != nil {
		return err
	}
	names, err := listSQL(m.seeds, ".sql")
	if err != nil {
		return err
	}
	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := m.apply(ctx, m.seeds, name); err != nil {
			return fmt.Errorf("apply seed %s: %w", name, err)
		}
		if err := m.record(ctx, m.seedsTable, name); err != nil {
			return err
		}
		obs.Emit(map[string]any{"type": "migrate", "event": "seeded", "name": name})
	}
	return nil
}

// Status returns applied migrations in application order.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	return m.history(ctx, m.migrationsTable)
}

func (m *Manager) ensureTables(ctx context.Context) error {
	for _, table := range []string{m.migrationsTable, m.seedsTable} {
		ddl := fmt.Sprintf(`
			create table if not exists %s (
				name text primary key,
				applied_at timestamptz not null default now()
			)`, table)
		if _, err := m.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

// apply runs every statement of one SQL file inside a single transaction.
func (m *Manager) apply(ctx context.Context, fsys fs.FS, name string) error {
	script, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(script)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Manager) record(ctx context.Context, table, name string) error {
	_, err := m.db.ExecContext(ctx,
		fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, table),
		name, time.Now().UTC())
	return err
}

func (m *Manager) appliedSet(ctx context.Context, table string) (map[string]bool, error) {
	names, err := m.queryNames(ctx, fmt.Sprintf(`select name from %s`, table))
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set, nil
}

func (m *Manager) history(ctx context.Context, table string) ([]string, error) {
	return m.queryNames(ctx,
		fmt.Sprintf(`select name from %s order by applied_at asc`, table))
}

func (m *Manager) queryNames(ctx context.Context, query string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// listSQL returns the files with the given suffix in file-name order.
func listSQL(fsys fs.FS, suffix string) ([]string, error) {
	if fsys == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// splitStatements cuts a script into statements on top-level semicolons,
// leaving quoted literals and line comments intact.
func splitStatements(script string) []string {
	var (
		out       []string
		buf       strings.Builder
		inQuote   bool
		inComment bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(buf.String()); stmt != "" {
			out = append(out, stmt)
		}
		buf.Reset()
	}
	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case inComment:
			buf.WriteByte(c)
			if c == '\n' {
				inComment = false
			}
		case inQuote:
			buf.WriteByte(c)
			if c == '\'' {
				inQuote = false
			}
		case c == '\'':
			inQuote = true
			buf.WriteByte(c)
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			inComment = true
			buf.WriteByte(c)
		case c == ';':
			flush()
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return out
}
