package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/outreach-agent/internal/types"
)

// DBPool is the subset of pgxpool.Pool the store uses.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id              BIGSERIAL PRIMARY KEY,
	company         TEXT NOT NULL,
	website         TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	fit_score       INTEGER NOT NULL DEFAULT 0 CHECK (fit_score BETWEEN 0 AND 10),
	weakness        TEXT NOT NULL DEFAULT '',
	email_subject   TEXT NOT NULL DEFAULT '',
	email_body      TEXT NOT NULL DEFAULT '',
	industry        TEXT NOT NULL DEFAULT '',
	city            TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	target_audience TEXT NOT NULL DEFAULT '',
	budget_tier     TEXT NOT NULL DEFAULT '',
	query           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads (created_at);
CREATE INDEX IF NOT EXISTS idx_leads_website ON leads (website);
`

// PostgresStore stores leads in PostgreSQL.
type PostgresStore struct {
	pool DBPool
	opts Options
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string, opts Options) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, &StoreError{Op: "open", Cause: fmt.Errorf("failed to connect to database: %w", err)}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &StoreError{Op: "open", Cause: fmt.Errorf("failed to ping database: %w", err)}
	}

	store := NewPostgresStoreWithPool(pool, opts)
	if err := store.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithPool wraps an existing pool. Useful for testing with mocks.
func NewPostgresStoreWithPool(pool DBPool, opts Options) *PostgresStore {
	return &PostgresStore{pool: pool, opts: opts}
}

// InitSchema creates the leads table if it doesn't exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return &StoreError{Op: "migrate", Cause: err}
	}
	return nil
}

func postgresInsert() string {
	placeholders := make([]string, len(leadColumns))
	for i := range leadColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO leads (%s) VALUES (%s)",
		strings.Join(leadColumns, ", "), strings.Join(placeholders, ", "))
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, leads []types.Lead, campaign types.Campaign) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	batch := prepareBatch(leads, campaign, s.opts.now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, &StoreError{Op: "save", Cause: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	insert := postgresInsert()
	saved := 0
	seen := make(map[string]bool)
	for _, l := range batch {
		if s.opts.Dedupe == DedupeSource {
			key := dedupeKey(l.Website)
			if key != "" {
				if seen[key] {
					continue
				}
				seen[key] = true

				var exists bool
				err := tx.QueryRow(ctx,
					`SELECT EXISTS(SELECT 1 FROM leads WHERE lower(rtrim(website, '/')) = $1)`, key).Scan(&exists)
				if err != nil {
					return 0, &StoreError{Op: "save", Cause: err}
				}
				if exists {
					continue
				}
			}
		}
		if _, err := tx.Exec(ctx, insert, leadArgs(l, l.CreatedAt)...); err != nil {
			return 0, &StoreError{Op: "save", Cause: err}
		}
		saved++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &StoreError{Op: "save", Cause: err}
	}
	committed = true
	return saved, nil
}

// LoadAll implements Store.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]types.Lead, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		"SELECT id, %s FROM leads ORDER BY created_at DESC, id DESC", strings.Join(leadColumns, ", ")))
	if err != nil {
		return nil, &StoreError{Op: "load", Cause: err}
	}
	defer rows.Close()

	var leads []types.Lead
	for rows.Next() {
		var created time.Time
		l, err := scanLead(rows, &created)
		if err != nil {
			return nil, &StoreError{Op: "load", Cause: err}
		}
		l.CreatedAt = created.UTC()
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "load", Cause: err}
	}
	return leads, nil
}

// Clear implements Store.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM leads"); err != nil {
		return &StoreError{Op: "clear", Cause: err}
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
