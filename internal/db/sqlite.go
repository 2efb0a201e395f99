package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/outreach-agent/internal/types"
	_ "modernc.org/sqlite"
)

// sqliteTimeLayout has fixed width so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	company         TEXT NOT NULL,
	website         TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	fit_score       INTEGER NOT NULL DEFAULT 0,
	weakness        TEXT NOT NULL DEFAULT '',
	email_subject   TEXT NOT NULL DEFAULT '',
	email_body      TEXT NOT NULL DEFAULT '',
	industry        TEXT NOT NULL DEFAULT '',
	city            TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	target_audience TEXT NOT NULL DEFAULT '',
	budget_tier     TEXT NOT NULL DEFAULT '',
	query           TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads (created_at);
CREATE INDEX IF NOT EXISTS idx_leads_website ON leads (website);
`

// SQLiteStore stores leads in a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
}

// OpenSQLite opens (creating if needed) the database at path in WAL mode.
func OpenSQLite(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StoreError{Op: "open", Cause: err}
	}
	// sqlite wants a single writer
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, &StoreError{Op: "open", Cause: err}
	}

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, &StoreError{Op: "migrate", Cause: err}
	}

	return &SQLiteStore{db: conn, opts: opts}, nil
}

// JournalMode reports the active journal mode.
func (s *SQLiteStore) JournalMode(ctx context.Context) (string, error) {
	var mode string
	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		return "", &StoreError{Op: "pragma", Cause: err}
	}
	return mode, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, leads []types.Lead, campaign types.Campaign) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	batch := prepareBatch(leads, campaign, s.opts.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &StoreError{Op: "save", Cause: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	insert := fmt.Sprintf("INSERT INTO leads (%s) VALUES (%s)",
		strings.Join(leadColumns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(leadColumns)), ", "))

	saved := 0
	seen := make(map[string]bool)
	for _, l := range batch {
		if s.opts.Dedupe == DedupeSource {
			dup, err := s.isDuplicate(ctx, tx, l.Website, seen)
			if err != nil {
				return 0, &StoreError{Op: "save", Cause: err}
			}
			if dup {
				continue
			}
		}
		if _, err := tx.ExecContext(ctx, insert, leadArgs(l, l.CreatedAt.Format(sqliteTimeLayout))...); err != nil {
			return 0, &StoreError{Op: "save", Cause: err}
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, &StoreError{Op: "save", Cause: err}
	}
	committed = true
	return saved, nil
}

func (s *SQLiteStore) isDuplicate(ctx context.Context, tx *sql.Tx, website string, seen map[string]bool) (bool, error) {
	key := dedupeKey(website)
	if key == "" {
		return false, nil
	}
	if seen[key] {
		return true, nil
	}
	seen[key] = true

	var exists int
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM leads WHERE lower(rtrim(website, '/')) = ?)`, key).Scan(&exists)
	return exists == 1, err
}

// LoadAll implements Store.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]types.Lead, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, %s FROM leads ORDER BY created_at DESC, id DESC", strings.Join(leadColumns, ", ")))
	if err != nil {
		return nil, &StoreError{Op: "load", Cause: err}
	}
	defer func() { _ = rows.Close() }()

	var leads []types.Lead
	for rows.Next() {
		var created string
		l, err := scanLead(rows, &created)
		if err != nil {
			return nil, &StoreError{Op: "load", Cause: err}
		}
		if l.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
			return nil, &StoreError{Op: "load", Cause: fmt.Errorf("bad created_at %q: %w", created, err)}
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "load", Cause: err}
	}
	return leads, nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM leads"); err != nil {
		return &StoreError{Op: "clear", Cause: err}
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// scanLead reads one row in Columns() order; created_at goes to createdAt.
func scanLead(row scanner, createdAt any) (types.Lead, error) {
	var l types.Lead
	err := row.Scan(
		&l.ID, &l.Company, &l.Website, &l.Phone, &l.Email, &l.FitScore, &l.Weakness,
		&l.EmailSubject, &l.EmailBody, &l.Industry, &l.City, &l.Location,
		&l.TargetAudience, &l.BudgetTier, &l.Query, createdAt,
	)
	return l, err
}
