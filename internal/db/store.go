// Package db persists leads. SQLite is the default backend; PostgreSQL is
// selected by a postgres:// connection URL.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/outreach-agent/internal/types"
)

// Store is the lead table.
type Store interface {
	// Save inserts leads in one transaction, recording campaign context on each row.
	// It returns the number of rows written.
	Save(ctx context.Context, leads []types.Lead, campaign types.Campaign) (int, error)
	// LoadAll returns every lead, newest first.
	LoadAll(ctx context.Context) ([]types.Lead, error)
	// Clear deletes every lead. Clearing an empty table is not an error.
	Clear(ctx context.Context) error
	Close() error
}

// DedupePolicy controls whether Save skips leads already stored.
type DedupePolicy string

const (
	// DedupeNone stores every lead, including repeats across runs.
	DedupeNone DedupePolicy = "none"
	// DedupeSource skips a lead whose website is already stored.
	DedupeSource DedupePolicy = "source"
)

// ParseDedupePolicy parses a policy name; "" is the default.
func ParseDedupePolicy(s string) (DedupePolicy, error) {
	switch DedupePolicy(s) {
	case "", DedupeNone:
		return DedupeNone, nil
	case DedupeSource:
		return DedupeSource, nil
	}
	return "", fmt.Errorf("unknown dedupe policy %q", s)
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// StoreError wraps a failed storage operation.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("lead store %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Options configures a Store.
type Options struct {
	Dedupe DedupePolicy
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

// Open opens the store for dsn: a postgres:// or postgresql:// URL, or a SQLite file path.
func Open(ctx context.Context, dsn string, opts Options) (Store, error) {
	if IsPostgresURL(dsn) {
		return NewPostgresStore(ctx, dsn, opts)
	}
	return OpenSQLite(ctx, dsn, opts)
}

// IsPostgresURL reports whether dsn names a PostgreSQL database.
func IsPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// prepareBatch stamps leads with campaign context and the batch timestamp.
func prepareBatch(leads []types.Lead, campaign types.Campaign, now time.Time) []types.Lead {
	out := make([]types.Lead, len(leads))
	for i, l := range leads {
		if campaign.SearchQuery() != "" {
			l.ApplyCampaign(campaign)
		}
		l.Website = strings.TrimSpace(l.Website)
		l.FitScore = types.ClampFitScore(l.FitScore)
		l.CreatedAt = now
		out[i] = l
	}
	return out
}

// dedupeKey is the website normalized for duplicate checks; "" never dedupes.
// It must agree with lower(rtrim(website, '/')) on the stored, space-trimmed value.
func dedupeKey(website string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(website)), "/")
}

// leadColumns is the column order used for inserts and selects.
var leadColumns = []string{
	"company", "website", "phone", "email", "fit_score", "weakness",
	"email_subject", "email_body", "industry", "city", "location",
	"target_audience", "budget_tier", "query", "created_at",
}

// Columns returns the exported column order, id first.
func Columns() []string {
	return append([]string{"id"}, leadColumns...)
}

func leadArgs(l types.Lead, createdAt any) []any {
	return []any{
		l.Company, l.Website, l.Phone, l.Email, l.FitScore, l.Weakness,
		l.EmailSubject, l.EmailBody, l.Industry, l.City, l.Location,
		l.TargetAudience, l.BudgetTier, l.Query, createdAt,
	}
}

// scanner is satisfied by *sql.Rows and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}
