// Package discovery finds candidate businesses for a search query.
//
// A Source returns at most twice the requested limit so that later extraction
// failures can be absorbed without a second search.
package discovery

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/jonathan/outreach-agent/internal/types"
)

var (
	// ErrSourceUnavailable wraps any failure to reach or read a search backend.
	ErrSourceUnavailable = errors.New("discovery source unavailable")
	// ErrNoCandidates means the search produced nothing to process.
	ErrNoCandidates = errors.New("no candidates found")
)

// Source discovers candidate handles for a query. An empty region uses the
// region the source was built with.
type Source interface {
	Discover(ctx context.Context, query, region string, limit int) ([]types.Candidate, error)
	Name() string
}

// OverFetch returns how many candidates a source should return for limit.
func OverFetch(limit int) int {
	if limit <= 0 {
		return 0
	}
	return limit * 2
}

// normalizeHandle returns a canonical form of u used for duplicate detection,
// or "" if u is not an absolute http(s) URL.
func normalizeHandle(u string) string {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	path := strings.TrimSuffix(parsed.Path, "/")
	return host + path
}

// collector accumulates unique candidates up to a cap.
type collector struct {
	max  int
	seen map[string]bool
	out  []types.Candidate
}

func newCollector(max int) *collector {
	return &collector{max: max, seen: make(map[string]bool)}
}

// add appends c unless it is invalid, a duplicate or the cap is reached.
// It returns false once the collector is full.
func (c *collector) add(cand types.Candidate) bool {
	if c.full() {
		return false
	}
	key := normalizeHandle(cand.Handle)
	if key == "" || c.seen[key] {
		return true
	}
	c.seen[key] = true
	c.out = append(c.out, cand)
	return !c.full()
}

func (c *collector) full() bool {
	return len(c.out) >= c.max
}
