// Package extraction turns a candidate handle into bounded, readable page text.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/outreach-agent/internal/fetch"
	"github.com/jonathan/outreach-agent/internal/logging"
	"github.com/jonathan/outreach-agent/internal/types"
)

// Default text bounds, in characters.
const (
	DefaultMinLength = 100
	DefaultMaxLength = 3000
)

// ErrExtractionRejected marks a page whose reduced text is too short to assess.
var ErrExtractionRejected = errors.New("extracted text too short")

// Page is the outcome of a successful extraction.
type Page struct {
	Handle   string
	Text     string
	Contacts types.Contacts
	Rendered bool // true when the browser fallback produced the text
}

// Options configures an Extractor.
type Options struct {
	MinLength int
	MaxLength int
	Selectors []string
}

// Extractor fetches pages and reduces them to text.
type Extractor struct {
	fetcher  fetch.Fetcher
	fallback fetch.Fetcher // optional browser renderer
	opts     Options
	logger   logging.Logger
}

// New creates an Extractor. fallback may be nil.
func New(fetcher fetch.Fetcher, fallback fetch.Fetcher, opts Options, logger logging.Logger) *Extractor {
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	if len(opts.Selectors) == 0 {
		opts.Selectors = fetch.DefaultTextSelectors()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Extractor{fetcher: fetcher, fallback: fallback, opts: opts, logger: logger}
}

// Extract fetches handle and returns its reduced text.
// Text shorter than MinLength is rejected with ErrExtractionRejected; longer text is
// truncated to MaxLength characters. When a fallback is configured it is tried once
// if the static page fails or reduces to too little text.
func (e *Extractor) Extract(ctx context.Context, handle string) (*Page, error) {
	text, err := e.extractWith(ctx, e.fetcher, handle)
	rendered := false
	if e.fallback != nil && (err != nil || !e.longEnough(text)) && ctx.Err() == nil {
		e.logger.Debug("[Extract] static text insufficient for %s, rendering", handle)
		if rtext, rerr := e.extractWith(ctx, e.fallback, handle); rerr == nil && e.longEnough(rtext) {
			text, err, rendered = rtext, nil, true
		}
	}
	if err != nil {
		return nil, err
	}
	if !e.longEnough(text) {
		return nil, fmt.Errorf("%w: %s has %d characters", ErrExtractionRejected, handle, len([]rune(strings.TrimSpace(text))))
	}

	return &Page{
		Handle:   handle,
		Text:     Truncate(strings.TrimSpace(text), e.opts.MaxLength),
		Contacts: FindContacts(text),
		Rendered: rendered,
	}, nil
}

func (e *Extractor) extractWith(ctx context.Context, f fetch.Fetcher, handle string) (string, error) {
	result, err := f.Fetch(ctx, handle)
	if err != nil {
		return "", err
	}
	return fetch.ExtractMainText(result.HTML, e.opts.Selectors)
}

func (e *Extractor) longEnough(text string) bool {
	return len([]rune(strings.TrimSpace(text))) >= e.opts.MinLength
}

// Truncate shortens s to at most max characters without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
