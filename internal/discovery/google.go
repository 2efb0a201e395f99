package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/outreach-agent/internal/types"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// googlePageSize is the largest page the Custom Search API serves.
const googlePageSize = 10

// GoogleCSE discovers candidates through the Google Custom Search JSON API.
type GoogleCSE struct {
	svc    *customsearch.Service
	cx     string
	region string
}

// NewGoogleCSE creates a Custom Search source for engine cx.
// Extra client options are passed to the underlying service.
func NewGoogleCSE(ctx context.Context, apiKey, cx, region string, opts ...option.ClientOption) (*GoogleCSE, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleCSE{svc: svc, cx: cx, region: region}, nil
}

// Name implements Source.
func (g *GoogleCSE) Name() string { return "google" }

// Discover implements Source. It pages through results until the over-fetch cap is met.
func (g *GoogleCSE) Discover(ctx context.Context, query, region string, limit int) ([]types.Candidate, error) {
	max := OverFetch(limit)
	if max == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	if region == "" {
		region = g.region
	}
	gl := countryFromRegion(region)

	col := newCollector(max)
	for start := int64(1); !col.full(); start += googlePageSize {
		call := g.svc.Cse.List().Cx(g.cx).Q(query).Num(googlePageSize).Start(start).Context(ctx)
		if gl != "" {
			call = call.Gl(gl)
		}

		resp, err := call.Do()
		if err != nil {
			if len(col.out) > 0 {
				break // keep what earlier pages returned
			}
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}

		for _, item := range resp.Items {
			if !col.add(types.Candidate{Handle: item.Link, Title: item.Title, Snippet: item.Snippet}) {
				break
			}
		}
		if len(resp.Items) < googlePageSize {
			break
		}
	}
	return col.out, nil
}

// countryFromRegion maps a DuckDuckGo style region ("pl-pl", "us-en") to a country code.
// The worldwide region maps to none.
func countryFromRegion(region string) string {
	country, _, _ := strings.Cut(strings.ToLower(region), "-")
	if country == "" || country == "wt" {
		return ""
	}
	return country
}

// NewSource builds the named source.
func NewSource(ctx context.Context, name, region, googleAPIKey, googleCSEID string) (Source, error) {
	switch name {
	case "", "duckduckgo":
		return NewDuckDuckGo(region), nil
	case "google":
		return NewGoogleCSE(ctx, googleAPIKey, googleCSEID, region)
	default:
		return nil, fmt.Errorf("unknown discovery source %q", name)
	}
}
