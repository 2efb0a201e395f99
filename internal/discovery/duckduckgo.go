package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/outreach-agent/internal/fetch"
	"github.com/jonathan/outreach-agent/internal/types"
)

// DefaultDuckDuckGoURL is the JavaScript-free results endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the DuckDuckGo HTML results page.
type DuckDuckGo struct {
	BaseURL string
	Region  string // e.g. pl-pl, us-en, wt-wt
	Client  *http.Client
}

// NewDuckDuckGo creates a DuckDuckGo source for a region.
func NewDuckDuckGo(region string) *DuckDuckGo {
	return &DuckDuckGo{
		BaseURL: DefaultDuckDuckGoURL,
		Region:  region,
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// Name implements Source.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Discover implements Source.
func (d *DuckDuckGo) Discover(ctx context.Context, query, region string, limit int) ([]types.Candidate, error) {
	max := OverFetch(limit)
	if max == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	form := url.Values{}
	form.Set("q", query)
	if region == "" {
		region = d.Region
	}
	if region != "" {
		form.Set("kl", region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", fetch.DefaultUserAgent)

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse results: %v", ErrSourceUnavailable, err)
	}

	return parseDuckDuckGoResults(doc, max), nil
}

func parseDuckDuckGoResults(doc *goquery.Document, max int) []types.Candidate {
	col := newCollector(max)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		return col.add(types.Candidate{
			Handle:  resolveDuckDuckGoHref(href),
			Title:   strings.TrimSpace(link.Text()),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
	})
	return col.out
}

// resolveDuckDuckGoHref unwraps the //duckduckgo.com/l/?uddg=<target> redirect links.
func resolveDuckDuckGoHref(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(parsed.Host, "duckduckgo.com") && parsed.Path == "/l/" {
		if target := parsed.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}
