// Package pipeline runs a hunt: discover candidates, extract their pages,
// qualify them with a language model and persist the leads that survive.
//
// Stages run sequentially, one candidate at a time. Progress is reported through
// an optional callback; the context is checked between items and a cancelled hunt
// persists nothing.
package pipeline

import (
	"context"
	"fmt"

	"github.com/jonathan/outreach-agent/internal/discovery"
	"github.com/jonathan/outreach-agent/internal/extraction"
	"github.com/jonathan/outreach-agent/internal/logging"
	"github.com/jonathan/outreach-agent/internal/qualification"
	"github.com/jonathan/outreach-agent/internal/types"
)

// Stage names used in progress events.
const (
	StageDiscovery = "discovery"
	StageExtract   = "extract"
	StageQualify   = "qualify"
	StagePersist   = "persist"
	StageDone      = "done"
)

// Event categories.
const (
	CategoryInfo    = "info"
	CategorySkip    = "skip"
	CategoryLead    = "lead"
	CategoryWarning = "warning"
)

// ProgressEvent represents a progress update during a hunt
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	HuntID   string `json:"hunt_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when hunt progress occurs
type ProgressCallback func(event ProgressEvent)

// PageExtractor reduces a candidate handle to page text.
type PageExtractor interface {
	Extract(ctx context.Context, handle string) (*extraction.Page, error)
}

// Qualifier assesses one extracted page.
type Qualifier interface {
	Assess(ctx context.Context, campaign types.Campaign, in qualification.Input) (*qualification.Outcome, error)
}

// LeadSaver persists a batch of leads.
type LeadSaver interface {
	Save(ctx context.Context, leads []types.Lead, campaign types.Campaign) (int, error)
}

// Hunter wires the stages of a hunt together.
type Hunter struct {
	Source    discovery.Source
	Extractor PageExtractor
	Qualifier Qualifier
	Store     LeadSaver
	Logger    logging.Logger
}

// Report summarizes a finished hunt.
type Report struct {
	Query       string       `json:"query"`
	Candidates  int          `json:"candidates"`
	Extracted   int          `json:"extracted"`
	Skipped     int          `json:"skipped"`
	Assessed    int          `json:"assessed"`
	ModelErrors int          `json:"model_errors"`
	Unparseable int          `json:"unparseable"`
	Saved       int          `json:"saved"`
	Leads       []types.Lead `json:"leads"`
}

// Hunt runs one hunt for campaign. Only an empty candidate list and a cancelled
// context end the hunt early; individual extraction and model failures are reported
// as progress and skipped.
func (h *Hunter) Hunt(ctx context.Context, campaign types.Campaign, onProgress ProgressCallback) (*Report, error) {
	if err := campaign.Validate(); err != nil {
		return nil, err
	}
	logger := h.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	emit := func(step, category, message string, content any) {
		if onProgress != nil {
			onProgress(ProgressEvent{Step: step, Category: category, Message: message, Content: content})
		}
	}

	limit := campaign.MaxResults
	report := &Report{Query: campaign.SearchQuery()}

	// Discovery
	logger.Info("[Discovery] searching %s for %q", h.Source.Name(), report.Query)
	emit(StageDiscovery, CategoryInfo, fmt.Sprintf("Searching %s for %q", h.Source.Name(), report.Query), nil)
	candidates, err := h.Source.Discover(ctx, report.Query, campaign.Region, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("[Discovery] %v", err)
		emit(StageDiscovery, CategoryWarning, err.Error(), nil)
		candidates = nil
	}
	report.Candidates = len(candidates)
	if len(candidates) == 0 {
		return report, discovery.ErrNoCandidates
	}
	emit(StageDiscovery, CategoryInfo, fmt.Sprintf("Found %d candidates", len(candidates)), nil)

	// Extraction
	pages := make([]*extraction.Page, 0, limit)
	for i, cand := range candidates {
		if len(pages) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emit(StageExtract, CategoryInfo, fmt.Sprintf("Reading %d/%d: %s", i+1, len(candidates), cand.Handle), nil)
		page, err := h.Extractor.Extract(ctx, cand.Handle)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.Skipped++
			logger.Debug("[Extract] skip %s: %v", cand.Handle, err)
			emit(StageExtract, CategorySkip, fmt.Sprintf("Skipped %s: %v", cand.Handle, err), nil)
			continue
		}
		pages = append(pages, page)
	}
	report.Extracted = len(pages)
	logger.Info("[Extract] %d pages extracted, %d skipped", report.Extracted, report.Skipped)

	// Qualification
	var leads []types.Lead
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emit(StageQualify, CategoryInfo, fmt.Sprintf("Assessing %d/%d: %s", i+1, len(pages), page.Handle), nil)
		outcome, err := h.Qualifier.Assess(ctx, campaign, qualification.Input{
			Handle:   page.Handle,
			Text:     page.Text,
			Contacts: page.Contacts,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.ModelErrors++
			logger.Warn("[Qualify] %s: %v", page.Handle, err)
			emit(StageQualify, CategoryWarning, fmt.Sprintf("Model call failed for %s: %v", page.Handle, err), nil)
			continue
		}
		report.Assessed++
		if !outcome.Parsed {
			report.Unparseable++
		}
		for _, lead := range outcome.Leads {
			emit(StageQualify, CategoryLead, fmt.Sprintf("Lead: %s (score %d)", lead.Company, lead.FitScore), lead)
		}
		leads = append(leads, outcome.Leads...)
	}
	if len(leads) > limit {
		logger.Debug("[Qualify] %d leads exceed limit %d, truncating", len(leads), limit)
		leads = leads[:limit]
	}

	// Persist
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	saved, err := h.Store.Save(ctx, leads, campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to save leads: %w", err)
	}
	report.Saved = saved
	report.Leads = leads
	logger.Info("[Persist] saved %d of %d leads", saved, len(leads))
	emit(StagePersist, CategoryInfo, fmt.Sprintf("Saved %d leads", saved), nil)
	emit(StageDone, CategoryInfo, "Hunt complete", report)
	return report, nil
}

