// Package qualification asks a language model whether a candidate is worth
// contacting and turns its answer into leads.
package qualification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/outreach-agent/internal/llm"
	"github.com/jonathan/outreach-agent/internal/logging"
	"github.com/jonathan/outreach-agent/internal/prompts"
	"github.com/jonathan/outreach-agent/internal/types"
)

const promptFile = "qualification.json"

// Prompt keys.
const (
	PromptSingleSite = "assess-lead"
	PromptListing    = "assess-listing"
)

// Options configures an Engine.
type Options struct {
	OnParseFailure ParseFailurePolicy
	Retention      RetentionPolicy
	Prompt         string // PromptSingleSite (default) or PromptListing
	Tier           llm.ModelTier
}

// Engine qualifies candidates with one model call each.
type Engine struct {
	client llm.Client
	opts   Options
	logger logging.Logger
}

// NewEngine creates an Engine.
func NewEngine(client llm.Client, opts Options, logger logging.Logger) *Engine {
	if opts.OnParseFailure == "" {
		opts.OnParseFailure = DropUnparseable
	}
	if opts.Retention == "" {
		opts.Retention = RetainFitOnly
	}
	if opts.Prompt == "" {
		opts.Prompt = PromptSingleSite
	}
	if opts.Tier == "" {
		opts.Tier = llm.TierStandard
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{client: client, opts: opts, logger: logger}
}

// Input is one extracted candidate.
type Input struct {
	Handle   string
	Text     string
	Contacts types.Contacts
}

// Outcome is the result of qualifying one candidate.
type Outcome struct {
	Leads    []types.Lead
	Verdicts int    // verdicts recovered from the response
	Raw      string // raw model text
	Parsed   bool
}

// Assess qualifies in against campaign. Model call failures are returned as errors
// and affect only this candidate; unparseable responses are handled by policy.
func (e *Engine) Assess(ctx context.Context, campaign types.Campaign, in Input) (*Outcome, error) {
	prompt, err := BuildPrompt(e.opts.Prompt, campaign, in)
	if err != nil {
		return nil, err
	}

	raw, err := e.client.GenerateContent(ctx, prompt, e.opts.Tier)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Raw: raw}
	verdicts, err := ParseVerdicts(raw)
	if err != nil {
		var perr *ParseError
		if !errors.As(err, &perr) {
			return nil, err
		}
		e.logger.Warn("[Qualify] unparseable response for %s", in.Handle)
		if e.opts.OnParseFailure == SurfaceRaw {
			out.Leads = []types.Lead{diagnosticLead(campaign, in, raw)}
		}
		return out, nil
	}

	out.Parsed = true
	out.Verdicts = len(verdicts)
	for _, v := range verdicts {
		if e.opts.Retention == RetainFitOnly && !v.IsFit {
			e.logger.Debug("[Qualify] %s rejected (score %d)", nameOr(v.CompanyName, in.Handle), v.FitScore)
			continue
		}
		out.Leads = append(out.Leads, leadFromVerdict(campaign, in, v))
	}
	return out, nil
}

// BuildPrompt fills a qualification prompt from explicit campaign parameters.
func BuildPrompt(key string, campaign types.Campaign, in Input) (string, error) {
	prompt, err := prompts.Render(promptFile, key, map[string]string{
		"Location":       campaign.LocationOrDefault(),
		"TargetAudience": campaign.AudienceOrDefault(),
		"BudgetTier":     campaign.BudgetOrDefault(),
		"ContextLinks":   contextLinks(campaign.ContextLinks),
		"Industry":       campaign.Industry,
		"City":           campaign.City,
		"MaxResults":     strconv.Itoa(campaign.MaxResults),
		"Source":         in.Handle,
		"WebsiteText":    in.Text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build qualification prompt: %w", err)
	}
	return prompt, nil
}

func contextLinks(links string) string {
	if strings.TrimSpace(links) == "" {
		return "(none)"
	}
	return links
}

func leadFromVerdict(campaign types.Campaign, in Input, v types.Verdict) types.Lead {
	lead := types.Lead{
		Company:      nameOr(v.CompanyName, types.UnknownCompany),
		Website:      nameOr(v.Website, in.Handle),
		Phone:        nameOr(v.Phone, in.Contacts.FirstPhone()),
		Email:        in.Contacts.FirstEmail(),
		FitScore:     types.ClampFitScore(v.FitScore),
		Weakness:     v.Weakness,
		EmailSubject: v.EmailSubject,
		EmailBody:    v.EmailBody,
	}
	lead.ApplyCampaign(campaign)
	return lead
}

func diagnosticLead(campaign types.Campaign, in Input, raw string) types.Lead {
	lead := types.Lead{
		Company:   types.ParseErrorCompany,
		Website:   in.Handle,
		FitScore:  0,
		EmailBody: raw,
	}
	lead.ApplyCampaign(campaign)
	return lead
}

func nameOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
