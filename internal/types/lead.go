package types

import (
	"strings"
	"time"
)

// ParseErrorCompany marks a diagnostic lead produced when a model response could not be parsed.
const ParseErrorCompany = "PARSE_ERROR"

// UnknownCompany is used when the model did not name the company.
const UnknownCompany = "Unknown"

// Lead is a persisted, qualified outreach target with a drafted email.
type Lead struct {
	ID             int64     `json:"id"`
	Company        string    `json:"company"`
	Website        string    `json:"website"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	FitScore       int       `json:"fit_score"`
	Weakness       string    `json:"weakness"`
	EmailSubject   string    `json:"email_subject"`
	EmailBody      string    `json:"email_body"`
	Industry       string    `json:"industry,omitempty"`
	City           string    `json:"city,omitempty"`
	Location       string    `json:"location,omitempty"`
	TargetAudience string    `json:"target_audience,omitempty"`
	BudgetTier     string    `json:"budget_tier,omitempty"`
	Query          string    `json:"query,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsDiagnostic reports whether the lead carries an unparseable model response.
func (l *Lead) IsDiagnostic() bool {
	return l.Company == ParseErrorCompany
}

// HasDraft reports whether both subject and body are non-empty.
func (l *Lead) HasDraft() bool {
	return strings.TrimSpace(l.EmailSubject) != "" && strings.TrimSpace(l.EmailBody) != ""
}

// EmailDraft renders subject and body as a single draft, the shape of the single-column schema.
func (l *Lead) EmailDraft() string {
	if l.EmailSubject == "" {
		return l.EmailBody
	}
	return "Subject: " + l.EmailSubject + "\n\n" + l.EmailBody
}

// ApplyCampaign copies campaign context onto the lead.
func (l *Lead) ApplyCampaign(c Campaign) {
	l.Industry = c.Industry
	l.City = c.City
	l.Location = c.Location
	l.TargetAudience = c.TargetAudience
	l.BudgetTier = c.BudgetTier
	l.Query = c.SearchQuery()
}

// LeadStats summarizes a set of leads for display.
type LeadStats struct {
	Total        int     `json:"total"`
	AverageScore float64 `json:"average_score"`
	Qualified    int     `json:"qualified"`
	UniqueCities int     `json:"unique_cities"`
}

// QualifiedThreshold is the fit score at which a lead counts as qualified in summaries.
const QualifiedThreshold = 7

// SummarizeLeads computes display metrics over leads.
func SummarizeLeads(leads []Lead) LeadStats {
	stats := LeadStats{Total: len(leads)}
	if len(leads) == 0 {
		return stats
	}
	cities := make(map[string]struct{})
	sum := 0
	for _, l := range leads {
		sum += l.FitScore
		if l.FitScore >= QualifiedThreshold {
			stats.Qualified++
		}
		if l.City != "" {
			cities[strings.ToLower(l.City)] = struct{}{}
		}
	}
	stats.AverageScore = float64(sum) / float64(len(leads))
	stats.UniqueCities = len(cities)
	return stats
}

// SelectLeads keeps leads whose ID is in ids, preserving order. Empty ids keeps all.
func SelectLeads(leads []Lead, ids []int64) []Lead {
	if len(ids) == 0 {
		return leads
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]Lead, 0, len(ids))
	for _, l := range leads {
		if want[l.ID] {
			out = append(out, l)
		}
	}
	return out
}
