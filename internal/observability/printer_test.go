package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/jonathan/outreach-agent/internal/dispatch"
	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintLeads(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.PrintLeads([]types.Lead{
		{ID: 2, Company: "Acme Dental", FitScore: 8, Website: "https://acme.example", Email: "office@acme.example", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		{ID: 1, Company: "Beta Clinic", FitScore: 4, Website: "https://beta.example"},
	})
	out := buf.String()

	assert.Contains(t, out, "COMPANY")
	assert.Contains(t, out, "Acme Dental")
	assert.Contains(t, out, "office@acme.example")
	assert.Contains(t, out, "2026-03-01 09:00")
	assert.Contains(t, out, "Beta Clinic")
}

func TestPrintLeads_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).PrintLeads(nil)
	assert.Equal(t, "No leads stored.\n", buf.String())
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).PrintStats(types.LeadStats{Total: 4, AverageScore: 6.5, Qualified: 2, UniqueCities: 3})
	out := buf.String()

	assert.Contains(t, out, "LEAD SUMMARY")
	assert.Contains(t, out, "Total leads:    4")
	assert.Contains(t, out, "Average score:  6.5")
	assert.Contains(t, out, "Qualified (7+): 2")
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.PrintProgress(pipeline.ProgressEvent{Step: pipeline.StageDiscovery, Category: pipeline.CategoryInfo, Message: "Found 10 candidates"})
	p.PrintProgress(pipeline.ProgressEvent{Step: pipeline.StageExtract, Category: pipeline.CategorySkip, Message: "Skipped x"})
	p.PrintProgress(pipeline.ProgressEvent{Step: pipeline.StageQualify, Category: pipeline.CategoryLead, Message: "Lead: Acme (score 8)"})
	out := buf.String()

	assert.Contains(t, out, "[discovery] Found 10 candidates")
	assert.NotContains(t, out, "Skipped x")
	assert.Contains(t, out, "+ Lead: Acme (score 8)")

	buf.Reset()
	NewPrinter(&buf, true).PrintProgress(pipeline.ProgressEvent{Step: pipeline.StageExtract, Category: pipeline.CategorySkip, Message: "Skipped x"})
	assert.Contains(t, buf.String(), "Skipped x")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.PrintReport(&pipeline.Report{Query: "dentists Krakow", Candidates: 10, Extracted: 5, Skipped: 2, Assessed: 5, Saved: 3})
	out := buf.String()

	assert.Contains(t, out, "HUNT COMPLETE")
	assert.Contains(t, out, "dentists Krakow")
	assert.Contains(t, out, "Saved:        3")
	assert.NotContains(t, out, "Model errors")

	buf.Reset()
	p.PrintReport(nil)
	assert.Empty(t, buf.String())
}

func TestPrintCostEstimate(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).PrintCostEstimate(5)
	assert.Contains(t, buf.String(), "$0.4875")
}

func TestPrintDispatchResult(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).PrintDispatchResult(&dispatch.Result{
		Attempted: 2, Sent: 1, Skipped: 1,
		Outcomes: []dispatch.Outcome{
			{LeadID: 1, Company: "Acme", Recipient: "a@acme.example", Sent: true},
			{LeadID: 2, Company: "Beta", Skipped: true},
			{LeadID: 3, Company: "Gamma", Recipient: "g@gamma.example", Error: "550"},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "sent")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "Sent 1 of 2 attempted (1 skipped)")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "ąęśćź...", clip("ąęśćźżółń-long", 8))
}
