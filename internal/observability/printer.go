// Package observability provides formatted terminal output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jonathan/outreach-agent/internal/dispatch"
	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// cellWidth caps free-text table cells
	cellWidth = 40
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	fitStyle    = cellStyle.Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Printer handles formatted output
type Printer struct {
	out     io.Writer
	verbose bool
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{out: out, verbose: verbose}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		line = clip(line, boxWidth-4)
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to max runes, marking the cut with "...".
func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// PrintLeads renders leads as a table, newest first as given.
//
//nolint:errcheck
func (p *Printer) PrintLeads(leads []types.Lead) {
	if len(leads) == 0 {
		fmt.Fprintln(p.out, "No leads stored.")
		return
	}

	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []string{
			strconv.FormatInt(l.ID, 10),
			clip(l.Company, cellWidth),
			strconv.Itoa(l.FitScore),
			clip(l.Website, cellWidth),
			l.Email,
			clip(l.Weakness, cellWidth),
			l.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "COMPANY", "SCORE", "WEBSITE", "EMAIL", "WEAKNESS", "CREATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(leads) && leads[row].FitScore >= types.QualifiedThreshold {
				return fitStyle
			}
			return cellStyle
		})
	fmt.Fprintln(p.out, t.String())
}

// PrintStats outputs the summary metrics for leads.
func (p *Printer) PrintStats(stats types.LeadStats) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total leads:    %d\n", stats.Total)
	fmt.Fprintf(&sb, "Average score:  %.1f\n", stats.AverageScore)
	fmt.Fprintf(&sb, "Qualified (%d+): %d\n", types.QualifiedThreshold, stats.Qualified)
	fmt.Fprintf(&sb, "Unique cities:  %d", stats.UniqueCities)
	p.printBox("LEAD SUMMARY", sb.String())
}

// PrintCostEstimate prints the expected model cost of a hunt.
//
//nolint:errcheck
func (p *Printer) PrintCostEstimate(maxResults int) {
	fmt.Fprintf(p.out, "Estimated model cost for %d leads: $%.4f\n", maxResults, pipeline.EstimateCost(maxResults))
}

// PrintProgress prints a hunt progress event. Skips and per-lead events are shown only in verbose mode.
//
//nolint:errcheck
func (p *Printer) PrintProgress(e pipeline.ProgressEvent) {
	switch e.Category {
	case pipeline.CategorySkip:
		if !p.verbose {
			return
		}
	case pipeline.CategoryWarning:
		fmt.Fprintf(p.out, "%s\n", warnStyle.Render("! "+e.Message))
		return
	case pipeline.CategoryLead:
		fmt.Fprintf(p.out, "  + %s\n", e.Message)
		return
	}
	if e.Step == pipeline.StageDone {
		return
	}
	fmt.Fprintf(p.out, "[%s] %s\n", e.Step, e.Message)
}

// PrintReport outputs a human-readable summary of a finished hunt.
func (p *Printer) PrintReport(r *pipeline.Report) {
	if r == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query:        %s\n", r.Query)
	fmt.Fprintf(&sb, "Candidates:   %d\n", r.Candidates)
	fmt.Fprintf(&sb, "Extracted:    %d (skipped %d)\n", r.Extracted, r.Skipped)
	fmt.Fprintf(&sb, "Assessed:     %d\n", r.Assessed)
	if r.ModelErrors > 0 {
		fmt.Fprintf(&sb, "Model errors: %d\n", r.ModelErrors)
	}
	if r.Unparseable > 0 {
		fmt.Fprintf(&sb, "Unparseable:  %d\n", r.Unparseable)
	}
	fmt.Fprintf(&sb, "Saved:        %d", r.Saved)
	p.printBox("HUNT COMPLETE", sb.String())
}

// PrintDispatchResult outputs per-lead delivery outcomes and the sent count.
//
//nolint:errcheck
func (p *Printer) PrintDispatchResult(r *dispatch.Result) {
	if r == nil {
		return
	}
	rows := make([][]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		status := "sent"
		switch {
		case o.Skipped:
			status = "skipped"
		case !o.Sent:
			status = "failed"
		}
		rows = append(rows, []string{strconv.FormatInt(o.LeadID, 10), clip(o.Company, cellWidth), o.Recipient, status, clip(o.Error, cellWidth)})
	}
	if len(rows) > 0 {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "COMPANY", "RECIPIENT", "STATUS", "ERROR").
			Rows(rows...).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		fmt.Fprintln(p.out, t.String())
	}
	fmt.Fprintf(p.out, "Sent %d of %d attempted (%d skipped)\n", r.Sent, r.Attempted, r.Skipped)
}
