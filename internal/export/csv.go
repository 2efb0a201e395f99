// Package export writes the lead table as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/types"
)

// Filename returns the export file name for t, in UTC.
func Filename(t time.Time) string {
	return fmt.Sprintf("leads_export_%s.csv", t.UTC().Format("20060102_150405"))
}

// WriteCSV writes a header row of column names followed by one row per lead.
func WriteCSV(w io.Writer, leads []types.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(db.Columns()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, l := range leads {
		if err := cw.Write(record(l)); err != nil {
			return fmt.Errorf("failed to write lead %d: %w", l.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// LegacyColumns is the single-draft table shape: rating for fit_score and
// email_draft for the subject and body together.
var LegacyColumns = []string{"id", "company", "website", "phone", "rating", "email_draft", "industry", "city", "created_at"}

// WriteLegacyCSV writes leads in the LegacyColumns shape.
func WriteLegacyCSV(w io.Writer, leads []types.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LegacyColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, l := range leads {
		row := []string{
			strconv.FormatInt(l.ID, 10),
			l.Company, l.Website, l.Phone,
			strconv.Itoa(l.FitScore),
			l.EmailDraft(),
			l.Industry, l.City,
			l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write lead %d: %w", l.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(l types.Lead) []string {
	return []string{
		strconv.FormatInt(l.ID, 10),
		l.Company, l.Website, l.Phone, l.Email,
		strconv.Itoa(l.FitScore),
		l.Weakness, l.EmailSubject, l.EmailBody,
		l.Industry, l.City, l.Location, l.TargetAudience, l.BudgetTier, l.Query,
		l.CreatedAt.UTC().Format(time.RFC3339),
	}
}
