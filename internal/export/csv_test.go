package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/jonathan/outreach-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	ts := time.Date(2026, 10, 14, 8, 5, 9, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "leads_export_20261014_060509.csv", Filename(ts))
}

func TestWriteCSV(t *testing.T) {
	leads := []types.Lead{{
		ID:        3,
		Company:   "Zażółć Sp. z o.o.",
		Website:   "https://zazolc.example",
		FitScore:  9,
		EmailBody: "Hi,\nline two, with comma",
		City:      "Łódź",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, leads))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	header, row := records[0], records[1]
	assert.Equal(t, "id", header[0])
	assert.Len(t, row, len(header))
	assert.Equal(t, "3", row[0])
	assert.Equal(t, "Zażółć Sp. z o.o.", row[1])
	assert.Equal(t, "9", row[5])
	assert.Equal(t, "Hi,\nline two, with comma", row[8])
	assert.Equal(t, "Łódź", row[10])
	assert.Equal(t, "2026-01-02T03:04:05Z", row[15])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1, "header only")
}

func TestWriteLegacyCSV(t *testing.T) {
	leads := []types.Lead{{
		ID:           7,
		Company:      "Acme",
		Website:      "https://acme.example",
		FitScore:     8,
		EmailSubject: "Quick idea",
		EmailBody:    "Hello team",
		Industry:     "Logistics",
		City:         "Warsaw",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteLegacyCSV(&buf, leads))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, LegacyColumns, rows[0])
	assert.Equal(t, []string{"7", "Acme", "https://acme.example", "", "8",
		"Subject: Quick idea\n\nHello team", "Logistics", "Warsaw", "2026-01-02T03:04:05Z"}, rows[1])
}
