package qualification

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullVerdict = `{"is_fit": true, "company_name": "Acme Dental", "weakness": "No online booking",
"email_subject": "Booking", "email_body": "Hi Acme", "fit_score": 8}`

func TestParseVerdicts_Recovers(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		count    int
		company  string
		fitScore int
	}{
		{"plain object", fullVerdict, 1, "Acme Dental", 8},
		{"json fence", "```json\n" + fullVerdict + "\n```", 1, "Acme Dental", 8},
		{"fence after prose", "Here is my analysis:\n```\n" + fullVerdict + "\n```\nGood luck!", 1, "Acme Dental", 8},
		{"object after preamble", "Sure! Based on the site:\n" + fullVerdict, 1, "Acme Dental", 8},
		{"array of verdicts", `[{"company_name": "A", "is_fit": true, "fit_score": 9}, {"company_name": "B", "is_fit": false, "fit_score": 2}]`, 2, "A", 9},
		{"listing shape", `[{"company": "Acme Logistics", "website": "https://acme.example", "phone": "+48 1", "rating": 8, "email_draft": "Hi"}]`, 1, "Acme Logistics", 8},
		{"trailing object wins over junk", `{"note": "ignore me"} then {"is_fit": true, "company_name": "Late", "fit_score": 6}`, 1, "Late", 6},
		{"brace inside string", `{"is_fit": true, "company_name": "Curly {Braces} Ltd", "fit_score": 5}`, 1, "Curly {Braces} Ltd", 5},
		{"several arrays pick last", "draft: [1, 2]\nfinal: [{\"company_name\": \"Z\", \"is_fit\": true, \"fit_score\": 7}]", 1, "Z", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdicts, err := ParseVerdicts(tt.raw)
			require.NoError(t, err)
			require.Len(t, verdicts, tt.count)
			assert.Equal(t, tt.company, verdicts[0].CompanyName)
			assert.Equal(t, tt.fitScore, verdicts[0].FitScore)
		})
	}
}

func TestParseVerdicts_ListingFieldsMapped(t *testing.T) {
	verdicts, err := ParseVerdicts(`[{"company": "Acme", "website": "https://acme.example", "phone": "+48 1", "rating": 8, "email_draft": "Hi Acme"}]`)
	require.NoError(t, err)

	v := verdicts[0]
	assert.Equal(t, "https://acme.example", v.Website)
	assert.Equal(t, "+48 1", v.Phone)
	assert.Equal(t, "Hi Acme", v.EmailBody)
	assert.True(t, v.IsFit, "no is_fit flag: score 8 qualifies")
}

func TestParseVerdicts_EmptyArray(t *testing.T) {
	verdicts, err := ParseVerdicts(`[]`)
	require.NoError(t, err)
	assert.Empty(t, verdicts)
}

func TestParseVerdicts_Unparseable(t *testing.T) {
	for _, raw := range []string{
		"Sorry, I cannot comply.",
		"",
		`{"error": "overloaded"}`,
		`{"is_fit": true, "company_name": "Broken"`,
		`[1, 2, 3]`,
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseVerdicts(raw)
			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, raw, perr.Raw)
		})
	}
}

func TestParseError_PreviewKeepsRunes(t *testing.T) {
	raw := strings.Repeat("ż", 79) + "łłł"
	msg := (&ParseError{Raw: raw}).Error()
	assert.True(t, utf8.ValidString(msg))
	assert.Contains(t, msg, strings.Repeat("ż", 79)+"ł...")
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`7`, 7},
		{`7.6`, 8},
		{`7.4`, 7},
		{`-3`, 0},
		{`42`, 10},
		{`"9"`, 9},
		{`"high"`, 0},
		{`null`, 0},
		{``, 0},
		{`true`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeScore(json.RawMessage(tt.raw)))
		})
	}
}

func TestParseBool(t *testing.T) {
	b, ok := parseBool(json.RawMessage(`"Yes"`))
	assert.True(t, ok)
	assert.True(t, b)

	b, ok = parseBool(json.RawMessage(`false`))
	assert.True(t, ok)
	assert.False(t, b)

	_, ok = parseBool(json.RawMessage(`"maybe"`))
	assert.False(t, ok)
}

func TestBalancedSpans(t *testing.T) {
	spans := balancedSpans(`a {"x": [1, 2]} b {"y": "]"}`)
	assert.Equal(t, []string{`[1, 2]`, `{"x": [1, 2]}`, `{"y": "]"}`}, spans)
}
