package qualification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/outreach-agent/internal/llm"
	"github.com/jonathan/outreach-agent/internal/schemas"
	"github.com/jonathan/outreach-agent/internal/types"
)

// ParseError means no verdict could be recovered from a model response.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	preview := e.Raw
	if r := []rune(preview); len(r) > 80 {
		preview = string(r[:80]) + "..."
	}
	return fmt.Sprintf("unparseable model response: %q", preview)
}

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*\\s*\\n?(.*?)```")

// ParseVerdicts recovers verdicts from raw model text.
//
// Attempts, in order:
//  1. the whole response as JSON
//  2. the contents of markdown code fences
//  3. the widest {...} or [...] span
//  4. every balanced span, innermost and last first
//
// The first attempt yielding at least one schema-valid verdict object (or a
// well-formed array) wins. A JSON array may hold several verdicts.
func ParseVerdicts(raw string) ([]types.Verdict, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &ParseError{Raw: raw}
	}

	attempts := []string{text, llm.CleanJSONBlock(text)}
	for _, m := range fenceRe.FindAllStringSubmatch(text, -1) {
		attempts = append(attempts, strings.TrimSpace(m[1]))
	}
	attempts = append(attempts, widestSpans(text)...)

	for _, attempt := range attempts {
		if verdicts, ok := decodeVerdicts(attempt); ok {
			return verdicts, nil
		}
	}

	spans := balancedSpans(text)
	for i := len(spans) - 1; i >= 0; i-- {
		if verdicts, ok := decodeVerdicts(spans[i]); ok {
			return verdicts, nil
		}
	}

	return nil, &ParseError{Raw: raw}
}

// widestSpans returns the first-open to last-close span for objects and arrays,
// the one starting earlier first.
func widestSpans(text string) []string {
	type span struct {
		start int
		s     string
	}
	var out []span
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(text, pair[0])
		end := strings.LastIndexByte(text, pair[1])
		if start >= 0 && end > start {
			out = append(out, span{start, text[start : end+1]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })

	spans := make([]string, len(out))
	for i, s := range out {
		spans[i] = s.s
	}
	return spans
}

// balancedSpans returns every bracket-balanced {...} and [...] span in text,
// ordered by closing position so inner spans precede the spans enclosing them.
// Brackets inside JSON strings are ignored.
func balancedSpans(text string) []string {
	var (
		spans    []string
		stack    []int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if len(stack) > 0 {
				inString = true
			}
		case '{', '[':
			stack = append(stack, i)
		case '}', ']':
			if len(stack) == 0 {
				continue
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if matches(text[start], c) {
				spans = append(spans, text[start:i+1])
			}
		}
	}
	return spans
}

func matches(open, close byte) bool {
	return (open == '{' && close == '}') || (open == '[' && close == ']')
}

// decodeVerdicts decodes an object or an array of objects.
func decodeVerdicts(text string) ([]types.Verdict, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	switch text[0] {
	case '{':
		v, ok := decodeVerdict([]byte(text))
		if !ok {
			return nil, false
		}
		return []types.Verdict{v}, true
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, false
		}
		verdicts := make([]types.Verdict, 0, len(items))
		for _, item := range items {
			if v, ok := decodeVerdict(item); ok {
				verdicts = append(verdicts, v)
			}
		}
		// an empty array is a well-formed "nothing found"
		if len(items) > 0 && len(verdicts) == 0 {
			return nil, false
		}
		return verdicts, true
	default:
		return nil, false
	}
}

// rawVerdict accepts both the single-site and the listing response shapes.
type rawVerdict struct {
	IsFit        json.RawMessage `json:"is_fit"`
	CompanyName  *string         `json:"company_name"`
	Company      *string         `json:"company"`
	Website      *string         `json:"website"`
	Phone        *string         `json:"phone"`
	Weakness     *string         `json:"weakness"`
	EmailSubject *string         `json:"email_subject"`
	EmailBody    *string         `json:"email_body"`
	EmailDraft   *string         `json:"email_draft"`
	FitScore     json.RawMessage `json:"fit_score"`
	Rating       json.RawMessage `json:"rating"`
}

func decodeVerdict(data []byte) (types.Verdict, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return types.Verdict{}, false
	}
	if err := schemas.MustEmbedded(schemas.VerdictSchema).Validate(data); err != nil {
		return types.Verdict{}, false
	}

	var rv rawVerdict
	if err := json.Unmarshal(data, &rv); err != nil {
		return types.Verdict{}, false
	}

	score := rv.FitScore
	if isAbsent(score) {
		score = rv.Rating
	}
	v := types.Verdict{
		CompanyName:  firstNonEmpty(rv.CompanyName, rv.Company),
		Website:      deref(rv.Website),
		Phone:        deref(rv.Phone),
		Weakness:     deref(rv.Weakness),
		EmailSubject: deref(rv.EmailSubject),
		EmailBody:    firstNonEmpty(rv.EmailBody, rv.EmailDraft),
		FitScore:     NormalizeScore(score),
	}
	if fit, ok := parseBool(rv.IsFit); ok {
		v.IsFit = fit
	} else {
		// listing responses carry no flag; the score decides
		v.IsFit = v.FitScore >= types.QualifiedThreshold
	}
	if err := v.Validate(); err != nil {
		return types.Verdict{}, false
	}
	return v, true
}

// NormalizeScore converts a raw fit_score to an integer in [0, 10].
// Fractions are rounded, numeric strings are accepted and anything else scores 0.
func NormalizeScore(raw json.RawMessage) int {
	if isAbsent(raw) {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Max(types.MinFitScore, math.Min(types.MaxFitScore, f))
	return types.ClampFitScore(int(math.Round(f)))
}

func parseBool(raw json.RawMessage) (bool, bool) {
	if isAbsent(raw) {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0":
		return false, true
	}
	return false, false
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if s := deref(v); s != "" {
			return s
		}
	}
	return ""
}
