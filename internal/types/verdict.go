package types

import "github.com/go-playground/validator/v10"

// Fit score bounds.
const (
	MinFitScore = 0
	MaxFitScore = 10
)

// Verdict is the structured qualification returned by the language model.
type Verdict struct {
	IsFit        bool   `json:"is_fit"`
	CompanyName  string `json:"company_name"`
	Weakness     string `json:"weakness"`
	EmailSubject string `json:"email_subject"`
	EmailBody    string `json:"email_body"`
	FitScore     int    `json:"fit_score" validate:"min=0,max=10"`

	// Fields the browsing variant also returns.
	Website string `json:"website,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Validate checks the verdict invariants.
func (v *Verdict) Validate() error {
	validate := validator.New()
	return validate.Struct(v)
}

// ClampFitScore forces a score into [MinFitScore, MaxFitScore].
func ClampFitScore(score int) int {
	if score < MinFitScore {
		return MinFitScore
	}
	if score > MaxFitScore {
		return MaxFitScore
	}
	return score
}
