//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampFitScore(t *testing.T) {
	assert.Equal(t, 0, ClampFitScore(-3))
	assert.Equal(t, 0, ClampFitScore(0))
	assert.Equal(t, 7, ClampFitScore(7))
	assert.Equal(t, 10, ClampFitScore(10))
	assert.Equal(t, 10, ClampFitScore(42))
}

func TestVerdict_Validate(t *testing.T) {
	v := Verdict{IsFit: true, FitScore: 8}
	assert.NoError(t, v.Validate())

	v.FitScore = 11
	assert.Error(t, v.Validate())

	v.FitScore = -1
	assert.Error(t, v.Validate())
}

func TestLead_HasDraft(t *testing.T) {
	assert.True(t, (&Lead{EmailSubject: "Hi", EmailBody: "Body"}).HasDraft())
	assert.False(t, (&Lead{EmailSubject: "Hi", EmailBody: "   "}).HasDraft())
	assert.False(t, (&Lead{EmailBody: "Body"}).HasDraft())
}

func TestLead_EmailDraft(t *testing.T) {
	l := Lead{EmailSubject: "Quick idea", EmailBody: "Hello team"}
	assert.Equal(t, "Subject: Quick idea\n\nHello team", l.EmailDraft())

	l = Lead{EmailBody: "raw model output"}
	assert.Equal(t, "raw model output", l.EmailDraft())
}

func TestLead_ApplyCampaign(t *testing.T) {
	var l Lead
	l.ApplyCampaign(Campaign{Industry: "Logistics", City: "Warsaw", TargetAudience: "CEO", BudgetTier: BudgetHigh})

	assert.Equal(t, "Logistics", l.Industry)
	assert.Equal(t, "Warsaw", l.City)
	assert.Equal(t, "CEO", l.TargetAudience)
	assert.Equal(t, BudgetHigh, l.BudgetTier)
	assert.Equal(t, "Logistics Warsaw", l.Query)
}

func TestSummarizeLeads(t *testing.T) {
	stats := SummarizeLeads(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Zero(t, stats.AverageScore)

	stats = SummarizeLeads([]Lead{
		{FitScore: 8, City: "Warsaw"},
		{FitScore: 4, City: "warsaw"},
		{FitScore: 9, City: "Krakow"},
	})
	assert.Equal(t, 3, stats.Total)
	assert.InDelta(t, 7.0, stats.AverageScore, 0.001)
	assert.Equal(t, 2, stats.Qualified)
	assert.Equal(t, 2, stats.UniqueCities)
}

func TestContacts_First(t *testing.T) {
	var c Contacts
	assert.Empty(t, c.FirstEmail())
	assert.Empty(t, c.FirstPhone())

	c = Contacts{Emails: []string{"a@b.pl", "c@d.pl"}, Phones: []string{"+48 123 456 789"}}
	assert.Equal(t, "a@b.pl", c.FirstEmail())
	assert.Equal(t, "+48 123 456 789", c.FirstPhone())
}

func TestSelectLeads(t *testing.T) {
	leads := []Lead{{ID: 3}, {ID: 2}, {ID: 1}}
	assert.Equal(t, leads, SelectLeads(leads, nil))

	got := SelectLeads(leads, []int64{1, 3, 99})
	assert.Equal(t, []Lead{{ID: 3}, {ID: 1}}, got)
}
