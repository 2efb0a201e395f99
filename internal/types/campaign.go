// Package types provides type definitions for structured data used throughout the outreach-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Budget tiers accepted for a campaign.
const (
	BudgetAny  = "Any"
	BudgetLow  = "Low"
	BudgetMid  = "Mid"
	BudgetHigh = "High"
)

// Campaign holds the targeting inputs for one hunting run.
// Either Query or the Industry+City pair must be set.
type Campaign struct {
	Query          string `json:"query,omitempty" yaml:"query,omitempty"`
	Industry       string `json:"industry,omitempty" yaml:"industry,omitempty"`
	City           string `json:"city,omitempty" yaml:"city,omitempty"`
	Location       string `json:"location,omitempty" yaml:"location,omitempty"`
	TargetAudience string `json:"target_audience,omitempty" yaml:"target_audience,omitempty"`
	BudgetTier     string `json:"budget_tier,omitempty" yaml:"budget_tier,omitempty" validate:"omitempty,oneof=Any Low Mid High"`
	ContextLinks   string `json:"context_links,omitempty" yaml:"context_links,omitempty"`
	MaxResults     int    `json:"max_results" yaml:"max_results" validate:"min=1,max=50"`
	Region         string `json:"region,omitempty" yaml:"region,omitempty"`
}

// SearchQuery returns the free-text query, or "<industry> <city>" when no query was given.
func (c *Campaign) SearchQuery() string {
	if q := strings.TrimSpace(c.Query); q != "" {
		return q
	}
	return strings.TrimSpace(strings.TrimSpace(c.Industry) + " " + strings.TrimSpace(c.City))
}

// Validate checks the campaign with the struct validator and the query rule.
func (c *Campaign) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if strings.TrimSpace(c.Query) == "" && (strings.TrimSpace(c.Industry) == "" || strings.TrimSpace(c.City) == "") {
		return fmt.Errorf("campaign requires a query or both industry and city")
	}
	return nil
}

// LocationOrDefault returns the target location used in prompts.
func (c *Campaign) LocationOrDefault() string {
	if c.Location != "" {
		return c.Location
	}
	if c.City != "" {
		return c.City
	}
	return "Global"
}

// AudienceOrDefault returns the target audience used in prompts.
func (c *Campaign) AudienceOrDefault() string {
	if c.TargetAudience != "" {
		return c.TargetAudience
	}
	return "General Business"
}

// BudgetOrDefault returns the budget tier used in prompts.
func (c *Campaign) BudgetOrDefault() string {
	if c.BudgetTier != "" {
		return c.BudgetTier
	}
	return BudgetAny
}
