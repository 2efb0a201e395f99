// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/outreach-agent/internal/types"
)

// Accepted values for the policy fields.
var (
	Providers         = []string{"anthropic", "gemini", "openai"}
	Sources           = []string{"duckduckgo", "google"}
	ParseFailureModes = []string{"drop", "surface-raw"}
	RetentionModes    = []string{"fit-only", "all"}
	PromptModes       = []string{"single-site", "listing"}
	DedupeModes       = []string{"none", "source"}
	DispatchTargets   = []string{"per-lead-address", "fixed-test-address"}
)

// Config represents the configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or come from CLI flags and the environment.
type Config struct {
	Campaign types.Campaign `json:"campaign" yaml:"campaign"`

	// Language model
	Provider            string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model               string `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey              string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	ModelTimeoutSeconds int    `json:"model_timeout_seconds,omitempty" yaml:"model_timeout_seconds,omitempty"`

	// Discovery
	Source       string `json:"source,omitempty" yaml:"source,omitempty"`
	GoogleAPIKey string `json:"google_api_key,omitempty" yaml:"google_api_key,omitempty"`
	GoogleCSEID  string `json:"google_cse_id,omitempty" yaml:"google_cse_id,omitempty"`

	// Extraction
	MinTextLength int    `json:"min_text_length,omitempty" yaml:"min_text_length,omitempty"`
	MaxTextLength int    `json:"max_text_length,omitempty" yaml:"max_text_length,omitempty"`
	UseBrowser    bool   `json:"use_browser,omitempty" yaml:"use_browser,omitempty"`
	RedisURL      string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`

	// Qualification
	OnParseFailure string `json:"on_parse_failure,omitempty" yaml:"on_parse_failure,omitempty"`
	Retention      string `json:"retention,omitempty" yaml:"retention,omitempty"`
	// Mode picks the prompt: single-site pages or multi-company listings.
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Storage
	DatabasePath string `json:"database_path,omitempty" yaml:"database_path,omitempty"`
	DatabaseURL  string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	Dedupe       string `json:"dedupe,omitempty" yaml:"dedupe,omitempty"`

	// Dispatch
	SMTPHost       string `json:"smtp_host,omitempty" yaml:"smtp_host,omitempty"`
	SMTPPort       int    `json:"smtp_port,omitempty" yaml:"smtp_port,omitempty"`
	SenderEmail    string `json:"sender_email,omitempty" yaml:"sender_email,omitempty"`
	AppPassword    string `json:"app_password,omitempty" yaml:"app_password,omitempty"`
	TestRecipient  string `json:"test_recipient,omitempty" yaml:"test_recipient,omitempty"`
	DispatchTarget string `json:"dispatch_target,omitempty" yaml:"dispatch_target,omitempty"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Defaults returns the built-in defaults.
func Defaults() Config {
	return Config{
		Campaign: types.Campaign{
			MaxResults: 5,
			Region:     "pl-pl",
			BudgetTier: types.BudgetAny,
		},
		Provider:            "anthropic",
		ModelTimeoutSeconds: 120,
		Source:              "duckduckgo",
		MinTextLength:       100,
		MaxTextLength:       3000,
		OnParseFailure:      "drop",
		Retention:           "fit-only",
		Mode:                "single-site",
		DatabasePath:        "leads.db",
		Dedupe:              "none",
		SMTPHost:            "smtp.gmail.com",
		SMTPPort:            587,
		DispatchTarget:      "per-lead-address",
	}
}

// LoadConfig loads configuration from a JSON or YAML file; the extension decides the format.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv fills empty secret and endpoint fields from environment variables.
func (c *Config) ApplyEnv() {
	if c.APIKey == "" {
		c.APIKey = providerKeyFromEnv(c.Provider)
	}
	setIfEmpty(&c.GoogleAPIKey, "GOOGLE_API_KEY")
	setIfEmpty(&c.GoogleCSEID, "GOOGLE_CSE_ID")
	setIfEmpty(&c.RedisURL, "REDIS_URL")
	setIfEmpty(&c.DatabaseURL, "DATABASE_URL")
	setIfEmpty(&c.SenderEmail, "SMTP_USERNAME", "GMAIL_SENDER_EMAIL")
	setIfEmpty(&c.AppPassword, "SMTP_PASSWORD", "GMAIL_APP_PASSWORD")
	setIfEmpty(&c.TestRecipient, "TEST_RECIPIENT")
}

// providerKeyFromEnv returns the API key variable conventionally used by each provider.
func providerKeyFromEnv(provider string) string {
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return os.Getenv("ANTHROPIC_API_KEY")
	}
}

func setIfEmpty(field *string, keys ...string) {
	if *field != "" {
		return
	}
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			*field = value
			return
		}
	}
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for credentials since those are checked by the command
// that needs them.
func (c *Config) Validate() error {
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"provider", c.Provider, Providers},
		{"source", c.Source, Sources},
		{"on_parse_failure", c.OnParseFailure, ParseFailureModes},
		{"retention", c.Retention, RetentionModes},
		{"mode", c.Mode, PromptModes},
		{"dedupe", c.Dedupe, DedupeModes},
		{"dispatch_target", c.DispatchTarget, DispatchTargets},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		if !contains(check.allowed, check.value) {
			return fmt.Errorf("config error: '%s' must be one of %s, got %q",
				check.field, strings.Join(check.allowed, ", "), check.value)
		}
	}

	// Validate numeric ranges
	if c.MinTextLength < 0 {
		return fmt.Errorf("config error: 'min_text_length' must be non-negative")
	}
	if c.MaxTextLength < 0 {
		return fmt.Errorf("config error: 'max_text_length' must be non-negative")
	}
	if c.MaxTextLength > 0 && c.MinTextLength > c.MaxTextLength {
		return fmt.Errorf("config error: 'min_text_length' exceeds 'max_text_length'")
	}
	if c.ModelTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'model_timeout_seconds' must be non-negative")
	}
	if c.SMTPPort < 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("config error: 'smtp_port' out of range: %d", c.SMTPPort)
	}
	if c.Source == "google" && c.GoogleCSEID == "" {
		return fmt.Errorf("config error: 'google_cse_id' is required for the google source")
	}

	return nil
}

// ModelTimeout returns the model call timeout as a duration.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	strs := []struct {
		dst *string
		def string
	}{
		{&result.Provider, defaults.Provider},
		{&result.Model, defaults.Model},
		{&result.APIKey, defaults.APIKey},
		{&result.Source, defaults.Source},
		{&result.GoogleAPIKey, defaults.GoogleAPIKey},
		{&result.GoogleCSEID, defaults.GoogleCSEID},
		{&result.RedisURL, defaults.RedisURL},
		{&result.OnParseFailure, defaults.OnParseFailure},
		{&result.Retention, defaults.Retention},
		{&result.Mode, defaults.Mode},
		{&result.DatabasePath, defaults.DatabasePath},
		{&result.DatabaseURL, defaults.DatabaseURL},
		{&result.Dedupe, defaults.Dedupe},
		{&result.SMTPHost, defaults.SMTPHost},
		{&result.SenderEmail, defaults.SenderEmail},
		{&result.AppPassword, defaults.AppPassword},
		{&result.TestRecipient, defaults.TestRecipient},
		{&result.DispatchTarget, defaults.DispatchTarget},
		{&result.Campaign.Region, defaults.Campaign.Region},
		{&result.Campaign.BudgetTier, defaults.Campaign.BudgetTier},
	}
	for _, s := range strs {
		if *s.dst == "" {
			*s.dst = s.def
		}
	}

	// Int fields: use default if zero
	ints := []struct {
		dst *int
		def int
	}{
		{&result.ModelTimeoutSeconds, defaults.ModelTimeoutSeconds},
		{&result.MinTextLength, defaults.MinTextLength},
		{&result.MaxTextLength, defaults.MaxTextLength},
		{&result.SMTPPort, defaults.SMTPPort},
		{&result.Campaign.MaxResults, defaults.Campaign.MaxResults},
	}
	for _, i := range ints {
		if *i.dst == 0 {
			*i.dst = i.def
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
