package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/observability"
	"github.com/jonathan/outreach-agent/internal/pipeline"
)

var huntCommand = &cobra.Command{
	Use:   "hunt",
	Short: "Discover, qualify and store leads for a campaign",
	Long: `Runs the lead pipeline end-to-end: discovery -> extraction -> qualification -> persistence.

Set either --query or both --industry and --city. Configuration can be loaded from a JSON or YAML
file using --config. Command-line arguments override config file values.`,
	RunE: runHuntCmd,
}

var (
	huntStore          storeFlags
	huntQuery          string
	huntIndustry       string
	huntCity           string
	huntLocation       string
	huntAudience       string
	huntBudget         string
	huntContext        string
	huntMaxResults     int
	huntRegion         string
	huntProvider       string
	huntModel          string
	huntAPIKey         string
	huntSource         string
	huntOnParseFailure string
	huntRetention      string
	huntMode           string
	huntRedisURL       string
	huntUseBrowser     bool
)

func init() {
	huntStore.register(huntCommand)

	f := huntCommand.Flags()
	f.StringVarP(&huntQuery, "query", "q", "", "Free-text search query")
	f.StringVar(&huntIndustry, "industry", "", "Target industry (used with --city when no query is given)")
	f.StringVar(&huntCity, "city", "", "Target city")
	f.StringVar(&huntLocation, "location", "", "Location context passed to the model")
	f.StringVar(&huntAudience, "audience", "", "Target audience description")
	f.StringVar(&huntBudget, "budget", "", "Budget tier: Any, Low, Mid or High")
	f.StringVar(&huntContext, "context", "", "Links or notes describing the offer")
	f.IntVarP(&huntMaxResults, "max-results", "n", 0, "Maximum number of candidates to qualify (1-50, default 5)")
	f.StringVar(&huntRegion, "region", "", "Search region code (default pl-pl)")
	f.StringVar(&huntProvider, "provider", "", "Model provider: anthropic, gemini or openai")
	f.StringVar(&huntModel, "model", "", "Model name override")
	f.StringVar(&huntAPIKey, "api-key", "", "Model API key (optional, defaults to the provider env var)")
	f.StringVar(&huntSource, "source", "", "Discovery source: duckduckgo or google")
	f.StringVar(&huntOnParseFailure, "on-parse-failure", "", "Unparseable model output: drop or surface-raw")
	f.StringVar(&huntRetention, "retention", "", "Verdicts to keep: fit-only or all")
	f.StringVar(&huntMode, "mode", "", "Prompt mode: single-site (one company per page) or listing (several per page)")
	f.StringVar(&huntRedisURL, "redis-url", "", "Redis URL for the page cache (optional, defaults to REDIS_URL env var)")
	f.BoolVar(&huntUseBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")

	rootCmd.AddCommand(huntCommand)
}

func applyHuntFlags(cmd *cobra.Command, cfg *config.Config) {
	huntStore.apply(cmd, cfg)

	changed := cmd.Flags().Changed
	strs := []struct {
		flag string
		dst  *string
		val  string
	}{
		{"query", &cfg.Campaign.Query, huntQuery},
		{"industry", &cfg.Campaign.Industry, huntIndustry},
		{"city", &cfg.Campaign.City, huntCity},
		{"location", &cfg.Campaign.Location, huntLocation},
		{"audience", &cfg.Campaign.TargetAudience, huntAudience},
		{"budget", &cfg.Campaign.BudgetTier, huntBudget},
		{"context", &cfg.Campaign.ContextLinks, huntContext},
		{"region", &cfg.Campaign.Region, huntRegion},
		{"provider", &cfg.Provider, huntProvider},
		{"model", &cfg.Model, huntModel},
		{"api-key", &cfg.APIKey, huntAPIKey},
		{"source", &cfg.Source, huntSource},
		{"on-parse-failure", &cfg.OnParseFailure, huntOnParseFailure},
		{"retention", &cfg.Retention, huntRetention},
		{"mode", &cfg.Mode, huntMode},
		{"redis-url", &cfg.RedisURL, huntRedisURL},
	}
	for _, s := range strs {
		if changed(s.flag) {
			*s.dst = s.val
		}
	}
	if changed("max-results") {
		cfg.Campaign.MaxResults = huntMaxResults
	}
	if changed("use-browser") {
		cfg.UseBrowser = huntUseBrowser
	}
}

func runHuntCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(huntStore.configPath, func(c *config.Config) { applyHuntFlags(cmd, c) })
	if err != nil {
		return err
	}
	if err := cfg.Campaign.Validate(); err != nil {
		return fmt.Errorf("invalid campaign: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	printer := observability.NewPrinter(stdout(cmd), cfg.Verbose)
	printer.PrintCostEstimate(cfg.Campaign.MaxResults)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	hunter, cleanup, err := pipeline.NewHunter(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	report, err := hunter.Hunt(ctx, cfg.Campaign, printer.PrintProgress)
	if err != nil {
		return fmt.Errorf("hunt failed: %w", err)
	}

	printer.PrintReport(report)
	if len(report.Leads) > 0 {
		printer.PrintLeads(report.Leads)
	}
	return nil
}
