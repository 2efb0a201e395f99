package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/discovery"
	"github.com/jonathan/outreach-agent/internal/extraction"
	"github.com/jonathan/outreach-agent/internal/fetch"
	"github.com/jonathan/outreach-agent/internal/llm"
	"github.com/jonathan/outreach-agent/internal/logging"
	"github.com/jonathan/outreach-agent/internal/qualification"
)

// ErrMissingCredentials means the language model API key is not configured.
var ErrMissingCredentials = errors.New("missing model API key")

// OpenStore opens the lead store named by cfg: DatabaseURL when set, else DatabasePath.
func OpenStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	dedupe, err := db.ParseDedupePolicy(cfg.Dedupe)
	if err != nil {
		return nil, err
	}
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = cfg.DatabasePath
	}
	if dsn == "" {
		dsn = config.Defaults().DatabasePath
	}
	return db.Open(ctx, dsn, db.Options{Dedupe: dedupe})
}

// NewHunter builds a Hunter from cfg around an open store.
// The returned cleanup releases the model client and page cache connection.
func NewHunter(ctx context.Context, cfg *config.Config, store db.Store, logger logging.Logger) (*Hunter, func() error, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil, fmt.Errorf("%w: set the %s API key", ErrMissingCredentials, cfg.Provider)
	}

	engineOpts, err := engineOptions(cfg)
	if err != nil {
		return nil, nil, err
	}

	source, err := discovery.NewSource(ctx, cfg.Source, cfg.Campaign.Region, cfg.GoogleAPIKey, cfg.GoogleCSEID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create discovery source: %w", err)
	}

	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	var fetcher fetch.Fetcher = fetch.NewHTTPFetcher(nil)
	if cfg.RedisURL != "" {
		client, err := fetch.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		fetcher = fetch.NewRedisCache(client, fetcher, fetch.RedisCacheOptions{Logger: logger})
		logger.Debug("[Extract] page cache enabled")
	}
	var fallback fetch.Fetcher
	if cfg.UseBrowser {
		fallback = fetch.NewBrowserFetcher(logger)
	}
	extractor := extraction.New(fetcher, fallback, extraction.Options{
		MinLength: cfg.MinTextLength,
		MaxLength: cfg.MaxTextLength,
	}, logger)

	llmConfig := llm.ConfigFor(cfg.Provider)
	if cfg.Model != "" {
		llmConfig = llmConfig.WithModel(llm.TierStandard, cfg.Model)
	}
	if cfg.ModelTimeoutSeconds > 0 {
		llmConfig = llmConfig.WithTimeout(cfg.ModelTimeout())
	}
	client, err := llm.NewClient(ctx, llmConfig, cfg.APIKey)
	if err != nil {
		_ = cleanup()
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return nil, nil, fmt.Errorf("%w: %v", ErrMissingCredentials, err)
		}
		return nil, nil, fmt.Errorf("failed to create model client: %w", err)
	}
	closers = append(closers, client.Close)

	engine := qualification.NewEngine(client, engineOpts, logger)

	return &Hunter{
		Source:    source,
		Extractor: extractor,
		Qualifier: engine,
		Store:     store,
		Logger:    logger,
	}, cleanup, nil
}

// engineOptions resolves the qualification policies and prompt named by cfg.
func engineOptions(cfg *config.Config) (qualification.Options, error) {
	onParseFailure, err := qualification.ParseParseFailurePolicy(cfg.OnParseFailure)
	if err != nil {
		return qualification.Options{}, err
	}
	retention, err := qualification.ParseRetentionPolicy(cfg.Retention)
	if err != nil {
		return qualification.Options{}, err
	}
	prompt, err := qualification.ParsePromptMode(cfg.Mode)
	if err != nil {
		return qualification.Options{}, err
	}
	return qualification.Options{
		OnParseFailure: onParseFailure,
		Retention:      retention,
		Prompt:         prompt,
	}, nil
}

// Token prices in USD per million tokens and the per-lead token estimate.
const (
	InputPricePerMillion  = 15.0
	OutputPricePerMillion = 75.0
	InputTokensPerLead    = 4000
	OutputTokensPerLead   = 500
)

// EstimateCost returns the approximate model cost in USD of qualifying maxResults leads.
func EstimateCost(maxResults int) float64 {
	if maxResults <= 0 {
		return 0
	}
	perLead := (InputTokensPerLead*InputPricePerMillion + OutputTokensPerLead*OutputPricePerMillion) / 1e6
	return perLead * float64(maxResults)
}
