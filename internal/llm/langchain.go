package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient implements Client on top of a langchaingo model.
// One langchaingo model is built per tier since the model name is fixed at construction.
type LangChainClient struct {
	config *Config
	models map[string]llms.Model
}

// NewLangChainClient creates a client for the Anthropic or OpenAI provider.
func NewLangChainClient(config *Config, apiKey string) (*LangChainClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &LangChainClient{config: config, models: make(map[string]llms.Model)}
	for _, name := range config.Models {
		if _, ok := c.models[name]; ok {
			continue
		}
		model, err := newLangChainModel(config.Provider, name, apiKey)
		if err != nil {
			return nil, err
		}
		c.models[name] = model
	}
	return c, nil
}

// NewLangChainClientWithModel wraps an already constructed langchaingo model for every tier.
func NewLangChainClientWithModel(config *Config, model llms.Model) *LangChainClient {
	c := &LangChainClient{config: config, models: make(map[string]llms.Model)}
	for _, name := range config.Models {
		c.models[name] = model
	}
	return c
}

func newLangChainModel(provider Provider, name, apiKey string) (llms.Model, error) {
	switch provider {
	case ProviderAnthropic:
		model, err := anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(name))
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return model, nil
	case ProviderOpenAI:
		model, err := openai.New(openai.WithToken(apiKey), openai.WithModel(name))
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("provider %s is not served by langchaingo", provider)
	}
}

// GenerateContent generates text content using the specified model tier
func (c *LangChainClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.generate(ctx, prompt, tier)
}

// GenerateJSON generates JSON content using the specified model tier
func (c *LangChainClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	text, err := c.generate(ctx, prompt, tier)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

func (c *LangChainClient) generate(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	name := c.config.GetModel(tier)
	model, ok := c.models[name]
	if name == "" || !ok {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.callTimeout())
	defer cancel()

	text, err := llms.GenerateFromSinglePrompt(ctx, model, prompt,
		llms.WithTemperature(0),
		llms.WithMaxTokens(c.config.maxTokens()),
	)
	if err != nil {
		return "", &APICallError{Provider: c.config.Provider, Model: name, Cause: err}
	}
	return strings.TrimSpace(text), nil
}

// GetModel returns the model name for a tier
func (c *LangChainClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; langchaingo models hold no resources.
func (c *LangChainClient) Close() error {
	return nil
}
