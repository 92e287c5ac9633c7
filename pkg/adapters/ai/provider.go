package ai

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var (
	ErrMissingAPIKey       = errors.New("missing API key")
	ErrUnsupportedProvider = errors.New("unsupported AI provider")
)

type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New builds an Adapter backed by the configured langchaingo provider.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrMissingAPIKey)
	}

	var (
		model Model
		err   error
	)

	switch cfg.Provider {
	case ProviderOpenAI:
		options := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			options = append(options, openai.WithModel(cfg.Model))
		}

		if cfg.BaseURL != "" {
			options = append(options, openai.WithBaseURL(cfg.BaseURL))
		}

		model, err = openai.New(options...)
	case ProviderAnthropic:
		options := []anthropic.Option{anthropic.WithToken(cfg.APIKey)}
		if cfg.Model != "" {
			options = append(options, anthropic.WithModel(cfg.Model))
		}

		if cfg.BaseURL != "" {
			options = append(options, anthropic.WithBaseURL(cfg.BaseURL))
		}

		model, err = anthropic.New(options...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	return NewAdapter(model, cfg.Provider, logger, opts...), nil
}
