package ai

import (
	"context"
	"fmt"

	"hrportal/internal/config"
	"hrportal/internal/errors"
)

// Service owns the configured AI provider
type Service struct {
	Provider AIProvider // Exported for access from server package
	config   *config.AIConfig
	logger   *errors.Logger
}

// NewService creates a new AI service instance. The API key must already be resolved.
func NewService(ctx context.Context, cfg *config.AIConfig, logger *errors.Logger) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"No Gemini API key is configured", nil)
	}

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"discovery", cfg.Discovery.Enabled,
		"temperature", cfg.Temperature,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries)

	var provider AIProvider
	var err error

	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(ctx, cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, err
	}

	return &Service{
		Provider: provider,
		config:   cfg,
		logger:   logger,
	}, nil
}

// StartChat implements ChatStarter
func (s *Service) StartChat(ctx context.Context) (ChatSession, error) {
	return s.Provider.StartChat(ctx)
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Close releases the provider
func (s *Service) Close() error {
	return s.Provider.Close()
}

// GetCircuitBreakerStats returns the provider's breaker state for /health and /stats
func (s *Service) GetCircuitBreakerStats() map[string]any {
	return s.Provider.GetCircuitBreakerStats()
}
