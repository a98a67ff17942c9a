package config

import (
	"context"
	"os"
	"strings"

	"hrportal/internal/errors"
)

// GeminiKeyEnv is read from the environment (or a local .env file) last
const GeminiKeyEnv = "GEMINI_API_KEY"

// SecretSource is a platform secret store that may hold the Gemini key
type SecretSource interface {
	Name() string
	GeminiKey(ctx context.Context) (string, error)
}

// BuildSecretSources creates the enabled platform stores in precedence order.
// A store that cannot be initialised is logged and left out.
func BuildSecretSources(ctx context.Context, config *Config, logger *errors.Logger) []SecretSource {
	var sources []SecretSource

	if src, err := newVaultSource(config.Vault, logger); err != nil {
		logSecretStoreFailure(logger, "vault", err)
	} else if src != nil {
		sources = append(sources, src)
	}

	if src, err := newSSMSource(ctx, config.SSM, logger); err != nil {
		logSecretStoreFailure(logger, "ssm", err)
	} else if src != nil {
		sources = append(sources, src)
	}

	return sources
}

// ApplySecrets resolves the Gemini key from every configured source
func ApplySecrets(ctx context.Context, config *Config, logger *errors.Logger) {
	ResolveGeminiKey(ctx, config, BuildSecretSources(ctx, config, logger), logger)
}

// ResolveGeminiKey sets config.AI.APIKey from the first source that yields a
// non-empty key: platform stores in order, then config/HRPORTAL_AI_APIKEY, then
// GEMINI_API_KEY. Leaving the key empty is not an error here.
func ResolveGeminiKey(ctx context.Context, config *Config, sources []SecretSource, logger *errors.Logger) {
	for _, src := range sources {
		key, err := src.GeminiKey(ctx)
		if err != nil {
			logSecretStoreFailure(logger, src.Name(), err)
			continue
		}
		if strings.TrimSpace(key) == "" {
			if logger != nil {
				logger.Warn("Empty Gemini API key in secret store", "source", src.Name())
			}
			continue
		}
		setAPIKey(config, strings.TrimSpace(key), src.Name(), logger)
		return
	}

	if strings.TrimSpace(config.AI.APIKey) != "" {
		if config.AI.APIKeySource == "" {
			config.AI.APIKeySource = "config"
		}
		return
	}

	if key := strings.TrimSpace(os.Getenv(GeminiKeyEnv)); key != "" {
		setAPIKey(config, key, "env:"+GeminiKeyEnv, logger)
		return
	}

	if logger != nil {
		logger.Warn("No Gemini API key found; review submission is disabled until one is configured",
			"checked_sources", len(sources))
	}
}

// RequireAPIKey returns the missing-secret error when no key was resolved
func (c *Config) RequireAPIKey() error {
	if c.HasAPIKey() {
		return nil
	}
	return errors.NewConfigError(errors.ErrCodeMissingAPIKey,
		"Gemini API key is not configured", nil).
		WithContext("env", GeminiKeyEnv)
}

func setAPIKey(config *Config, key, source string, logger *errors.Logger) {
	config.AI.APIKey = key
	config.AI.APIKeySource = source
	if logger != nil {
		logger.Info("Gemini API key resolved", "source", source, "masked_value", MaskSecret(key))
	}
}

func logSecretStoreFailure(logger *errors.Logger, source string, err error) {
	if logger == nil {
		return
	}
	logger.LogError(errors.NewConfigError(errors.ErrCodeSecretStoreFailed,
		"Secret store lookup failed", err).WithContext("source", source),
		"Falling back to the next secret source")
}
