package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"hrportal/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets says where the Gemini key lives
type VaultSecrets struct {
	GeminiKey      string `mapstructure:"geminiKey"`      // KVv2 path, e.g. secret/data/hrportal
	GeminiKeyField string `mapstructure:"geminiKeyField"` // field inside the secret, default api_key
}

const defaultVaultKeyField = "api_key"

// logicalReader is the slice of *api.Logical the key lookup needs
type logicalReader interface {
	ReadWithContext(ctx context.Context, path string) (*api.Secret, error)
}

// vaultSource reads the Gemini key from one field of a KVv2 secret
type vaultSource struct {
	logical logicalReader
	path    string
	field   string
	logger  *errors.Logger
}

// newVaultSource returns nil when Vault is disabled or no key path is configured
func newVaultSource(config VaultConfig, logger *errors.Logger) (SecretSource, error) {
	if !config.Enabled || config.Secrets.GeminiKey == "" {
		return nil, nil
	}

	client, err := dialVault(config, logger)
	if err != nil {
		return nil, err
	}

	field := config.Secrets.GeminiKeyField
	if field == "" {
		field = defaultVaultKeyField
	}

	if logger != nil {
		logger.Info("Gemini API key will be read from Vault",
			"path", config.Secrets.GeminiKey,
			"field", field)
	}

	return &vaultSource{
		logical: client.Logical(),
		path:    config.Secrets.GeminiKey,
		field:   field,
		logger:  logger,
	}, nil
}

// dialVault builds an authenticated client and checks that the server answers
func dialVault(config VaultConfig, logger *errors.Logger) (*api.Client, error) {
	clientConfig := api.DefaultConfig()
	if config.Address != "" {
		clientConfig.Address = config.Address
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := vaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", clientConfig.Address, err)
	}
	if health.Sealed {
		return nil, fmt.Errorf("vault at %s is sealed", clientConfig.Address)
	}

	if logger != nil {
		logger.Debug("Connected to Vault",
			"address", clientConfig.Address,
			"version", health.Version,
			"token", MaskSecret(token))
	}
	return client, nil
}

// vaultToken prefers the inline token over the token file
func vaultToken(config VaultConfig) (string, error) {
	if token := strings.TrimSpace(config.Token); token != "" {
		return token, nil
	}

	if config.TokenFile != "" {
		raw, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		if token := strings.TrimSpace(string(raw)); token != "" {
			return token, nil
		}
	}

	return "", fmt.Errorf("vault token is required when vault is enabled")
}

func (s *vaultSource) Name() string {
	return "vault"
}

// GeminiKey reads the configured field of the secret at path
func (s *vaultSource) GeminiKey(ctx context.Context) (string, error) {
	secret, err := s.logical.ReadWithContext(ctx, s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from %s: %w", s.path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret not found at path: %s", s.path)
	}

	data, err := kv2Data(secret)
	if err != nil {
		return "", fmt.Errorf("secret at %s: %w", s.path, err)
	}

	raw, ok := data[s.field]
	if !ok {
		return "", fmt.Errorf("field '%s' not found in secret %s", s.field, s.path)
	}
	key, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field '%s' in secret %s is not a string", s.field, s.path)
	}

	if s.logger != nil {
		s.logger.Debug("Gemini API key read from Vault",
			"path", s.path,
			"version", kv2Version(secret),
			"key", MaskSecret(key))
	}
	return key, nil
}

// kv2Data unwraps the payload of a KVv2 read
func kv2Data(secret *api.Secret) (map[string]any, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("not in KVv2 format (missing 'data' field)")
	}
	return data, nil
}

// kv2Version reports the secret version for logs, or -1 when absent
func kv2Version(secret *api.Secret) int64 {
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return -1
	}

	switch v := metadata["version"].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return -1
}
