package config

import (
	"context"
	"errors"
	"testing"

	apperrors "hrportal/internal/errors"

	"github.com/stretchr/testify/assert"
)

type stubSource struct {
	name string
	key  string
	err  error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) GeminiKey(context.Context) (string, error) { return s.key, s.err }

func TestResolveGeminiKeyPrecedence(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		sources    []SecretSource
		configKey  string
		envKey     string
		wantKey    string
		wantSource string
	}{
		{
			name:       "platform store wins over everything",
			sources:    []SecretSource{stubSource{name: "vault", key: "vault-key"}},
			configKey:  "config-key",
			envKey:     "env-key",
			wantKey:    "vault-key",
			wantSource: "vault",
		},
		{
			name: "failing store falls through to next store",
			sources: []SecretSource{
				stubSource{name: "vault", err: errors.New("sealed")},
				stubSource{name: "ssm", key: " ssm-key "},
			},
			envKey:     "env-key",
			wantKey:    "ssm-key",
			wantSource: "ssm",
		},
		{
			name:       "empty store value falls through to config",
			sources:    []SecretSource{stubSource{name: "ssm", key: "  "}},
			configKey:  "config-key",
			wantKey:    "config-key",
			wantSource: "config",
		},
		{
			name:       "env file fallback",
			envKey:     "env-key",
			wantKey:    "env-key",
			wantSource: "env:" + GeminiKeyEnv,
		},
		{
			name:    "nothing configured",
			wantKey: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(GeminiKeyEnv, tt.envKey)
			cfg := &Config{AI: AIConfig{APIKey: tt.configKey}}

			ResolveGeminiKey(ctx, cfg, tt.sources, newTestLogger())

			assert.Equal(t, tt.wantKey, cfg.AI.APIKey)
			assert.Equal(t, tt.wantSource, cfg.AI.APIKeySource)
			assert.Equal(t, tt.wantKey != "", cfg.HasAPIKey())
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := &Config{}
	err := cfg.RequireAPIKey()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMissingAPIKey))

	cfg.AI.APIKey = "k"
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "AIza****1234", MaskSecret("AIzaSyExample1234"))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "", MaskSecret(""))
}
