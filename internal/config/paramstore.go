package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	apperrors "hrportal/internal/errors"
)

// SSMConfig holds AWS Systems Manager Parameter Store configuration
type SSMConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Region             string `mapstructure:"region"`             // Empty uses the default AWS region chain
	GeminiKeyParameter string `mapstructure:"geminiKeyParameter"` // e.g. /hrportal/gemini-api-key
}

// ssmAPI is the minimal AWS SSM interface required by ParamStore.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ParamStore reads decrypted parameters from SSM
type ParamStore struct {
	api ssmAPI
}

// NewParamStore creates a ParamStore with the given SSM API implementation
func NewParamStore(api ssmAPI) (*ParamStore, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &ParamStore{api: api}, nil
}

// GetParameter returns the decrypted value of a parameter
func (p *ParamStore) GetParameter(ctx context.Context, name string) (string, error) {
	if p == nil || p.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := p.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// ssmSource reads the Gemini key from a SecureString parameter
type ssmSource struct {
	store     *ParamStore
	parameter string
}

func (s *ssmSource) Name() string {
	return "ssm"
}

func (s *ssmSource) GeminiKey(ctx context.Context) (string, error) {
	return s.store.GetParameter(ctx, s.parameter)
}

// newSSMSource returns nil when SSM is disabled
func newSSMSource(ctx context.Context, config SSMConfig, logger *apperrors.Logger) (SecretSource, error) {
	if !config.Enabled {
		return nil, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	store, err := NewParamStore(ssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("Loading Gemini API key from SSM Parameter Store",
			"parameter", config.GeminiKeyParameter,
			"region", awsCfg.Region)
	}
	return &ssmSource{store: store, parameter: config.GeminiKeyParameter}, nil
}
