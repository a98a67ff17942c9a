package cli

import (
	"context"

	"hrportal/internal/ai"
	"hrportal/internal/config"
	"hrportal/internal/errors"

	"github.com/spf13/cobra"
)

type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "hrportal",
	Short: "SMU HR: Oasis Portal, an automated candidate synergy evaluator",
	Long: `hrportal serves a single-page portal where a candidate submits a resume
(PDF or pasted LinkedIn text), receives a brutally concise "performance review"
from a toxic AI manager persona, and can then defend their profile in a live chat.
The same review can be run from the command line.`,
	SilenceUsage: true,
}

// Execute runs the root command with cfg and logger attached to ctx
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// newAIService resolves the Gemini key from the secret chain and builds the
// service. A missing key comes back as MISSING_API_KEY.
func newAIService(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*ai.Service, error) {
	config.ApplySecrets(ctx, cfg, logger)
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return ai.NewService(ctx, &cfg.AI, logger)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(versionCmd)
}
