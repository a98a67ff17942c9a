package cli

import (
	"hrportal/internal/config"
	"hrportal/internal/errors"
	"hrportal/internal/review"
	"hrportal/internal/server"

	"github.com/spf13/cobra"
)

// formOverhead is added to the upload limit to leave room for the other form fields
const formOverhead = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portal web server",
	Long: `Start the SMU HR: Oasis Portal page server.

Routes:
- GET  /            the portal page
- POST /review      execute a performance review (PDF upload or pasted text)
- POST /chat        defend your profile in the live evaluation
- POST /reset       evaluate a new candidate
- GET  /download    download the review (format=txt|md|json)
- GET  /api/session session snapshot as JSON
- GET  /health      health check
- GET  /stats       server statistics

Without a Gemini API key the page still loads but shows a banner and the
review form stays disabled.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().Bool("watch-lore", false, "Reload the lore file when it changes (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	applyServeFlags(cmd, cfg)

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize + formOverhead,
		RateLimit:      &cfg.Server.RateLimit,
		Assembler:      review.NewAssembler(cfg.Review.PromptTemplate),
		Lore:           newLoreSource(cfg, logger),
	}

	service, err := newAIService(cmd.Context(), cfg, logger)
	if err != nil {
		logger.LogError(err, "Gemini is unavailable; serving the page with reviews disabled")
		serverCfg.StarterErr = err
	} else {
		defer func() { _ = service.Close() }()
		serverCfg.Starter = service
	}

	return server.NewServer(cfg, serverCfg, logger).Start(cmd.Context())
}

// applyServeFlags copies explicitly set flags over the loaded config
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetString("port")
	}
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("watch-lore") {
		cfg.Review.WatchLore, _ = flags.GetBool("watch-lore")
	}
}

// newLoreSource watches the lore file when configured, falling back to
// reading it on every submission
func newLoreSource(cfg *config.Config, logger *errors.Logger) review.LoreSource {
	if !cfg.Review.WatchLore || cfg.Review.LoreFile == "" {
		return review.FileLore{Path: cfg.Review.LoreFile}
	}

	watcher := review.NewLoreWatcher(cfg.Review.LoreFile, cfg.Review.WatchDebounce, logger)
	if err := watcher.Start(); err != nil {
		logger.LogError(err, "Failed to watch lore file, reading it per submission instead",
			"path", cfg.Review.LoreFile)
		return review.FileLore{Path: cfg.Review.LoreFile}
	}
	return watcher
}

