package server

import (
	"html/template"
	"time"

	"hrportal/internal/ai"
	"hrportal/internal/config"
	apperrors "hrportal/internal/errors"
	"hrportal/internal/review"
	"hrportal/internal/session"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration and collaborators for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit, sized to fit one upload plus the form fields
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Per-browser conversations
	Sessions *session.Store

	// Starter opens Gemini chats. It is nil when no API key was resolved,
	// in which case StarterErr explains why and the form stays inert.
	Starter    ai.ChatStarter
	StarterErr error

	Assembler *review.Assembler
	Lore      review.LoreSource

	// Logger
	Logger *apperrors.Logger

	page *template.Template
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig

	Sessions   *session.Store
	Starter    ai.ChatStarter
	StarterErr error
	Assembler  *review.Assembler
	Lore       review.LoreSource
}

// NewServer creates a new Server instance from a ServerConfig struct.
// Missing collaborators are built from appCfg.
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *apperrors.Logger) *Server {
	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewStore(&appCfg.Session, logger)
	}

	lore := cfg.Lore
	if lore == nil {
		lore = review.FileLore{Path: appCfg.Review.LoreFile}
	}

	assembler := cfg.Assembler
	if assembler == nil {
		assembler = review.NewAssembler(appCfg.Review.PromptTemplate)
	}

	starterErr := cfg.StarterErr
	if cfg.Starter == nil && starterErr == nil {
		starterErr = apperrors.NewConfigError(apperrors.ErrCodeMissingAPIKey,
			"No Gemini API key is configured", nil)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Sessions:       sessions,
		Starter:        cfg.Starter,
		StarterErr:     starterErr,
		Assembler:      assembler,
		Lore:           lore,
		Logger:         logger,
		page:           template.Must(template.New("page").Funcs(pageFuncs).ParseFS(pageFS, "templates/*.html")),
	}
}

// maxFileSize returns the per-upload limit
func (s *Server) maxFileSize() int64 {
	if s.AppConfig == nil {
		return 0
	}
	return s.AppConfig.App.MaxFileSize
}
