package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Gemini API Key Precedence Order:
// 1. Vault (if enabled) - Highest priority
// 2. AWS SSM Parameter Store (if enabled)
// 3. Config file / HRPORTAL_AI_APIKEY
// 4. GEMINI_API_KEY from the environment or a local .env file - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Review        ReviewConfig        `mapstructure:"review"`
	Session       SessionConfig       `mapstructure:"session"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	SSM           SSMConfig           `mapstructure:"ssm"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds AI service configuration
type AIConfig struct {
	Provider       string               `mapstructure:"provider"`
	Model          string               `mapstructure:"model"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	APIKey         string               `mapstructure:"apiKey"`
	MaxRetries     int                  `mapstructure:"maxRetries"`
	Temperature    float32              `mapstructure:"temperature"`
	Discovery      DiscoveryConfig      `mapstructure:"discovery"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`

	// APIKeySource records where APIKey came from, for display only
	APIKeySource string `mapstructure:"-"`
}

// DiscoveryConfig controls runtime model discovery
type DiscoveryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`    // List models and pick one at startup
	Prefer     string `mapstructure:"prefer"`     // Substring preferred in model names
	Capability string `mapstructure:"capability"` // Required supported action
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ReviewConfig holds prompt and lore configuration
type ReviewConfig struct {
	LoreFile           string        `mapstructure:"loreFile"`
	WatchLore          bool          `mapstructure:"watchLore"`
	WatchDebounce      time.Duration `mapstructure:"watchDebounce"`
	PromptTemplate     string        `mapstructure:"promptTemplate"`
	PromptTemplateFile string        `mapstructure:"promptTemplateFile"`
}

// SessionConfig holds browser session configuration
type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idleTimeout"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
	CookieName    string        `mapstructure:"cookieName"`
	CookieSecure  bool          `mapstructure:"cookieSecure"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// TLS Configuration
	TLS TLSConfig `mapstructure:"tls"`

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds optional HTTPS configuration
type TLSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	CertFile   string `mapstructure:"certFile"`   // Server certificate file (PEM)
	KeyFile    string `mapstructure:"keyFile"`    // Server private key file (PEM)
	MinVersion string `mapstructure:"minVersion"` // Minimum TLS version: "1.2", "1.3"
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// CustomMetricsConfig switches the application-level instrument groups on and off
type CustomMetricsConfig struct {
	AIOperations   bool `mapstructure:"aiOperations"`
	Reviews        bool `mapstructure:"reviews"`
	Infrastructure bool `mapstructure:"infrastructure"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file.
// A missing Gemini key is not an error here; secrets are resolved later by
// ApplySecrets and a missing key is reported where it is needed.
func LoadConfig() (*Config, error) {
	return LoadConfigWithViper(viper.New())
}

// LoadConfigWithViper loads configuration into the given viper instance so
// command flags bound to it take effect
func LoadConfigWithViper(v *viper.Viper) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)

	v.SetEnvPrefix("HRPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'HRPORTAL'")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/hrportal/")
	v.AddConfigPath("$HOME/.hrportal")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.loadPromptTemplateFile(); err != nil {
		return nil, fmt.Errorf("failed to load prompt template: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AI.Provider != "gemini" {
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("AI maxRetries cannot be negative")
	}

	if c.AI.Model == "" && !c.AI.Discovery.Enabled {
		return fmt.Errorf("AI model is required when model discovery is disabled")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.App.MaxFileSize <= 0 {
		return fmt.Errorf("app maxFileSize must be positive")
	}

	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session idleTimeout must be positive")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required when TLS is enabled")
		}
		switch c.Server.TLS.MinVersion {
		case "", "1.2", "1.3":
		default:
			return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", c.Server.TLS.MinVersion)
		}
	}

	if c.SSM.Enabled && c.SSM.GeminiKeyParameter == "" {
		return fmt.Errorf("ssm.geminiKeyParameter is required when SSM is enabled")
	}

	return nil
}

// HasAPIKey reports whether a Gemini key was resolved
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.AI.APIKey) != ""
}
