package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultModel is used when discovery finds nothing better
const DefaultModel = "gemini-3-flash-preview"

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", DefaultModel)
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 0) // a failed call is reported, not retried
	v.SetDefault("ai.temperature", 0.9)

	v.SetDefault("ai.discovery.enabled", true)
	v.SetDefault("ai.discovery.prefer", "flash")
	v.SetDefault("ai.discovery.capability", "generateContent")

	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Review Configuration
	v.SetDefault("review.loreFile", "smu_lore.txt")
	v.SetDefault("review.watchLore", false)
	v.SetDefault("review.watchDebounce", 250*time.Millisecond)
	v.SetDefault("review.promptTemplate", "")
	v.SetDefault("review.promptTemplateFile", "")

	// Session Configuration
	v.SetDefault("session.idleTimeout", 30*time.Minute)
	v.SetDefault("session.sweepInterval", time.Minute)
	v.SetDefault("session.cookieName", "hrportal_session")
	v.SetDefault("session.cookieSecure", false)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8501")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 120*time.Second) // covers a slow model reply
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")

	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", true)
	v.SetDefault("server.rateLimit.requestsPerMin", 20)
	v.SetDefault("server.rateLimit.burstCapacity", 5)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"text", "markdown", "json"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.geminiKeyField", "api_key")

	// AWS SSM Parameter Store Configuration
	v.SetDefault("ssm.enabled", false)
	v.SetDefault("ssm.region", "")
	v.SetDefault("ssm.geminiKeyParameter", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "hrportal")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.aiOperations", true)
	v.SetDefault("observability.customMetrics.reviews", true)
	v.SetDefault("observability.customMetrics.infrastructure", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
