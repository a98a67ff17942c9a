package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"hrportal/internal/ai"
	apperrors "hrportal/internal/errors"
)

const healthCheckTimeout = 10 * time.Second

// modelReporter is implemented by starters that can describe their model
type modelReporter interface {
	GetModelInfo(ctx context.Context) *ai.ModelInfo
}

// breakerReporter is implemented by starters guarded by circuit breakers
type breakerReporter interface {
	GetCircuitBreakerStats() map[string]any
}

// healthHandler reports whether the portal can reach its model
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "hrportal",
		"version": s.Version,
	}

	aiStatus := s.checkAIHealth(r.Context())
	response["ai_model"] = aiStatus

	if breakers, ok := s.Starter.(breakerReporter); ok {
		response["circuit_breakers"] = breakers.GetCircuitBreakerStats()
	}

	statusCode := http.StatusOK
	if available, _ := aiStatus["available"].(bool); !available {
		response["status"] = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode health response: %v", err)
	}
}

// checkAIHealth resolves the model with a bounded timeout
func (s *Server) checkAIHealth(parent context.Context) map[string]any {
	if s.Starter == nil {
		return map[string]any{
			"available": false,
			"error":     apperrors.UserMessage(s.StarterErr),
		}
	}

	reporter, ok := s.Starter.(modelReporter)
	if !ok {
		return map[string]any{"available": true}
	}

	ctx, cancel := context.WithTimeout(parent, healthCheckTimeout)
	defer cancel()

	info := reporter.GetModelInfo(ctx)
	if info == nil {
		return map[string]any{"available": false, "error": "no model information"}
	}

	status := map[string]any{
		"name":      info.Name,
		"available": info.Available,
	}
	if info.Error != "" {
		status["error"] = info.Error
	}
	return status
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "hrportal",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_file_size_bytes":    s.maxFileSize(),
		},
		"sessions": map[string]any{
			"active": s.Sessions.Len(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode stats response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   error,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
