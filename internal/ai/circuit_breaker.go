package ai

import (
	"fmt"

	"hrportal/internal/config"
	"hrportal/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Breaker guards one kind of Gemini call. A nil *Breaker is valid and
// passes every call straight through.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// tripPolicy decides when a breaker opens
type tripPolicy func(counts gobreaker.Counts) bool

// configuredTrip opens once MinRequests calls have failed at FailureThreshold
func configuredTrip(cfg *config.CircuitBreakerConfig) tripPolicy {
	return func(counts gobreaker.Counts) bool {
		return counts.Requests >= cfg.MinRequests &&
			failureRatio(counts) >= cfg.FailureThreshold
	}
}

// lenientTrip is used for model listing, which only picks a model name
func lenientTrip(counts gobreaker.Counts) bool {
	return counts.Requests >= 5 && failureRatio(counts) >= 0.8
}

func failureRatio(counts gobreaker.Counts) float64 {
	if counts.Requests == 0 {
		return 0
	}
	return float64(counts.TotalFailures) / float64(counts.Requests)
}

func newBreaker[T any](name string, cfg *config.CircuitBreakerConfig, trip tripPolicy, logger *errors.Logger) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   trip,
		OnStateChange: stateChangeLogger(logger, cfg),
	})}
}

// NewChatBreaker creates the breaker guarding chat messages.
// It returns nil when the breaker is disabled.
func NewChatBreaker(name string, cfg *config.CircuitBreakerConfig, logger *errors.Logger) *Breaker[*genai.GenerateContentResponse] {
	return newBreaker[*genai.GenerateContentResponse](fmt.Sprintf("AI-%s", name), cfg, configuredTrip(cfg), logger)
}

// NewModelListBreaker creates the breaker guarding model discovery.
// It returns nil when the breaker is disabled.
func NewModelListBreaker(name string, cfg *config.CircuitBreakerConfig, logger *errors.Logger) *Breaker[[]*genai.Model] {
	return newBreaker[[]*genai.Model](fmt.Sprintf("AI-Model-%s", name), cfg, lenientTrip, logger)
}

func stateChangeLogger(logger *errors.Logger, cfg *config.CircuitBreakerConfig) func(string, gobreaker.State, gobreaker.State) {
	return func(name string, from gobreaker.State, to gobreaker.State) {
		if logger == nil {
			return
		}
		logger.Info("Circuit breaker state changed",
			"name", name,
			"from", from.String(),
			"to", to.String(),
			"max_requests", cfg.MaxRequests,
			"failure_threshold", cfg.FailureThreshold)
	}
}

// Execute runs fn unless the breaker is open
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats reports name, state and counts for /stats
func (b *Breaker[T]) Stats() map[string]any {
	if b == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// Healthy is true unless the breaker is open or half-open
func (b *Breaker[T]) Healthy() bool {
	return b == nil || b.cb.State() == gobreaker.StateClosed
}
