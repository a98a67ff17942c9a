package ai

import (
	"errors"
	"testing"
	"time"

	"hrportal/internal/config"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

func testBreakerConfig() *config.CircuitBreakerConfig {
	return &config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
}

func TestCircuitBreakerNames(t *testing.T) {
	chatCB := NewChatBreaker("Chat", testBreakerConfig(), nil)
	modelCB := NewModelListBreaker("Discovery", testBreakerConfig(), nil)

	t.Run("ChatBreaker", func(t *testing.T) {
		stats := chatCB.Stats()
		name, ok := stats["name"].(string)
		if !ok {
			t.Fatal("Circuit breaker name not found")
		}
		if name != "AI-Chat" {
			t.Errorf("Expected circuit breaker name 'AI-Chat', got '%s'", name)
		}
		if state, _ := stats["state"].(string); state != "closed" {
			t.Errorf("Expected initial state 'closed', got '%s'", state)
		}
		if enabled, _ := stats["enabled"].(bool); !enabled {
			t.Error("Circuit breaker should be enabled")
		}
	})

	t.Run("ModelBreaker", func(t *testing.T) {
		stats := modelCB.Stats()
		if name, _ := stats["name"].(string); name != "AI-Model-Discovery" {
			t.Errorf("Expected circuit breaker name 'AI-Model-Discovery', got '%s'", name)
		}
		if !modelCB.Healthy() {
			t.Error("Model circuit breaker should be healthy initially")
		}
	})
}

func TestCircuitBreakerTrips(t *testing.T) {
	cb := NewChatBreaker("Trip", testBreakerConfig(), nil)
	failure := errors.New("boom")

	for range 2 {
		_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
			return nil, failure
		})
		if !errors.Is(err, failure) {
			t.Fatalf("expected underlying failure, got %v", err)
		}
	}

	if cb.Healthy() {
		t.Fatal("breaker should be open after repeated failures")
	}

	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return &genai.GenerateContentResponse{}, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if called {
		t.Error("open breaker must not call the wrapped function")
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	disabled := &config.CircuitBreakerConfig{Enabled: false}

	cb := NewChatBreaker("Disabled", disabled, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	// A nil breaker passes calls straight through
	resp, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	})
	if err != nil || resp == nil {
		t.Errorf("expected passthrough, got %v, %v", resp, err)
	}
	if !cb.Healthy() {
		t.Error("nil breaker should report healthy")
	}
	if enabled, _ := cb.Stats()["enabled"].(bool); enabled {
		t.Error("nil breaker should report disabled")
	}

	if mcb := NewModelListBreaker("Disabled", disabled, nil); mcb != nil {
		t.Fatal("Model circuit breaker should be nil when disabled")
	}
}

func TestModelListBreakerIsLenient(t *testing.T) {
	cb := NewModelListBreaker("Lenient", testBreakerConfig(), nil)
	failure := errors.New("list failed")

	for range 4 {
		_, _ = cb.Execute(func() ([]*genai.Model, error) { return nil, failure })
	}
	if !cb.Healthy() {
		t.Fatal("model list breaker should stay closed below five requests")
	}

	_, _ = cb.Execute(func() ([]*genai.Model, error) { return nil, failure })
	if cb.Healthy() {
		t.Error("model list breaker should open after five straight failures")
	}
}

func TestFailureRatioWithoutRequests(t *testing.T) {
	if got := failureRatio(gobreaker.Counts{}); got != 0 {
		t.Errorf("expected 0 for no requests, got %v", got)
	}
}
