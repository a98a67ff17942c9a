package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"iter"
	"math"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"hrportal/internal/config"
	apperrors "hrportal/internal/errors"
	"hrportal/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const tracerName = "hrportal.ai.gemini"

// genaiChat is the part of *genai.Chat the provider uses
type genaiChat interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// chatCreator opens chats against a model
type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (genaiChat, error)
}

// modelLister is the part of genai.Models used for discovery
type modelLister interface {
	All(ctx context.Context) iter.Seq2[*genai.Model, error]
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (genaiChat, error) {
	return c.chats.Create(ctx, model, config, history)
}

// sleep waits for d or until ctx is done. Tests replace it.
var sleep = func(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	chats          chatCreator
	models         modelLister
	config         *config.AIConfig
	circuitBreaker *Breaker[*genai.GenerateContentResponse]
	modelBreaker   *Breaker[[]*genai.Model]
	logger         *apperrors.Logger

	mu            sync.Mutex
	resolvedModel string
}

// Ensure GeminiProvider implements AIProvider
var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(ctx context.Context, cfg *config.AIConfig, logger *apperrors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return newGeminiProvider(genaiChats{chats: client.Chats}, client.Models, cfg, logger), nil
}

func newGeminiProvider(chats chatCreator, models modelLister, cfg *config.AIConfig, logger *apperrors.Logger) *GeminiProvider {
	return &GeminiProvider{
		chats:          chats,
		models:         models,
		config:         cfg,
		circuitBreaker: NewChatBreaker("Chat", &cfg.CircuitBreaker, logger),
		modelBreaker:   NewModelListBreaker("Discovery", &cfg.CircuitBreaker, logger),
		logger:         logger,
	}
}

// ResolveModel returns the model used for new chats. With discovery enabled the
// first successful listing decides, and the answer is cached for the provider's
// lifetime. A failed listing falls back to the configured model without caching.
func (g *GeminiProvider) ResolveModel(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolvedModel != "" {
		return g.resolvedModel, nil
	}

	if !g.config.Discovery.Enabled {
		g.resolvedModel = TrimModelPrefix(g.config.Model)
		return g.resolvedModel, nil
	}

	models, err := g.ListModels(ctx)
	if err != nil {
		if g.config.Model == "" {
			return "", apperrors.NewAIError(apperrors.ErrCodeModelDiscoveryFailed,
				"Failed to discover a Gemini model", err)
		}
		g.logger.Warn("Model discovery failed, using configured model",
			"model", g.config.Model,
			"error", err.Error())
		return TrimModelPrefix(g.config.Model), nil
	}

	chosen := SelectModel(models, g.config.Discovery.Capability, g.config.Discovery.Prefer,
		TrimModelPrefix(g.config.Model))
	if chosen == "" {
		return "", apperrors.NewAIError(apperrors.ErrCodeModelDiscoveryFailed,
			"No model supports "+g.config.Discovery.Capability, nil)
	}

	g.logger.Info("Resolved Gemini model",
		"model", chosen,
		"candidates", len(FilterCapable(models, g.config.Discovery.Capability)),
		"prefer", g.config.Discovery.Prefer)

	g.resolvedModel = chosen
	return chosen, nil
}

// ListModels lists every model visible to the API key
func (g *GeminiProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "gemini.models.list")
	defer span.End()

	listCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	raw, err := g.modelBreaker.Execute(func() ([]*genai.Model, error) {
		var out []*genai.Model
		for m, err := range g.models.All(listCtx) {
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, apperrors.NewAIError(apperrors.ErrCodeModelDiscoveryFailed,
			"Failed to list Gemini models", err)
	}

	models := make([]ModelInfo, 0, len(raw))
	for _, m := range raw {
		if m == nil {
			continue
		}
		models = append(models, toModelInfo(m))
	}

	span.SetAttributes(
		attribute.Int("models.count", len(models)),
		attribute.Bool("success", true),
	)
	return models, nil
}

// GetModelInfo checks the readiness and availability of the chat model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	name, err := g.ResolveModel(ctx)
	if err != nil {
		return &ModelInfo{Name: g.config.Model, Error: err.Error()}
	}
	return &ModelInfo{
		Name:      name,
		Available: g.circuitBreaker.Healthy(),
	}
}

// StartChat opens a chat with empty history on the resolved model
func (g *GeminiProvider) StartChat(ctx context.Context) (ChatSession, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "gemini.chat.start")
	defer span.End()

	model, err := g.ResolveModel(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
	)

	chat, err := g.chats.Create(ctx, model, g.generateConfig(), nil)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			"Failed to start Gemini chat", err)
	}

	return &geminiChatSession{provider: g, chat: chat, model: model}, nil
}

func (g *GeminiProvider) generateConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if g.config.Temperature > 0 {
		temp := g.config.Temperature
		cfg.Temperature = &temp
	}
	return cfg
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"chat_operations":  g.circuitBreaker.Stats(),
		"model_operations": g.modelBreaker.Stats(),
	}
	stats["overall_healthy"] = g.circuitBreaker.Healthy() && g.modelBreaker.Healthy()
	return stats
}

// Close implements AIProvider interface
func (g *GeminiProvider) Close() error {
	// genai.Client holds no resources that need releasing
	return nil
}

// geminiChatSession carries one conversation's history inside the genai chat
type geminiChatSession struct {
	provider *GeminiProvider
	chat     genaiChat
	model    string
}

func (s *geminiChatSession) Model() string {
	return s.model
}

// Send delivers message and waits for the model's reply. On failure the chat
// history is unchanged.
func (s *geminiChatSession) Send(ctx context.Context, message string) (*Reply, error) {
	g := s.provider
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "gemini.chat.send")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", s.model),
		attribute.Float64("ai.temperature", float64(g.config.Temperature)),
		attribute.Int("input.message_length", len(message)),
	)

	sendCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(sendCtx, "chat_send", func() (*genai.GenerateContentResponse, error) {
			return s.chat.SendMessage(sendCtx, genai.Part{Text: message})
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, wrapSendError(sendCtx, err)
	}

	text := result.Text()
	if text == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			"Gemini returned an empty reply", nil)
	}

	usage := extractTokenUsage(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(
		attribute.Int("output.reply_length", len(text)),
		attribute.Bool("success", true),
	)

	return &Reply{Text: text, Model: s.model, Usage: usage}, nil
}

func wrapSendError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewAIError(apperrors.ErrCodeAITimeout, "Gemini did not answer in time", err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			fmt.Sprintf("Gemini API error %d: %s", apiErr.Code, apiErr.Message), err)
	}
	return apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Gemini request failed", err)
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", g.config.MaxRetries,
				"error", lastErr.Error())

			if err := sleep(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"successful_attempt", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed",
		"operation", operation,
		"max_retries", g.config.MaxRetries)

	return nil, lastErr
}

// backoffDelay doubles from one second per attempt with up to 10% jitter,
// capped at 30 seconds
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Network errors (timeouts, refused connections) are transient
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// extractTokenUsage reads token counts from the response metadata
func extractTokenUsage(result *genai.GenerateContentResponse) *types.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	md := result.UsageMetadata
	return &types.TokenUsage{
		InputTokens:  int64(md.PromptTokenCount),
		OutputTokens: int64(md.CandidatesTokenCount),
		TotalTokens:  int64(md.TotalTokenCount),
	}
}
