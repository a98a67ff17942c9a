package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"hrportal/internal/config"
	"hrportal/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName     string
	ServiceVersion  string
	ServiceInstance string
	Enabled         bool
	TracingEnabled  bool
	MetricsEnabled  bool
	ConsoleOutput   bool
	SampleRate      float64
	Prometheus      PrometheusConfig
}

// Metrics holds all custom metrics for the portal
type Metrics struct {
	// AI operation metrics
	AIOperationDuration metric.Float64Histogram
	AITokens            metric.Int64Counter

	// Review metrics
	Reviews          metric.Int64Counter
	ChatTurns        metric.Int64Counter
	ToxicityScore    metric.Int64Histogram
	ScoreUnavailable metric.Int64Counter

	// Infrastructure metrics
	RateLimitHits  metric.Int64Counter
	SessionsActive metric.Int64ObservableGauge

	flags config.CustomMetricsConfig
}

// ObservabilityManager manages OpenTelemetry setup
type ObservabilityManager struct {
	config           ObservabilityConfig
	fullConfig       *config.Config
	resource         *resource.Resource
	tracerProvider   *trace.TracerProvider
	meterProvider    *sdkmetric.MeterProvider
	metrics          *Metrics
	shutdownFuncs    []func(context.Context) error
	prometheusMux    *http.ServeMux
	prometheusServer *http.Server
}

// NewObservabilityManager creates a new observability manager
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config) (*ObservabilityManager, error) {
	om := &ObservabilityManager{
		config:     obsConfig,
		fullConfig: fullConfig,
	}
	if !obsConfig.Enabled {
		return om, nil
	}

	if err := om.initResource(); err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}

	if obsConfig.TracingEnabled {
		if err := om.initTracing(); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if obsConfig.MetricsEnabled {
		if err := om.initMetrics(); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	return om, nil
}

// initResource creates the OpenTelemetry resource shared by traces and metrics
func (om *ObservabilityManager) initResource() error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			attribute.String("service.instance.id", om.getServiceInstanceID()),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	om.resource = res
	return nil
}

// initTracing sets up OpenTelemetry tracing
func (om *ObservabilityManager) initTracing() error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case om.config.ConsoleOutput:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled:
		exporter, err = om.createOTLPExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(om.resource),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(om.config.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (om *ObservabilityManager) initMetrics() error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(om.resource)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	return om.initCustomMetrics()
}

// setupMetricReaders sets up all metric readers based on configuration
func (om *ObservabilityManager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(om.getMetricsCollectionInterval())))
	}

	if om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled {
		otlpReader, err := om.createOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, otlpReader)
	}

	if om.config.Prometheus.Enabled {
		prometheusReader, mux, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		readers = append(readers, prometheusReader)
		om.prometheusMux = mux

		// An empty port means the page server mounts the endpoint itself
		if om.config.Prometheus.Port != "" {
			om.prometheusServer = StartPrometheusServer(mux, om.config.Prometheus.Port)
			om.shutdownFuncs = append(om.shutdownFuncs, om.prometheusServer.Shutdown)
		}
	}

	// If no readers configured, use manual reader as fallback
	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	return readers, nil
}

// initCustomMetrics creates all custom metrics
func (om *ObservabilityManager) initCustomMetrics() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)
	om.metrics = &Metrics{flags: om.customMetricFlags()}

	if err := om.createAIMetrics(meter); err != nil {
		return err
	}
	if err := om.createReviewMetrics(meter); err != nil {
		return err
	}
	return om.createInfrastructureMetrics(meter)
}

func (om *ObservabilityManager) createAIMetrics(meter metric.Meter) error {
	var err error

	om.metrics.AIOperationDuration, err = meter.Float64Histogram(
		"hrportal_ai_operation_duration_seconds",
		metric.WithDescription("Time spent waiting for the model"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI duration metric: %w", err)
	}

	om.metrics.AITokens, err = meter.Int64Counter(
		"hrportal_ai_tokens_total",
		metric.WithDescription("Tokens consumed by model calls, by token type"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI token metric: %w", err)
	}

	return nil
}

func (om *ObservabilityManager) createReviewMetrics(meter metric.Meter) error {
	var err error

	om.metrics.Reviews, err = meter.Int64Counter(
		"hrportal_reviews_total",
		metric.WithDescription("Performance reviews requested"),
	)
	if err != nil {
		return fmt.Errorf("failed to create reviews metric: %w", err)
	}

	om.metrics.ChatTurns, err = meter.Int64Counter(
		"hrportal_chat_turns_total",
		metric.WithDescription("Follow-up chat messages sent to the manager"),
	)
	if err != nil {
		return fmt.Errorf("failed to create chat turns metric: %w", err)
	}

	om.metrics.ToxicityScore, err = meter.Int64Histogram(
		"hrportal_toxicity_score",
		metric.WithDescription("Toxicity scores reported by the model"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return fmt.Errorf("failed to create toxicity score metric: %w", err)
	}

	om.metrics.ScoreUnavailable, err = meter.Int64Counter(
		"hrportal_score_unavailable_total",
		metric.WithDescription("Reviews whose reply carried no score marker"),
	)
	if err != nil {
		return fmt.Errorf("failed to create score unavailable metric: %w", err)
	}

	return nil
}

func (om *ObservabilityManager) createInfrastructureMetrics(meter metric.Meter) error {
	var err error

	om.metrics.RateLimitHits, err = meter.Int64Counter(
		"hrportal_rate_limit_hits_total",
		metric.WithDescription("Requests rejected by the rate limiter"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// RegisterSessionGauge reports count() as the number of live sessions
func (om *ObservabilityManager) RegisterSessionGauge(count func() int64) error {
	if om.meterProvider == nil || !om.metrics.flags.Infrastructure {
		return nil
	}

	meter := om.meterProvider.Meter(om.config.ServiceName)
	gauge, err := meter.Int64ObservableGauge(
		"hrportal_sessions_active",
		metric.WithDescription("Browser sessions currently held in memory"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(count())
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create sessions gauge: %w", err)
	}
	om.metrics.SessionsActive = gauge
	return nil
}

func (om *ObservabilityManager) customMetricFlags() config.CustomMetricsConfig {
	if om.fullConfig == nil {
		return config.CustomMetricsConfig{AIOperations: true, Reviews: true, Infrastructure: true}
	}
	return om.fullConfig.Observability.CustomMetrics
}

// GetMetrics returns the metrics instance
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{} // Return empty metrics if not initialized
	}
	return om.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.config.Enabled || om.tracerProvider == nil {
		return func(h http.Handler) http.Handler { return h }
	}

	opts := []otelhttp.Option{otelhttp.WithTracerProvider(om.tracerProvider)}
	if om.meterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(om.meterProvider))
	}
	return otelhttp.NewMiddleware(om.config.ServiceName, opts...)
}

// MetricsHandler returns the Prometheus handler when it is not served on its own port
func (om *ObservabilityManager) MetricsHandler() (string, http.Handler, bool) {
	if om.prometheusMux == nil || om.prometheusServer != nil {
		return "", nil, false
	}
	return om.config.Prometheus.Endpoint, om.prometheusMux, true
}

// Tracer returns a tracer for the service
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !om.config.Enabled || om.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return om.tracerProvider.Tracer(name)
}

// Shutdown gracefully shuts down all observability components
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *types.TokenUsage
}

// TrackAIOperation times fn and records its outcome and token usage
func (m *Metrics) TrackAIOperation(ctx context.Context, operation, model string, fn func(context.Context) *AIOperationResult) error {
	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m.AIOperationDuration == nil || !m.flags.AIOperations {
		return err
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("model", model),
		attribute.Bool("success", err == nil),
	}
	m.AIOperationDuration.Record(ctx, duration, metric.WithAttributes(attrs...))

	if result != nil && result.TokenUsage != nil {
		m.recordTokens(ctx, operation, result.TokenUsage)
	}
	return err
}

func (m *Metrics) recordTokens(ctx context.Context, operation string, usage *types.TokenUsage) {
	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
	}

	for _, tt := range tokenTypes {
		m.AITokens.Add(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("type", tt.tokenType),
		))
	}
}

// RecordReview counts a review attempt and, on success, its score
func (m *Metrics) RecordReview(ctx context.Context, persona types.Persona, mode types.SubmissionMode, result *types.ReviewResult, err error) {
	if m.Reviews == nil || !m.flags.Reviews {
		return
	}

	m.Reviews.Add(ctx, 1, metric.WithAttributes(
		attribute.String("persona", string(persona)),
		attribute.String("mode", string(mode)),
		attribute.String("status", status(err)),
	))

	if err != nil || result == nil {
		return
	}
	if score, convErr := strconv.ParseInt(result.Score, 10, 64); convErr == nil {
		m.ToxicityScore.Record(ctx, score, metric.WithAttributes(
			attribute.String("persona", string(persona)),
		))
	} else {
		m.ScoreUnavailable.Add(ctx, 1)
	}
}

// RecordChatTurn counts a follow-up message
func (m *Metrics) RecordChatTurn(ctx context.Context, persona types.Persona, err error) {
	if m.ChatTurns == nil || !m.flags.Reviews {
		return
	}
	m.ChatTurns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("persona", string(persona)),
		attribute.String("status", status(err)),
	))
}

// RecordRateLimitHit counts a request rejected by the limiter
func (m *Metrics) RecordRateLimitHit(ctx context.Context, attrs ...attribute.KeyValue) {
	if m.RateLimitHits == nil || !m.flags.Infrastructure {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// noOpSpanExporter drops spans when no exporter is configured
type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

// createOTLPExporter creates an OTLP HTTP trace exporter
func (om *ObservabilityManager) createOTLPExporter() (trace.SpanExporter, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (om *ObservabilityManager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	return sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(om.getMetricsCollectionInterval())), nil
}

// getServiceInstanceID returns the service instance ID from config
func (om *ObservabilityManager) getServiceInstanceID() string {
	if om.config.ServiceInstance != "" {
		return om.config.ServiceInstance
	}
	return "hrportal-1"
}

// getMetricsCollectionInterval returns the configured metrics collection interval
func (om *ObservabilityManager) getMetricsCollectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}
