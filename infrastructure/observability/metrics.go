package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"valwatch/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the watcher
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	ticksCounter           metric.Int64Counter
	ticksSkippedCounter    metric.Int64Counter
	tickDurationHist       metric.Float64Histogram
	trackedAccountsGauge   metric.Int64Gauge
	fetchesCounter         metric.Int64Counter
	matchesIngestedCounter metric.Int64Counter
	alertsCounter          metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Info("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("valwatch")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.ticksCounter, err = mp.meter.Int64Counter(
		TicksTotal,
		metric.WithDescription("Total number of completed watch cycle ticks"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ticks counter: %w", err)
	}

	mp.ticksSkippedCounter, err = mp.meter.Int64Counter(
		TicksSkippedTotal,
		metric.WithDescription("Total number of ticks skipped because the previous one was still running"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create skipped ticks counter: %w", err)
	}

	mp.tickDurationHist, err = mp.meter.Float64Histogram(
		TickDuration,
		metric.WithDescription("Duration of watch cycle ticks in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return fmt.Errorf("failed to create tick duration histogram: %w", err)
	}

	mp.trackedAccountsGauge, err = mp.meter.Int64Gauge(
		TrackedAccounts,
		metric.WithDescription("Number of tracked accounts seen by the last tick"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tracked accounts gauge: %w", err)
	}

	mp.fetchesCounter, err = mp.meter.Int64Counter(
		FetchesTotal,
		metric.WithDescription("Total number of match history fetches by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create fetches counter: %w", err)
	}

	mp.matchesIngestedCounter, err = mp.meter.Int64Counter(
		MatchesIngestedTotal,
		metric.WithDescription("Total number of newly ingested matches"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create matches ingested counter: %w", err)
	}

	mp.alertsCounter, err = mp.meter.Int64Counter(
		AlertsPublishedTotal,
		metric.WithDescription("Total number of match alerts handed to the sink"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create alerts counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordTick records a completed tick and the roster size it walked
func (mp *MetricsProvider) RecordTick(duration time.Duration, accounts int) {
	if !mp.isEnabled() {
		return
	}

	ctx := context.Background()
	mp.ticksCounter.Add(ctx, 1)
	mp.tickDurationHist.Record(ctx, duration.Seconds())
	mp.trackedAccountsGauge.Record(ctx, int64(accounts))
}

// RecordTickSkipped records a tick dropped because another was in flight
func (mp *MetricsProvider) RecordTickSkipped() {
	if !mp.isEnabled() {
		return
	}

	mp.ticksSkippedCounter.Add(context.Background(), 1)
}

// RecordFetch records one account turn by its fetch outcome
func (mp *MetricsProvider) RecordFetch(outcome string) {
	if !mp.isEnabled() {
		return
	}

	mp.fetchesCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordMatchesIngested records newly accounted matches of a mode
func (mp *MetricsProvider) RecordMatchesIngested(mode string, count int) {
	if !mp.isEnabled() || count <= 0 {
		return
	}

	mp.matchesIngestedCounter.Add(context.Background(), int64(count),
		metric.WithAttributes(
			attribute.String(LabelMode, mode),
		),
	)
}

// RecordAlertPublished records a sink delivery attempt
func (mp *MetricsProvider) RecordAlertPublished(success bool) {
	if !mp.isEnabled() {
		return
	}

	mp.alertsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelResult, alertResult(success)),
		),
	)
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled && mp.meterProvider != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
