package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics exposes watch cycle activity on a prometheus registry, scraped through the
// admin server's /metrics endpoint
type PrometheusMetrics struct {
	ticks           prometheus.Counter
	ticksSkipped    prometheus.Counter
	tickDuration    prometheus.Histogram
	trackedAccounts prometheus.Gauge
	fetches         *prometheus.CounterVec
	matchesIngested *prometheus.CounterVec
	alerts          *prometheus.CounterVec
}

// NewPrometheusMetrics registers the watch cycle collectors on registry
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "valwatch_watch_ticks_total",
			Help: "Total number of completed watch cycle ticks",
		}),
		ticksSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "valwatch_watch_ticks_skipped_total",
			Help: "Total number of ticks skipped because the previous one was still running",
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "valwatch_watch_tick_duration_seconds",
			Help:    "Duration of watch cycle ticks in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		trackedAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "valwatch_watch_tracked_accounts",
			Help: "Number of tracked accounts seen by the last tick",
		}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "valwatch_source_fetches_total",
			Help: "Total number of match history fetches by outcome",
		}, []string{LabelOutcome}),
		matchesIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "valwatch_matches_ingested_total",
			Help: "Total number of newly ingested matches by mode",
		}, []string{LabelMode}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "valwatch_alerts_published_total",
			Help: "Total number of match alerts handed to the sink by result",
		}, []string{LabelResult}),
	}
}

func (m *PrometheusMetrics) RecordTick(duration time.Duration, accounts int) {
	m.ticks.Inc()
	m.tickDuration.Observe(duration.Seconds())
	m.trackedAccounts.Set(float64(accounts))
}

func (m *PrometheusMetrics) RecordTickSkipped() {
	m.ticksSkipped.Inc()
}

func (m *PrometheusMetrics) RecordFetch(outcome string) {
	m.fetches.With(prometheus.Labels{LabelOutcome: outcome}).Inc()
}

func (m *PrometheusMetrics) RecordMatchesIngested(mode string, count int) {
	if count <= 0 {
		return
	}
	m.matchesIngested.With(prometheus.Labels{LabelMode: mode}).Add(float64(count))
}

func (m *PrometheusMetrics) RecordAlertPublished(success bool) {
	m.alerts.With(prometheus.Labels{LabelResult: alertResult(success)}).Inc()
}
