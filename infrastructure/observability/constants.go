package observability

// Metric name prefixes
const (
	MetricPrefix = "valwatch"
)

// Metric names
const (
	// Watch cycle metrics
	TicksTotal        = MetricPrefix + ".watch.ticks_total"
	TicksSkippedTotal = MetricPrefix + ".watch.ticks_skipped_total"
	TickDuration      = MetricPrefix + ".watch.tick_duration"
	TrackedAccounts   = MetricPrefix + ".watch.tracked_accounts"

	// Match source metrics
	FetchesTotal = MetricPrefix + ".source.fetches_total"

	// Ingestion metrics
	MatchesIngestedTotal = MetricPrefix + ".matches.ingested_total"

	// Alert metrics
	AlertsPublishedTotal = MetricPrefix + ".alerts.published_total"
)

// Label keys
const (
	LabelOutcome = "outcome"
	LabelMode    = "mode"
	LabelResult  = "result"
)

// Alert publish results
const (
	AlertResultSuccess = "success"
	AlertResultFailure = "failure"
)

func alertResult(success bool) string {
	if success {
		return AlertResultSuccess
	}
	return AlertResultFailure
}
