package application

import (
	"context"
	"encoding/json"
	"time"

	"valwatch/application/dto"
)

// MatchSource defines the interface for fetching an account's recent match history.
// Implementations return a *entities.SourceUnavailableError on a non-success response.
// The order of the returned payloads is unspecified.
type MatchSource interface {
	FetchRecentMatches(ctx context.Context, region, externalID string) ([]json.RawMessage, error)
}

// AlertSink defines the interface for handing match alerts to the notification layer
// This abstraction keeps display formatting out of the watch cycle
type AlertSink interface {
	// PublishMatchAlert delivers one alert payload
	// Returns an error if the sink rejected it, in which case released waiters are restored
	PublishMatchAlert(ctx context.Context, alert dto.MatchAlertDTO) error
}

// WatchMetrics records watch cycle activity
type WatchMetrics interface {
	RecordTick(duration time.Duration, accounts int)
	RecordTickSkipped()
	RecordFetch(outcome string)
	RecordMatchesIngested(mode string, count int)
	RecordAlertPublished(success bool)
}

// Fetch outcomes reported to WatchMetrics
const (
	FetchOutcomeSuccess     = "success"
	FetchOutcomeUnavailable = "unavailable"
	FetchOutcomeError       = "error"
	FetchOutcomeCooldown    = "cooldown"
)

// NoopWatchMetrics discards every measurement
type NoopWatchMetrics struct{}

func (NoopWatchMetrics) RecordTick(time.Duration, int)     {}
func (NoopWatchMetrics) RecordTickSkipped()                {}
func (NoopWatchMetrics) RecordFetch(string)                {}
func (NoopWatchMetrics) RecordMatchesIngested(string, int) {}
func (NoopWatchMetrics) RecordAlertPublished(bool)         {}
