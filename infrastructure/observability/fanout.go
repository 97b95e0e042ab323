package observability

import (
	"time"

	"valwatch/application"
)

// FanoutMetrics forwards every measurement to each recorder in order
type FanoutMetrics []application.WatchMetrics

var _ application.WatchMetrics = FanoutMetrics(nil)

func (f FanoutMetrics) RecordTick(duration time.Duration, accounts int) {
	for _, m := range f {
		m.RecordTick(duration, accounts)
	}
}

func (f FanoutMetrics) RecordTickSkipped() {
	for _, m := range f {
		m.RecordTickSkipped()
	}
}

func (f FanoutMetrics) RecordFetch(outcome string) {
	for _, m := range f {
		m.RecordFetch(outcome)
	}
}

func (f FanoutMetrics) RecordMatchesIngested(mode string, count int) {
	for _, m := range f {
		m.RecordMatchesIngested(mode, count)
	}
}

func (f FanoutMetrics) RecordAlertPublished(success bool) {
	for _, m := range f {
		m.RecordAlertPublished(success)
	}
}
