package infrastructure

import (
	"context"
	"errors"

	"valwatch/application"
	"valwatch/application/dto"
)

// FanoutAlertSink hands every alert to each sink. It fails when any sink fails, so released
// waiters are restored and the next delivery is retried everywhere.
type FanoutAlertSink []application.AlertSink

var _ application.AlertSink = FanoutAlertSink(nil)

func (f FanoutAlertSink) PublishMatchAlert(ctx context.Context, alert dto.MatchAlertDTO) error {
	var errs []error
	for _, sink := range f {
		if err := sink.PublishMatchAlert(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
