package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"valwatch/application"
	"valwatch/application/dto"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MatchAlertEventType identifies match alert envelopes on the bus
const MatchAlertEventType = "valwatch.match_alert"

// EventEnvelope wraps every payload published to the bus
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSAlertPublisher publishes match alerts to the alert stream so other services can render them
type NATSAlertPublisher struct {
	publisher MessagePublisher
	now       func() time.Time
}

var _ application.AlertSink = (*NATSAlertPublisher)(nil)

// NewNATSAlertPublisher creates a new alert publisher
func NewNATSAlertPublisher(publisher MessagePublisher) *NATSAlertPublisher {
	return &NATSAlertPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// AlertSubject returns the subject alerts for a guild are published on. Private-scope alerts
// share one subject.
func AlertSubject(guildID int64) string {
	if guildID == 0 {
		return AlertSubjectPrefix + ".private"
	}
	return AlertSubjectPrefix + "." + strconv.FormatInt(guildID, 10)
}

// PublishMatchAlert publishes one alert inside an event envelope
func (p *NATSAlertPublisher) PublishMatchAlert(ctx context.Context, alert dto.MatchAlertDTO) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal match alert: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     MatchAlertEventType,
		Timestamp:     p.now().UTC(),
		SourceService: "valwatch",
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := AlertSubject(alert.GuildID)
	if err := p.publisher.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish match alert to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventId": envelope.EventID,
		"subject": subject,
		"matchId": alert.MatchID,
	}).Debug("Successfully published match alert to NATS")
	return nil
}
