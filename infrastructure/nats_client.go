package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Alert stream layout
const (
	AlertStreamName    = "valwatch_alerts"
	AlertSubjectPrefix = "valwatch.alerts"
)

// NATSClient publishes to NATS with JetStream
type NATSClient struct {
	servers              string
	nc                   *nats.Conn
	js                   nats.JetStreamContext
	mu                   sync.RWMutex
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

var _ MessagePublisher = (*NATSClient)(nil)

// NewNATSClient creates a new NATS client
func NewNATSClient(servers string) *NATSClient {
	return &NATSClient{
		servers:              servers,
		reconnectDelay:       2 * time.Second,
		maxReconnectAttempts: 10,
	}
}

// Connect establishes a connection to the NATS server with JetStream
func (c *NATSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := []nats.Option{
		nats.Name("valwatch"),
		nats.MaxReconnects(c.maxReconnectAttempts),
		nats.ReconnectWait(c.reconnectDelay),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(c.servers, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.Context(ctx))
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c.nc = nc
	c.js = js

	log.WithField("servers", c.servers).Info("Connected to NATS with JetStream")
	return nil
}

// Close gracefully shuts down the NATS connection, flushing pending publishes
func (c *NATSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nc != nil {
		if err := c.nc.Drain(); err != nil {
			log.WithError(err).Warn("Failed to drain NATS connection")
			c.nc.Close()
		}
		log.Info("NATS connection closed")
	}
	c.nc = nil
	c.js = nil
	return nil
}

// IsConnected returns true if the client is connected to NATS
func (c *NATSClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nc != nil && c.nc.IsConnected()
}

// ensureStream ensures that the required JetStream stream exists
func (c *NATSClient) ensureStream(streamName string, subjects []string) error {
	c.mu.RLock()
	js := c.js
	c.mu.RUnlock()

	if js == nil {
		return fmt.Errorf("not connected to NATS JetStream")
	}

	if _, err := js.StreamInfo(streamName); err == nil {
		log.WithField("stream", streamName).Info("JetStream stream already exists")
		return nil
	}

	cfg := &nats.StreamConfig{
		Name:        streamName,
		Subjects:    subjects,
		Retention:   nats.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		MaxMsgs:     1000000,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Description: "Valorant match alerts",
	}

	if _, err := js.AddStream(cfg); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	log.WithFields(log.Fields{
		"stream":   streamName,
		"subjects": subjects,
	}).Info("Created JetStream stream")
	return nil
}

// EnsureAlertStream ensures the match alert stream exists
// This should be called after connection is established
func (c *NATSClient) EnsureAlertStream() error {
	return c.ensureStream(AlertStreamName, []string{AlertSubjectPrefix + ".>"})
}

// Publish publishes a message to the specified subject using JetStream
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	c.mu.RLock()
	js := c.js
	c.mu.RUnlock()

	if js == nil {
		return fmt.Errorf("not connected to NATS JetStream")
	}

	if _, err := js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"subject": subject,
		"size":    len(data),
	}).Debug("Published message to NATS")
	return nil
}
