// Package events delivers live referral-credit updates over NATS JetStream.
//
// The orchestrator publishes one event per credited pump; dashboard consumers
// subscribe per referrer wallet and must release their subscription handle on
// teardown.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/pumpcam/pumpcam/service/metrics"
)

// Publisher defines the interface for publishing referral events to NATS.
type Publisher interface {
	// PublishReferralEvent publishes a single referral credit event to
	// JetStream. The event is published to "referrals.{referrer_address}".
	PublishReferralEvent(ctx context.Context, event *ReferralEvent) error

	// Close closes the connection to NATS.
	Close() error
}

const (
	// StreamName is the name of the JetStream stream for referral events.
	StreamName = "REFERRALS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "referrals.*"

	// StreamRetention is how long messages are retained (30 days by default).
	StreamRetention = 30 * 24 * time.Hour
)

// JetStreamPublisher publishes referral events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("pumpcam-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1), // Unlimited reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:      nc,
		js:      js,
		metrics: m,
		logger:  logger,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := p.js.Stream(ctx, StreamName)
	if err == nil {
		info, err := stream.Info(ctx)
		if err == nil {
			p.logger.Debug("JetStream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", StreamName)

	streamConfig := jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Referral credit events from confirmed pumps",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	}

	if _, err := p.js.CreateStream(ctx, streamConfig); err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("JetStream stream created successfully", "stream", StreamName)
	return nil
}

// PublishReferralEvent publishes a single referral credit event.
func (p *JetStreamPublisher) PublishReferralEvent(ctx context.Context, event *ReferralEvent) error {
	subject := fmt.Sprintf("referrals.%s", event.ReferrerAddress)

	data, err := json.Marshal(event)
	if err != nil {
		p.recordPublish("error")
		return fmt.Errorf("failed to marshal referral event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.recordPublish("error")
		return fmt.Errorf("failed to publish referral event: %w", err)
	}
	p.recordPublish("success")

	p.logger.Debug("published referral event",
		"subject", subject,
		"referrer", event.ReferrerAddress,
		"payer", event.PayerAddress,
		"lamports", event.ReferrerLamports,
	)

	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}

func (p *JetStreamPublisher) recordPublish(status string) {
	if p.metrics != nil {
		p.metrics.RecordEventPublished(status)
	}
}
