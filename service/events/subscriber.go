package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subscription is a live feed of referral events for one wallet. Callers own
// the handle and must call Stop when done, or the background consumer leaks.
type Subscription struct {
	cc     jetstream.ConsumeContext
	logger *slog.Logger
	wallet string
}

// Stop releases the underlying consumer. Safe to call more than once.
func (s *Subscription) Stop() {
	if s.cc != nil {
		s.cc.Stop()
		s.cc = nil
		s.logger.Debug("referral subscription stopped", "wallet", s.wallet)
	}
}

// Subscriber creates per-wallet subscriptions over a shared NATS connection.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewSubscriber connects to NATS for consuming referral events.
func NewSubscriber(natsURL string, logger *slog.Logger) (*Subscriber, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("pumpcam-subscriber"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Subscriber{
		nc:     nc,
		js:     js,
		logger: logger,
	}, nil
}

// Subscribe starts delivering new referral events for the given wallet to
// handler. Events already in the stream are not replayed. The returned
// Subscription must be stopped on teardown.
func (s *Subscriber) Subscribe(ctx context.Context, wallet string, handler func(*ReferralEvent)) (*Subscription, error) {
	subject := fmt.Sprintf("referrals.%s", wallet)

	cons, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		// Ephemeral - deleted by the server once the consumer goes away.
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", subject, err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		var event ReferralEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			s.logger.Warn("failed to unmarshal referral event",
				"subject", subject,
				"error", err,
			)
			msg.Ack()
			return
		}
		handler(&event)
		msg.Ack()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming %s: %w", subject, err)
	}

	s.logger.Debug("referral subscription started", "wallet", wallet)

	return &Subscription{
		cc:     cc,
		logger: s.logger,
		wallet: wallet,
	}, nil
}

// Close closes the connection to NATS. Outstanding subscriptions die with it.
func (s *Subscriber) Close() error {
	if s.nc != nil {
		s.nc.Close()
		s.logger.Info("NATS subscriber closed")
	}
	return nil
}
