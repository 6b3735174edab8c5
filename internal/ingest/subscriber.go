// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// SubscriberConfig holds the JetStream consumption settings. Zero values
// fall back to the defaults below.
type SubscriberConfig struct {
	URL            string
	DurableName    string
	QueueGroup     string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	AckWaitTimeout time.Duration
	MaxDeliver     int
	MaxAckPending  int
	CloseTimeout   time.Duration
}

func (c *SubscriberConfig) applyDefaults() {
	if c.DurableName == "" {
		c.DurableName = "agri-consumer"
	}
	if c.QueueGroup == "" {
		c.QueueGroup = "agri-ingest"
	}
	if c.StreamName == "" {
		c.StreamName = StreamName
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.AckWaitTimeout == 0 {
		c.AckWaitTimeout = 30 * time.Second
	}
	if c.MaxDeliver == 0 {
		c.MaxDeliver = 5
	}
	if c.MaxAckPending == 0 {
		c.MaxAckPending = 256
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = 10 * time.Second
	}
}

// Subscriber is a durable JetStream subscriber bound to the ingest
// stream. Queue-group consumption load-balances across instances.
type Subscriber struct {
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter

	onConnectionChange func(connected bool)
}

// NewSubscriber connects to the broker and prepares durable consumption.
// onConnectionChange, when non-nil, is invoked from the NATS connection
// callbacks as connectivity changes.
func NewSubscriber(cfg SubscriberConfig, logger watermill.LoggerAdapter, onConnectionChange func(connected bool)) (*Subscriber, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = newWatermillLogger()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Broker disconnected", err, nil)
			}
			if onConnectionChange != nil {
				onConnectionChange(false)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Broker reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
			if onConnectionChange != nil {
				onConnectionChange(true)
			}
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
		// The stream covers the agri.> wildcard; subscriptions bind to it
		// instead of auto-provisioning per-subject streams.
		natsgo.BindStream(cfg.StreamName),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Subscriber{
		subscriber:         sub,
		logger:             logger,
		onConnectionChange: onConnectionChange,
	}, nil
}

// Subscribe returns a channel of messages for the given subject. The
// channel closes when the context is canceled or the subscriber closes.
func (s *Subscriber) Subscribe(ctx context.Context, subject string) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, subject)
}

// Close gracefully shuts down the subscriber.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}

// EnsureStream provisions the ingest stream when it does not exist yet.
// Idempotent; safe to call on every startup.
func EnsureStream(ctx context.Context, url string) error {
	nc, err := natsgo.Connect(url)
	if err != nil {
		return fmt.Errorf("connect for stream provisioning: %w", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}

	cfg := &natsgo.StreamConfig{
		Name:      StreamName,
		Subjects:  StreamSubjects(),
		Retention: natsgo.LimitsPolicy,
		Storage:   natsgo.FileStorage,
		MaxAge:    7 * 24 * time.Hour,
		Discard:   natsgo.DiscardOld,
	}

	if _, err := js.StreamInfo(StreamName, natsgo.Context(ctx)); err == nil {
		if _, err := js.UpdateStream(cfg, natsgo.Context(ctx)); err != nil {
			return fmt.Errorf("update stream %s: %w", StreamName, err)
		}
		return nil
	}

	if _, err := js.AddStream(cfg, natsgo.Context(ctx)); err != nil {
		return fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	return nil
}
