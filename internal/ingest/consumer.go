// AgriIntel360 - Agricultural Intelligence Platform for West Africa
// Copyright 2026 SIAKOU
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/SIAKOU/Agri-Intel

package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/SIAKOU/Agri-Intel/internal/config"
	"github.com/SIAKOU/Agri-Intel/internal/database"
	"github.com/SIAKOU/Agri-Intel/internal/logging"
	"github.com/SIAKOU/Agri-Intel/internal/metrics"
	"github.com/SIAKOU/Agri-Intel/internal/models"
	"github.com/SIAKOU/Agri-Intel/internal/validation"
	ws "github.com/SIAKOU/Agri-Intel/internal/websocket"
)

// CacheInvalidator is implemented by the API handler so successful writes
// flush stale dashboard aggregates.
type CacheInvalidator interface {
	ClearCache()
}

// Consumer subscribes to the agri.* subjects and applies validated
// payloads to the analytics store. It implements suture.Service via
// Serve and the API's ingest status reporting via Connected/LastEventAt.
type Consumer struct {
	cfg         config.IngestConfig
	db          *database.DB
	hub         *ws.Hub
	invalidator CacheInvalidator

	connected atomic.Bool
	lastEvent atomic.Int64 // unix nanos, 0 = never
}

// NewConsumer creates an ingest consumer. The hub and invalidator may be
// nil; writes then happen without push notifications or cache flushes.
func NewConsumer(cfg config.IngestConfig, db *database.DB, hub *ws.Hub, invalidator CacheInvalidator) *Consumer {
	return &Consumer{
		cfg:         cfg,
		db:          db,
		hub:         hub,
		invalidator: invalidator,
	}
}

// Connected reports whether the broker connection is up.
func (c *Consumer) Connected() bool {
	return c.connected.Load()
}

// LastEventAt returns the time of the last successfully applied event,
// or the zero time when nothing has been ingested yet.
func (c *Consumer) LastEventAt() time.Time {
	nanos := c.lastEvent.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Serve runs the consumer until context cancellation. When configured,
// an embedded broker is started first; the stream is provisioned before
// subscriptions bind to it.
func (c *Consumer) Serve(ctx context.Context) error {
	url := c.cfg.URL

	var embedded *EmbeddedServer
	if c.cfg.EmbeddedServer {
		// Bind the configured URL's host and port so external publishers
		// can reach the embedded broker at the advertised address.
		host, port := brokerBindAddr(c.cfg.URL)
		srv, err := NewEmbeddedServer(host, port, c.cfg.StoreDir)
		if err != nil {
			return fmt.Errorf("start embedded broker: %w", err)
		}
		embedded = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}
	defer func() {
		if embedded != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS shutdown incomplete")
			}
		}
	}()

	if err := EnsureStream(ctx, url); err != nil {
		return err
	}

	sub, err := NewSubscriber(SubscriberConfig{
		URL:         url,
		DurableName: c.cfg.DurableName,
		QueueGroup:  c.cfg.QueueGroup,
	}, nil, func(connected bool) {
		c.connected.Store(connected)
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := sub.Close(); err != nil {
			logging.Warn().Err(err).Msg("Subscriber close failed")
		}
	}()

	c.connected.Store(true)
	defer c.connected.Store(false)

	logging.Info().Str("url", url).Msg("Ingest consumer started")

	handlers := map[string]func(context.Context, []byte) error{
		SubjectProduction:  c.handleProduction,
		SubjectPrices:      c.handlePrice,
		SubjectAlerts:      c.handleAlert,
		SubjectPredictions: c.handlePrediction,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(handlers))
	for subject, handler := range handlers {
		wg.Add(1)
		go func(subject string, handler func(context.Context, []byte) error) {
			defer wg.Done()
			if err := c.consumeSubject(ctx, sub, subject, handler); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("consume %s: %w", subject, err)
			}
		}(subject, handler)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		<-done
		return ctx.Err()
	case err := <-errCh:
		return err
	case <-done:
		return nil
	}
}

// consumeSubject drains one subject's message channel. Messages are
// acked on success and on permanently invalid payloads; transient
// failures are nacked for redelivery.
func (c *Consumer) consumeSubject(ctx context.Context, sub *Subscriber, subject string, handler func(context.Context, []byte) error) error {
	messages, err := sub.Subscribe(ctx, subject)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.processMessage(ctx, subject, handler, msg)
		}
	}
}

// brokerBindAddr extracts the listen host and port from a nats:// URL.
// Unparseable values fall back to all interfaces on the default port.
func brokerBindAddr(rawURL string) (string, int) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "0.0.0.0", 0
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		port = 0
	}
	return u.Hostname(), port
}

// errPermanent marks payloads that will never succeed; redelivering them
// would poison the queue.
var errPermanent = errors.New("permanent ingest failure")

func (c *Consumer) processMessage(ctx context.Context, subject string, handler func(context.Context, []byte) error, msg *message.Message) {
	start := time.Now()
	err := handler(ctx, msg.Payload)

	switch {
	case err == nil:
		metrics.RecordIngestMessage(subject, time.Since(start), "")
		c.lastEvent.Store(time.Now().UnixNano())
		msg.Ack()
	case errors.Is(err, errPermanent):
		metrics.RecordIngestMessage(subject, time.Since(start), failReason(err))
		logging.Warn().
			Err(err).
			Str("subject", subject).
			Str("message_uuid", msg.UUID).
			Msg("Discarding invalid ingest message")
		msg.Ack()
	default:
		metrics.RecordIngestMessage(subject, time.Since(start), "database")
		logging.Error().
			Err(err).
			Str("subject", subject).
			Str("message_uuid", msg.UUID).
			Msg("Ingest message failed, scheduling redelivery")
		msg.Nack()
	}
}

// failReason extracts the metric label from a permanent failure.
func failReason(err error) string {
	s := err.Error()
	switch {
	case strings.Contains(s, "parse"):
		return "parse"
	case strings.Contains(s, "reference"):
		return "reference"
	default:
		return "validation"
	}
}

func (c *Consumer) handleProduction(ctx context.Context, payload []byte) error {
	var event ProductionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: parse production event: %v", errPermanent, err)
	}
	event.Country = strings.ToUpper(event.Country)
	if verr := validation.ValidateStruct(&event); verr != nil {
		return fmt.Errorf("%w: %v", errPermanent, verr)
	}

	err := c.db.InsertProduction(ctx, &models.ProductionRecord{
		CountryCode:    event.Country,
		CropID:         event.Crop,
		Year:           event.Year,
		QuantityTonnes: event.QuantityTonnes,
		Latitude:       event.Latitude,
		Longitude:      event.Longitude,
		RecordedAt:     event.RecordedAt,
	})
	if errors.Is(err, database.ErrUnknownReference) {
		return fmt.Errorf("%w: unknown reference %s/%s", errPermanent, event.Country, event.Crop)
	}
	if err != nil {
		return err
	}

	c.afterWrite()
	if c.hub != nil {
		c.hub.BroadcastDataUpdate("production", event.Country, event.Crop)
	}
	return nil
}

func (c *Consumer) handlePrice(ctx context.Context, payload []byte) error {
	var event PriceEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: parse price event: %v", errPermanent, err)
	}
	event.Country = strings.ToUpper(event.Country)
	if verr := validation.ValidateStruct(&event); verr != nil {
		return fmt.Errorf("%w: %v", errPermanent, verr)
	}

	err := c.db.InsertPrice(ctx, &models.PriceRecord{
		CountryCode:   event.Country,
		CropID:        event.Crop,
		Date:          event.Date,
		PriceUSDPerKg: event.PriceUSDPerKg,
		Currency:      event.Currency,
	})
	if errors.Is(err, database.ErrUnknownReference) {
		return fmt.Errorf("%w: unknown reference %s/%s", errPermanent, event.Country, event.Crop)
	}
	if err != nil {
		return err
	}

	c.afterWrite()
	if c.hub != nil {
		c.hub.BroadcastDataUpdate("price", event.Country, event.Crop)
	}
	return nil
}

func (c *Consumer) handleAlert(ctx context.Context, payload []byte) error {
	var event AlertEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: parse alert event: %v", errPermanent, err)
	}
	event.Country = strings.ToUpper(event.Country)
	if verr := validation.ValidateStruct(&event); verr != nil {
		return fmt.Errorf("%w: %v", errPermanent, verr)
	}

	stored, err := c.db.InsertAlert(ctx, &models.Alert{
		Severity:    event.Severity,
		Title:       event.Title,
		Message:     event.Message,
		CountryCode: event.Country,
		CropID:      event.Crop,
	})
	if errors.Is(err, database.ErrUnknownReference) {
		return fmt.Errorf("%w: unknown reference %s/%s", errPermanent, event.Country, event.Crop)
	}
	if err != nil {
		return err
	}

	c.afterWrite()
	if c.hub != nil {
		c.hub.BroadcastAlert(stored)
	}
	return nil
}

func (c *Consumer) handlePrediction(ctx context.Context, payload []byte) error {
	var event PredictionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: parse prediction event: %v", errPermanent, err)
	}
	event.Country = strings.ToUpper(event.Country)
	if verr := validation.ValidateStruct(&event); verr != nil {
		return fmt.Errorf("%w: %v", errPermanent, verr)
	}

	prediction := &models.YieldPrediction{
		CountryCode:    event.Country,
		CropID:         event.Crop,
		PredictedYield: event.PredictedYield,
		Confidence:     event.Confidence,
		ModelName:      event.ModelName,
		ModelVersion:   event.ModelVersion,
		GeneratedAt:    event.GeneratedAt,
	}
	err := c.db.UpsertPrediction(ctx, prediction)
	if errors.Is(err, database.ErrUnknownReference) {
		return fmt.Errorf("%w: unknown reference %s/%s", errPermanent, event.Country, event.Crop)
	}
	if err != nil {
		return err
	}

	c.afterWrite()
	if c.hub != nil {
		c.hub.BroadcastPredictionUpdate(prediction)
	}
	return nil
}

// afterWrite flushes dashboard caches after a successful store write.
func (c *Consumer) afterWrite() {
	if c.invalidator != nil {
		c.invalidator.ClearCache()
	}
}

// String identifies the consumer in supervisor logs.
func (c *Consumer) String() string {
	return "ingest-consumer"
}
