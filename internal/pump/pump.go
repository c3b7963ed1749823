// Package pump drives decoded queue messages through validation and into the
// enrichment pipeline.
package pump

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/enricher"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/logging"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/messaging"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/metrics"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/models"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/validator"
)

// Pump receives opaque payloads from the queue, decodes and validates them,
// and launches a detached enrichment task per indexable event. The queue is
// never asked to redeliver: processing is at-most-once by design, so a cold
// replay of a large backlog can outpace the store (known, unsolved gap).
type Pump struct {
	sub       messaging.Subscriber
	schema    *validator.Schema
	enricher  *enricher.Enricher
	topic     string
	channel   string
	logger    *slog.Logger
	startedAt time.Time
	received  atomic.Uint64
	dropped   atomic.Uint64
	started   atomic.Uint64

	subscription messaging.Subscription
}

// New creates a Pump bound to a topic/channel pair.
func New(sub messaging.Subscriber, schema *validator.Schema, e *enricher.Enricher, topic, channel string, logger *logging.Logger) *Pump {
	return &Pump{
		sub:       sub,
		schema:    schema,
		enricher:  e,
		topic:     topic,
		channel:   channel,
		logger:    logger.Logger.With(logging.Component("pump")),
		startedAt: time.Now().UTC(),
	}
}

// Start subscribes to the configured topic and channel. The channel (queue
// group) is created by the broker on first subscribe.
func (p *Pump) Start() error {
	sub, err := p.sub.QueueSubscribe(p.topic, p.channel, p.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s/%s: %w", p.topic, p.channel, err)
	}
	p.subscription = sub
	p.logger.Info("pump started",
		logging.Subject(p.topic),
		slog.String("channel", p.channel))
	return nil
}

// Stop unsubscribes from the queue. In-flight enrichment tasks keep running
// until the process exits.
func (p *Pump) Stop() error {
	if p.subscription == nil {
		return nil
	}
	err := p.subscription.Unsubscribe()
	p.subscription = nil
	return err
}

// handle processes one delivery. It always returns nil: a decode failure or
// validation drop is terminal for that message only, and enrichment runs
// detached so its outcome cannot reach the queue layer.
func (p *Pump) handle(_ context.Context, msg *messaging.Message) error {
	p.received.Add(1)
	metrics.EventsReceived.Inc()

	ev, err := models.DecodeEvent(msg.Data)
	if err != nil {
		p.dropped.Add(1)
		metrics.EventsDropped.WithLabelValues(metrics.DropDecode).Inc()
		p.logger.Warn("undecodable payload", logging.Error(err))
		return nil
	}

	if !p.schema.IsIndexable(ev) {
		// Expected traffic shape, not an error.
		p.dropped.Add(1)
		metrics.EventsDropped.WithLabelValues(metrics.DropSchema).Inc()
		p.logger.Debug("event not indexable", logging.EventID(ev.ID()))
		return nil
	}

	p.started.Add(1)

	// Launch and detach. The enrichment outlives this handler, so it gets a
	// fresh context rather than the delivery's. The recover boundary keeps a
	// fault in one event's pipeline away from the delivery loop.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("enrichment panicked",
					logging.EventID(ev.ID()),
					slog.Any("panic", r))
			}
		}()
		p.enricher.Process(context.Background(), ev)
	}()

	return nil
}

// Stats is a snapshot of pump counters for the readiness endpoint.
type Stats struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	Received      uint64 `json:"received"`
	Dropped       uint64 `json:"dropped"`
	Started       uint64 `json:"started"`
}

// Stats returns current counters.
func (p *Pump) Stats() Stats {
	return Stats{
		UptimeSeconds: int64(time.Since(p.startedAt).Seconds()),
		Received:      p.received.Load(),
		Dropped:       p.dropped.Load(),
		Started:       p.started.Load(),
	}
}
