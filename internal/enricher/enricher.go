// Package enricher chains the entity lookups for one event and hands the
// result to the index writer.
package enricher

import (
	"context"
	"log/slog"
	"time"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/logging"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/lookup"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/metrics"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/models"
)

// Writer persists an enriched event.
type Writer interface {
	Write(ctx context.Context, ev models.Event) error
}

// stage describes one enrichment step: which entity to resolve, where its
// lookup key comes from in the current event state, and how the resolved
// record merges back in.
type stage struct {
	entity string
	key    func(models.Event) string
	merge  func(models.Event, models.Record)
}

// stages run strictly in order: the attempt lookup supplies the course and
// trainee keys, so those stages cannot start before it finishes. The user
// stage only depends on the original user_id but is kept in the same chain.
func stages() []stage {
	attach := func(entity string) func(models.Event, models.Record) {
		return func(ev models.Event, rec models.Record) {
			ev.SetRecord(entity, rec)
		}
	}

	return []stage{
		{
			entity: models.EntityAttempt,
			key:    func(ev models.Event) string { return ev.StringField(models.FieldAttemptID) },
			merge: func(ev models.Event, rec models.Record) {
				ev.SetRecord(models.EntityAttempt, rec)
				// The attempt record carries the keys for the next two stages.
				if v, ok := rec[models.FieldCourseID].(string); ok {
					ev[models.FieldCourseID] = v
				}
				if v, ok := rec[models.FieldTraineeID].(string); ok {
					ev[models.FieldTraineeID] = v
				}
			},
		},
		{
			entity: models.EntityCourse,
			key:    func(ev models.Event) string { return ev.StringField(models.FieldCourseID) },
			merge:  attach(models.EntityCourse),
		},
		{
			entity: models.EntityTrainee,
			key:    func(ev models.Event) string { return ev.StringField(models.FieldTraineeID) },
			merge:  attach(models.EntityTrainee),
		},
		{
			entity: models.EntityUser,
			key:    func(ev models.Event) string { return ev.StringField(models.FieldUserID) },
			merge:  attach(models.EntityUser),
		},
	}
}

// Enricher runs the enrichment chain. One Enricher serves all in-flight
// events; per-event state lives entirely in the event itself.
type Enricher struct {
	resolver lookup.Resolver
	writer   Writer
	stages   []stage
	logger   *slog.Logger
}

// New creates an Enricher.
func New(resolver lookup.Resolver, writer Writer, logger *logging.Logger) *Enricher {
	return &Enricher{
		resolver: resolver,
		writer:   writer,
		stages:   stages(),
		logger:   logger.Logger.With(logging.Component("enricher")),
	}
}

// Process enriches the event and writes it to the store. Fire-and-forget:
// every failure is logged and swallowed here, nothing reaches the queue
// layer. A failed stage leaves its field unset and the chain continues; the
// index write happens regardless of how many stages resolved.
func (e *Enricher) Process(ctx context.Context, ev models.Event) {
	start := time.Now()

	for _, st := range e.stages {
		id := st.key(ev)
		rec, err := e.resolver.Resolve(ctx, st.entity, id)
		if err != nil {
			metrics.Lookups.WithLabelValues(st.entity, metrics.OutcomeError).Inc()
			e.logger.Warn("lookup failed",
				logging.EventID(ev.ID()),
				logging.Entity(st.entity),
				logging.Error(err))
			continue
		}
		if rec == nil {
			metrics.Lookups.WithLabelValues(st.entity, metrics.OutcomeMissing).Inc()
			continue
		}
		metrics.Lookups.WithLabelValues(st.entity, metrics.OutcomeResolved).Inc()
		st.merge(ev, rec)
	}

	metrics.EnrichmentDuration.Observe(time.Since(start).Seconds())

	if err := e.writer.Write(ctx, ev); err != nil {
		e.logger.Error("index write failed",
			logging.EventID(ev.ID()),
			logging.Error(err))
	}
}
