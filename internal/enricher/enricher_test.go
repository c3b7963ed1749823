package enricher_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/enricher"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/logging"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/models"
)

// stubResolver records every resolve call and answers from canned records.
type stubResolver struct {
	mu      sync.Mutex
	calls   []resolveCall
	records map[string]models.Record
	fail    map[string]bool
}

type resolveCall struct {
	entity string
	id     string
}

func (s *stubResolver) Resolve(_ context.Context, entityType, id string) (models.Record, error) {
	s.mu.Lock()
	s.calls = append(s.calls, resolveCall{entity: entityType, id: id})
	s.mu.Unlock()

	if s.fail[entityType] {
		return nil, fmt.Errorf("remote failure for %s", entityType)
	}
	if id == "" {
		return nil, nil
	}
	return s.records[entityType], nil
}

// stubWriter counts writes and keeps the last document.
type stubWriter struct {
	mu     sync.Mutex
	writes int
	last   models.Event
	err    error
}

func (s *stubWriter) Write(_ context.Context, ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.last = ev
	return s.err
}

func testLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.Default()}
}

func baseEvent() models.Event {
	return models.Event{
		"id":         "event-1",
		"attempt_id": "attempt-1",
		"user_id":    "user-1",
		"type":       "PROGRESS",
		"progress":   0.634,
		"score":      0.962,
		"timestamp":  "2018-01-16T14:09:51Z",
	}
}

func TestEnricher_FullChain(t *testing.T) {
	resolver := &stubResolver{
		records: map[string]models.Record{
			"attempt": {"course_id": "course-9", "trainee_id": "trainee-3"},
			"course":  {"title": "Safety 101"},
			"trainee": {"name": "A. Trainee"},
			"user":    {"name": "A. User"},
		},
	}
	writer := &stubWriter{}

	ev := baseEvent()
	enricher.New(resolver, writer, testLogger()).Process(context.Background(), ev)

	// The attempt result supplies the keys for the course and trainee stages.
	require.Len(t, resolver.calls, 4)
	assert.Equal(t, resolveCall{"attempt", "attempt-1"}, resolver.calls[0])
	assert.Equal(t, resolveCall{"course", "course-9"}, resolver.calls[1])
	assert.Equal(t, resolveCall{"trainee", "trainee-3"}, resolver.calls[2])
	assert.Equal(t, resolveCall{"user", "user-1"}, resolver.calls[3])

	require.Equal(t, 1, writer.writes)
	doc := writer.last
	assert.Equal(t, "event-1", doc["id"])
	assert.Equal(t, "course-9", doc["course_id"])
	assert.Equal(t, "trainee-3", doc["trainee_id"])
	assert.Equal(t, models.Record{"course_id": "course-9", "trainee_id": "trainee-3"}, doc["attempt"])
	assert.Equal(t, models.Record{"title": "Safety 101"}, doc["course"])
	assert.Equal(t, models.Record{"name": "A. Trainee"}, doc["trainee"])
	assert.Equal(t, models.Record{"name": "A. User"}, doc["user"])
}

func TestEnricher_AttemptFailureDoesNotAbort(t *testing.T) {
	resolver := &stubResolver{
		records: map[string]models.Record{
			"user": {"name": "A. User"},
		},
		fail: map[string]bool{"attempt": true},
	}
	writer := &stubWriter{}

	ev := baseEvent()
	enricher.New(resolver, writer, testLogger()).Process(context.Background(), ev)

	// All four stages attempted; course and trainee ran with absent keys.
	require.Len(t, resolver.calls, 4)
	assert.Equal(t, resolveCall{"course", ""}, resolver.calls[1])
	assert.Equal(t, resolveCall{"trainee", ""}, resolver.calls[2])

	require.Equal(t, 1, writer.writes)
	doc := writer.last
	assert.NotContains(t, doc, "attempt")
	assert.NotContains(t, doc, "course")
	assert.NotContains(t, doc, "trainee")
	assert.NotContains(t, doc, "course_id")
	assert.NotContains(t, doc, "trainee_id")
	assert.Equal(t, models.Record{"name": "A. User"}, doc["user"])
}

func TestEnricher_SingleStageFailure(t *testing.T) {
	for _, failing := range []string{"attempt", "course", "trainee", "user"} {
		t.Run(failing, func(t *testing.T) {
			resolver := &stubResolver{
				records: map[string]models.Record{
					"attempt": {"course_id": "course-9", "trainee_id": "trainee-3"},
					"course":  {"title": "Safety 101"},
					"trainee": {"name": "A. Trainee"},
					"user":    {"name": "A. User"},
				},
				fail: map[string]bool{failing: true},
			}
			writer := &stubWriter{}

			enricher.New(resolver, writer, testLogger()).Process(context.Background(), baseEvent())

			assert.Len(t, resolver.calls, 4, "all stages must still be attempted")
			assert.Equal(t, 1, writer.writes, "index write must happen exactly once")
			assert.NotContains(t, writer.last, failing)
		})
	}
}

func TestEnricher_PartialRecordsAreNormal(t *testing.T) {
	// Nothing resolves at all: the bare event is still written.
	resolver := &stubResolver{records: map[string]models.Record{}}
	writer := &stubWriter{}

	ev := baseEvent()
	enricher.New(resolver, writer, testLogger()).Process(context.Background(), ev)

	require.Equal(t, 1, writer.writes)
	assert.Equal(t, ev, writer.last)
}

func TestEnricher_WriteFailureIsSwallowed(t *testing.T) {
	resolver := &stubResolver{records: map[string]models.Record{}}
	writer := &stubWriter{err: fmt.Errorf("cluster_block_exception")}

	assert.NotPanics(t, func() {
		enricher.New(resolver, writer, testLogger()).Process(context.Background(), baseEvent())
	})
	assert.Equal(t, 1, writer.writes)
}

func TestEnricher_NoUserID(t *testing.T) {
	resolver := &stubResolver{
		records: map[string]models.Record{
			"user": {"name": "should not appear"},
		},
	}
	writer := &stubWriter{}

	ev := baseEvent()
	delete(ev, "user_id")
	ev["extra"] = "pad" // keep shape irrelevant here; validation happens upstream

	enricher.New(resolver, writer, testLogger()).Process(context.Background(), ev)

	require.Len(t, resolver.calls, 4)
	assert.Equal(t, resolveCall{"user", ""}, resolver.calls[3])
	assert.NotContains(t, writer.last, "user")
}
