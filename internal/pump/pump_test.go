package pump_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/config"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/enricher"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/logging"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/messaging"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/models"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/pump"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/validator"
)

// fakeSubscriber hands the registered handler back to the test so it can
// inject deliveries directly.
type fakeSubscriber struct {
	subject string
	queue   string
	handler messaging.MessageHandler
	failSub bool
}

type fakeSubscription struct{ subject string }

func (s *fakeSubscription) Unsubscribe() error { return nil }
func (s *fakeSubscription) Subject() string    { return s.subject }

func (f *fakeSubscriber) QueueSubscribe(subject, queue string, handler messaging.MessageHandler) (messaging.Subscription, error) {
	if f.failSub {
		return nil, fmt.Errorf("no broker")
	}
	f.subject = subject
	f.queue = queue
	f.handler = handler
	return &fakeSubscription{subject: subject}, nil
}

func (f *fakeSubscriber) Close() error { return nil }

func (f *fakeSubscriber) deliver(t *testing.T, payload string) {
	t.Helper()
	require.NotNil(t, f.handler, "pump not started")
	require.NoError(t, f.handler(context.Background(), &messaging.Message{
		Subject:   f.subject,
		Data:      []byte(payload),
		Timestamp: time.Now(),
	}))
}

// countingResolver resolves nothing but records that stages ran.
type countingResolver struct {
	mu    sync.Mutex
	calls int
}

func (r *countingResolver) Resolve(context.Context, string, string) (models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil, nil
}

func (r *countingResolver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// channelWriter signals each completed write.
type channelWriter struct {
	writes chan models.Event
}

func (w *channelWriter) Write(_ context.Context, ev models.Event) error {
	w.writes <- ev
	return nil
}

func newTestPump(t *testing.T, sub *fakeSubscriber, resolver *countingResolver, writer *channelWriter) *pump.Pump {
	t.Helper()
	logger := &logging.Logger{Logger: slog.Default()}
	schema, err := validator.New(config.SchemaConfig{MaxKeys: 7, ExcludedType: "FOO"})
	require.NoError(t, err)
	e := enricher.New(resolver, writer, logger)
	return pump.New(sub, schema, e, "events", "indexer", logger)
}

const validPayload = `{
	"id": "event-1",
	"attempt_id": "attempt-1",
	"user_id": "user-1",
	"type": "PROGRESS",
	"progress": 0.634,
	"score": 0.962,
	"timestamp": "2018-01-16T14:09:51Z"
}`

func TestPump_StartSubscribes(t *testing.T) {
	sub := &fakeSubscriber{}
	p := newTestPump(t, sub, &countingResolver{}, &channelWriter{writes: make(chan models.Event, 1)})

	require.NoError(t, p.Start())
	assert.Equal(t, "events", sub.subject)
	assert.Equal(t, "indexer", sub.queue)

	require.NoError(t, p.Stop())
}

func TestPump_StartError(t *testing.T) {
	p := newTestPump(t, &fakeSubscriber{failSub: true}, &countingResolver{}, &channelWriter{writes: make(chan models.Event, 1)})
	assert.Error(t, p.Start())
}

func TestPump_ValidEventReachesWriter(t *testing.T) {
	sub := &fakeSubscriber{}
	resolver := &countingResolver{}
	writer := &channelWriter{writes: make(chan models.Event, 1)}
	p := newTestPump(t, sub, resolver, writer)
	require.NoError(t, p.Start())

	sub.deliver(t, validPayload)

	select {
	case doc := <-writer.writes:
		assert.Equal(t, "event-1", doc.ID())
	case <-time.After(2 * time.Second):
		t.Fatal("index write never happened")
	}

	assert.Equal(t, 4, resolver.count(), "all four lookup stages must run")

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Received)
	assert.Equal(t, uint64(1), stats.Started)
	assert.Equal(t, uint64(0), stats.Dropped)
}

func TestPump_DecodeFailureDropsMessageOnly(t *testing.T) {
	sub := &fakeSubscriber{}
	resolver := &countingResolver{}
	writer := &channelWriter{writes: make(chan models.Event, 1)}
	p := newTestPump(t, sub, resolver, writer)
	require.NoError(t, p.Start())

	sub.deliver(t, `not json at all`)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Received)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, uint64(0), stats.Started)
	assert.Equal(t, 0, resolver.count())

	// The pump keeps delivering after a poison message.
	sub.deliver(t, validPayload)
	select {
	case <-writer.writes:
	case <-time.After(2 * time.Second):
		t.Fatal("pump stopped processing after decode failure")
	}
}

func TestPump_InvalidEventDroppedSilently(t *testing.T) {
	sub := &fakeSubscriber{}
	resolver := &countingResolver{}
	writer := &channelWriter{writes: make(chan models.Event, 1)}
	p := newTestPump(t, sub, resolver, writer)
	require.NoError(t, p.Start())

	// Schema satisfied but type matches the exclusion sentinel.
	sub.deliver(t, `{
		"id": "event-1",
		"attempt_id": "attempt-1",
		"user_id": "user-1",
		"type": "FOO",
		"progress": 0.1,
		"score": 0.2,
		"timestamp": "2018-01-16T14:09:51Z"
	}`)

	assert.Equal(t, 0, resolver.count(), "no lookups for excluded events")
	assert.Equal(t, uint64(1), p.Stats().Dropped)

	// Extra eighth key: rejected outright, zero lookups, zero writes.
	sub.deliver(t, `{
		"id": "event-2",
		"attempt_id": "attempt-1",
		"user_id": "user-1",
		"type": "PROGRESS",
		"progress": 0.1,
		"score": 0.2,
		"timestamp": "2018-01-16T14:09:51Z",
		"unexpected": true
	}`)

	assert.Equal(t, 0, resolver.count())
	assert.Equal(t, uint64(2), p.Stats().Dropped)
	select {
	case <-writer.writes:
		t.Fatal("dropped event must not be written")
	case <-time.After(50 * time.Millisecond):
	}
}
