// Package indexer persists enriched events into date-partitioned indices.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/config"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/metrics"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/models"
)

// Writer stores enriched events. The destination partition is derived from
// the event's calendar date: <index prefix><date>.
type Writer struct {
	client *opensearch.Client
	prefix string
}

// NewWriter creates a Writer backed by the shared OpenSearch client.
func NewWriter(client *opensearch.Client, cfg config.OpenSearchConfig) *Writer {
	return &Writer{
		client: client,
		prefix: cfg.IndexPrefix,
	}
}

// IndexFor computes the destination index name for an event.
func (w *Writer) IndexFor(ev models.Event) (string, error) {
	date := ev.Date()
	if date == "" {
		return "", fmt.Errorf("event %s has no usable timestamp", ev.ID())
	}
	return w.prefix + date, nil
}

// Write persists the event as a new document. The stored document gets a
// fresh random id, deliberately not derivable from the event's business id.
// Best-effort: the caller logs a returned error, nothing retries.
func (w *Writer) Write(ctx context.Context, ev models.Event) error {
	index, err := w.IndexFor(ev)
	if err != nil {
		metrics.IndexWrites.WithLabelValues(metrics.StatusError).Inc()
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		metrics.IndexWrites.WithLabelValues(metrics.StatusError).Inc()
		return fmt.Errorf("marshal event %s: %w", ev.ID(), err)
	}

	req := opensearchapi.IndexRequest{
		Index:      index,
		DocumentID: uuid.NewString(),
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, w.client)
	if err != nil {
		metrics.IndexWrites.WithLabelValues(metrics.StatusError).Inc()
		return fmt.Errorf("index event %s: %w", ev.ID(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		metrics.IndexWrites.WithLabelValues(metrics.StatusError).Inc()
		detail, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index event %s: %s - %s", ev.ID(), res.Status(), string(detail))
	}

	metrics.IndexWrites.WithLabelValues(metrics.StatusOK).Inc()
	return nil
}
