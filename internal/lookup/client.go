// Package lookup resolves entity ids to records via a remote JSON-RPC 2.0
// service.
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/config"
	"github.com/skilltrace-systems/skilltrace-indexer/internal/models"
)

// Resolver resolves an entity id to a record. A nil record with a nil error
// means "no record" (not found, or no id to look up).
type Resolver interface {
	Resolve(ctx context.Context, entityType, id string) (models.Record, error)
}

// RemoteError reports a failed lookup call: timeout, transport failure, or a
// non-success status from the remote service.
type RemoteError struct {
	Entity string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lookup %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("lookup %s: status %d", e.Entity, e.Status)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// request is a JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	ID      string        `json:"id"`
	Params  requestParams `json:"params"`
}

type requestParams struct {
	ID string `json:"id"`
}

// response is a JSON-RPC 2.0 response envelope. A success response carries
// the record under result.data; any other shape resolves as "not found".
type response struct {
	Result struct {
		Data models.Record `json:"data"`
	} `json:"result"`
}

// Client is a lookup gateway over HTTP. The underlying http.Client is shared
// and safe for unbounded concurrent use by in-flight pipelines.
type Client struct {
	url     string
	methods map[string]string
	http    *http.Client
}

// NewClient creates a lookup client from configuration. The configured
// timeout applies per call.
func NewClient(cfg config.LookupConfig) *Client {
	return &Client{
		url:     cfg.URL,
		methods: cfg.Methods,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Resolve issues one lookup call for the given entity type and id. An empty
// id resolves immediately to no record without a round-trip. There is no
// caching and no retry; a failed call surfaces as *RemoteError and the caller
// decides what to do with the missing enrichment.
func (c *Client) Resolve(ctx context.Context, entityType, id string) (models.Record, error) {
	if id == "" {
		return nil, nil
	}

	method, ok := c.methods[entityType]
	if !ok {
		return nil, &RemoteError{Entity: entityType, Err: fmt.Errorf("no method configured")}
	}

	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		ID:      uuid.NewString(),
		Params:  requestParams{ID: id},
	})
	if err != nil {
		return nil, &RemoteError{Entity: entityType, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &RemoteError{Entity: entityType, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Entity: entityType, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &RemoteError{Entity: entityType, Status: res.StatusCode}
	}

	var parsed response
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		// Unparseable success body is treated as "not found", matching the
		// contract that only result.data carries a record.
		return nil, nil
	}
	if parsed.Result.Data == nil {
		return nil, nil
	}
	return parsed.Result.Data, nil
}
