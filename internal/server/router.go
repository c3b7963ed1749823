// Package server exposes the ops HTTP surface: health, readiness, metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skilltrace-systems/skilltrace-indexer/internal/pump"
)

// Router builds the ops HTTP handler.
type Router struct {
	pump     *pump.Pump
	osClient *opensearch.Client
}

// New creates a Router.
func New(p *pump.Pump, osClient *opensearch.Client) *Router {
	return &Router{pump: p, osClient: osClient}
}

// Handler returns the configured mux.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.health)
	mux.HandleFunc("/readyz", r.ready)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (r *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"pump":   r.pump.Stats(),
	})
}

func (r *Router) ready(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
	defer cancel()

	info, err := r.osClient.Info(r.osClient.Info.WithContext(ctx))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": "opensearch unavailable"})
		return
	}
	defer info.Body.Close()

	if info.IsError() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": info.Status()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
