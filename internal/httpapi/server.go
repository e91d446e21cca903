// internal/httpapi/server.go

// Package httpapi exposes the reveal stream and its views over HTTP, and
// accepts pushed deliveries.
package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/user/livedrops/internal/feed"
	"github.com/user/livedrops/internal/types"
	"github.com/user/livedrops/internal/views"
)

const maxPushBytes = 1 << 20

// Engine is the subset of the feed engine the server needs.
type Engine interface {
	types.BatchIngester
	PendingReveals() []feed.PendingReveal
	Known() int
	Active() bool
}

// Server is a lightweight HTTP handler for the feed endpoints.
type Server struct {
	engine   Engine
	ambient  *views.Ambient
	toasts   *views.Notifier
	counters *views.Counters
	mux      *http.ServeMux
}

// NewServer creates a Server over the engine and its views.
func NewServer(engine Engine, ambient *views.Ambient, toasts *views.Notifier, counters *views.Counters) *Server {
	s := &Server{
		engine:   engine,
		ambient:  ambient,
		toasts:   toasts,
		counters: counters,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/feed", s.handleFeed)
	s.mux.HandleFunc("GET /api/toasts", s.handleToasts)
	s.mux.HandleFunc("DELETE /api/toasts/{id}", s.handleDismiss)
	s.mux.HandleFunc("GET /api/counters", s.handleCounters)
	s.mux.HandleFunc("GET /api/pending", s.handlePending)
	s.mux.HandleFunc("POST /api/push", s.handlePush)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !s.engine.Active() {
		status = "closed"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

type feedResponse struct {
	Tab     views.Tab      `json:"tab"`
	Time    views.TimeMode `json:"time"`
	Entries []views.Entry  `json:"entries"`
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tab, err := views.ParseTab(q.Get("tab"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := views.ParseTimeMode(q.Get("time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries := s.ambient.Entries(tab, mode)
	if entries == nil {
		entries = []views.Entry{}
	}
	writeJSON(w, http.StatusOK, feedResponse{Tab: tab, Time: mode, Entries: entries})
}

func (s *Server) handleToasts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.toasts.Toasts())
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if !s.toasts.Dismiss(types.ToastID(r.PathValue("id"))) {
		writeError(w, http.StatusNotFound, "toast not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.counters.Snapshot())
}

type pendingResponse struct {
	Known   int                  `json:"known"`
	Pending []feed.PendingReveal `json:"pending"`
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending := s.engine.PendingReveals()
	if pending == nil {
		pending = []feed.PendingReveal{}
	}
	writeJSON(w, http.StatusOK, pendingResponse{Known: s.engine.Known(), Pending: pending})
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Active() {
		writeError(w, http.StatusServiceUnavailable, "feed closed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPushBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	batch, err := types.ParseBatch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.engine.IngestBatch(batch)
	writeJSON(w, http.StatusAccepted, map[string]int{"received": len(batch.Events)})
}
