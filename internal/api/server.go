// Package api exposes the local HTTP control surface a tray or window shell
// talks to: status queries, manual sync triggers, settings and a server-sent
// event stream of state changes. It binds to loopback only.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fountainhq/fountain-agent/internal/config"
	"github.com/fountainhq/fountain-agent/internal/platform"
	"github.com/fountainhq/fountain-agent/internal/sync"
	"github.com/fountainhq/fountain-agent/internal/sync/state"
)

// Runner runs one sync; *sync.Session implements it.
type Runner interface {
	Run(ctx context.Context, p platform.Platform) sync.Outcome
}

// Server handles control API requests.
type Server struct {
	store   state.Store
	runner  Runner
	manager *config.Manager
	logger  *slog.Logger
}

// NewServer creates the control API server.
func NewServer(store state.Store, runner Runner, manager *config.Manager, logger *slog.Logger) *Server {
	return &Server{
		store:   store,
		runner:  runner,
		manager: manager,
		logger:  logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.getHealth)
		r.Get("/status", s.getStatus)
		r.Post("/sync", s.postSyncAll)
		r.Post("/sync/{platform}", s.postSyncOne)
		r.Get("/settings", s.getSettings)
		r.Put("/settings", s.putSettings)
		r.Get("/events", s.getEvents)
	})
	return r
}

func (*Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

// postSyncAll runs every enabled platform sequentially and reports all
// outcomes. The per-platform guard inside the session keeps this safe
// against a concurrent scheduler tick.
func (s *Server) postSyncAll(w http.ResponseWriter, r *http.Request) {
	settings := s.manager.Current()
	outcomes := make([]sync.Outcome, 0, len(platform.All()))
	for _, p := range platform.All() {
		if !settings.Enabled(p) {
			continue
		}
		outcomes = append(outcomes, s.runner.Run(r.Context(), p))
	}
	s.writeJSON(w, http.StatusOK, outcomes)
}

func (s *Server) postSyncOne(w http.ResponseWriter, r *http.Request) {
	p, err := platform.Parse(chi.URLParam(r, "platform"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.runner.Run(r.Context(), p))
}

func (s *Server) getSettings(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.manager.Current())
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	settings := &config.Settings{}
	if err := json.NewDecoder(r.Body).Decode(settings); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid settings body: %w", err))
		return
	}
	if err := s.manager.Update(settings); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.manager.Current())
}

// getEvents streams state-changed events as server-sent events until the
// client disconnects.
func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := s.store.Subscribe()
	defer s.store.Unsubscribe(events)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("Failed to encode event", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
