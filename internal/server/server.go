// Package server exposes the suggestion pipeline to the browser extension
// over a loopback HTTP API and a websocket field-event stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/fieldsense/fieldsense/internal/ambient"
	"github.com/fieldsense/fieldsense/internal/inference"
	"github.com/fieldsense/fieldsense/internal/logging"
	"github.com/fieldsense/fieldsense/internal/pipeline"
)

// FeedCollector supplies ambient context when a request arrives without
// any. The chromedp collector implements it.
type FeedCollector interface {
	Collect(ctx context.Context) (ambient.Feed, error)
}

// Server hosts the extension-facing API.
type Server struct {
	pipeline  *pipeline.Pipeline
	addr      string
	cron      *cron.Cron
	purge     func() (bool, error)
	collector FeedCollector
}

// New creates a server for pipeline at addr. purge, when non-nil, is run
// periodically to drop expired session state from disk.
func New(p *pipeline.Pipeline, addr string, purge func() (bool, error)) *Server {
	return &Server{pipeline: p, addr: addr, purge: purge}
}

// SetFeedCollector installs a fallback ambient feed source.
func (s *Server) SetFeedCollector(c FeedCollector) {
	s.collector = c
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/suggest", s.handleSuggest)
		r.Get("/quota", s.handleQuota)
		r.Post("/session/clear", s.handleSessionClear)
		r.Get("/stream", s.handleStream)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.startJanitor()
	srv := &http.Server{Addr: s.addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("listening on http://%s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		if s.cron != nil {
			s.cron.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if s.cron != nil {
			s.cron.Stop()
		}
		return err
	}
}

// startJanitor schedules the periodic expired-session sweep.
func (s *Server) startJanitor() {
	if s.purge == nil {
		return
	}
	s.cron = cron.New()
	s.cron.AddFunc("@every 10m", func() {
		purged, err := s.purge()
		if err != nil {
			logging.Warnf("session sweep: %v", err)
			return
		}
		if purged {
			logging.Info("expired session state purged")
		}
	})
	s.cron.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSuggest runs one synchronous suggestion request.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if s.collector != nil && emptyFeed(req.Feed) {
		if feed, err := s.collector.Collect(r.Context()); err == nil {
			req.Feed = feed
		} else {
			logging.Warnf("feed collect: %v", err)
		}
	}
	result, err := s.pipeline.Suggest(r.Context(), req)
	if err != nil {
		if errors.Is(err, inference.ErrNoCredential) {
			writeJSON(w, http.StatusPreconditionFailed, map[string]string{"error": err.Error()})
			return
		}
		// The pipeline folds everything else into a well-formed result;
		// anything reaching here is unexpected.
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.pipeline.Commit(req.Value, result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	remaining, nextSlot := s.pipeline.Quota()
	writeJSON(w, http.StatusOK, map[string]any{
		"remaining":  remaining,
		"nextSlotMs": nextSlot.Milliseconds(),
	})
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.ClearSession(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// emptyFeed reports whether the request carried no ambient data at all.
func emptyFeed(f ambient.Feed) bool {
	return f.CurrentPage.Title == "" && len(f.OtherTabs) == 0 && len(f.History) == 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("write response: %v", err)
	}
}
