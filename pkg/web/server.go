package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/ritzau/vitals-analyzer/pkg/dedup"
	"github.com/ritzau/vitals-analyzer/pkg/input"
	"github.com/ritzau/vitals-analyzer/pkg/logging"
	"github.com/ritzau/vitals-analyzer/pkg/model"
	"github.com/ritzau/vitals-analyzer/pkg/output"
	"github.com/ritzau/vitals-analyzer/pkg/pipeline"
)

// maxBodyBytes bounds POST /api/correlate request bodies
const maxBodyBytes = 16 << 20

// CorrelateResponse is returned by POST /api/correlate
type CorrelateResponse struct {
	RunID string        `json:"runId"`
	Graph *model.Graph  `json:"graph"`
	Dedup *dedup.Result `json:"dedup"`
}

// Server serves the most recent correlation result and correlates posted bundles
type Server struct {
	router *mux.Router
	opts   pipeline.Options

	mu     sync.RWMutex
	result *pipeline.Result
}

// NewServer creates a new web server
func NewServer(opts pipeline.Options) *Server {
	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
	}
	s.setupRoutes()
	return s
}

// SetResult replaces the result served by the GET endpoints
func (s *Server) SetResult(res *pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
}

// Result returns the result currently being served, or nil
func (s *Server) Result() *pipeline.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/correlate", s.handleCorrelate).Methods("POST")
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/report", s.handleReport).Methods("GET")
	s.router.HandleFunc("/api/suggestions", s.handleSuggestions).Methods("GET")
}

// Handler returns the router wrapped with request logging
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"hasResult": s.Result() != nil,
	})
}

func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var bundle input.Bundle
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&bundle); err != nil {
		logging.WarnContext(ctx, "invalid correlate request", "error", err)
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	metrics, shadowed := model.NormalizeMetrics(bundle.Metrics)
	if len(shadowed) > 0 {
		logging.WarnContext(ctx, "metrics given more than once", "ignored", shadowed)
	}
	bundle.Metrics = metrics

	res, err := pipeline.Correlate(ctx, &bundle, s.opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.ErrorContext(ctx, "correlation failed", "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	res.Source = "http"
	s.SetResult(res)

	writeJSON(w, http.StatusOK, CorrelateResponse{
		RunID: res.RunID,
		Graph: res.Graph,
		Dedup: res.Dedup,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	res := s.Result()
	if res == nil {
		http.Error(w, "No correlation result available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, res.Graph)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res := s.Result()
	if res == nil {
		http.Error(w, "No correlation result available", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if err := output.RenderMarkdown(w, res); err != nil {
		logging.ErrorContext(r.Context(), "rendering report failed", "error", err)
	}
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	res := s.Result()
	if res == nil {
		http.Error(w, "No correlation result available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, output.ExportSuggestions(res.Graph))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("encoding response failed", "error", err)
	}
}

// Start serves on the given port until ctx is cancelled
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
