package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/elonfeng/xpulse/pkg/alert"
	"github.com/elonfeng/xpulse/pkg/engage"
	"github.com/elonfeng/xpulse/pkg/producer"
)

// Server provides the HTTP API.
type Server struct {
	engine   *engage.Engine
	weights  engage.Weights
	alertMgr *alert.Manager
	port     int
}

// New creates a new HTTP server.
func New(engine *engage.Engine, weights engage.Weights, alertMgr *alert.Manager, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		engine:   engine,
		weights:  weights,
		alertMgr: alertMgr,
		port:     port,
	}
}

// Handler returns the configured request mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/compare-engagement", s.handleCompareJSON)
	mux.HandleFunc("/compare", s.handleCompareQuery)
	mux.HandleFunc("/api/analyze-post", s.handleAnalyzePost)
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Fprintf(os.Stderr, "xpulse server listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCompareJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Handles []string `json:"handles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.compare(w, r, body.Handles)
}

func (s *Server) handleCompareQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := r.URL.Query().Get("handles")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing required parameter: handles")
		return
	}

	s.compare(w, r, strings.Split(raw, ","))
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request, handles []string) {
	cmp, err := s.engine.Compare(r.Context(), handles)
	if err != nil {
		if errors.Is(err, engage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.notify(cmp)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    cmp,
	})
}

// notify broadcasts the comparison to configured alert destinations without
// blocking the response.
func (s *Server) notify(cmp *engage.Comparison) {
	if s.alertMgr == nil || !s.alertMgr.HasNotifiers() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.alertMgr.Broadcast(ctx, alert.NewNotification(cmp)); err != nil {
			fmt.Fprintf(os.Stderr, "  alert error: %v\n", err)
		}
	}()
}

func (s *Server) handleAnalyzePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var raw producer.RawRecord
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	metrics := engage.NormalizeMetrics(raw)
	analysis := s.weights.ScorePost(metrics)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    analysis,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
