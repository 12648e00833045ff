// Package api exposes the HTTP interface for the retrieval gateway.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/federated-rag/retrieval-gateway/internal/config"
	"github.com/federated-rag/retrieval-gateway/internal/metrics"
	"github.com/federated-rag/retrieval-gateway/internal/retrieval"
)

// RetrievalClient is the slice of the federation facade the API consumes.
type RetrievalClient interface {
	Search(ctx context.Context, query, site string, limit int) ([]retrieval.Result, error)
	SearchByURL(ctx context.Context, url string) (retrieval.Result, error)
	GetSites(ctx context.Context) ([]string, error)
	UploadDocuments(ctx context.Context, docs []retrieval.Document) (int, error)
	DeleteBySite(ctx context.Context, site string) (int, error)
}

// Server wires HTTP handlers to the retrieval client.
type Server struct {
	router chi.Router
	client RetrievalClient
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(client RetrievalClient, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.search)
		r.Get("/item", s.itemByURL)
		r.Get("/sites", s.listSites)
		r.Post("/documents", s.uploadDocuments)
		r.Delete("/sites/{site}", s.deleteSite)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	site := r.URL.Query().Get("site")
	if site == "" {
		site = retrieval.AllSites
	}
	limit := s.cfg.ClampLimit(intParam(r, "limit"))

	results, err := s.client.Search(r.Context(), query, site, limit)
	if err != nil {
		writeRetrievalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) itemByURL(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "query parameter url is required")
		return
	}
	result, err := s.client.SearchByURL(r.Context(), url)
	if err != nil {
		writeRetrievalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.client.GetSites(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sites == nil {
		sites = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sites": sites})
}

type uploadRequest struct {
	Documents []retrieval.Document `json:"documents"`
}

func (s *Server) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "at least one document required")
		return
	}
	count, err := s.client.UploadDocuments(r.Context(), req.Documents)
	if err != nil {
		writeRetrievalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"uploaded": count})
}

func (s *Server) deleteSite(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	count, err := s.client.DeleteBySite(r.Context(), site)
	if err != nil {
		writeRetrievalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": count})
}

// writeRetrievalError maps facade errors onto HTTP statuses: missing
// documents and filters that exclude every endpoint are 404s, a total
// backend outage is a bad gateway, and a missing write endpoint means the
// mutation surface is not configured on this deployment.
func writeRetrievalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, retrieval.ErrNotFound),
		errors.Is(err, retrieval.ErrNoEligibleEndpoints):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, retrieval.ErrAllBackendsFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, retrieval.ErrNoWriteEndpoint):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusRequestTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func intParam(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unknown"
			}
			metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
