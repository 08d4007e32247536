// Package api exposes the ingestion and question-answering pipelines over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bull/contextiq/internal/metrics"
	"github.com/bull/contextiq/internal/rag"
)

// DefaultMaxUploadBytes bounds the size of an uploaded document.
const DefaultMaxUploadBytes = 32 << 20

// Service is the pipeline surface served over HTTP.
type Service interface {
	Ingest(ctx context.Context, doc rag.Document, namespace string) (*rag.IngestResult, error)
	Ask(ctx context.Context, query, namespace string, topK int) (*rag.Answer, error)
	Status(ctx context.Context, namespace string) (*rag.Status, error)
}

// HealthChecker reports whether the vector store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	DemoQueryLimit int          // per-session limit on uploads and questions, 0 disables
	MaxUploadBytes int64        // DefaultMaxUploadBytes when 0
	MCP            http.Handler // mounted at /mcp when set
	Logger         *slog.Logger
}

// Server handles the HTTP API.
type Server struct {
	svc       Service
	health    HealthChecker
	quota     *Quota
	maxUpload int64
	mcp       http.Handler
	logger    *slog.Logger
}

// NewServer creates an HTTP API server.
func NewServer(svc Service, health HealthChecker, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Server{
		svc:       svc,
		health:    health,
		quota:     NewQuota(opts.DemoQueryLimit),
		maxUpload: maxUpload,
		mcp:       opts.MCP,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(s.recoverer)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware())

	r.Get("/", handleLanding)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Group(func(r chi.Router) {
			r.Use(s.quota.Middleware)
			r.Post("/documents", s.handleIngest)
			r.Post("/ask", s.handleAsk)
		})
	})

	if s.mcp != nil {
		r.Handle("/mcp", s.mcp)
		r.Handle("/mcp/*", s.mcp)
	}
	return r
}

// handleIngest handles POST /v1/documents (multipart field "file").
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > s.maxUpload {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "Document is too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", `Upload the document as multipart field "file".`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Failed to read upload: "+err.Error())
		return
	}

	result, err := s.svc.Ingest(r.Context(), rag.Document{Name: header.Filename, Data: data}, r.URL.Query().Get("namespace"))
	if err != nil {
		s.handlePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type askRequest struct {
	Question  string `json:"question"`
	TopK      int    `json:"top_k"`
	Namespace string `json:"namespace"`
}

// handleAsk handles POST /v1/ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Question is required.")
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "top_k must not be negative.")
		return
	}

	answer, err := s.svc.Ask(r.Context(), req.Question, req.Namespace, req.TopK)
	if err != nil {
		s.handlePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// handleStatus handles GET /v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(r.Context(), r.URL.Query().Get("namespace"))
	if err != nil {
		s.handlePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	code := http.StatusOK

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.health.Health(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, resp)
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic in handler", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestLogger emits one log line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chiMiddleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"latency", time.Since(start),
			"session", sessionKey(r),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
