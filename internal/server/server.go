// Package server exposes document processing, storage and export over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/medrecords/internal/async"
	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/export"
	"github.com/joseph-ayodele/medrecords/internal/pipeline"
	"github.com/joseph-ayodele/medrecords/internal/repository"
)

// OwnerHeader carries the owner of uploaded documents.
const OwnerHeader = "X-Owner-ID"

// Processor is satisfied by *pipeline.Processor.
type Processor interface {
	Process(ctx context.Context, doc entity.RawDocument, sink pipeline.Sink) (*pipeline.Result, error)
	CanProcess(mediaType string) bool
}

type Config struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// Server holds the handler dependencies. Queue and Exporter are optional.
type Server struct {
	proc     Processor
	store    repository.DocumentStore
	exporter *export.Service
	queue    async.Queue
	cfg      Config
	logger   *slog.Logger
}

func New(proc Processor, store repository.DocumentStore, exporter *export.Service, queue async.Queue, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	return &Server{proc: proc, store: store, exporter: exporter, queue: queue, cfg: cfg, logger: logger}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/capabilities", s.capabilities)
		r.Route("/documents", func(r chi.Router) {
			// Uploads may stream progress for as long as processing takes.
			r.Post("/", s.uploadDocument)
			r.Group(func(r chi.Router) {
				if s.cfg.RequestTimeout > 0 {
					r.Use(chimiddleware.Timeout(s.cfg.RequestTimeout))
				}
				r.Get("/", s.listDocuments)
				r.Get("/{id}", s.getDocument)
				r.Get("/{id}/highlight", s.highlightDocument)
				r.Delete("/{id}", s.deleteDocument)
			})
		})
		r.Get("/export.xlsx", s.exportXLSX)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		reqID := chimiddleware.GetReqID(r.Context())
		logger := s.logger.With("request_id", reqID)

		ctx := common.WithRequestID(r.Context(), reqID)
		ctx = common.WithLogger(ctx, logger)
		if owner := r.Header.Get(OwnerHeader); owner != "" {
			ctx = common.WithOwnerID(ctx, owner)
		}
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
