package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-cardgen/internal/report"
)

// StatusSource provides the progress snapshot served by GET /status.
type StatusSource interface {
	Snapshot() report.Snapshot
}

// NewRouter builds the status router.
//
//	GET /healthz  200 "OK"
//	GET /status   200 report.Snapshot as JSON
func NewRouter(status StatusSource, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "status_api"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		if status == nil {
			respondError(w, r, logger, http.StatusServiceUnavailable, "status not available")
			return
		}
		respondJSON(w, r, logger, http.StatusOK, status.Snapshot())
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, logger, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, logger, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// requestLogger logs each request at debug level with its request ID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.DebugContext(r.Context(), "request completed",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)))
		})
	}
}
