package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"simpleboard/internal/engine"
	"simpleboard/internal/metrics"
)

type ServerDeps struct {
	Boards      *engine.Registry
	Logger      *zap.Logger
	CORSOrigins []string
	// Metrics is optional; when set, /metrics is served.
	Metrics *metrics.Collector
}

// NewServer wires the board handlers into a router and exposes a health check.
func NewServer(deps ServerDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))
	if deps.Metrics != nil {
		r.Use(requestMetrics(deps.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Location"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	h := NewBoardHandler(deps.Boards, logger)
	return HandlerWithOptions(h, ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			h.respondBadRequest(w, codeMalformedRequest, err.Error())
		},
	})
}
