package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bhnan/Long-text-evaluation/internal/config"
	"github.com/bhnan/Long-text-evaluation/internal/llm"
	"github.com/bhnan/Long-text-evaluation/internal/pipeline"
	"github.com/bhnan/Long-text-evaluation/internal/ratelimit"
)

// Server is the HTTP API server for document evaluation.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	gateway      *llm.Gateway
	limiter      *ratelimit.Limiter
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, gw *llm.Gateway, limiter *ratelimit.Limiter, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		gateway:      gw,
		limiter:      limiter,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/evaluations", s.handleSubmit)
		r.Post("/api/evaluations/batch", s.handleBatchSubmit)
		r.Get("/api/evaluations/{jobID}/status", s.handleStatus)
		r.Get("/api/evaluations/{jobID}/result", s.handleResult)
		r.Get("/api/evaluations/{jobID}/report", s.handleReport)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
