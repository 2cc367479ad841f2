package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/survey"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the survey facade the HTTP layer exposes.
type Engine interface {
	CreateSession(ctx context.Context, in survey.CreateSessionInput) (*survey.Session, error)
	Overview(ctx context.Context, sessionID uuid.UUID) (*survey.Overview, error)
	GenerateBatch(ctx context.Context, sessionID uuid.UUID) ([]survey.Question, error)
	SubmitAnswer(ctx context.Context, sub answer.Submission) (*answer.Record, error)
	GenerateReport(ctx context.Context, sessionID uuid.UUID) (*survey.Report, error)
	LatestReport(ctx context.Context, sessionID uuid.UUID) (*survey.Report, error)
}

type Options struct {
	// APIToken guards the status endpoint. Empty disables the check.
	APIToken string
	// GuestSecret is the HS256 key for respondent tokens on /api. Empty
	// leaves the survey routes open.
	GuestSecret string
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
}

type Server struct {
	router *chi.Mux
	port   int
	engine Engine
	logger *slog.Logger
	http   *http.Server
}

func NewServer(port int, engine Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		engine: engine,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.With(BearerAuthMiddleware(opts.APIToken)).Get("/api/v1/sonar/status", s.status)
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api", func(r chi.Router) {
		if opts.GuestSecret != "" {
			r.Use(GuestAuthMiddleware(opts.GuestSecret))
		}
		r.Post("/sessions", s.createSession)
		r.Get("/sessions/{id}", s.getSession)
		r.Post("/sessions/{id}/questions", s.generateQuestions)
		r.Post("/sessions/{id}/reports", s.generateReport)
		r.Get("/sessions/{id}/reports/latest", s.latestReport)
		r.Post("/answers", s.submitAnswer)
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":  "sonar",
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
