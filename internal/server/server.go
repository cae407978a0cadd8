package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ca-srg/ragrelay/internal/healthcheck"
)

// Config holds HTTP server settings.
type Config struct {
	Port            int
	Version         string
	ShutdownTimeout time.Duration
}

// HealthChecker runs the readiness probes.
type HealthChecker interface {
	Check(ctx context.Context) healthcheck.Status
}

// Server exposes liveness, readiness, and the Slack events ingress.
type Server struct {
	cfg        Config
	router     chi.Router
	httpServer *http.Server
	checker    HealthChecker
	logger     *log.Logger
}

// livenessResponse is the GET / body.
type livenessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// New creates the server around the events ingress and health checker.
func New(cfg Config, events http.HandlerFunc, checker HealthChecker, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "server ", log.LstdFlags)
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		checker: checker,
		logger:  logger,
	}
	s.router = s.buildRouter(events)
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter(events http.HandlerFunc) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", s.handleLiveness)
	r.Get("/health", s.handleReadiness)
	r.Post("/slack/events", events)

	return r
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, livenessResponse{
		Status:  "ok",
		Message: "Slack RAG Bot is running",
		Version: s.cfg.Version,
	})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	st := s.checker.Check(r.Context())
	if !st.Healthy() {
		s.logger.Printf("event=readiness status=degraded slack=%q rag_api=%q", st.Slack, st.RAGAPI)
	}
	s.writeJSON(w, st)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("failed to encode response: %v", err)
	}
}

// Run starts the server and blocks until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting HTTP server on port %d", s.cfg.Port)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		return err
	}
}

// shutdown drains in-flight requests before returning.
func (s *Server) shutdown() error {
	s.logger.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}
