package http

import (
	"context"
	"net/http"
	"time"

	"github.com/bnema/mediagrab/internal/adapter/http/middleware"
	"github.com/bnema/mediagrab/internal/adapter/http/ratelimit"
	"github.com/bnema/mediagrab/internal/service"
)

type Server struct {
	mux         *http.ServeMux
	handlers    *Handlers
	sseHandler  *SSEHandler
	guard       *authGuard
	limiter     *ratelimit.SubmitLimiter
	behindProxy bool
}

type ServerOptions struct {
	Auth        TokenVerifier
	SubmitRate  float64
	SubmitBurst int
	BehindProxy bool
}

func NewServer(jobs JobService, eventBus *service.EventBus, opts ServerOptions) *Server {
	limiter := ratelimit.NewSubmitLimiter(opts.SubmitRate, opts.SubmitBurst)

	s := &Server{
		mux:         http.NewServeMux(),
		handlers:    NewHandlers(jobs, limiter, opts.BehindProxy),
		sseHandler:  NewSSEHandler(eventBus, jobs),
		guard:       newAuthGuard(opts.Auth, opts.BehindProxy),
		limiter:     limiter,
		behindProxy: opts.BehindProxy,
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	auth := s.guard.AuthMiddleware

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("GET /api/info", auth(s.handlers.Info()))
	s.mux.HandleFunc("POST /api/jobs", auth(s.handlers.Submit()))
	s.mux.HandleFunc("GET /api/jobs/{id}", auth(s.handlers.Status()))
	s.mux.HandleFunc("GET /api/jobs/{id}/events", auth(s.sseHandler.Events()))
	s.mux.HandleFunc("POST /api/jobs/{id}/cancel", auth(s.handlers.Cancel()))
	s.mux.HandleFunc("GET /api/jobs/{id}/file", auth(s.handlers.File()))
	s.mux.HandleFunc("GET /api/history", auth(s.handlers.History()))
}

// Run performs periodic housekeeping of the per-client limiters until ctx
// is done.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.limiter.Cleanup()
			s.guard.failures.Cleanup()
		}
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	middleware.SecurityHeaders(s.mux).ServeHTTP(w, r)
}
