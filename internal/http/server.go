// Package http exposes the ledger, pricing and template operations as a
// JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"famledger/internal/log"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	AllowedOrigins  []string
	RateLimitPerMin int // applies to the pricing write endpoints
}

// NewRouter wires every route of the API.
func NewRouter(h *Handler, opts RouterOptions) (*chi.Mux, func()) {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8081"}
	}
	limiter := newRateLimiter(opts.RateLimitPerMin)
	go limiter.startCleanup(5 * time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("X-Content-Type-Options", "nosniff"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)

	r.Route("/accounts/{accountID}", func(r chi.Router) {
		r.Get("/cycle", h.GetCycle)
		r.Get("/summary", h.GetSummary)
		r.Get("/months/{year}/{month}", h.GetMonthTotals)
		r.Get("/children/{childID}/spending", h.GetChildSpending)
		r.Post("/export", h.ExportCycle)
	})

	r.Route("/pricing", func(r chi.Router) {
		r.Get("/plans", h.ListPlans)
		r.With(limiter.middleware).Post("/quote", h.Quote)
		r.With(limiter.middleware).Post("/confirm", h.Confirm)
	})

	r.Route("/recurring", func(r chi.Router) {
		r.Patch("/{templateID}", h.EditTemplate)
		r.Delete("/{templateID}", h.DeleteTemplate)
	})

	return r, limiter.stop
}

// Server is the API server with graceful shutdown.
type Server struct {
	http.Server
	stopLimiter func()
}

func NewServer(addr string, h *Handler, opts RouterOptions) *Server {
	router, stop := NewRouter(h, opts)
	return &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		stopLimiter: stop,
	}
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopLimiter()
	return s.Server.Shutdown(ctx)
}
