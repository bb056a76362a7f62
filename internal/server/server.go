// Package server implements the sidecar's inbound HTTP surface: the
// LB-facing selection endpoint, pool status/health queries, and the
// simulate/analyze statistical endpoints, plus a supplementary websocket
// event stream.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/f5devcentral/llm-inference-lb/internal/obsmetrics"
	"github.com/f5devcentral/llm-inference-lb/internal/pool"
	"github.com/f5devcentral/llm-inference-lb/internal/selector"
)

// Config holds the Server's dependencies.
type Config struct {
	Store    *pool.Store
	Selector *selector.Selector
	Metrics  *obsmetrics.Registry // nil disables /metrics
}

// Server is the sidecar's HTTP server.
type Server struct {
	Router   chi.Router
	Store    *pool.Store
	Selector *selector.Selector
	Hub      *Hub

	httpSrv *http.Server
}

// New builds a Server with all routes, middleware, and the websocket hub
// wired and started.
func New(cfg Config) *Server {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(MaxBodySize(1 << 20))

	hub := NewHub()
	hub.StreamPoolSnapshots(cfg.Store)

	s := &Server{
		Router:   r,
		Store:    cfg.Store,
		Selector: cfg.Selector,
		Hub:      hub,
	}
	s.registerRoutes(cfg.Metrics)
	return s
}

func (s *Server) registerRoutes(metrics *obsmetrics.Registry) {
	s.Router.Get("/health", handleHealth)

	s.Router.Post("/scheduler/select", s.handleSelect)

	s.Router.Get("/pools/status", s.handlePoolsStatus)
	s.Router.Get("/pools/{name}/{partition}/status", s.handlePoolStatus)
	s.Router.Post("/pools/{name}/{partition}/simulate", s.handleSimulate)
	s.Router.Post("/pools/{name}/{partition}/analyze", s.handleAnalyze)

	s.Router.Get("/ws/pools", s.Hub.ServeWS(TopicPools))
	s.Router.Get("/ws/selections", s.Hub.ServeWS(TopicSelections))

	if metrics != nil {
		s.Router.Handle("/metrics", promhttp.HandlerFor(metrics.Gatherer(), promhttp.HandlerOpts{}))
	}
}

// Run starts the HTTP server on addr, blocking until it stops.
func (s *Server) Run(addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Router}
	slog.Info("http server listening", "addr", addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting new selection requests, drains in-flight
// responses, and stops the websocket hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Hub.Stop()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
