// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api wires the HTTP read surface: torrent listing/search, detail
// and download passthrough, stats, the mirror façade and health.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/nyaproxy/internal/api/handlers"
	"github.com/autobrr/nyaproxy/internal/domain"
	"github.com/autobrr/nyaproxy/internal/fetcher"
	"github.com/autobrr/nyaproxy/internal/mirror"
	"github.com/autobrr/nyaproxy/internal/store"
)

type Dependencies struct {
	Config   *domain.Config
	Store    *store.ItemStore
	Upstream *fetcher.Coordinator
	Mirrors  *mirror.Registry

	// Metrics is the registry the fetch metrics were registered on; nil
	// disables the /metrics endpoint.
	Metrics *prometheus.Registry
}

type Server struct {
	deps *Dependencies
}

func NewServer(deps *Dependencies) *Server {
	return &Server{deps: deps}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if s.deps.Config.CORSAllowEveryone {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}).Handler)
	}

	r.Route("/api", func(r chi.Router) {
		handlers.NewTorrentsHandler(s.deps.Store, s.deps.Upstream).Routes(r)
		handlers.NewStatsHandler(s.deps.Store).Routes(r)
		handlers.NewMirrorsHandler(s.deps.Mirrors).Routes(r)
	})

	if s.deps.Metrics != nil && s.deps.Config.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))
	}

	return r
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.deps.Config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
