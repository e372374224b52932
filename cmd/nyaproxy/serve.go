// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autobrr/nyaproxy/internal/api"
	"github.com/autobrr/nyaproxy/internal/buildinfo"
	"github.com/autobrr/nyaproxy/internal/config"
	"github.com/autobrr/nyaproxy/internal/database"
	"github.com/autobrr/nyaproxy/internal/diskcache"
	"github.com/autobrr/nyaproxy/internal/domain"
	"github.com/autobrr/nyaproxy/internal/fetcher"
	"github.com/autobrr/nyaproxy/internal/ingest"
	"github.com/autobrr/nyaproxy/internal/mirror"
	"github.com/autobrr/nyaproxy/internal/ratelimit"
	"github.com/autobrr/nyaproxy/internal/store"
	"github.com/autobrr/nyaproxy/internal/tracker"
)

func RunServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proxy server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appConfig, err := config.New(configPath, buildinfo.Version)
			if err != nil {
				return err
			}
			cfg := appConfig.Config

			setupLogger(cfg)
			log.Info().Str("version", buildinfo.Version).Msg("starting nyaproxy")

			return serve(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file or directory")

	return cmd
}

func setupLogger(cfg *domain.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writer io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if cfg.LogPath != "" {
		writer = zerolog.MultiLevelWriter(writer, &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
		})
	}
	log.Logger = log.Output(writer)
}

func serve(cmd *cobra.Command, cfg *domain.Config) error {
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	itemStore, err := store.NewItemStore(db)
	if err != nil {
		return err
	}
	requestTracker, err := tracker.New(db)
	if err != nil {
		return err
	}

	cache, err := diskcache.New(cfg.CacheDir, uint64(cfg.CacheSize))
	if err != nil {
		return err
	}
	limiter := ratelimit.New(cfg.WindowRequests, time.Duration(cfg.WindowSeconds)*time.Second)

	registry := prometheus.NewRegistry()
	metrics := fetcher.NewMetrics(registry)

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = buildinfo.UserAgent
	}

	coordinator, err := fetcher.New(fetcher.Config{
		URL:            cfg.URL,
		UserAgent:      userAgent,
		MinInterval:    cfg.MinInterval(),
		MaxRetries:     cfg.MaxRetries,
		ConnectTimeout: time.Duration(cfg.ConnectTimeout) * time.Second,
		Timeout:        time.Duration(cfg.Timeout) * time.Second,
		LocalAddress:   cfg.LocalAddress,
		Interface:      cfg.Interface,
		ListTTL:        time.Duration(cfg.ListTTL) * time.Second,
		ViewTTL:        time.Duration(cfg.ViewTTL) * time.Second,
		DownloadTTL:    time.Duration(cfg.DownloadTTL) * time.Second,
	}, cache, limiter, requestTracker, itemStore, metrics)
	if err != nil {
		return err
	}

	mirrors, err := mirror.NewRegistry(cfg, requestTracker, metrics)
	if err != nil {
		return err
	}

	server := api.NewServer(&api.Dependencies{
		Config:   cfg,
		Store:    itemStore,
		Upstream: coordinator,
		Mirrors:  mirrors,
		Metrics:  registry,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Serve(ctx)
	})
	g.Go(func() error {
		ingester := ingest.New(coordinator, itemStore,
			time.Duration(cfg.UpdateInterval)*time.Second, domain.ListQuery{})
		ingester.Run(ctx)
		return nil
	})

	err = g.Wait()
	log.Info().Msg("nyaproxy stopped")
	return err
}
