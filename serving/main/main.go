// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/featureform/historical/config"
	"github.com/featureform/historical/helpers/etcd"
	"github.com/featureform/historical/logging"
	"github.com/featureform/historical/metadata"
	"github.com/featureform/historical/metrics"
	"github.com/featureform/historical/provider"
	"github.com/featureform/historical/retrieval"
	"github.com/featureform/historical/serving"
)

func newRegistry(cfg *config.Config, logger logging.Logger) (metadata.Registry, func(), error) {
	switch cfg.Registry {
	case config.EtcdRegistry:
		client, err := etcd.NewClient(cfg.Etcd)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("Using etcd registry", "etcd", cfg.Etcd.Redacted(), "prefix", cfg.RegistryPrefix)
		return metadata.NewEtcdRegistry(client, cfg.RegistryPrefix), func() { client.Close() }, nil
	case config.MemoryRegistry:
		logger.Warnw("Using an empty in-memory registry")
		registry, err := metadata.NewMemoryRegistry()
		return registry, func() {}, err
	default:
		logger.Infow("Using file registry", "path", cfg.RegistryPath)
		return metadata.NewFileRegistry(cfg.RegistryPath), func() {}, nil
	}
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	var logger logging.Logger
	if cfg.Production {
		logger = logging.NewProductionLogger("historical-serving", cfg.LogLevel)
	} else {
		logger = logging.NewLogger("historical-serving")
	}
	logging.GlobalLogger = logger
	logger.Infow("Loaded configuration", "config", cfg.Redacted())

	registry, closeRegistry, err := newRegistry(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to create registry", "err", err)
	}
	defer closeRegistry()

	promMetrics, err := metrics.NewMetrics("historical", nil)
	if err != nil {
		logger.Fatalw("Failed to register metrics", "err", err)
	}

	store := retrieval.NewOfflineStore(registry, provider.EnvCredentials{}, retrieval.Config{
		MaxConcurrentReads:    cfg.MaxConcurrentReads,
		JoinWorkers:           cfg.JoinWorkers,
		EntityTimestampColumn: cfg.EntityTimestampColumn,
	}, retrieval.WithMetrics(promMetrics))
	server := serving.NewServer(store, logger, serving.WithRequestTimeout(cfg.RequestTimeout))

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promMetrics.Handler())
	metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux}
	apiServer := &http.Server{Addr: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port), Handler: server.Router()}

	go func() {
		logger.Infow("Serving metrics", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("Metrics server failed", "err", err)
		}
	}()
	go func() {
		logger.Infow("Server starting", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Serve failed with error", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Failed to shut down server", "err", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Failed to shut down metrics server", "err", err)
	}
}
