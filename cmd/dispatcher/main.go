/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/dispatcher"
	"wallet-ledger-go/internal/formance"
	"wallet-ledger-go/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type closer interface{ Close() }

// buildSinks wires the broker publisher and, when configured, the Formance
// mirror. A broker that cannot be reached at startup degrades to the
// fallback publisher so the outbox keeps draining for the mirror.
func buildSinks(ctx context.Context, cfg *models.Config) ([]dispatcher.Sink, []closer) {
	var sinks []dispatcher.Sink
	var closers []closer

	if cfg.Broker.Url == "" {
		zap.L().Warn("AMQP_URL not set, using fallback publisher")
		sinks = append(sinks, dispatcher.FallbackPublisher{})
	} else if pub, err := dispatcher.NewPublisher(cfg.Broker.Url, cfg.Broker.Exchange); err != nil {
		zap.L().Error("Broker unavailable, using fallback publisher", zap.Error(err))
		sinks = append(sinks, dispatcher.FallbackPublisher{})
	} else {
		sinks = append(sinks, pub)
		closers = append(closers, pub)
	}

	if cfg.Formance.Enabled() {
		mirror, err := formance.NewMirror(ctx, cfg.Formance)
		if err != nil {
			zap.L().Fatal("Failed to initialize Formance mirror", zap.Error(err))
		}
		sinks = append(sinks, mirror)
		closers = append(closers, mirror)
	}
	return sinks, closers
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("Metrics server stopped", zap.Error(err))
		}
	}()
	zap.L().Info("Serving metrics", zap.String("addr", addr))
	return srv
}

func main() {
	onceFlag := flag.Bool("once", false, "Relay one batch and exit")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting outbox dispatcher")

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	sinks, closers := buildSinks(ctx, cfg)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	d := dispatcher.NewDispatcher(dispatcher.Config{
		Store:           dbService,
		Sinks:           sinks,
		PollingInterval: cfg.Dispatcher.PollingInterval,
		CleanupInterval: cfg.Dispatcher.CleanupInterval,
		Retention:       cfg.Dispatcher.Retention,
		BatchSize:       cfg.Dispatcher.BatchSize,
		MaxAttempts:     cfg.Dispatcher.MaxAttempts,
	})

	if *onceFlag {
		stats, err := d.RelayOnce(ctx)
		if err != nil {
			zap.L().Fatal("Relay failed", zap.Error(err))
		}
		common.PrintSuccess("Relayed %d events (%d failed)", stats.Dispatched, stats.Failed)
		return
	}

	metricsServer := serveMetrics(cfg.Metrics.Addr)

	if err := d.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start dispatcher", zap.Error(err))
	}
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping dispatcher...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Dispatcher stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Metrics server shutdown failed", zap.Error(err))
	}
}
