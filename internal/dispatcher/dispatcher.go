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

package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wallet-ledger-go/internal/metrics"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Config contains configuration for Dispatcher
type Config struct {
	Store           store.OutboxStore
	Sinks           []Sink
	PollingInterval time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
	BatchSize       int
	MaxAttempts     int
	Clock           func() time.Time
}

// Dispatcher relays committed outbox rows to the broker and the ledger
// mirror. Rows are marked dispatched only after every sink accepted them.
type Dispatcher struct {
	store store.OutboxStore
	sinks []Sink

	pollingInterval time.Duration
	cleanupInterval time.Duration
	retention       time.Duration
	batchSize       int
	maxAttempts     int
	now             func() time.Time

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
}

// Stats summarises one relay pass.
type Stats struct {
	Dispatched int
	Failed     int
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Dispatcher{
		store:           cfg.Store,
		sinks:           cfg.Sinks,
		pollingInterval: cfg.PollingInterval,
		cleanupInterval: cfg.CleanupInterval,
		retention:       cfg.Retention,
		batchSize:       cfg.BatchSize,
		maxAttempts:     cfg.MaxAttempts,
		now:             cfg.Clock,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start launches the relay and cleanup loops.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.pollingInterval <= 0 {
		return fmt.Errorf("polling interval must be positive")
	}
	if len(d.sinks) == 0 {
		return fmt.Errorf("no sinks configured")
	}

	go d.pollLoop(ctx)
	if d.cleanupInterval > 0 && d.retention > 0 {
		go d.cleanupLoop(ctx)
	}

	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	zap.L().Info("Outbox dispatcher started",
		zap.Duration("polling_interval", d.pollingInterval),
		zap.Int("batch_size", d.batchSize),
		zap.Strings("sinks", names))
	return nil
}

// Stop gracefully stops the dispatcher, waiting for the current batch.
func (d *Dispatcher) Stop() {
	zap.L().Info("Stopping outbox dispatcher")
	close(d.stopChan)
	<-d.doneChan
	zap.L().Info("Outbox dispatcher stopped")
}

func (d *Dispatcher) pollLoop(ctx context.Context) {
	defer close(d.doneChan)

	ticker := time.NewTicker(d.pollingInterval)
	defer ticker.Stop()

	d.drain(ctx)

	for {
		select {
		case <-ticker.C:
			d.drain(ctx)
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain relays full batches back to back so a backlog clears within one tick.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		stats, err := d.RelayOnce(ctx)
		if err != nil {
			zap.L().Error("Outbox relay failed", zap.Error(err))
			return
		}
		if stats.Dispatched > 0 || stats.Failed > 0 {
			zap.L().Info("Outbox batch relayed",
				zap.Int("dispatched", stats.Dispatched),
				zap.Int("failed", stats.Failed))
		}
		if stats.Failed > 0 || stats.Dispatched < d.batchSize {
			return
		}
		select {
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

// RelayOnce relays one batch of pending events in insertion order.
func (d *Dispatcher) RelayOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	events, err := d.store.PendingOutbox(ctx, d.batchSize, d.maxAttempts)
	if err != nil {
		return stats, fmt.Errorf("failed to load pending outbox: %w", err)
	}

	for _, row := range events {
		if err := d.relay(ctx, row); err != nil {
			stats.Failed++
			zap.L().Warn("Outbox event not relayed",
				zap.Int64("outbox_id", row.Id),
				zap.String("transaction_id", row.TransactionId),
				zap.Int("attempt", row.Attempts+1),
				zap.Error(err))
			if markErr := d.store.MarkDispatchFailed(ctx, row.Id, err.Error()); markErr != nil {
				return stats, markErr
			}
			continue
		}
		if err := d.store.MarkDispatched(ctx, row.Id, d.now().UTC()); err != nil {
			return stats, err
		}
		metrics.OutboxDispatched()
		stats.Dispatched++
	}
	return stats, nil
}

// relay hands row to every sink. All sinks are tried even after a failure
// so a broker outage does not also stall the mirror.
func (d *Dispatcher) relay(ctx context.Context, row models.OutboxEvent) error {
	var event models.TransactionEvent
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		metrics.OutboxFailed("decode")
		return fmt.Errorf("undecodable payload: %w", err)
	}

	var failures []string
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			metrics.OutboxFailed(sink.Name())
			failures = append(failures, fmt.Sprintf("%s: %v", sink.Name(), err))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("%s", strings.Join(failures, "; "))
	}
	return nil
}

// cleanupLoop periodically purges dispatched rows past the retention window
func (d *Dispatcher) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.purge(ctx)
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) purge(ctx context.Context) {
	cutoff := d.now().UTC().Add(-d.retention)
	n, err := d.store.PurgeDispatched(ctx, cutoff)
	if err != nil {
		zap.L().Error("Failed to purge dispatched outbox rows", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Debug("Purged dispatched outbox rows",
			zap.Int64("purged", n),
			zap.Time("before", cutoff))
	}
}
