package database

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger-go/internal/models"
)

// PendingOutbox returns undispatched events in insertion order, skipping
// events that have already failed maxAttempts times.
func (s *Service) PendingOutbox(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	rows, err := s.query(ctx, s.db, queryPendingOutbox, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var out []models.OutboxEvent
	for rows.Next() {
		var ev models.OutboxEvent
		var payload string
		if err := rows.Scan(&ev.Id, &ev.TransactionId, &ev.EventType, &payload, &ev.Attempts, &ev.LastError, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		ev.Payload = []byte(payload)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Service) MarkDispatched(ctx context.Context, id int64, at time.Time) error {
	if _, err := s.exec(ctx, s.db, queryMarkDispatched, at.UTC(), id); err != nil {
		return fmt.Errorf("failed to mark outbox event %d dispatched: %w", id, err)
	}
	return nil
}

func (s *Service) MarkDispatchFailed(ctx context.Context, id int64, reason string) error {
	if _, err := s.exec(ctx, s.db, queryMarkDispatchFailed, reason, id); err != nil {
		return fmt.Errorf("failed to record outbox failure %d: %w", id, err)
	}
	return nil
}

// PurgeDispatched deletes dispatched events older than before.
func (s *Service) PurgeDispatched(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.exec(ctx, s.db, queryPurgeDispatched, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge outbox: %w", err)
	}
	return result.RowsAffected()
}
