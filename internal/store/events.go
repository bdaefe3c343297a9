package store

import (
	"cgd/internal/models"
	"context"
	"fmt"
	"time"
)

type EventRepositoryInterface interface {
	InsertBatch(ctx context.Context, events []models.StoredEvent) error
	PruneBefore(ctx context.Context, cutoff time.Time) ([]models.StoredEvent, error)
	Count(ctx context.Context) (int64, error)
}

type EventRepository struct {
	store *Store
}

func NewEventRepository(store *Store) EventRepositoryInterface {
	return &EventRepository{store: store}
}

// InsertBatch writes admitted events in one transaction.
func (r *EventRepository) InsertBatch(ctx context.Context, events []models.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events(site_id, device_id, type, purpose, url, referrer,
		                   ua, ip_truncated, ts, payload, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, event := range events {
		var payload any
		if len(event.Payload) > 0 {
			payload = string(event.Payload)
		}
		_, err := stmt.ExecContext(ctx,
			event.SiteID, event.DeviceID, event.Type, nullable(event.Purpose),
			nullable(event.URL), nullable(event.Referrer), nullable(event.UA),
			nullable(event.IPTruncated), formatTime(event.TS), payload, now)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PruneBefore removes events created before the cutoff and returns the
// removed rows so the archiver can spill them to cold storage.
func (r *EventRepository) PruneBefore(ctx context.Context, cutoff time.Time) ([]models.StoredEvent, error) {
	boundary := formatTime(cutoff)

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, site_id, device_id, type, COALESCE(purpose, ''),
		       COALESCE(url, ''), COALESCE(referrer, ''), COALESCE(ua, ''),
		       COALESCE(ip_truncated, ''), ts, COALESCE(payload, ''), created_at
		FROM events WHERE created_at < ? ORDER BY id`, boundary)
	if err != nil {
		return nil, fmt.Errorf("failed to select expired events: %w", err)
	}
	defer rows.Close()

	var pruned []models.StoredEvent
	for rows.Next() {
		var event models.StoredEvent
		var ts, payload, createdAt string
		err := rows.Scan(&event.ID, &event.SiteID, &event.DeviceID, &event.Type,
			&event.Purpose, &event.URL, &event.Referrer, &event.UA,
			&event.IPTruncated, &ts, &payload, &createdAt)
		if err != nil {
			return nil, err
		}
		event.TS = parseTime(ts)
		event.CreatedAt = parseTime(createdAt)
		if payload != "" {
			event.Payload = []byte(payload)
		}
		pruned = append(pruned, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pruned) == 0 {
		return nil, nil
	}

	if _, err := r.store.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, boundary); err != nil {
		return nil, fmt.Errorf("failed to delete expired events: %w", err)
	}
	return pruned, nil
}

func (r *EventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}
