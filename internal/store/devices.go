package store

import (
	"cgd/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type DeviceRepositoryInterface interface {
	Get(ctx context.Context, siteID int64, deviceID string) (*models.Device, error)
	Upsert(ctx context.Context, siteID int64, deviceID string) error
}

type DeviceRepository struct {
	store *Store
}

func NewDeviceRepository(store *Store) DeviceRepositoryInterface {
	return &DeviceRepository{store: store}
}

func (r *DeviceRepository) Get(ctx context.Context, siteID int64, deviceID string) (*models.Device, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT site_id, device_id, first_seen_at, last_seen_at
		FROM devices WHERE site_id = ? AND device_id = ?`, siteID, deviceID)

	var device models.Device
	var firstSeen, lastSeen string
	err := row.Scan(&device.SiteID, &device.DeviceID, &firstSeen, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	device.FirstSeenAt = parseTime(firstSeen)
	device.LastSeenAt = parseTime(lastSeen)
	return &device, nil
}

// Upsert creates the device on first contact and touches last_seen_at on
// every subsequent consent write or accepted telemetry batch.
func (r *DeviceRepository) Upsert(ctx context.Context, siteID int64, deviceID string) error {
	now := formatTime(time.Now())
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO devices(site_id, device_id, first_seen_at, last_seen_at)
		VALUES(?,?,?,?)
		ON CONFLICT(site_id, device_id)
		DO UPDATE SET last_seen_at = excluded.last_seen_at`,
		siteID, deviceID, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}
	return nil
}
