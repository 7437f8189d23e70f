package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// GetDevices returns the active devices registered by a user on a
// platform.
func (d *DB) GetDevices(ctx context.Context, userID string, platform models.PlatformKind) ([]models.Device, error) {
	query := `
	SELECT id, device_token, platform_type, user_id, is_active, last_used, created_at, updated_at
	FROM device_registration
	WHERE user_id = $1 AND platform_type = $2 AND is_active = true`

	rows, err := d.Pool.Query(ctx, query, userID, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices for user %s: %w", userID, err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var dev models.Device
		if err := rows.Scan(&dev.ID, &dev.Token, &dev.Platform, &dev.UserID, &dev.Active, &dev.LastUsedAt, &dev.CreatedAt, &dev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, dev)
	}
	return devices, rows.Err()
}

// UpsertDevice registers a device or, when the token is already known,
// reactivates and updates the existing row. Idempotent by token. The
// returned flag reports whether a new row was created.
func (d *DB) UpsertDevice(ctx context.Context, token string, platform models.PlatformKind, userID string) (models.Device, bool, error) {
	var dev models.Device

	// Check for an existing registration first; tokens are unique.
	lookup := `
	SELECT id FROM device_registration WHERE device_token = $1`
	err := d.Pool.QueryRow(ctx, lookup, token).Scan(&dev.ID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		insert := `
		INSERT INTO device_registration (device_token, platform_type, user_id, is_active, last_used, created_at, updated_at)
		VALUES ($1, $2, $3, true, NOW(), NOW(), NOW())
		RETURNING id, device_token, platform_type, user_id, is_active, last_used, created_at, updated_at`
		err := d.Pool.QueryRow(ctx, insert, token, platform, userID).Scan(
			&dev.ID, &dev.Token, &dev.Platform, &dev.UserID, &dev.Active, &dev.LastUsedAt, &dev.CreatedAt, &dev.UpdatedAt,
		)
		if err != nil {
			return models.Device{}, false, fmt.Errorf("failed to register device: %w", err)
		}
		return dev, true, nil
	case err != nil:
		return models.Device{}, false, fmt.Errorf("failed to look up device: %w", err)
	}

	update := `
	UPDATE device_registration
	SET platform_type = $1, user_id = $2, is_active = true, last_used = NOW(), updated_at = NOW()
	WHERE id = $3
	RETURNING id, device_token, platform_type, user_id, is_active, last_used, created_at, updated_at`
	err = d.Pool.QueryRow(ctx, update, platform, userID, dev.ID).Scan(
		&dev.ID, &dev.Token, &dev.Platform, &dev.UserID, &dev.Active, &dev.LastUsedAt, &dev.CreatedAt, &dev.UpdatedAt,
	)
	if err != nil {
		return models.Device{}, false, fmt.Errorf("failed to update device: %w", err)
	}
	return dev, false, nil
}

// DeactivateDevice soft-deletes a registration by token.
func (d *DB) DeactivateDevice(ctx context.Context, token string) error {
	query := `
	UPDATE device_registration
	SET is_active = false, updated_at = NOW()
	WHERE device_token = $1`

	tag, err := d.Pool.Exec(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to deactivate device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("device token: %w", ErrNotFound)
	}
	return nil
}
