package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// CreateChannel inserts a new notification channel.
func (d *DB) CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error) {
	query := `
	INSERT INTO notification_channel (name, channel_type, config, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, NOW(), NOW())
	RETURNING id, created_at, updated_at`

	err := d.Pool.QueryRow(ctx, query,
		ch.Name,
		ch.Kind,
		ch.Config,
		ch.Active,
	).Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return models.Channel{}, fmt.Errorf("failed to create channel: %w", err)
	}
	return ch, nil
}

// GetChannel retrieves a channel by ID, active or not.
func (d *DB) GetChannel(ctx context.Context, id int64) (models.Channel, error) {
	query := `
	SELECT id, name, channel_type, config, is_active, created_at, updated_at
	FROM notification_channel
	WHERE id = $1`

	var ch models.Channel
	err := d.Pool.QueryRow(ctx, query, id).Scan(
		&ch.ID, &ch.Name, &ch.Kind, &ch.Config, &ch.Active, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Channel{}, fmt.Errorf("channel %d: %w", id, ErrNotFound)
		}
		return models.Channel{}, fmt.Errorf("failed to get channel %d: %w", id, err)
	}
	return ch, nil
}

// ListChannels returns all channels, newest first.
func (d *DB) ListChannels(ctx context.Context) ([]models.Channel, error) {
	query := `
	SELECT id, name, channel_type, config, is_active, created_at, updated_at
	FROM notification_channel
	ORDER BY created_at DESC`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Kind, &ch.Config, &ch.Active, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// UpdateChannel updates an existing channel.
func (d *DB) UpdateChannel(ctx context.Context, ch models.Channel) error {
	query := `
	UPDATE notification_channel
	SET name = $1,
	    channel_type = $2,
	    config = $3,
	    is_active = $4,
	    updated_at = NOW()
	WHERE id = $5`

	tag, err := d.Pool.Exec(ctx, query, ch.Name, ch.Kind, ch.Config, ch.Active, ch.ID)
	if err != nil {
		return fmt.Errorf("failed to update channel %d: %w", ch.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %d: %w", ch.ID, ErrNotFound)
	}
	return nil
}

// DeleteChannel marks a channel inactive (soft delete).
func (d *DB) DeleteChannel(ctx context.Context, id int64) error {
	query := `
	UPDATE notification_channel
	SET is_active = false, updated_at = NOW()
	WHERE id = $1`

	tag, err := d.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete channel %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %d: %w", id, ErrNotFound)
	}
	return nil
}
