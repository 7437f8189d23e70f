package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// GetSubscriptions returns the active subscriptions matching a DAG and
// event type exactly, each joined with its channel when that channel is
// active. Order is unspecified; callers process rows independently.
func (d *DB) GetSubscriptions(ctx context.Context, dagID string, event models.EventType) ([]models.Subscription, error) {
	query := `
	SELECT
		s.id, s.user_id, s.dag_id, s.event_type, s.channel_id, s.is_active, s.created_at, s.updated_at,
		c.id, c.name, c.channel_type, c.config, c.is_active, c.created_at, c.updated_at
	FROM dag_subscription s
	LEFT JOIN notification_channel c
	  ON s.channel_id = c.id AND c.is_active = true
	WHERE s.dag_id = $1 AND s.event_type = $2 AND s.is_active = true`

	rows, err := d.Pool.Query(ctx, query, dagID, event)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions for %s/%s: %w", dagID, event, err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		var chID sql.NullInt64
		var chName, chKind, chConfig sql.NullString
		var chActive sql.NullBool
		var chCreated, chUpdated sql.NullTime

		err := rows.Scan(
			&s.ID, &s.UserID, &s.DagID, &s.EventType, &s.ChannelID, &s.Active, &s.CreatedAt, &s.UpdatedAt,
			&chID, &chName, &chKind, &chConfig, &chActive, &chCreated, &chUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}

		// Populate joined channel only when present and active
		if chID.Valid {
			s.Channel = &models.Channel{
				ID:        chID.Int64,
				Name:      chName.String,
				Kind:      models.ChannelKind(chKind.String),
				Config:    chConfig.String,
				Active:    chActive.Bool,
				CreatedAt: chCreated.Time,
				UpdatedAt: chUpdated.Time,
			}
		}

		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// CreateSubscription inserts a new subscription.
func (d *DB) CreateSubscription(ctx context.Context, s models.Subscription) (models.Subscription, error) {
	query := `
	INSERT INTO dag_subscription (user_id, dag_id, event_type, channel_id, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	RETURNING id, created_at, updated_at`

	err := d.Pool.QueryRow(ctx, query,
		s.UserID,
		s.DagID,
		s.EventType,
		s.ChannelID,
		s.Active,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("failed to create subscription: %w", err)
	}
	return s, nil
}

// GetSubscription retrieves a subscription by ID.
func (d *DB) GetSubscription(ctx context.Context, id int64) (models.Subscription, error) {
	query := `
	SELECT id, user_id, dag_id, event_type, channel_id, is_active, created_at, updated_at
	FROM dag_subscription
	WHERE id = $1`

	var s models.Subscription
	err := d.Pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.DagID, &s.EventType, &s.ChannelID, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Subscription{}, fmt.Errorf("subscription %d: %w", id, ErrNotFound)
		}
		return models.Subscription{}, fmt.Errorf("failed to get subscription %d: %w", id, err)
	}
	return s, nil
}

// GetSubscriptionsByUser returns all active subscriptions owned by a user.
func (d *DB) GetSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error) {
	query := `
	SELECT id, user_id, dag_id, event_type, channel_id, is_active, created_at, updated_at
	FROM dag_subscription
	WHERE user_id = $1 AND is_active = true
	ORDER BY created_at DESC`

	rows, err := d.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.DagID, &s.EventType, &s.ChannelID, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// UpdateSubscription updates an existing subscription.
func (d *DB) UpdateSubscription(ctx context.Context, s models.Subscription) error {
	query := `
	UPDATE dag_subscription
	SET user_id = $1,
	    dag_id = $2,
	    event_type = $3,
	    channel_id = $4,
	    is_active = $5,
	    updated_at = NOW()
	WHERE id = $6`

	tag, err := d.Pool.Exec(ctx, query, s.UserID, s.DagID, s.EventType, s.ChannelID, s.Active, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update subscription %d: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %d: %w", s.ID, ErrNotFound)
	}
	return nil
}

// DeleteSubscription marks a subscription inactive (soft delete).
func (d *DB) DeleteSubscription(ctx context.Context, id int64) error {
	query := `
	UPDATE dag_subscription
	SET is_active = false, updated_at = NOW()
	WHERE id = $1`

	tag, err := d.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %d: %w", id, ErrNotFound)
	}
	return nil
}
