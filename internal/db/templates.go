package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// GetTemplate returns the active template for an event type, preferring
// a kind-specific row over an any-channel (NULL kind) row. ErrNotFound
// means the caller should fall back to the built-in default for the
// event type.
func (d *DB) GetTemplate(ctx context.Context, event models.EventType, kind models.ChannelKind) (models.Template, error) {
	query := `
	SELECT id, name, event_type, channel_type, template_content, description, is_active, created_at, updated_at
	FROM notification_template
	WHERE event_type = $1 AND (channel_type = $2 OR channel_type IS NULL) AND is_active = true
	ORDER BY channel_type NULLS LAST
	LIMIT 1`

	t, err := scanTemplate(d.Pool.QueryRow(ctx, query, event, kind))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Template{}, fmt.Errorf("template for %s/%s: %w", event, kind, ErrNotFound)
		}
		return models.Template{}, fmt.Errorf("failed to get template for %s/%s: %w", event, kind, err)
	}
	return t, nil
}

// CreateTemplate inserts a new template. An empty Kind is stored as NULL
// and means "any channel".
func (d *DB) CreateTemplate(ctx context.Context, t models.Template) (models.Template, error) {
	query := `
	INSERT INTO notification_template (name, event_type, channel_type, template_content, description, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	RETURNING id, created_at, updated_at`

	err := d.Pool.QueryRow(ctx, query,
		t.Name,
		t.EventType,
		nullableKind(t.Kind),
		t.Body,
		t.Description,
		t.Active,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Template{}, fmt.Errorf("failed to create template: %w", err)
	}
	return t, nil
}

// GetTemplateByID retrieves a template by ID.
func (d *DB) GetTemplateByID(ctx context.Context, id int64) (models.Template, error) {
	query := `
	SELECT id, name, event_type, channel_type, template_content, description, is_active, created_at, updated_at
	FROM notification_template
	WHERE id = $1`

	t, err := scanTemplate(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Template{}, fmt.Errorf("template %d: %w", id, ErrNotFound)
		}
		return models.Template{}, fmt.Errorf("failed to get template %d: %w", id, err)
	}
	return t, nil
}

// ListTemplates returns all templates, newest first.
func (d *DB) ListTemplates(ctx context.Context) ([]models.Template, error) {
	query := `
	SELECT id, name, event_type, channel_type, template_content, description, is_active, created_at, updated_at
	FROM notification_template
	ORDER BY created_at DESC`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// UpdateTemplate updates an existing template.
func (d *DB) UpdateTemplate(ctx context.Context, t models.Template) error {
	query := `
	UPDATE notification_template
	SET name = $1,
	    event_type = $2,
	    channel_type = $3,
	    template_content = $4,
	    description = $5,
	    is_active = $6,
	    updated_at = NOW()
	WHERE id = $7`

	tag, err := d.Pool.Exec(ctx, query, t.Name, t.EventType, nullableKind(t.Kind), t.Body, t.Description, t.Active, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update template %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("template %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTemplate marks a template inactive (soft delete).
func (d *DB) DeleteTemplate(ctx context.Context, id int64) error {
	query := `
	UPDATE notification_template
	SET is_active = false, updated_at = NOW()
	WHERE id = $1`

	tag, err := d.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete template %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("template %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanTemplate(row pgx.Row) (models.Template, error) {
	var t models.Template
	var kind sql.NullString
	err := row.Scan(
		&t.ID, &t.Name, &t.EventType, &kind, &t.Body, &t.Description, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return models.Template{}, err
	}
	if kind.Valid {
		t.Kind = models.ChannelKind(kind.String)
	}
	return t, nil
}

func nullableKind(kind models.ChannelKind) any {
	if kind == "" {
		return nil
	}
	return string(kind)
}
