package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/emergencyclick/internal/models"
)

// CreateClick persists an emergency click, generating its ID if unset.
func (s *SQLiteStore) CreateClick(ctx context.Context, click *models.Click) error {
	if click.ID == "" {
		click.ID = uuid.New().String()
	}
	if click.CapturedAt.IsZero() {
		click.CapturedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clicks (id, user_email, latitude, longitude, captured_at, captured_unix)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		click.ID, click.UserEmail, click.Latitude, click.Longitude,
		click.CapturedAt.Format(time.RFC3339Nano), click.CapturedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}
	return nil
}

// ListClicks returns a user's most recent clicks first.
func (s *SQLiteStore) ListClicks(ctx context.Context, userEmail string, limit int) ([]*models.Click, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_email, latitude, longitude, captured_at FROM clicks
		 WHERE user_email = ? ORDER BY captured_unix DESC LIMIT ?`,
		userEmail, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	var clicks []*models.Click
	for rows.Next() {
		click := &models.Click{}
		var captured string
		if err := rows.Scan(&click.ID, &click.UserEmail, &click.Latitude, &click.Longitude, &captured); err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		click.CapturedAt, err = time.Parse(time.RFC3339Nano, captured)
		if err != nil {
			return nil, fmt.Errorf("failed to parse click time: %w", err)
		}
		clicks = append(clicks, click)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clicks: %w", err)
	}
	return clicks, nil
}
