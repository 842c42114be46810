package sqlite

import (
	"context"
	"fmt"
	"time"
)

// UpdateFields applies a partial update to the shared node at path.
// A nil value deletes the field. All fields change in one transaction.
func (s *SQLiteStore) UpdateFields(ctx context.Context, path string, fields map[string]*string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for key, value := range fields {
		if value == nil {
			_, err = tx.ExecContext(ctx,
				"DELETE FROM shared_fields WHERE path = ? AND field_key = ?",
				path, key,
			)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO shared_fields (path, field_key, value, updated_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT(path, field_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				path, key, *value, now,
			)
		}
		if err != nil {
			return fmt.Errorf("failed to update %s/%s: %w", path, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetFields returns every field stored at path.
func (s *SQLiteStore) GetFields(ctx context.Context, path string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT field_key, value FROM shared_fields WHERE path = ?", path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan shared field: %w", err)
		}
		fields[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shared fields: %w", err)
	}
	return fields, nil
}
