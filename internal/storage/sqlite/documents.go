package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/emergencyclick/internal/models"
)

// CreateUserRecord writes the profile fields of a user's document.
func (s *SQLiteStore) CreateUserRecord(ctx context.Context, email, username string) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (email, username, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET username = excluded.username, updated_at = excluded.updated_at`,
		email, username, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetUserRecord reads a user's document with its emails mapping in
// insertion order.
func (s *SQLiteStore) GetUserRecord(ctx context.Context, email string) (*models.UserRecord, error) {
	record := &models.UserRecord{}
	err := s.db.QueryRowContext(ctx,
		"SELECT email, username FROM documents WHERE email = ?", email,
	).Scan(&record.Email, &record.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT field_key, email FROM document_emails WHERE doc_email = ? ORDER BY seq",
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get document emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.ContactEntry
		if err := rows.Scan(&entry.Key, &entry.Email); err != nil {
			return nil, fmt.Errorf("failed to scan document email: %w", err)
		}
		record.Emails = append(record.Emails, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document emails: %w", err)
	}

	return record, nil
}

// SetContactField upserts emails.<key>. The document is created if absent;
// an existing key keeps its position.
func (s *SQLiteStore) SetContactField(ctx context.Context, userEmail, key, email string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchDocument(ctx, tx, userEmail); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO document_emails (doc_email, field_key, email, seq)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM document_emails WHERE doc_email = ?))
		 ON CONFLICT(doc_email, field_key) DO UPDATE SET email = excluded.email`,
		userEmail, key, email, userEmail,
	)
	if err != nil {
		return fmt.Errorf("failed to set emails.%s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteContactField removes emails.<key>, leaving sibling keys alone.
// The document itself is created if absent, as a field update would.
func (s *SQLiteStore) DeleteContactField(ctx context.Context, userEmail, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchDocument(ctx, tx, userEmail); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM document_emails WHERE doc_email = ? AND field_key = ?",
		userEmail, key,
	); err != nil {
		return fmt.Errorf("failed to delete emails.%s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// touchDocument creates the document row if needed and bumps updated_at.
func touchDocument(ctx context.Context, tx *sql.Tx, email string) error {
	now := time.Now().Unix()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO documents (email, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET updated_at = excluded.updated_at`,
		email, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}
