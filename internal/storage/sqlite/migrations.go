package sqlite

import "database/sql"

// schema sets up the database. It runs on startup to ensure tables exist.
//
// documents and document_emails model the "users" collection: one row per
// user document, and one row per field of its emails mapping. seq keeps
// field insertion order; an upsert of an existing field keeps its seq.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    username TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
    email TEXT PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS document_emails (
    doc_email TEXT NOT NULL,
    field_key TEXT NOT NULL,
    email TEXT NOT NULL,
    seq INTEGER NOT NULL,
    PRIMARY KEY (doc_email, field_key),
    FOREIGN KEY (doc_email) REFERENCES documents(email) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS shared_fields (
    path TEXT NOT NULL,
    field_key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (path, field_key)
);

CREATE TABLE IF NOT EXISTS clicks (
    id TEXT PRIMARY KEY,
    user_email TEXT NOT NULL,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    captured_at TEXT NOT NULL,
    captured_unix INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_document_emails_seq ON document_emails(doc_email, seq);
CREATE INDEX IF NOT EXISTS idx_clicks_user ON clicks(user_email, captured_unix);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
