package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements are idempotent and run in order at startup
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS content_index (
		kind         VARCHAR(16) NOT NULL,
		entity_id    BIGINT      NOT NULL,
		payload      TEXT        NOT NULL,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (kind, entity_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id              UUID PRIMARY KEY,
		session_id      VARCHAR(50) NOT NULL,
		user_id         TEXT,
		message         TEXT        NOT NULL,
		response        TEXT        NOT NULL,
		recommendations TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_session_created
		ON conversations (session_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_created
		ON conversations (created_at)`,
}

// EnsureSchema creates the tables the service needs if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}
