// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatbot-engine/internal/common/config"

	_ "github.com/lib/pq"
)

// knowledgeSchema holds ingested documents and their embedded chunks.
// Embeddings are plain double precision arrays; ranking happens in process.
const knowledgeSchema = `
CREATE TABLE IF NOT EXISTS knowledge_documents (
	id          UUID PRIMARY KEY,
	bot_id      TEXT NOT NULL,
	source      TEXT NOT NULL,
	filename    TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_knowledge_documents_bot ON knowledge_documents (bot_id);

CREATE TABLE IF NOT EXISTS knowledge_chunks (
	document_id UUID NOT NULL REFERENCES knowledge_documents (id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	text        TEXT NOT NULL,
	embedding   DOUBLE PRECISION[] NOT NULL,
	PRIMARY KEY (document_id, chunk_index)
);`

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Migrate creates the knowledge base tables if they are missing.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, knowledgeSchema); err != nil {
		return fmt.Errorf("failed to migrate knowledge schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
