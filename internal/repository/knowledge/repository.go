// Package knowledge persists ingested documents and their embedded chunks in Postgres.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/models"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveDocument stores a document and all of its chunks in one transaction.
// It assigns an id and upload time when they are unset.
func (r *Repository) SaveDocument(ctx context.Context, doc *models.KnowledgeDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", apperrors.ErrKnowledgeStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO knowledge_documents (id, bot_id, source, filename, content, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.BotID, doc.Source, doc.Filename, doc.Content, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert document: %v", apperrors.ErrKnowledgeStore, err)
	}

	for i := range doc.Chunks {
		c := &doc.Chunks[i]
		c.SourceID = doc.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO knowledge_chunks (document_id, chunk_index, text, embedding)
			VALUES ($1, $2, $3, $4)`,
			doc.ID, c.ChunkIndex, c.Text, pq.Float64Array(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("%w: insert chunk %d: %v", apperrors.ErrKnowledgeStore, c.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", apperrors.ErrKnowledgeStore, err)
	}
	return nil
}

// ChunksForBot returns every stored chunk of a bot, oldest document first.
func (r *Repository) ChunksForBot(ctx context.Context, botID string) ([]models.KnowledgeChunk, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.document_id, d.filename, c.chunk_index, c.text, c.embedding
		FROM knowledge_chunks c
		JOIN knowledge_documents d ON d.id = c.document_id
		WHERE d.bot_id = $1
		ORDER BY d.uploaded_at, c.document_id, c.chunk_index`, botID)
	if err != nil {
		return nil, fmt.Errorf("%w: query chunks: %v", apperrors.ErrKnowledgeStore, err)
	}
	defer rows.Close()

	chunks := []models.KnowledgeChunk{}
	for rows.Next() {
		var (
			c         models.KnowledgeChunk
			embedding pq.Float64Array
		)
		if err := rows.Scan(&c.SourceID, &c.Filename, &c.ChunkIndex, &c.Text, &embedding); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", apperrors.ErrKnowledgeStore, err)
		}
		c.Embedding = []float64(embedding)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate chunks: %v", apperrors.ErrKnowledgeStore, err)
	}
	return chunks, nil
}

// DeleteDocument removes a document; its chunks cascade.
func (r *Repository) DeleteDocument(ctx context.Context, botID, documentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM knowledge_documents WHERE id = $1 AND bot_id = $2`, documentID, botID)
	if err != nil {
		return false, fmt.Errorf("%w: delete document: %v", apperrors.ErrKnowledgeStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: delete document: %v", apperrors.ErrKnowledgeStore, err)
	}
	return n > 0, nil
}
