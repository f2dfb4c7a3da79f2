package core

import (
	"context"

	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error)

	// ClaimDocument moves a document into "processing" and reports whether the
	// claim succeeded. A document already in a terminal state is not claimable,
	// which makes redelivered jobs a no-op.
	ClaimDocument(ctx context.Context, id string) (bool, error)
	MarkDocumentProcessed(ctx context.Context, id string) error
	MarkDocumentFailed(ctx context.Context, id string) error

	// ReplaceDocumentChunks atomically replaces all chunks of a document so a
	// retried job never leaves duplicate rows behind.
	ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error
	GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	ListUnembeddedChunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	SetChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error

	SearchDocumentChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.DocumentChunk, error)

	Close() error
}

// FileStore abstracts where uploaded files live (local disk, S3, ...).
// Put returns the path the ingestion job later reads the bytes back from.
type FileStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (path string, err error)
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}
