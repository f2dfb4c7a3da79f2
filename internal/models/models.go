package models

import (
	"time"
)

// Document statuses. Transitions run forward only:
// uploaded -> processing -> processed, with a side exit to failed from any
// non-terminal state. processed and failed are terminal.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents a user-uploaded document.
type Document struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	OriginalName string    `db:"original_name" json:"original_name"`
	FileName     string    `db:"file_name" json:"file_name"`
	FilePath     string    `db:"file_path" json:"file_path"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentChunk represents one text chunk from a document.
// Embedding is nil until the embedding sweep fills it in; a chunk whose
// embedding permanently fails stays nil.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	ChunkIndex int       `db:"chunk_index" json:"chunk_index"`
	Content    string    `db:"content" json:"content"`
	Embedding  []float32 `db:"embedding" json:"embedding"` // pgvector column
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
