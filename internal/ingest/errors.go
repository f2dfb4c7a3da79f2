package ingest

import (
	"errors"
	"fmt"
)

// ErrInvalidChunkConfig reports a size/overlap misconfiguration. It is a
// programmer error, not retryable: the worker refuses to start with it.
var ErrInvalidChunkConfig = errors.New("invalid chunk config")

// ExtractionError means the source bytes were unreadable or unparsable.
// It is fatal for the job and propagates to the queue for retry.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceError means a database write or read failed. Fatal for the job.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// EmbeddingError is a per-chunk failure. The sweep logs it and moves on;
// it never aborts the job.
type EmbeddingError struct {
	ChunkID string
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed chunk %s: %v", e.ChunkID, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
