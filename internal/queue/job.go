package queue

import "time"

// Job is the unit of queued ingestion work. The producer fills DocumentID and
// FilePath; Attempts counts handler invocations that have already failed and
// is owned by the queue.
type Job struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	FilePath   string    `json:"file_path"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
