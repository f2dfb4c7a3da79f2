package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/core"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/logger"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/models"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/queue"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/resilience"
)

// Config tunes the ingestion pipeline.
//
// ChunkSize/ChunkOverlap: chunking window in runes.
// EmbedRPS:               cap on embedding calls per second.
// EmbedRetry:             per-chunk retry policy for the embedding service.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	EmbedRPS     int
	EmbedRetry   resilience.RetryConfig
}

// Worker orchestrates one ingestion job at a time:
// read file -> extract text -> chunk -> persist chunks -> embed -> mark processed.
// It holds no state of its own between jobs; run one Worker per concurrent
// queue consumer.
type Worker struct {
	db        core.DbClient
	files     core.FileStore
	extractor core.DocumentExtractor
	embedder  core.EmbeddingProvider
	cfg       Config
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewWorker validates the chunk configuration up front so a bad size/overlap
// pair fails at startup, not on the first job.
func NewWorker(db core.DbClient, files core.FileStore, extractor core.DocumentExtractor, embedder core.EmbeddingProvider, cfg Config) (*Worker, error) {
	if err := ValidateChunkConfig(cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		return nil, err
	}
	rps := cfg.EmbedRPS
	if rps <= 0 {
		rps = 5
	}
	return &Worker{
		db:        db,
		files:     files,
		extractor: extractor,
		embedder:  embedder,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		logger:    logger.WithComponent("ingest-worker"),
	}, nil
}

// JobResult summarises one processed job for the queue adapter and logs.
type JobResult struct {
	JobID          string
	DocumentID     string
	Claimed        bool
	ChunksInserted int
	ChunksEmbedded int
	ChunksSkipped  int
}

// Process runs the whole pipeline for one delivered job. Errors from
// extraction, chunking or persistence abort the job and propagate to the
// queue's retry machinery; per-chunk embedding failures do not (see EmbedPending).
func (w *Worker) Process(ctx context.Context, job queue.Job) (JobResult, error) {
	res := JobResult{JobID: job.ID, DocumentID: job.DocumentID}
	log := w.logger.With("job_id", job.ID, "document_id", job.DocumentID)

	claimed, err := w.db.ClaimDocument(ctx, job.DocumentID)
	if err != nil {
		return res, &PersistenceError{Op: "claim document", Err: err}
	}
	if !claimed {
		// Redelivery of a document that already reached a terminal state.
		log.Info("document not claimable, skipping job")
		return res, nil
	}
	res.Claimed = true

	data, err := w.files.Get(ctx, job.FilePath)
	if err != nil {
		return res, &ExtractionError{Path: job.FilePath, Err: err}
	}

	text, err := w.extractor.ExtractText(ctx, data, MimeTypeForPath(job.FilePath))
	if err != nil {
		return res, &ExtractionError{Path: job.FilePath, Err: err}
	}

	pieces, err := Chunk(text, w.cfg.ChunkSize, w.cfg.ChunkOverlap)
	if err != nil {
		return res, err
	}

	rows := make([]models.DocumentChunk, len(pieces))
	for i, content := range pieces {
		rows[i] = models.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: job.DocumentID,
			ChunkIndex: i,
			Content:    content,
		}
	}
	if err := w.db.ReplaceDocumentChunks(ctx, job.DocumentID, rows); err != nil {
		return res, &PersistenceError{Op: "replace chunks", Err: err}
	}
	res.ChunksInserted = len(rows)
	log.Info("chunks persisted", "count", len(rows))

	embedded, skipped, err := w.EmbedPending(ctx, job.DocumentID)
	res.ChunksEmbedded = embedded
	res.ChunksSkipped = skipped
	if err != nil {
		return res, err
	}
	if skipped > 0 {
		log.Warn("completing with unembedded chunks", "skipped", skipped)
	}

	if err := w.db.MarkDocumentProcessed(ctx, job.DocumentID); err != nil {
		return res, &PersistenceError{Op: "mark processed", Err: err}
	}
	log.Info("document processed", "chunks_inserted", res.ChunksInserted, "chunks_embedded", res.ChunksEmbedded)
	return res, nil
}
