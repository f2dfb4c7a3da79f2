package ingest

import (
	"context"

	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/metrics"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/resilience"
)

// EmbedPending sweeps every chunk of documentID whose embedding is still
// null and fills each in turn, one call to the embedding service per chunk.
//
// A chunk that still fails after the retry budget is logged and left null;
// the sweep continues. Only a store error (listing or context cancellation)
// aborts the sweep.
func (w *Worker) EmbedPending(ctx context.Context, documentID string) (embedded, skipped int, err error) {
	chunks, err := w.db.ListUnembeddedChunks(ctx, documentID)
	if err != nil {
		return 0, 0, &PersistenceError{Op: "list unembedded chunks", Err: err}
	}

	log := w.logger.With("document_id", documentID)
	for _, ch := range chunks {
		if err := w.limiter.Wait(ctx); err != nil {
			return embedded, skipped, err
		}

		var vec []float32
		embedErr := resilience.Retry(ctx, "embed chunk", w.cfg.EmbedRetry, func() error {
			v, err := w.embedder.EmbedText(ctx, ch.Content)
			if err != nil {
				return err
			}
			vec = v
			return nil
		})
		if embedErr != nil {
			skipped++
			metrics.EmbeddingFailures.Inc()
			log.Error("leaving chunk unembedded", "error", &EmbeddingError{ChunkID: ch.ID, Err: embedErr}, "chunk_index", ch.ChunkIndex)
			continue
		}

		if err := w.db.SetChunkEmbedding(ctx, ch.ID, vec); err != nil {
			skipped++
			metrics.EmbeddingFailures.Inc()
			log.Error("failed to store chunk embedding", "error", err, "chunk_index", ch.ChunkIndex)
			continue
		}
		embedded++
		metrics.ChunksEmbedded.Inc()
	}
	return embedded, skipped, nil
}
