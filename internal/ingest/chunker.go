package ingest

import "fmt"

// ValidateChunkConfig rejects size/overlap combinations that would keep the
// chunking cursor from advancing. Called at worker construction so a bad
// config fails at startup rather than mid-job.
func ValidateChunkConfig(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d must be positive", ErrInvalidChunkConfig, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidChunkConfig, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidChunkConfig, overlap, size)
	}
	return nil
}

// Chunk splits text into a sequence of overlapping windows of at most size
// runes, each window starting size-overlap runes after the previous one.
// The final chunk may be shorter; empty text yields no chunks.
//
// Pure and deterministic: identical input always yields identical output.
func Chunk(text string, size, overlap int) ([]string, error) {
	if err := ValidateChunkConfig(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size - overlap {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}
