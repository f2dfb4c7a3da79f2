package core

import "context"

type EmbeddingProvider interface {
	// EmbedText embeds a single chunk of text; the ingestion sweep calls it
	// once per chunk.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts embeds a batch in one request (used for query embedding).
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
