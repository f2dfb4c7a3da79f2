package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/core"
)

const defaultGenModel = "gemini-1.5-flash"

// answerTemperature keeps the model close to the retrieved chunks instead of
// free-associating.
const answerTemperature = 0.2

// GeminiLLM answers chat queries with a Gemini generative model. Safe for
// concurrent use: every Generate call builds its own model handle, so the
// per-call system instruction never leaks between requests.
type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

var _ core.LLMProvider = (*GeminiLLM)(nil)

// NewGeminiLLM dials the Gemini API. An empty modelName falls back to the
// same default the config layer ships.
func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGenModel
	}
	return &GeminiLLM{client: client, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Generate produces one answer for userPrompt, steered by systemPrompt when
// it is non-empty. A response with no usable candidate is an error, not an
// empty answer.
func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(answerTemperature)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	answer := responseText(resp)
	if answer == "" {
		return "", fmt.Errorf("gemini generate: response carried no text candidate")
	}
	return answer, nil
}

// responseText flattens the text parts of the first candidate. Non-text
// parts are skipped; a nil or empty response yields "".
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
