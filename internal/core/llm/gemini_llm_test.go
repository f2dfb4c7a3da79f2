package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
)

func TestResponseText(t *testing.T) {
	cases := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{
			"nil content",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			"",
		},
		{
			"single text part",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("hello")}},
			}}},
			"hello",
		},
		{
			"multiple text parts concatenated",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("a"), genai.Text("b")}},
			}}},
			"ab",
		},
		{
			"non-text parts skipped",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{
					genai.Blob{MIMEType: "image/png"},
					genai.Text("caption"),
				}},
			}}},
			"caption",
		},
		{
			"only first candidate used",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("first")}}},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("second")}}},
			}},
			"first",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, responseText(tc.resp))
		})
	}
}
