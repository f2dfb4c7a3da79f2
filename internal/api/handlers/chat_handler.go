package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	middleware "github.com/ShivamJuyal24/AI-Chat-PDF/internal/api/middlewares"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/core"
)

type ChatHandler struct {
	dbclient core.DbClient
	embedder core.EmbeddingProvider
	llm      core.LLMProvider
}

func NewChatHandler(db core.DbClient, emb core.EmbeddingProvider, llm core.LLMProvider) *ChatHandler {
	return &ChatHandler{dbclient: db, embedder: emb, llm: llm}
}

type ChatRequest struct {
	DocumentID string `json:"document_id"`
	Query      string `json:"query"`
}

// QueryDocument answers a question over a processed document: embed the
// query, retrieve the nearest chunks, let the LLM answer from them.
func (h *ChatHandler) QueryDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserID(ctx)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	doc, err := h.dbclient.GetDocumentByID(ctx, req.DocumentID)
	if err != nil || doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if doc.UserID != userID {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	vecs, err := h.embedder.EmbedTexts(ctx, []string{req.Query})
	if err != nil || len(vecs) == 0 {
		http.Error(w, fmt.Sprintf("embedding failed: %v", err), http.StatusInternalServerError)
		return
	}

	chunks, err := h.dbclient.SearchDocumentChunks(ctx, req.DocumentID, vecs[0], 5)
	if err != nil {
		http.Error(w, fmt.Sprintf("search failed: %v", err), http.StatusInternalServerError)
		return
	}

	var sb strings.Builder
	for _, ch := range chunks {
		sb.WriteString(ch.Content)
		sb.WriteString("\n---\n")
	}

	systemPrompt := "You are an intelligent assistant answering based only on the given document content. If unsure, say 'I cannot find this in the document.'"
	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", sb.String(), req.Query)

	answer, err := h.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		http.Error(w, fmt.Sprintf("generation failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"answer": answer})
}
