package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/ShivamJuyal24/AI-Chat-PDF/internal/api/middlewares"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/core"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/logger"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/models"
	"github.com/ShivamJuyal24/AI-Chat-PDF/internal/queue"
)

const maxUploadBytes = 50 << 20 // 50 MB

type DocumentHandler struct {
	dbclient core.DbClient
	files    core.FileStore
	queue    *queue.Queue
	logger   *slog.Logger
}

func NewDocumentHandler(dbclient core.DbClient, files core.FileStore, q *queue.Queue) *DocumentHandler {
	return &DocumentHandler{
		dbclient: dbclient,
		files:    files,
		queue:    q,
		logger:   logger.WithComponent("document-handler"),
	}
}

// UploadDocument stores the file, records the document metadata with status
// "uploaded", and enqueues an ingestion job carrying the document id and the
// stored file path.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		http.Error(w, "could not read file", http.StatusBadRequest)
		return
	}
	if len(data) > maxUploadBytes {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Strip any path components from the client-supplied name.
	cleanName := filepath.Base(header.Filename)
	docID := uuid.NewString()
	key := fmt.Sprintf("%s/%s/%s", userID, docID, cleanName)

	path, err := h.files.Put(r.Context(), key, data, contentType)
	if err != nil {
		h.logger.Error("file store put failed", "document_id", docID, "error", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	doc := &models.Document{
		ID:           docID,
		UserID:       userID,
		OriginalName: header.Filename,
		FileName:     cleanName,
		FilePath:     path,
		FileSize:     int64(len(data)),
		Status:       models.StatusUploaded,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := h.dbclient.CreateDocument(r.Context(), doc); err != nil {
		h.logger.Error("document insert failed", "document_id", docID, "error", err)
		http.Error(w, "failed to store document metadata", http.StatusInternalServerError)
		return
	}

	jobID, err := h.queue.Enqueue(r.Context(), doc.ID, doc.FilePath)
	if err != nil {
		h.logger.Error("enqueue failed", "document_id", docID, "error", err)
		http.Error(w, "failed to schedule processing", http.StatusInternalServerError)
		return
	}
	h.logger.Info("document uploaded", "document_id", docID, "job_id", jobID, "size", doc.FileSize)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"documentId": doc.ID,
		"status":     doc.Status,
	})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	documents, err := h.dbclient.ListDocumentsByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documents)
}

// GetDocumentStatus is the only window an uploader has into the pipeline: a
// document stuck in "processing" is being retried, "failed" means the retry
// budget ran out.
func (h *DocumentHandler) GetDocumentStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	doc, err := h.dbclient.GetDocumentByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == nil || doc.UserID != userID {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"documentId": doc.ID,
		"status":     doc.Status,
	})
}
