package handlers

import (
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"docrag/internal/contextutil"
	"docrag/internal/service"
	"docrag/internal/storage"
)

// FilesHandler serves the document management endpoints.
type FilesHandler struct {
	documents service.DocumentService
}

// NewFilesHandler creates a new FilesHandler.
func NewFilesHandler(documents service.DocumentService) *FilesHandler {
	return &FilesHandler{documents: documents}
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	DocumentID    string `json:"document_id"`
	VersionID     string `json:"version_id"`
	VersionNumber int    `json:"version_number"`
	Status        string `json:"status"`
	Chunks        int    `json:"chunks"`
	Message       string `json:"message"`
}

// DocumentSummary is one entry of the document list.
type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	FileName  string    `json:"file_name"`
	Language  string    `json:"language"`
	Category  string    `json:"category"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}

// DocumentResponse is a single document with its version ids.
type DocumentResponse struct {
	DocumentSummary
	UploadedBy string    `json:"uploaded_by"`
	Versions   []string  `json:"versions"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// VersionResponse describes one stored version.
type VersionResponse struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	FileHash      string    `json:"file_hash"`
	Size          int64     `json:"size"`
	Embedded      bool      `json:"embedded"`
	ChunkCount    int       `json:"chunk_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// Upload handles POST /api/files/upload (multipart: file, title, tags, language, category, uploaded_by).
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing upload file", "error", err)
		writeError(w, http.StatusBadRequest, "Validation error: file is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		logger.WarnContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	res, err := h.documents.Upload(ctx, service.UploadRequest{
		FileName:   header.Filename,
		Data:       data,
		Title:      r.FormValue("title"),
		Tags:       r.FormValue("tags"),
		Language:   r.FormValue("language"),
		Category:   r.FormValue("category"),
		UploadedBy: r.FormValue("uploaded_by"),
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to upload file")
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		DocumentID:    res.DocumentID,
		VersionID:     res.VersionID,
		VersionNumber: res.VersionNumber,
		Status:        res.Status,
		Chunks:        res.Chunks,
		Message:       uploadMessage(res.Status),
	})
}

// List handles GET /api/files.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := h.documents.List(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list documents")
		return
	}
	out := make([]DocumentSummary, len(docs))
	for i, d := range docs {
		out[i] = toSummary(d)
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/files/{id}.
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := h.documents.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to get document")
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{
		DocumentSummary: toSummary(doc.DocumentRecord),
		UploadedBy:      doc.UploadedBy,
		Versions:        doc.Versions,
		UpdatedAt:       doc.UpdatedAt,
	})
}

// Versions handles GET /api/files/{id}/versions.
func (h *FilesHandler) Versions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versions, err := h.documents.Versions(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list versions")
		return
	}
	out := make([]VersionResponse, len(versions))
	for i, v := range versions {
		out[i] = VersionResponse{
			ID:            v.ID,
			DocumentID:    v.DocumentID,
			VersionNumber: v.VersionNumber,
			FileHash:      v.FileHash,
			Size:          v.Size,
			Embedded:      v.Embedded,
			ChunkCount:    v.ChunkCount,
			CreatedAt:     v.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Preview handles GET /api/files/{id}/preview by streaming the first version's bytes.
func (h *FilesHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	preview, err := h.documents.Preview(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to open document")
		return
	}
	defer func() {
		_ = preview.Body.Close()
	}()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": preview.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, preview.Body); err != nil {
		logger.WarnContext(ctx, "failed to stream preview", "error", err)
	}
}

// Delete handles DELETE /api/files/{id}.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := h.documents.Delete(ctx, id); err != nil {
		handleServiceError(ctx, w, err, "Failed to delete document")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Document " + id + " and its versions deleted."})
}

func toSummary(d *storage.DocumentRecord) DocumentSummary {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return DocumentSummary{
		ID:        d.ID,
		Title:     d.Title,
		FileName:  d.FileName,
		Language:  d.Language,
		Category:  d.Category,
		Tags:      tags,
		CreatedAt: d.CreatedAt,
		Status:    d.Status,
	}
}

func uploadMessage(status string) string {
	switch status {
	case storage.StatusIndexed:
		return "File uploaded and version created."
	case storage.StatusEmpty:
		return "File uploaded and version created; no text could be extracted."
	default:
		return "File uploaded and version created; indexing failed."
	}
}
