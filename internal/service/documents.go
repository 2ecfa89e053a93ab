package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_deps.go -package=mocks docrag/internal/service TextExtractor,Ingester,IndexPurger
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_service.go -package=mocks -mock_names=DocumentService=MockDocumentService docrag/internal/service DocumentService

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"docrag/internal/blob"
	"docrag/internal/contextutil"
	"docrag/internal/extract"
	"docrag/internal/indexer"
	"docrag/internal/storage"
)

// Upload defaults.
const (
	DefaultLanguage   = "en"
	DefaultCategory   = "general"
	DefaultUploadedBy = "system"
)

// TextExtractor turns uploaded bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (*extract.Result, error)
}

// Ingester indexes extracted text under a source id.
type Ingester interface {
	IngestText(ctx context.Context, sourceText, sourceID string) (int, error)
}

// IndexPurger removes index records for a source id.
type IndexPurger interface {
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// UploadRequest is a file upload with its catalogue fields.
type UploadRequest struct {
	FileName   string
	Data       []byte
	Title      string
	Tags       string // Comma-separated
	Language   string
	Category   string
	UploadedBy string
}

// UploadResult describes the stored document and the outcome of indexing it.
type UploadResult struct {
	DocumentID    string
	VersionID     string
	VersionNumber int
	Status        string
	Chunks        int
	// IngestErr is set when Status is storage.StatusFailed.
	IngestErr error
}

// DocumentDetail is a document with its version ids, oldest first.
type DocumentDetail struct {
	*storage.DocumentRecord
	Versions []string
}

// Preview is an open handle on a document's first stored file.
type Preview struct {
	FileName string
	Body     io.ReadCloser
}

// DocumentService manages uploaded documents.
type DocumentService interface {
	// Upload stores a file as a new document and indexes its text.
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
	// List returns all documents, newest first.
	List(ctx context.Context) ([]*storage.DocumentRecord, error)
	// Get returns a document with its version ids.
	Get(ctx context.Context, id string) (*DocumentDetail, error)
	// Versions returns a document's versions.
	Versions(ctx context.Context, id string) ([]*storage.VersionRecord, error)
	// Preview opens the file of the document's first version.
	Preview(ctx context.Context, id string) (*Preview, error)
	// Delete removes a document, its files and its index records.
	Delete(ctx context.Context, id string) error
}

// documentService implements DocumentService.
type documentService struct {
	docs      storage.DocumentStore
	versions  storage.VersionStore
	blobs     blob.Store
	extractor TextExtractor
	ingester  Ingester
	index     IndexPurger
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(
	docs storage.DocumentStore,
	versions storage.VersionStore,
	blobs blob.Store,
	extractor TextExtractor,
	ingester Ingester,
	index IndexPurger,
) DocumentService {
	return &documentService{
		docs:      docs,
		versions:  versions,
		blobs:     blobs,
		extractor: extractor,
		ingester:  ingester,
		index:     index,
	}
}

// Upload validates the request, stores the file and catalogue rows, then
// extracts and indexes the text. Extraction or indexing failures do not fail
// the upload; they are reported through the result's Status.
func (s *documentService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateUpload(req); err != nil {
		logger.WarnContext(ctx, "invalid upload request", "error", err)
		return nil, err
	}

	doc := &storage.DocumentRecord{
		Title:      strings.TrimSpace(req.Title),
		FileName:   req.FileName,
		Tags:       parseTags(req.Tags),
		Language:   orDefault(req.Language, DefaultLanguage),
		Category:   orDefault(req.Category, DefaultCategory),
		UploadedBy: orDefault(req.UploadedBy, DefaultUploadedBy),
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		logger.ErrorContext(ctx, "failed to create document", "error", err)
		return nil, WrapError(err, "failed to create document")
	}

	sum := sha256.Sum256(req.Data)
	version := &storage.VersionRecord{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		FileHash:   hex.EncodeToString(sum[:]),
		Size:       int64(len(req.Data)),
	}
	version.BlobKey = blob.Key(doc.ID, version.ID, req.FileName)

	if err := s.blobs.Put(ctx, version.BlobKey, bytes.NewReader(req.Data), version.Size); err != nil {
		logger.ErrorContext(ctx, "failed to store file", "key", version.BlobKey, "error", err)
		_ = s.docs.Delete(ctx, doc.ID)
		return nil, WrapError(err, "failed to store file")
	}
	if err := s.versions.Create(ctx, version); err != nil {
		logger.ErrorContext(ctx, "failed to create version", "error", err)
		_ = s.blobs.Delete(ctx, version.BlobKey)
		_ = s.docs.Delete(ctx, doc.ID)
		return nil, WrapError(err, "failed to create version")
	}

	ctx, logger = contextutil.With(ctx, "document_id", doc.ID, "version_id", version.ID)
	logger.InfoContext(ctx, "document stored", "file_name", req.FileName, "size", version.Size, "hash", version.FileHash)

	result := &UploadResult{
		DocumentID:    doc.ID,
		VersionID:     version.ID,
		VersionNumber: version.VersionNumber,
	}
	result.Status, result.Chunks, result.IngestErr = s.indexFile(ctx, req.FileName, req.Data, version.BlobKey)

	if result.Status == storage.StatusIndexed {
		if err := s.versions.MarkEmbedded(ctx, version.ID, result.Chunks); err != nil {
			logger.WarnContext(ctx, "failed to mark version embedded", "error", err)
		}
	}
	if err := s.docs.UpdateStatus(ctx, doc.ID, result.Status); err != nil {
		logger.WarnContext(ctx, "failed to update document status", "status", result.Status, "error", err)
	}

	logger.InfoContext(ctx, "document upload completed", "status", result.Status, "chunks", result.Chunks)
	return result, nil
}

// indexFile extracts and ingests one file, returning the resulting document status.
func (s *documentService) indexFile(ctx context.Context, fileName string, data []byte, source string) (string, int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	res, err := s.extractor.Extract(ctx, fileName, data)
	if err != nil {
		logger.WarnContext(ctx, "failed to extract text", "file_name", fileName, "error", err)
		return storage.StatusFailed, 0, err
	}

	chunks, err := s.ingester.IngestText(ctx, res.Text, source)
	switch {
	case errors.Is(err, indexer.ErrEmptyInput):
		return storage.StatusEmpty, 0, nil
	case err != nil:
		return storage.StatusFailed, 0, err
	}
	return storage.StatusIndexed, chunks, nil
}

// List returns all documents.
func (s *documentService) List(ctx context.Context) ([]*storage.DocumentRecord, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to list documents", "error", err)
		return nil, WrapError(err, "failed to list documents")
	}
	return docs, nil
}

// Get returns a document and its version ids.
func (s *documentService) Get(ctx context.Context, id string) (*DocumentDetail, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByDocument(ctx, id)
	if err != nil {
		return nil, WrapError(err, "failed to list versions")
	}
	ids := make([]string, len(versions))
	for i, v := range versions {
		ids[i] = v.ID
	}
	return &DocumentDetail{DocumentRecord: doc, Versions: ids}, nil
}

// Versions returns a document's versions.
func (s *documentService) Versions(ctx context.Context, id string) ([]*storage.VersionRecord, error) {
	if _, err := s.getDocument(ctx, id); err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByDocument(ctx, id)
	if err != nil {
		return nil, WrapError(err, "failed to list versions")
	}
	return versions, nil
}

// Preview opens the first version's file.
func (s *documentService) Preview(ctx context.Context, id string) (*Preview, error) {
	logger := contextutil.LoggerFromContext(ctx)

	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByDocument(ctx, id)
	if err != nil {
		return nil, WrapError(err, "failed to list versions")
	}
	if len(versions) == 0 {
		return nil, &ValidationError{Field: "id", Message: "no versions found for document"}
	}

	body, err := s.blobs.Get(ctx, versions[0].BlobKey)
	if errors.Is(err, blob.ErrNotFound) {
		logger.WarnContext(ctx, "file missing from blob store", "key", versions[0].BlobKey)
		return nil, fmt.Errorf("file for document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, WrapError(err, "failed to open file")
	}
	return &Preview{FileName: doc.FileName, Body: body}, nil
}

// Delete removes index records first so a failure leaves the document listed.
func (s *documentService) Delete(ctx context.Context, id string) error {
	logger := contextutil.LoggerFromContext(ctx).With("document_id", id)

	if _, err := s.getDocument(ctx, id); err != nil {
		return err
	}
	versions, err := s.versions.ListByDocument(ctx, id)
	if err != nil {
		return WrapError(err, "failed to list versions")
	}

	removed := 0
	for _, v := range versions {
		n, err := s.index.DeleteBySource(ctx, v.BlobKey)
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete index records", "version_id", v.ID, "error", err)
			return WrapError(err, "failed to delete index records")
		}
		removed += n
	}

	if err := s.docs.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return WrapError(err, "failed to delete document")
	}

	for _, v := range versions {
		if err := s.blobs.Delete(ctx, v.BlobKey); err != nil {
			logger.WarnContext(ctx, "failed to delete file", "key", v.BlobKey, "error", err)
		}
	}

	logger.InfoContext(ctx, "document deleted", "versions", len(versions), "records_removed", removed)
	return nil
}

func (s *documentService) getDocument(ctx context.Context, id string) (*storage.DocumentRecord, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, WrapError(err, "failed to get document")
	}
	return doc, nil
}

func validateUpload(req UploadRequest) error {
	if strings.TrimSpace(req.FileName) == "" {
		return &ValidationError{Field: "file", Message: "is required"}
	}
	if !extract.Supported(req.FileName) {
		return &ValidationError{Field: "file", Message: "only .txt, .md, .pdf, .png, .jpg or .jpeg files are supported"}
	}
	if strings.TrimSpace(req.Title) == "" {
		return &ValidationError{Field: "title", Message: "cannot be empty"}
	}
	return nil
}

// parseTags splits a comma-separated list, trimming blanks.
func parseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
