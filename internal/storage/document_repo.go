package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks docrag/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Create inserts a new document, generating its ID when empty.
	Create(ctx context.Context, doc *DocumentRecord) error
	// GetByID gets a document by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	// List returns all documents, newest first.
	List(ctx context.Context) ([]*DocumentRecord, error)
	// UpdateStatus sets a document's status and bumps updated_at.
	UpdateStatus(ctx context.Context, id, status string) error
	// Delete removes a document and, by cascade, its versions.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = "id, title, file_name, tags, language, category, uploaded_by, status, created_at, updated_at"

// Create inserts a new document. Status defaults to StatusUploaded.
func (r *DocumentRepo) Create(ctx context.Context, doc *DocumentRecord) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = StatusUploaded
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, file_name, tags, language, category, uploaded_by, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.FileName, joinTags(doc.Tags), doc.Language, doc.Category, doc.UploadedBy, doc.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	stored, err := r.GetByID(ctx, doc.ID)
	if err != nil {
		return err
	}
	doc.CreatedAt = stored.CreatedAt
	doc.UpdatedAt = stored.UpdatedAt
	return nil
}

// GetByID gets a document by ID.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

// List returns all documents, newest first.
// Returns an empty slice if there are none.
func (r *DocumentRepo) List(ctx context.Context) ([]*DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	docs := []*DocumentRecord{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

// UpdateStatus sets a document's status.
func (r *DocumentRepo) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a document and its versions.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*DocumentRecord, error) {
	var (
		doc                  DocumentRecord
		tags                 string
		createdAt, updatedAt string
	)
	if err := s.Scan(&doc.ID, &doc.Title, &doc.FileName, &tags, &doc.Language, &doc.Category,
		&doc.UploadedBy, &doc.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	doc.Tags = splitTags(tags)
	if doc.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// splitTags returns a non-nil slice; an empty column yields no tags.
func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
