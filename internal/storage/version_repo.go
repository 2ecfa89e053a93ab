package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_version_store.go -package=mocks docrag/internal/storage VersionStore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// VersionStore defines the interface for document version operations.
type VersionStore interface {
	// Create inserts a version, assigning the next version number for its document.
	Create(ctx context.Context, v *VersionRecord) error
	// GetByID gets a version by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*VersionRecord, error)
	// ListByDocument returns a document's versions ordered by version number.
	ListByDocument(ctx context.Context, documentID string) ([]*VersionRecord, error)
	// MarkEmbedded records how many chunks a version produced in the index.
	MarkEmbedded(ctx context.Context, id string, chunkCount int) error
}

// VersionRepo provides methods for version operations.
// It implements the VersionStore interface.
type VersionRepo struct {
	db *sql.DB
}

// NewVersionRepo creates a new VersionRepo.
func NewVersionRepo(db *sql.DB) *VersionRepo {
	return &VersionRepo{db: db}
}

const versionColumns = "id, document_id, version_number, blob_key, file_hash, size, embedded, chunk_count, created_at"

// Create inserts a version. The version number is computed inside the
// insert statement so concurrent uploads to one document do not collide.
func (r *VersionRepo) Create(ctx context.Context, v *VersionRecord) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO document_versions (id, document_id, version_number, blob_key, file_hash, size)
		 SELECT ?, ?, COALESCE(MAX(version_number), 0) + 1, ?, ?, ?
		 FROM document_versions WHERE document_id = ?`,
		v.ID, v.DocumentID, v.BlobKey, v.FileHash, v.Size, v.DocumentID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}

	stored, err := r.GetByID(ctx, v.ID)
	if err != nil {
		return err
	}
	*v = *stored
	return nil
}

// GetByID gets a version by ID.
func (r *VersionRepo) GetByID(ctx context.Context, id string) (*VersionRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+versionColumns+" FROM document_versions WHERE id = ?", id)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query version: %w", err)
	}
	return v, nil
}

// ListByDocument returns all versions of a document, oldest first.
// Returns an empty slice if none exist (not an error).
func (r *VersionRepo) ListByDocument(ctx context.Context, documentID string) ([]*VersionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+versionColumns+" FROM document_versions WHERE document_id = ? ORDER BY version_number",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	versions := []*VersionRecord{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}
	return versions, nil
}

// MarkEmbedded flags a version as indexed.
func (r *VersionRepo) MarkEmbedded(ctx context.Context, id string, chunkCount int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE document_versions SET embedded = 1, chunk_count = ? WHERE id = ?",
		chunkCount, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark version embedded: %w", err)
	}
	return requireAffected(res)
}

func scanVersion(s rowScanner) (*VersionRecord, error) {
	var (
		v         VersionRecord
		createdAt string
	)
	if err := s.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.BlobKey, &v.FileHash,
		&v.Size, &v.Embedded, &v.ChunkCount, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if v.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return &v, nil
}
