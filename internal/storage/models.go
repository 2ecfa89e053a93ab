package storage

import "time"

// Document statuses.
const (
	StatusUploaded = "uploaded"
	StatusIndexed  = "indexed"
	StatusEmpty    = "empty"
	StatusFailed   = "failed"
)

// DocumentRecord represents an uploaded document in the database.
type DocumentRecord struct {
	ID         string   // UUID
	Title      string
	FileName   string   // Original upload file name
	Tags       []string // Stored comma-separated
	Language   string
	Category   string
	UploadedBy string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// VersionRecord represents one stored revision of a document's file.
type VersionRecord struct {
	ID            string // UUID, also the source id of its index records
	DocumentID    string // Foreign key to documents.id
	VersionNumber int    // Starts at 1
	BlobKey       string // Key of the file in the blob store
	FileHash      string // SHA256 hex string of file content
	Size          int64
	Embedded      bool
	ChunkCount    int
	CreatedAt     time.Time
}
