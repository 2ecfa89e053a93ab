// Package blob stores uploaded document files.
package blob

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks docrag/internal/blob Store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("blob not found")

// Store persists opaque file bytes under string keys.
type Store interface {
	// Put writes size bytes from r under key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Get opens the object stored under key. Returns ErrNotFound if missing.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key builds the object key for a version's file.
func Key(documentID, versionID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = "file"
	}
	return fmt.Sprintf("%s/%s_%s", documentID, versionID, name)
}

// validateKey rejects keys that would escape the store's namespace.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty blob key")
	}
	clean := path.Clean(key)
	if clean != key || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}
