package vectorstore

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidK is returned when a query asks for fewer than one result.
	ErrInvalidK = errors.New("k must be greater than 0")
	// ErrClosed is returned when an operation is attempted on a closed index.
	ErrClosed = errors.New("index is closed")
)

// IndexError reports a failed index operation: storage I/O, backend errors
// or a dimension mismatch. It is never retried by the index itself.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}
