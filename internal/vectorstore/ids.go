package vectorstore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewRecordID builds a record ID from the source's base name, a sequence number
// and a random UUID, so re-ingesting the same source never collides.
func NewRecordID(source string, seq int) string {
	base := filepath.Base(filepath.ToSlash(source))
	base = strings.Map(func(r rune) rune {
		if r == ' ' || r == ':' {
			return '-'
		}
		return r
	}, base)
	if base == "" || base == "." || base == "/" {
		base = "doc"
	}
	return fmt.Sprintf("%s_%d_%s", base, seq, uuid.NewString())
}
