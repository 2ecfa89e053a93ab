package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"docrag/internal/extract"
)

// ScanDir walks root and returns a job for every file the extractor supports.
// Hidden directories (".git", ".obsidian", ...) are skipped. The source id is
// the walked path with forward slashes. Jobs are sorted by source id.
func ScanDir(ctx context.Context, root string) ([]Job, error) {
	var jobs []Job

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !extract.Supported(path) {
			return nil
		}
		jobs = append(jobs, Job{Path: path, SourceID: filepath.ToSlash(path)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].SourceID < jobs[j].SourceID })
	return jobs, nil
}
