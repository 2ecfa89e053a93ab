package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"docrag/internal/contextutil"
	"docrag/internal/extract"
)

// DefaultDebounce is how long a file must stay quiet before it is re-indexed.
const DefaultDebounce = 500 * time.Millisecond

// ChangeType is the index action taken for a file event.
type ChangeType int

const (
	// ChangeUpserted means the file's records were replaced by a fresh ingest.
	ChangeUpserted ChangeType = iota + 1
	// ChangeDeleted means the file's records were removed.
	ChangeDeleted
)

func (c ChangeType) String() string {
	switch c {
	case ChangeUpserted:
		return "upserted"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change reports one applied file change.
type Change struct {
	Type     ChangeType
	SourceID string
	Chunks   int // records stored (upsert) or removed (delete)
	Err      error
}

// Watcher keeps the index in sync with a directory tree.
type Watcher struct {
	pipeline *Pipeline
	fs       *fsnotify.Watcher
	root     string
	debounce time.Duration
}

// NewWatcher registers root and all its non-hidden subdirectories.
// Events are only processed once Run is called.
func (p *Pipeline) NewWatcher(root string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{pipeline: p, fs: fw, root: root, debounce: debounce}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching. Run returns once its event channel closes.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run applies file changes until ctx is done or the watcher is closed.
// Created or written files are re-ingested after their old records are
// removed; removed or renamed files are purged. onChange may be nil.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) error {
	logger := contextutil.LoggerFromContext(ctx).With("root", w.root)
	defer func() {
		_ = w.fs.Close()
	}()

	pending := make(map[string]pendingChange)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && isVisibleDir(ev.Name) {
				if err := w.addTree(ev.Name); err != nil {
					logger.WarnContext(ctx, "failed to watch new directory", "dir", ev.Name, "error", err)
				}
				continue
			}
			typ, ok := classifyEvent(ev)
			if !ok {
				continue
			}
			pending[ev.Name] = pendingChange{typ: typ, at: time.Now()}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "watcher error", "error", err)

		case now := <-ticker.C:
			for path, pc := range pending {
				if now.Sub(pc.at) < w.debounce {
					continue
				}
				delete(pending, path)
				change := w.pipeline.applyChange(ctx, pc.typ, path)
				logger.InfoContext(ctx, "applied file change",
					"source", change.SourceID, "change", change.Type.String(), "chunks", change.Chunks, "error", change.Err)
				if onChange != nil {
					onChange(change)
				}
			}
		}
	}
}

type pendingChange struct {
	typ ChangeType
	at  time.Time
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// classifyEvent maps a filesystem event to the index action it needs.
// Hidden files, directories, chmod-only events and unsupported types are ignored.
func classifyEvent(ev fsnotify.Event) (ChangeType, bool) {
	if strings.HasPrefix(filepath.Base(ev.Name), ".") || !extract.Supported(ev.Name) {
		return 0, false
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return ChangeDeleted, true
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil || info.IsDir() {
			return 0, false
		}
		return ChangeUpserted, true
	default:
		return 0, false
	}
}

func isVisibleDir(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (p *Pipeline) applyChange(ctx context.Context, typ ChangeType, path string) Change {
	source := filepath.ToSlash(path)
	change := Change{Type: typ, SourceID: source}

	removed, err := p.index.DeleteBySource(ctx, source)
	if err != nil {
		change.Err = err
		return change
	}
	if typ == ChangeDeleted {
		change.Chunks = removed
		return change
	}

	out, err := p.ingestFile(ctx, Job{Path: path, SourceID: source})
	change.Chunks = len(out.chunks)
	change.Err = err
	return change
}
