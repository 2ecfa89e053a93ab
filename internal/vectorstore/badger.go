package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"docrag/internal/contextutil"
)

// Key layout:
//
//	meta:collection          -> collectionMeta (JSON)
//	rec:<id>                 -> Record (JSON)
//	src:<source>\x00<id>     -> empty, secondary index for source lookups
const (
	metaKey         = "meta:collection"
	recordPrefix    = "rec:"
	sourcePrefix    = "src:"
	sourceSeparator = "\x00"
)

type collectionMeta struct {
	Dimension int    `json:"dimension"`
	Metric    Metric `json:"metric"`
}

// BadgerOptions configures a BadgerIndex.
type BadgerOptions struct {
	// Dimension is the vector size. Required when the collection does not exist yet;
	// when it does, a non-zero value must match the stored one.
	Dimension int
	// InMemory keeps all data in memory. Path is ignored. Used by tests.
	InMemory bool
	// Logger receives badger's internal logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// sharedDB is a reference-counted badger handle shared by every BadgerIndex
// opened on the same path within the process.
type sharedDB struct {
	path    string
	db      *badger.DB
	meta    collectionMeta
	refs    int
	writeMu sync.Mutex
}

var (
	registryMu sync.Mutex
	registry   = map[string]*sharedDB{}
)

// BadgerIndex implements Index on an embedded BadgerDB store using
// brute-force cosine similarity.
type BadgerIndex struct {
	shared *sharedDB
	closed bool
	mu     sync.Mutex
}

var _ Index = (*BadgerIndex)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBadger opens (creating if needed) the index stored at path.
// Opening a path that is already open in this process returns a handle
// sharing the same database; the database is closed with the last handle.
func OpenBadger(path string, opts BadgerOptions) (*BadgerIndex, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.InMemory {
		shared, err := openShared("", opts)
		if err != nil {
			return nil, err
		}
		return &BadgerIndex{shared: shared}, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &IndexError{Op: "open", Err: fmt.Errorf("failed to resolve index path: %w", err)}
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if shared, ok := registry[absPath]; ok {
		if opts.Dimension != 0 && opts.Dimension != shared.meta.Dimension {
			return nil, &IndexError{
				Op:  "open",
				Err: fmt.Errorf("%w: collection has %d, requested %d", ErrDimensionMismatch, shared.meta.Dimension, opts.Dimension),
			}
		}
		shared.refs++
		return &BadgerIndex{shared: shared}, nil
	}

	shared, err := openShared(absPath, opts)
	if err != nil {
		return nil, err
	}
	registry[absPath] = shared
	return &BadgerIndex{shared: shared}, nil
}

func openShared(path string, opts BadgerOptions) (*sharedDB, error) {
	var bopts badger.Options
	if path == "" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, &IndexError{Op: "open", Err: fmt.Errorf("failed to create index directory: %w", err)}
		}
		bopts = badger.DefaultOptions(path)
	}
	bopts.Logger = &badgerLoggerAdapter{logger: opts.Logger}
	bopts.Compression = options.None

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, &IndexError{Op: "open", Err: fmt.Errorf("failed to open badger: %w", err)}
	}

	meta, err := ensureMeta(db, opts.Dimension)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sharedDB{path: path, db: db, meta: meta, refs: 1}, nil
}

// ensureMeta writes the collection metadata on first open and validates it afterwards.
func ensureMeta(db *badger.DB, dimension int) (collectionMeta, error) {
	var meta collectionMeta
	err := db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if dimension <= 0 {
				return fmt.Errorf("dimension is required to create a collection")
			}
			meta = collectionMeta{Dimension: dimension, Metric: MetricCosine}
			raw, err := json.Marshal(meta)
			if err != nil {
				return fmt.Errorf("failed to marshal collection meta: %w", err)
			}
			return txn.Set([]byte(metaKey), raw)
		case err != nil:
			return fmt.Errorf("failed to read collection meta: %w", err)
		}

		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return fmt.Errorf("failed to decode collection meta: %w", err)
		}
		if meta.Metric != MetricCosine {
			return fmt.Errorf("unsupported metric %q", meta.Metric)
		}
		if dimension != 0 && dimension != meta.Dimension {
			return fmt.Errorf("%w: collection has %d, requested %d", ErrDimensionMismatch, meta.Dimension, dimension)
		}
		return nil
	})
	if err != nil {
		return collectionMeta{}, &IndexError{Op: "open", Err: err}
	}
	return meta, nil
}

// Close releases this handle. The database is closed when the last handle
// on the same path is released. Closing twice is a no-op.
func (b *BadgerIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	if b.shared.path == "" {
		return b.shared.db.Close()
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	b.shared.refs--
	if b.shared.refs > 0 {
		return nil
	}
	delete(registry, b.shared.path)
	return b.shared.db.Close()
}

func (b *BadgerIndex) db() (*badger.DB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	return b.shared.db, nil
}

// Dimension returns the vector size of the collection.
func (b *BadgerIndex) Dimension() int {
	return b.shared.meta.Dimension
}

// Insert writes records through a write batch, which commits in as many
// transactions as the batch needs. Writers are serialised. Records committed
// before a failure stay in the index.
func (b *BadgerIndex) Insert(ctx context.Context, records []NewRecord) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(records) == 0 {
		return nil, nil
	}
	for _, rec := range records {
		if err := checkDimension("insert", b.Dimension(), rec.Vector); err != nil {
			return nil, err
		}
	}

	ids := make([]string, len(records))
	values := make([][]byte, len(records))
	for i, rec := range records {
		ids[i] = NewRecordID(rec.Metadata.Source, rec.Metadata.ChunkIndex)
		raw, err := json.Marshal(Record{
			ID:       ids[i],
			Vector:   rec.Vector,
			Text:     rec.Text,
			Metadata: rec.Metadata,
		})
		if err != nil {
			return nil, &IndexError{Op: "insert", Err: fmt.Errorf("failed to marshal record: %w", err)}
		}
		values[i] = raw
	}

	db, err := b.db()
	if err != nil {
		return nil, &IndexError{Op: "insert", Err: err}
	}

	b.shared.writeMu.Lock()
	defer b.shared.writeMu.Unlock()

	wb := db.NewWriteBatch()
	defer wb.Cancel()

	for i, rec := range records {
		if err := wb.Set(recordKey(ids[i]), values[i]); err != nil {
			logger.ErrorContext(ctx, "failed to insert records", "count", len(records), "error", err)
			return nil, &IndexError{Op: "insert", Err: err}
		}
		if err := wb.Set(sourceKey(rec.Metadata.Source, ids[i]), nil); err != nil {
			logger.ErrorContext(ctx, "failed to insert records", "count", len(records), "error", err)
			return nil, &IndexError{Op: "insert", Err: err}
		}
	}
	if err := wb.Flush(); err != nil {
		logger.ErrorContext(ctx, "failed to insert records", "count", len(records), "error", err)
		return nil, &IndexError{Op: "insert", Err: err}
	}

	logger.DebugContext(ctx, "inserted records", "count", len(records))
	return ids, nil
}

// Query scans every record in a read transaction and returns the k most similar.
func (b *BadgerIndex) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, &IndexError{Op: "query", Err: ErrInvalidK}
	}
	if err := checkDimension("query", b.Dimension(), vector); err != nil {
		return nil, err
	}

	db, err := b.db()
	if err != nil {
		return nil, &IndexError{Op: "query", Err: err}
	}

	var matches []Match
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec Record
			if err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("failed to decode record %s: %w", iter.Item().Key(), err)
			}
			matches = append(matches, Match{
				Record: rec,
				Score:  CosineSimilarity(vector, rec.Vector),
			})
		}
		return nil
	})
	if err != nil {
		return nil, &IndexError{Op: "query", Err: err}
	}

	return topK(matches, k), nil
}

// HasSource reports whether any record carries the given source.
func (b *BadgerIndex) HasSource(ctx context.Context, source string) (bool, error) {
	db, err := b.db()
	if err != nil {
		return false, &IndexError{Op: "has_source", Err: err}
	}

	found := false
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = sourceKeyPrefix(source)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		iter.Rewind()
		found = iter.Valid()
		return nil
	})
	if err != nil {
		return false, &IndexError{Op: "has_source", Err: err}
	}
	return found, nil
}

// DeleteBySource removes every record with the given source.
func (b *BadgerIndex) DeleteBySource(ctx context.Context, source string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	db, err := b.db()
	if err != nil {
		return 0, &IndexError{Op: "delete", Err: err}
	}

	b.shared.writeMu.Lock()
	defer b.shared.writeMu.Unlock()

	var indexKeys [][]byte
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = sourceKeyPrefix(source)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			indexKeys = append(indexKeys, iter.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, &IndexError{Op: "delete", Err: err}
	}
	if len(indexKeys) == 0 {
		return 0, nil
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()

	prefixLen := len(sourceKeyPrefix(source))
	for _, key := range indexKeys {
		id := string(key[prefixLen:])
		if err := wb.Delete(recordKey(id)); err != nil {
			return 0, &IndexError{Op: "delete", Err: err}
		}
		if err := wb.Delete(key); err != nil {
			return 0, &IndexError{Op: "delete", Err: err}
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, &IndexError{Op: "delete", Err: err}
	}

	logger.InfoContext(ctx, "deleted records", "source", source, "count", len(indexKeys))
	return len(indexKeys), nil
}

// Count returns the number of stored records.
func (b *BadgerIndex) Count(ctx context.Context) (int, error) {
	db, err := b.db()
	if err != nil {
		return 0, &IndexError{Op: "count", Err: err}
	}

	n := 0
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(recordPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, &IndexError{Op: "count", Err: err}
	}
	return n, nil
}

func recordKey(id string) []byte {
	return []byte(recordPrefix + id)
}

func sourceKeyPrefix(source string) []byte {
	return []byte(sourcePrefix + source + sourceSeparator)
}

func sourceKey(source, id string) []byte {
	return append(sourceKeyPrefix(source), id...)
}
