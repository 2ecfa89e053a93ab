package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"docrag/internal/contextutil"
)

const (
	payloadRecordID   = "record_id"
	payloadText       = "text"
	payloadSource     = "source"
	payloadChunkIndex = "chunk_index"
)

// QdrantStore implements Index on a single Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

var _ Index = (*QdrantStore)(nil)

// NewQdrantStore creates a Qdrant-backed index bound to one collection.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
// Call EnsureCollection before using the store.
func NewQdrantStore(urlStr, collection string, dimension int) (*QdrantStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be greater than 0")
	}

	host, port, err := grpcAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: collection,
		dimension:  dimension,
	}, nil
}

// grpcAddress derives the gRPC host and port from the Qdrant HTTP URL.
func grpcAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}
	return host, port, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Dimension returns the vector size of the collection.
func (s *QdrantStore) Dimension() int {
	return s.dimension
}

// Insert stores records as new points. Point IDs are derived from the record IDs
// because Qdrant only accepts UUIDs or integers; the record ID itself is kept in the payload.
func (s *QdrantStore) Insert(ctx context.Context, records []NewRecord) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, len(records))
	points := make([]*qdrant.PointStruct, 0, len(records))
	for i, rec := range records {
		if err := checkDimension("insert", s.dimension, rec.Vector); err != nil {
			return nil, err
		}
		ids[i] = NewRecordID(rec.Metadata.Source, rec.Metadata.ChunkIndex)
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(ids[i])),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadRecordID:   ids[i],
				payloadText:       rec.Text,
				payloadSource:     rec.Metadata.Source,
				payloadChunkIndex: rec.Metadata.ChunkIndex,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to insert points", "collection", s.collection, "count", len(points), "error", err)
		return nil, &IndexError{Op: "insert", Err: fmt.Errorf("failed to upsert points: %w", err)}
	}

	logger.DebugContext(ctx, "inserted points", "collection", s.collection, "count", len(points))
	return ids, nil
}

// Query performs a cosine similarity search. Returned records carry no vector.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, &IndexError{Op: "query", Err: ErrInvalidK}
	}
	if err := checkDimension("query", s.dimension, vector); err != nil {
		return nil, err
	}

	limit := uint64(k)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "k", k, "error", err)
		return nil, &IndexError{Op: "query", Err: fmt.Errorf("failed to search points: %w", err)}
	}

	matches := make([]Match, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		payload := convertPayloadToMap(point.GetPayload())
		rec := Record{Metadata: MetadataFromPayload(payload)}
		rec.ID, _ = payload[payloadRecordID].(string)
		rec.Text, _ = payload[payloadText].(string)
		if rec.ID == "" && point.GetId() != nil {
			rec.ID = point.GetId().GetUuid()
		}
		matches = append(matches, Match{Record: rec, Score: point.GetScore()})
	}

	logger.DebugContext(ctx, "search completed", "collection", s.collection, "k", k, "results", len(matches))
	return matches, nil
}

// HasSource reports whether any point carries the given source.
func (s *QdrantStore) HasSource(ctx context.Context, source string) (bool, error) {
	n, err := s.countSource(ctx, source)
	if err != nil {
		return false, &IndexError{Op: "has_source", Err: err}
	}
	return n > 0, nil
}

// DeleteBySource removes every point with the given source.
func (s *QdrantStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	n, err := s.countSource(ctx, source)
	if err != nil {
		return 0, &IndexError{Op: "delete", Err: err}
	}
	if n == 0 {
		return 0, nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(sourceFilter(source)),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", s.collection, "source", source, "error", err)
		return 0, &IndexError{Op: "delete", Err: fmt.Errorf("failed to delete points: %w", err)}
	}

	logger.InfoContext(ctx, "deleted points", "collection", s.collection, "source", source, "count", n)
	return n, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, &IndexError{Op: "count", Err: fmt.Errorf("failed to count points: %w", err)}
	}
	return int(n), nil
}

func (s *QdrantStore) countSource(ctx context.Context, source string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         sourceFilter(source),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(n), nil
}

// CollectionExists checks if the collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// EnsureCollection creates the collection with cosine distance if it is missing.
// If it exists, its vector size must match the store's dimension.
// Calling it repeatedly is safe.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return &IndexError{Op: "open", Err: err}
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", s.dimension)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return &IndexError{Op: "open", Err: fmt.Errorf("failed to create collection: %w", err)}
		}
		return nil
	}

	info, err := s.GetCollectionInfo(ctx)
	if err != nil {
		return &IndexError{Op: "open", Err: err}
	}
	if info.VectorSize == 0 {
		return &IndexError{Op: "open", Err: fmt.Errorf("could not determine collection vector size")}
	}
	if info.VectorSize != s.dimension {
		return &IndexError{
			Op:  "open",
			Err: fmt.Errorf("%w: collection has %d, expected %d", ErrDimensionMismatch, info.VectorSize, s.dimension),
		}
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", s.dimension)
	return nil
}

// CollectionInfo contains information about a Qdrant collection.
type CollectionInfo struct {
	VectorSize  int
	PointsCount int
	Status      string
}

// GetCollectionInfo returns information about the collection including point count.
func (s *QdrantStore) GetCollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	var vectorSize int
	if config := info.Config; config != nil && config.Params != nil {
		if vectorsConfig := config.Params.GetVectorsConfig(); vectorsConfig != nil {
			if params := vectorsConfig.GetParams(); params != nil {
				vectorSize = int(params.Size)
			}
		}
	}

	var pointsCount int
	if info.PointsCount != nil {
		pointsCount = int(*info.PointsCount)
	}

	status := "unknown"
	if info.Status != 0 {
		status = info.Status.String()
	}

	return &CollectionInfo{
		VectorSize:  vectorSize,
		PointsCount: pointsCount,
		Status:      status,
	}, nil
}

func sourceFilter(source string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadSource, source)},
	}
}

// pointID maps a record ID onto a stable UUID.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String()
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
