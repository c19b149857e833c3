// Package vectorstore persists chunk documents in qdrant over gRPC.
//
// The store talks to qdrant's native gRPC port (6334), which avoids the
// HTTP layer's payload limits during repository ingestion. Transient
// failures are retried with exponential backoff; permanent failures
// surface immediately.
package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/casablancahotelsoftware/tech-lab/internal/document"
	"github.com/casablancahotelsoftware/tech-lab/internal/logging"
)

// collectionNamePattern validates collection names. Lowercase letters,
// numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// upsertBatchSize bounds how many points go into one upsert request.
const upsertBatchSize = 100

// Config holds configuration for the qdrant gRPC store.
type Config struct {
	// Host is the qdrant server hostname or IP address.
	Host string

	// Port is the qdrant gRPC port, not the HTTP REST port.
	Port int

	// CollectionName is the default collection for operations.
	CollectionName string

	// VectorSize must match the embedder's output dimensions.
	VectorSize uint64

	// Distance is the similarity metric. Default cosine.
	Distance qdrant.Distance

	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled on each retry.
	RetryBackoff time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.CollectionName == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.Distance == 0 {
		c.Distance = qdrant.Distance_Cosine
	}
}

// ValidateCollectionName validates a collection name.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: must match ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// IsTransientError reports whether an error should be retried. True for
// network timeouts and temporary unavailability, false for invalid
// arguments, missing collections and auth failures.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// pointClient is the subset of the qdrant client the store uses.
// Narrowed for testability.
type pointClient interface {
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collection string) error
	CollectionExists(ctx context.Context, collection string) (bool, error)
	GetCollectionInfo(ctx context.Context, collection string) (*qdrant.CollectionInfo, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	Close() error
}

// Store persists chunk documents in a qdrant collection.
type Store struct {
	client   pointClient
	embedder Embedder
	config   Config
	logger   *logging.Logger
}

// NewStore creates a Store and verifies connectivity with a health
// check.
func NewStore(config Config, embedder Embedder, logger *logging.Logger) (*Store, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if err := ValidateCollectionName(config.CollectionName); err != nil {
		return nil, fmt.Errorf("validating collection name: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: config.Host,
		Port: config.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &Store{
		client:   client,
		embedder: embedder,
		config:   config,
		logger:   logger.Named("vectorstore"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}

	return store, nil
}

// Close closes the qdrant gRPC connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// CollectionName returns the collection this store writes to.
func (s *Store) CollectionName() string {
	return s.config.CollectionName
}

// retryOperation retries an operation with exponential backoff. Only
// transient errors are retried.
func (s *Store) retryOperation(ctx context.Context, name string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", name, err)
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", name, s.config.MaxRetries, err)
		}

		s.logger.Warn("retrying after transient failure",
			zap.String("operation", name),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", name, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// InitializeCollection drops the collection if present and creates it
// fresh. A missing collection on delete is not an error, so repeated
// initialization is safe.
func (s *Store) InitializeCollection(ctx context.Context) error {
	exists, err := s.collectionExists(ctx, s.config.CollectionName)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("dropping existing collection", zap.String("collection", s.config.CollectionName))
		if err := s.deleteCollection(ctx, s.config.CollectionName); err != nil {
			return err
		}
	}
	return s.createCollection(ctx, s.config.CollectionName)
}

// EnsureCollection creates the collection when it does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.collectionExists(ctx, s.config.CollectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.createCollection(ctx, s.config.CollectionName)
}

func (s *Store) createCollection(ctx context.Context, name string) error {
	err := s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.config.VectorSize,
				Distance: s.config.Distance,
			}),
		})
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	s.logger.Info("created collection",
		zap.String("collection", name),
		zap.Uint64("vector_size", s.config.VectorSize),
	)
	return nil
}

func (s *Store) deleteCollection(ctx context.Context, name string) error {
	err := s.retryOperation(ctx, "delete_collection", func() error {
		err := s.client.DeleteCollection(ctx, name)
		if status.Code(err) == grpccodes.NotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) collectionExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		ok, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return err
		}
		exists = ok
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", name, err)
	}
	return exists, nil
}

// AddDocuments embeds the documents and upserts them as points with
// fresh UUID ids. The chunk text is stored under the reserved payload
// key alongside the metadata fields. Returns the assigned point ids in
// input order.
func (s *Store) AddDocuments(ctx context.Context, docs []document.ChunkDocument) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("%w: got %d vectors for %d documents", ErrEmbeddingFailed, len(vectors), len(docs))
	}

	ids := make([]string, len(docs))
	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		ids[i] = uuid.New().String()
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(ids[i]),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: buildPayload(doc),
		}
	}

	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]

		err := s.retryOperation(ctx, "upsert", func() error {
			_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: s.config.CollectionName,
				Points:         batch,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("upserting points to collection %s: %w", s.config.CollectionName, err)
		}
		s.logger.Debug("upserted batch",
			zap.Int("from", start),
			zap.Int("count", len(batch)),
		)
	}

	return ids, nil
}

// UpdateDocument re-embeds a document and overwrites the point with the
// given id.
func (s *Store) UpdateDocument(ctx context.Context, id string, doc document.ChunkDocument) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid point id %q: %w", id, err)
	}

	vector, err := s.embedder.EmbedQuery(ctx, doc.PageContent)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	err = s.retryOperation(ctx, "update", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.CollectionName,
			Points: []*qdrant.PointStruct{{
				Id:      qdrant.NewIDUUID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: buildPayload(doc),
			}},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("updating point %s: %w", id, err)
	}
	return nil
}

// DeleteDocuments removes points by id. Unknown ids are ignored by
// qdrant.
func (s *Store) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("invalid point id %q: %w", id, err)
		}
		pointIDs[i] = qdrant.NewIDUUID(id)
	}

	err := s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.CollectionName,
			Points:         qdrant.NewPointsSelector(pointIDs...),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting points from collection %s: %w", s.config.CollectionName, err)
	}
	return nil
}

// Search embeds the query and returns the k most similar documents.
func (s *Store) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	return s.SearchWithFilter(ctx, query, k, nil)
}

// SearchWithFilter is Search restricted to points whose payload matches
// every filter entry exactly.
func (s *Store) SearchWithFilter(ctx context.Context, query string, k int, filters map[string]string) ([]SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var points []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, "search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.CollectionName,
			Query:          qdrant.NewQuery(queryVector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         buildFilter(filters),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		if status.Code(err) == grpccodes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, s.config.CollectionName)
		}
		return nil, fmt.Errorf("searching collection %s: %w", s.config.CollectionName, err)
	}

	results := make([]SearchResult, len(points))
	for i, point := range points {
		results[i] = resultFromPoint(point)
	}
	return results, nil
}

// Info returns point count and vector size for the store's collection.
func (s *Store) Info(ctx context.Context) (*CollectionInfo, error) {
	var info *CollectionInfo
	err := s.retryOperation(ctx, "collection_info", func() error {
		collInfo, err := s.client.GetCollectionInfo(ctx, s.config.CollectionName)
		if err != nil {
			if status.Code(err) == grpccodes.NotFound {
				return ErrCollectionNotFound
			}
			return err
		}
		points := 0
		if collInfo.PointsCount != nil {
			points = int(*collInfo.PointsCount)
		}
		info = &CollectionInfo{
			Name:       s.config.CollectionName,
			PointCount: points,
			VectorSize: int(s.config.VectorSize),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// buildFilter converts key/value equality conditions into a qdrant
// filter. Returns nil for an empty map.
func buildFilter(filters map[string]string) *qdrant.Filter {
	if len(filters) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filters))
	for key, value := range filters {
		conditions = append(conditions, qdrant.NewMatch(key, value))
	}
	return &qdrant.Filter{Must: conditions}
}

// buildPayload flattens a chunk document into a qdrant payload. The
// chunk text lives under document.PayloadTextKey; the metadata fields
// use their export names.
func buildPayload(doc document.ChunkDocument) map[string]*qdrant.Value {
	return qdrant.NewValueMap(map[string]any{
		document.PayloadTextKey: doc.PageContent,
		"source":                doc.Metadata.Source,
		"file_type":             doc.Metadata.FileType,
		"token_count":           int64(doc.Metadata.TokenCount),
		"chunk_index":           int64(doc.Metadata.ChunkIndex),
		"total_chunks":          int64(doc.Metadata.TotalChunks),
	})
}

// resultFromPoint converts a scored point back into a SearchResult,
// splitting the stored text out of the payload.
func resultFromPoint(point *qdrant.ScoredPoint) SearchResult {
	result := SearchResult{
		Score:    point.Score,
		Metadata: make(map[string]interface{}),
	}
	if id := point.Id.GetUuid(); id != "" {
		result.ID = id
	}
	for key, value := range point.Payload {
		switch val := value.Kind.(type) {
		case *qdrant.Value_StringValue:
			if key == document.PayloadTextKey {
				result.Content = val.StringValue
				continue
			}
			result.Metadata[key] = val.StringValue
		case *qdrant.Value_IntegerValue:
			result.Metadata[key] = val.IntegerValue
		case *qdrant.Value_DoubleValue:
			result.Metadata[key] = val.DoubleValue
		case *qdrant.Value_BoolValue:
			result.Metadata[key] = val.BoolValue
		}
	}
	return result
}
