package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidCollectionName indicates a collection name that fails
	// validation.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrConnectionFailed indicates the qdrant client could not be built.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrEmbeddingFailed indicates the embedder rejected the input.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrCollectionNotFound indicates the collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrEmptyDocuments indicates an add call with no documents.
	ErrEmptyDocuments = errors.New("documents cannot be empty")
)

// Embedder generates vectors for documents and queries. Satisfied by
// embeddings.Service.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SearchResult is a scored document returned from similarity search.
// Content holds the stored chunk text; Metadata holds the remaining
// payload fields.
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]interface{}
}

// CollectionInfo summarizes a collection.
type CollectionInfo struct {
	Name       string
	PointCount int
	VectorSize int
}
