// Package document defines the chunk document model: per-chunk metadata,
// the contextual prefix, and JSON/JSONL export.
package document

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Sentinel errors for document construction.
var (
	// ErrInvalidChunkIndex is returned when chunk_index and total_chunks
	// are inconsistent.
	ErrInvalidChunkIndex = errors.New("invalid chunk index")

	// ErrTokenCount is returned when token counting fails for a chunk.
	ErrTokenCount = errors.New("token counting failed")
)

// PayloadTextKey is the reserved vector-store payload key holding the raw
// chunk text. Metadata field names never use this key.
const PayloadTextKey = "document"

// TokenCounter counts tokens in text. Satisfied by tokenizer.TiktokenCounter.
type TokenCounter interface {
	Count(text string) (int, error)
}

// Metadata describes one chunk of one source file.
type Metadata struct {
	// Source is the canonical path of the originating file, relative to
	// the root-marker component when one is present in the path.
	Source string `json:"source"`

	// FileType is the classifier category for the file.
	FileType string `json:"file_type"`

	// TokenCount is the token length of the raw chunk content, before
	// the contextual prefix is applied.
	TokenCount int `json:"token_count"`

	// ChunkIndex is the zero-based position within the file's chunks.
	ChunkIndex int `json:"chunk_index"`

	// TotalChunks is the number of chunks produced from the file.
	TotalChunks int `json:"total_chunks"`
}

// ChunkDocument pairs prefixed chunk text with its metadata. It is
// immutable once created: built by the file processor, consumed by export
// or the vector store, never mutated.
type ChunkDocument struct {
	PageContent string   `json:"page_content"`
	Metadata    Metadata `json:"metadata"`
}

// Builder derives metadata and prefixed content for chunks.
type Builder struct {
	rootMarker string
	tokens     TokenCounter
}

// NewBuilder creates a builder. rootMarker is a substring identifying the
// repository's top path component (e.g. "CleanArchitecture"); when no
// component contains it, the full path is used as the source. tokens must
// not be nil.
func NewBuilder(rootMarker string, tokens TokenCounter) *Builder {
	return &Builder{
		rootMarker: rootMarker,
		tokens:     tokens,
	}
}

// BuildMetadata creates validated metadata for one chunk.
//
// The token count covers chunkText, the raw chunk. A token counting
// failure is recoverable: the caller drops the file and the run goes on.
func (b *Builder) BuildMetadata(filePath, fileType, chunkText string, chunkIndex, totalChunks int) (Metadata, error) {
	if totalChunks < 1 {
		return Metadata{}, fmt.Errorf("%w: total chunks %d must be at least 1", ErrInvalidChunkIndex, totalChunks)
	}
	if chunkIndex < 0 || chunkIndex >= totalChunks {
		return Metadata{}, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidChunkIndex, chunkIndex, totalChunks)
	}

	tokenCount, err := b.tokens.Count(chunkText)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrTokenCount, err)
	}

	return Metadata{
		Source:      CanonicalSource(filePath, b.rootMarker),
		FileType:    fileType,
		TokenCount:  tokenCount,
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
	}, nil
}

// CanonicalSource derives the source path for metadata. The path is
// scanned for the first component containing rootMarker; components from
// that one onward are joined with "/". Without a marker match (or with an
// empty marker) the original path is returned unchanged. Deterministic
// for a given path and marker.
func CanonicalSource(filePath, rootMarker string) string {
	if rootMarker == "" {
		return filePath
	}

	parts := strings.Split(strings.ReplaceAll(filePath, "\\", "/"), "/")
	for i, part := range parts {
		if strings.Contains(part, rootMarker) {
			return strings.Join(parts[i:], "/")
		}
	}
	return filePath
}

// ContextualPrefix returns chunkText with a bracketed single-line
// descriptor prepended: the file name, the file type, and a 1-based
// "Part i of N" segment for multi-chunk files only. Pure function.
func ContextualPrefix(chunkText string, md Metadata) string {
	parts := []string{
		"File: " + path.Base(md.Source),
		"Type: " + md.FileType,
	}
	if md.TotalChunks > 1 {
		parts = append(parts, fmt.Sprintf("Part %d of %d", md.ChunkIndex+1, md.TotalChunks))
	}

	return "[" + strings.Join(parts, " | ") + "]\n\n" + chunkText
}

// New assembles a ChunkDocument from a raw chunk and its metadata,
// applying the contextual prefix.
func New(chunkText string, md Metadata) ChunkDocument {
	return ChunkDocument{
		PageContent: ContextualPrefix(chunkText, md),
		Metadata:    md,
	}
}
