// Package splitter implements recursive character splitting with overlap.
//
// Text is cut on a prioritized separator list, coarsest first: paragraph
// breaks, then line breaks, then spaces, then single characters as the
// last resort. Pieces are greedily packed into chunks bounded by ChunkSize,
// and each new chunk re-includes a trailing slice of its predecessor sized
// by Overlap. A piece that still exceeds ChunkSize after a separator is
// applied is recursively split with the finer separators only.
//
// Sizes are measured in characters (runes), not tokens. The token counts
// reported in chunk metadata use a different unit on purpose; the splitter
// makes no token-budget guarantee.
//
// Split is a pure function of (text, ChunkSize, Overlap, separators):
// the same input always yields the same chunks.
package splitter

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sentinel errors for splitter construction.
var (
	// ErrInvalidChunkSize is returned when chunk size is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap is returned when overlap is negative or does not
	// leave room for new content (overlap >= chunk size).
	ErrInvalidOverlap = errors.New("invalid overlap")
)

// DefaultSeparators is the standard separator priority for source and
// prose files. The trailing empty string enables character-level splits.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

const (
	// DefaultChunkSize is the default maximum chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultOverlap is the default chunk overlap in characters.
	DefaultOverlap = 100
)

// Splitter splits text into overlapping bounded chunks.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// New creates a splitter with the default separator list.
//
// Overlap must be smaller than chunkSize: an overlap that consumes the
// whole chunk would make no forward progress, so it is rejected rather
// than clamped.
func New(chunkSize, overlap int) (*Splitter, error) {
	return NewWithSeparators(chunkSize, overlap, DefaultSeparators)
}

// NewWithSeparators creates a splitter with a custom separator priority,
// ordered coarsest to finest. An empty-string entry permits splitting a
// piece into individual characters.
func NewWithSeparators(chunkSize, overlap int, separators []string) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d is negative", ErrInvalidOverlap, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidOverlap, overlap, chunkSize)
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: separators,
	}, nil
}

// ChunkSize returns the maximum chunk length in characters.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the chunk overlap in characters.
func (s *Splitter) Overlap() int { return s.overlap }

// Split splits text into an ordered sequence of chunks.
//
// Empty input yields an empty sequence. Input no longer than the chunk
// size yields a single chunk with no overlap applied. Every chunk is at
// most ChunkSize characters unless an atomic piece could not be divided
// by any separator in the list.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{text}
	}

	sep, finer := chooseSeparator(text, separators)
	pieces := cutAfter(text, sep)

	var chunks []string
	var cur []rune

	for _, piece := range pieces {
		p := []rune(piece)

		if len(p) > s.chunkSize {
			// Atomic piece too large for one chunk: close the current
			// chunk and recurse with the finer separators only.
			if len(cur) > 0 {
				chunks = append(chunks, string(cur))
				cur = nil
			}
			if len(finer) == 0 {
				// Indivisible; emit oversized as-is.
				chunks = append(chunks, piece)
			} else {
				chunks = append(chunks, s.split(piece, finer)...)
			}
			continue
		}

		if len(cur) > 0 && len(cur)+len(p) > s.chunkSize {
			chunk := cur
			chunks = append(chunks, string(chunk))

			// Start the next chunk with a trailing slice of the previous
			// one, trimmed so the new piece still fits within ChunkSize.
			tail := s.overlap
			if room := s.chunkSize - len(p); tail > room {
				tail = room
			}
			if tail > len(chunk) {
				tail = len(chunk)
			}
			cur = nil
			if tail > 0 {
				cur = append(cur, chunk[len(chunk)-tail:]...)
			}
		}
		cur = append(cur, p...)
	}

	if len(cur) > 0 {
		chunks = append(chunks, string(cur))
	}
	return chunks
}

// chooseSeparator returns the first separator that occurs in text (the
// empty string always qualifies) plus the finer separators after it.
// When nothing matches, the finest separator is chosen with no fallback
// left, which makes unsplittable text surface as one oversized piece.
func chooseSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return separators[len(separators)-1], nil
}

// cutAfter splits text into pieces, each retaining its trailing separator
// so that concatenating the pieces reproduces text exactly. An empty
// separator cuts into individual characters.
func cutAfter(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		pieces := make([]string, len(runes))
		for i, r := range runes {
			pieces[i] = string(r)
		}
		return pieces
	}

	parts := strings.SplitAfter(text, sep)
	// SplitAfter appends an empty trailing part when text ends with sep.
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}
