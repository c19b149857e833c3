package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   error
	}{
		{"valid", 1000, 100, nil},
		{"zero overlap", 100, 0, nil},
		{"zero chunk size", 0, 0, ErrInvalidChunkSize},
		{"negative chunk size", -5, 0, ErrInvalidChunkSize},
		{"negative overlap", 100, -1, ErrInvalidOverlap},
		{"overlap equals chunk size", 100, 100, ErrInvalidOverlap},
		{"overlap exceeds chunk size", 100, 150, ErrInvalidOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.chunkSize, tt.overlap)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.chunkSize, s.ChunkSize())
			assert.Equal(t, tt.overlap, s.Overlap())
		})
	}
}

func TestSplitEmpty(t *testing.T) {
	s, err := New(1000, 100)
	require.NoError(t, err)

	assert.Empty(t, s.Split(""))
}

func TestSplitShortInput(t *testing.T) {
	s, err := New(1000, 100)
	require.NoError(t, err)

	text := "short text that fits in one chunk"
	chunks := s.Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitBoundsEveryChunk(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	texts := []string{
		strings.Repeat("alpha beta gamma delta epsilon ", 40),
		strings.Repeat("first paragraph about things.\n\nsecond paragraph about other things.\n\n", 20),
		strings.Repeat("x", 350), // no separator at all: character fallback
		"line one\nline two\nline three\n" + strings.Repeat("long line without breaks ", 30),
	}

	for _, text := range texts {
		for _, chunk := range s.Split(text) {
			assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
			assert.NotEmpty(t, chunk)
		}
	}
}

// reconstruct joins chunks, removing from each chunk the longest prefix of
// at most overlap characters that is also a suffix of the previous chunk.
func reconstruct(chunks []string, overlap int) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			b.WriteString(chunk)
			continue
		}
		prev := []rune(chunks[i-1])
		cur := []rune(chunk)
		strip := 0
		max := overlap
		if max > len(prev) {
			max = len(prev)
		}
		if max > len(cur) {
			max = len(cur)
		}
		for k := max; k > 0; k-- {
			if string(prev[len(prev)-k:]) == string(cur[:k]) {
				strip = k
				break
			}
		}
		b.WriteString(string(cur[strip:]))
	}
	return b.String()
}

func TestSplitLosslessReconstruction(t *testing.T) {
	s, err := New(80, 16)
	require.NoError(t, err)

	texts := []string{
		"The Specification pattern encapsulates query logic in the domain layer. " +
			"Repositories accept specifications and translate them into storage queries. " +
			"This keeps ORM details away from business rules and makes intent explicit.",
		"first paragraph with enough words to overflow a single chunk boundary here.\n\n" +
			"second paragraph continues with different words to avoid accidental repeats.\n\n" +
			"third paragraph closes out the sample document with a final set of words.",
		"one\ntwo\nthree\nfour five six seven eight nine ten eleven twelve thirteen " +
			"fourteen fifteen sixteen seventeen eighteen nineteen twenty and beyond",
	}

	for _, text := range texts {
		chunks := s.Split(text)
		require.NotEmpty(t, chunks)
		assert.Equal(t, text, reconstruct(chunks, s.Overlap()))
	}
}

func TestSplitDeterministic(t *testing.T) {
	s, err := New(64, 8)
	require.NoError(t, err)

	text := strings.Repeat("deterministic output is part of the contract. ", 12)
	first := s.Split(text)
	second := s.Split(text)

	assert.Equal(t, first, second)
}

func TestSplitOverlapCarriedBetweenChunks(t *testing.T) {
	s, err := New(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("unique words flow onward through sentences ", 6)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := string(prev[len(prev)-10:])
		assert.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d does not begin with the previous chunk's tail", i)
	}
}

func TestSplitParagraphsPreferredOverLines(t *testing.T) {
	s, err := New(40, 0)
	require.NoError(t, err)

	text := "short para one.\n\nshort para two.\n\nshort para three."
	chunks := s.Split(text)

	// Paragraph pieces (including the break) pack without being cut mid-line.
	require.NotEmpty(t, chunks)
	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 40)
	}
}

func TestSplitRecursesIntoOversizedPiece(t *testing.T) {
	s, err := New(20, 4)
	require.NoError(t, err)

	// One paragraph far above the chunk size forces recursion through
	// line, space, and finally character separators.
	text := "tiny.\n\n" + strings.Repeat("overlylongunbrokenword", 3) + "\n\ntiny again."
	chunks := s.Split(text)

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 20)
	}
}

func TestSplitIndivisiblePieceWithoutCharacterFallback(t *testing.T) {
	s, err := NewWithSeparators(10, 0, []string{" "})
	require.NoError(t, err)

	// Without the empty-string separator an unbreakable word cannot be
	// divided and is emitted oversized.
	chunks := s.Split("tiny supercalifragilistic tiny")
	require.Len(t, chunks, 3)
	assert.Equal(t, "supercalifragilistic ", chunks[1])
}

func TestSplitUnicode(t *testing.T) {
	s, err := New(10, 2)
	require.NoError(t, err)

	text := strings.Repeat("héllø wörld ", 5)
	for _, chunk := range s.Split(text) {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
	}
	assert.Equal(t, text, reconstruct(s.Split(text), 2))
}

// A 2500-character spaced text at the default-ish geometry packs into
// three chunks: stride is roughly chunk size minus overlap.
func TestSplitPackingGeometry(t *testing.T) {
	s, err := New(1000, 100)
	require.NoError(t, err)

	text := strings.TrimRight(strings.Repeat("word ", 500), " ") // 2499 chars
	chunks := s.Split(text)

	assert.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 1000)
	}
}
