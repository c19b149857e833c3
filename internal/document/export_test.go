package document

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocs() []ChunkDocument {
	return []ChunkDocument{
		{
			PageContent: "[File: README.md | Type: documentation]\n\nintro text",
			Metadata:    Metadata{Source: "CleanArchitecture/README.md", FileType: "documentation", TokenCount: 2, ChunkIndex: 0, TotalChunks: 1},
		},
		{
			PageContent: "[File: Foo.cs | Type: csharp | Part 1 of 2]\n\nclass Foo {}",
			Metadata:    Metadata{Source: "CleanArchitecture/src/Foo.cs", FileType: "csharp", TokenCount: 4, ChunkIndex: 0, TotalChunks: 2},
		},
		{
			PageContent: "[File: Foo.cs | Type: csharp | Part 2 of 2]\n\n// end",
			Metadata:    Metadata{Source: "CleanArchitecture/src/Foo.cs", FileType: "csharp", TokenCount: 2, ChunkIndex: 1, TotalChunks: 2},
		},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleDocs()))

	var decoded []ChunkDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleDocs(), decoded)
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sampleDocs()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	for i, line := range lines {
		var doc ChunkDocument
		require.NoError(t, json.Unmarshal([]byte(line), &doc))
		assert.Equal(t, sampleDocs()[i], doc)
	}
}

// Both formats carry the same records; only file layout differs.
func TestFormatsSemanticallyIdentical(t *testing.T) {
	docs := sampleDocs()
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "docs.json")
	jsonlPath := filepath.Join(dir, "docs.jsonl")
	require.NoError(t, Export(docs, jsonPath, FormatJSON))
	require.NoError(t, Export(docs, jsonlPath, FormatJSONL))

	fromJSON, err := ReadExport(jsonPath)
	require.NoError(t, err)
	fromJSONL, err := ReadExport(jsonlPath)
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromJSONL)
	assert.Equal(t, docs, fromJSON)
}

func TestExportUnknownFormat(t *testing.T) {
	err := Export(nil, filepath.Join(t.TempDir(), "out.xml"), "xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExportFieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sampleDocs()[:1]))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Contains(t, raw, "page_content")
	assert.Contains(t, raw, "metadata")

	var md map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["metadata"], &md))
	for _, field := range []string{"source", "file_type", "token_count", "chunk_index", "total_chunks"} {
		assert.Contains(t, md, field)
	}
}

func TestReadExportMissingFile(t *testing.T) {
	_, err := ReadExport(filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
