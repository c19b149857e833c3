package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Export formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// ErrUnknownFormat is returned for export formats other than json/jsonl.
var ErrUnknownFormat = errors.New("unknown export format")

// WriteJSON writes docs as one indented JSON array.
func WriteJSON(w io.Writer, docs []ChunkDocument) error {
	if docs == nil {
		docs = []ChunkDocument{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encoding documents: %w", err)
	}
	return nil
}

// WriteJSONL writes docs as one JSON object per line.
func WriteJSONL(w io.Writer, docs []ChunkDocument) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding document %d: %w", i, err)
		}
	}
	return nil
}

// Export writes docs to outputPath in the given format. The two formats
// carry identical records; only the file layout differs.
func Export(docs []ChunkDocument, outputPath, format string) error {
	var write func(io.Writer, []ChunkDocument) error
	switch format {
	case FormatJSON:
		write = WriteJSON
	case FormatJSONL:
		write = WriteJSONL
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputPath, err)
	}

	if err := write(f, docs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadExport loads documents from an export file, accepting either format:
// a JSON array or newline-delimited objects.
func ReadExport(path string) ([]ChunkDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var docs []ChunkDocument
	if err := json.Unmarshal(data, &docs); err == nil {
		return docs, nil
	}

	// Fall back to JSONL.
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var doc ChunkDocument
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
