// Package tokenizer provides token counting for chunk metadata.
//
// It wraps tiktoken's cl100k_base encoding, the same encoding used by the
// OpenAI embedding models this pipeline targets. Counting is stateless and
// deterministic; the encoding is loaded once at construction.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used for token counts.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens in text.
//
// The loader depends on this interface rather than the concrete tiktoken
// implementation so tests can substitute failing or fixed-size counters.
type Counter interface {
	// Count returns the number of tokens in text.
	Count(text string) (int, error)
}

// TiktokenCounter counts tokens using a tiktoken encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for the given encoding name.
// Pass DefaultEncoding unless a different model family is in use.
func NewTiktokenCounter(encodingName string) (*TiktokenCounter, error) {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}

	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %q: %w", encodingName, err)
	}

	return &TiktokenCounter{encoding: encoding}, nil
}

// Count returns the number of cl100k_base tokens in text.
func (c *TiktokenCounter) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(c.encoding.Encode(text, nil, nil)), nil
}
