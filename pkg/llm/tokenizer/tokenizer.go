// Package tokenizer wraps tiktoken token counting with a graceful
// fallback, so prompt budgeting keeps working when the encoding data
// cannot be loaded.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts prompt tokens using the cl100k_base encoding.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer. When the encoding cannot be initialized the
// returned tokenizer still works via estimation, alongside the error so
// callers can log the degraded mode.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	if err != nil {
		return &Tokenizer{}, fmt.Errorf("tokenizer: init cl100k_base: %w", err)
	}
	return &Tokenizer{encoding: enc}, nil
}

// CountText returns the token count for a piece of text. Without a loaded
// encoding it estimates at roughly four characters per token.
func (t *Tokenizer) CountText(text string) int {
	if t == nil || t.encoding == nil {
		return (len(text) + 3) / 4
	}
	return len(t.encoding.Encode(text, nil, nil))
}
