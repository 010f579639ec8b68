//go:build cgo && hftokenizers

package embedding

import (
	"fmt"

	"github.com/daulet/tokenizers"
)

// HFTokenizer wraps a HuggingFace tokenizer.json.
type HFTokenizer struct {
	tk *tokenizers.Tokenizer
}

// NewHFTokenizer loads a tokenizer.json file.
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return &HFTokenizer{tk: tk}, nil
}

// Tokenize encodes text with special tokens, then pads or truncates to maxTokens.
func (t *HFTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	enc := t.tk.EncodeWithOptions(text, true,
		tokenizers.WithReturnAttentionMask(),
		tokenizers.WithReturnTypeIDs(),
	)
	ids := enc.IDs
	if len(ids) > maxTokens {
		// keep the trailing [SEP]
		ids = append(ids[:maxTokens-1:maxTokens-1], ids[len(ids)-1])
	}
	return padIDs(ids, enc.AttentionMask, enc.TypeIDs, maxTokens)
}

// Close frees the native tokenizer.
func (t *HFTokenizer) Close() error {
	return t.tk.Close()
}
