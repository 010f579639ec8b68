//go:build !(cgo && hftokenizers)

package embedding

import "errors"

// HFTokenizer is unavailable without the hftokenizers build tag.
type HFTokenizer struct{}

// NewHFTokenizer returns an error unless built with -tags=hftokenizers and CGO.
func NewHFTokenizer(_ string) (*HFTokenizer, error) {
	return nil, errors.New("tokenizer.json support requires CGO and -tags=hftokenizers")
}

// Tokenize is never reached; NewHFTokenizer always fails in this build.
func (t *HFTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	return (&SimpleTokenizer{}).Tokenize(text, maxTokens)
}

// Close is a no-op.
func (t *HFTokenizer) Close() error { return nil }
