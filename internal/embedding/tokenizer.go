package embedding

import "strings"

const (
	clsTokenID       = 101
	sepTokenID       = 102
	simpleVocabSize  = 30000
	defaultMaxTokens = 256
)

// Tokenizer produces BERT-style model inputs (input_ids, attention_mask, token_type_ids),
// padded or truncated to maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a whitespace tokenizer with hash-based token IDs. It needs no vocabulary
// file and is the fallback when no tokenizer.json is configured.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs framed by [CLS] and [SEP].
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1

	pos := 1
	for _, word := range SplitWords(strings.ToLower(text)) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(word) % simpleVocabSize)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepTokenID
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords splits text on whitespace and returns non-empty words (nil for none).
func SplitWords(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	var h uint32
	for _, c := range s {
		h = 31*h + uint32(c)
	}
	return int(h)
}

// padIDs converts encoder output to fixed-length int64 slices. A nil mask marks every
// token as attended.
func padIDs(ids, mask, types []uint32, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	n := min(len(ids), maxTokens)
	for i := 0; i < n; i++ {
		inputIDs[i] = int64(ids[i])
		attentionMask[i] = 1
		if i < len(mask) {
			attentionMask[i] = int64(mask[i])
		}
		if i < len(types) {
			tokenTypeIDs[i] = int64(types[i])
		}
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// newTokenizer returns the HuggingFace tokenizer for path, or SimpleTokenizer when path is empty.
func newTokenizer(path string) (Tokenizer, error) {
	if path == "" {
		return &SimpleTokenizer{}, nil
	}
	return NewHFTokenizer(path)
}
