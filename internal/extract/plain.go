package extract

import (
	"bytes"
	"unicode/utf8"
)

// extractPlain returns content as text, replacing invalid UTF-8 with U+FFFD.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		content = bytes.ToValidUTF8(content, []byte("�"))
	}
	return string(content), nil
}
