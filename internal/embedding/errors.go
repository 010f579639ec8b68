package embedding

import (
	"errors"
	"fmt"
)

// ErrEncoding is matched by every *EncodingError.
var ErrEncoding = errors.New("encoding failed")

// EncodingError reports a failure to load the model or to produce an embedding.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding failed: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Is reports whether target is ErrEncoding.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

func encodingErrorf(format string, args ...any) error {
	return &EncodingError{Err: fmt.Errorf(format, args...)}
}
