package vector

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is matched (via errors.Is) by every *DimensionMismatchError.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// DimensionMismatchError reports a vector whose length disagrees with the index dimension.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: got %d, expected %d", e.Got, e.Want)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

func checkDimension(got, want int) error {
	if want > 0 && got != want {
		return &DimensionMismatchError{Got: got, Want: want}
	}
	return nil
}
