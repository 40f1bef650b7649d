package window

import (
	"errors"
	"fmt"
)

// ErrUnknownType is returned by [ParseType] for names it does not recognize.
var ErrUnknownType = errors.New("window: unknown type")

var (
	errEmptyCoeffs     = errors.New("window coefficients must not be empty")
	errZeroOverlapGain = errors.New("window overlap gain is zero")
)

func validateLength(size int) error {
	if size <= 0 {
		return fmt.Errorf("window size must be > 0: %d", size)
	}
	return nil
}
