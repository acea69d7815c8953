package document

import "errors"

var (
	// ErrInvalidPosition is returned when a position or range argument falls
	// outside the visible length of the document.
	ErrInvalidPosition = errors.New("position out of bounds")
)
