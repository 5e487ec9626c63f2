package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrIndexRequired is returned when a property index is not provided.
	ErrIndexRequired = errors.New("property index required")

	// ErrEncoderRequired is returned when a record encoder is not provided.
	ErrEncoderRequired = errors.New("record encoder required")
)
