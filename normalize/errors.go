package normalize

import "errors"

var (
	// ErrInvalidNumber indicates a value could not be read as a number.
	ErrInvalidNumber = errors.New("invalid number")

	// ErrInvalidRange indicates a phrase could not be read as a numeric range.
	ErrInvalidRange = errors.New("invalid range")

	// ErrVocabularyFile indicates the vocabulary override file is malformed.
	ErrVocabularyFile = errors.New("invalid vocabulary file")
)
