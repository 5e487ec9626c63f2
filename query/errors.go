package query

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownParameter indicates a request named a parameter that does not exist.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrInvalidValue indicates a parameter value has the wrong type or cannot be parsed.
	ErrInvalidValue = errors.New("invalid value")

	// ErrUnmappedValue indicates a categorical value outside the closed set.
	ErrUnmappedValue = errors.New("value outside the allowed set")

	// ErrInvalidLimit indicates a limit that is not a positive integer.
	ErrInvalidLimit = errors.New("limit must be a positive integer")

	// ErrInvalidWeight indicates a negative or non-numeric weight.
	ErrInvalidWeight = errors.New("weight must be a non-negative number")

	// ErrIncompleteGeo indicates a geo filter missing its center or radius.
	ErrIncompleteGeo = errors.New("near_latitude, near_longitude and radius_km must be given together")

	// ErrUnsupportedField indicates a builder call on a field that does not support it.
	ErrUnsupportedField = errors.New("field does not support this parameter")
)

// Source tells where a rejected value came from.
type Source string

const (
	SourceRequest   Source = "request"
	SourceExtracted Source = "extracted"
)

// FieldError reports a single rejected request parameter. The parameter is
// left unset; the rest of the request proceeds.
type FieldError struct {
	Param  string `json:"param"`
	Value  any    `json:"value,omitempty"`
	Source Source `json:"source"`
	Err    error  `json:"-"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Param, e.Source, e.Err)
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error with its message.
func (e FieldError) MarshalJSON() ([]byte, error) {
	type fieldError FieldError
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		fieldError
		Message string `json:"message"`
	}{fieldError(e), msg})
}
