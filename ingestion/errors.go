package ingestion

import "errors"

var (
	// ErrIndexRequired is returned when a property index is not provided.
	ErrIndexRequired = errors.New("property index required")

	// ErrEncoderRequired is returned when a record encoder is not provided.
	ErrEncoderRequired = errors.New("record encoder required")

	// ErrMissingColumn is returned when the CSV header lacks a required column.
	ErrMissingColumn = errors.New("required column missing")

	// ErrS3ClientRequired is returned when an s3:// location is opened without a client.
	ErrS3ClientRequired = errors.New("s3 client required for s3:// locations")

	// ErrInvalidLocation is returned for a malformed dataset location.
	ErrInvalidLocation = errors.New("invalid dataset location")
)
