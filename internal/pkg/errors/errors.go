package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedRecord marks upstream payloads the transform cannot interpret.
	ErrMalformedRecord = errors.New("malformed record")
)
