package contract

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidEvent      = errors.New("event is malformed")
	ErrLookupUnavailable = errors.New("lookup service unavailable")
)
