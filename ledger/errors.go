package ledger

import "errors"

// Errors callers are expected to tell apart with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)
