package domain

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrInvalidParameters        = errors.New("invalid parameters")
	ErrDuplicateID              = errors.New("duplicate job id")
	ErrStaleWrite               = errors.New("stale write")
	ErrDispatchFailure          = errors.New("dispatch failure")
	ErrConflictRetriesExhausted = errors.New("conflict retries exhausted")
)
