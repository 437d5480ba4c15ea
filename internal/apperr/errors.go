package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	// ErrTypeImmutable rejects section updates that try to change the
	// type after creation; the type anchors the auto-collect predicate.
	ErrTypeImmutable = errors.New("section type is immutable")
)
