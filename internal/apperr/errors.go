package apperr

import "errors"

var (
	ErrSourceMissing = errors.New("source directory not found")
	ErrNoGalleries   = errors.New("no gallery directories found")
	ErrLocked        = errors.New("another build holds the output lock")
	ErrItemsFailed   = errors.New("one or more images failed to process")
	ErrDuplicateID   = errors.New("duplicate identifier")
	ErrNotFound      = errors.New("not found")
)
