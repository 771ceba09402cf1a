package storage

import "errors"

var (
	// ErrNotFound reports that no document exists with the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable reports that the underlying store could not be reached.
	ErrUnavailable = errors.New("document store unavailable")
	// ErrEmptyContent reports an attempt to store a document with no body.
	ErrEmptyContent = errors.New("document content is empty")
)
