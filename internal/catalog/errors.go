package catalog

import "errors"

var (
	// ErrDocumentNotFound is returned when no local copy of a document exists.
	ErrDocumentNotFound = errors.New("catalog: document not found")

	// ErrFetchFailed is returned when a remote document cannot be retrieved.
	ErrFetchFailed = errors.New("catalog: fetch failed")

	// ErrInvalidDocument is returned when a document cannot be decoded.
	ErrInvalidDocument = errors.New("catalog: invalid document")
)
