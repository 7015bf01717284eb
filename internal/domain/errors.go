package domain

import "errors"

var (
	// ErrPaperNotFound signals a missing or invisible paper.
	ErrPaperNotFound = errors.New("paper not found")
	// ErrValidation signals an invalid paper payload.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden signals an operation attempted by a non-owner.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidQuery signals an empty or over-length search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrProviderUnavailable signals that the embedding provider failed to
	// initialize or failed on a call.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrStorageUnavailable signals that the document/embedding store cannot
	// be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrVectorDimMismatch signals a stored vector whose dimensionality does
	// not match the provider's.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
