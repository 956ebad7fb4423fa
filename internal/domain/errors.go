package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAllocationNotFound = errors.New("allocation not found")
	ErrAllocationExists   = errors.New("allocation already exists")
	ErrCatalogUnavailable = errors.New("account catalog unavailable")
	ErrStoreUnavailable   = errors.New("allocation store unavailable")
)

// IsRetryable reports whether err is a transient collaborator failure the caller
// may retry unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCatalogUnavailable) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
