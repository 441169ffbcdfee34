package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPrice rejects non-positive observed prices before anything
	// touches the snapshot ledger.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrInvalidURL means the submitted URL does not belong to a configured
	// marketplace.
	ErrInvalidURL = errors.New("url does not match a supported marketplace")

	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// QuotaError is returned when an unverified user hits the free-tier product
// limit. Limit and Current surface to the client unchanged.
type QuotaError struct {
	Limit   int
	Current int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("product limit reached (%d of %d)", e.Current, e.Limit)
}
