package domain

import "errors"

// Storage-level conflicts surfaced by repositories.
var (
	// ErrIdempotencyKeyConflict is returned when a payment insert loses the
	// race on the unique idempotency_key index.
	ErrIdempotencyKeyConflict = errors.New("idempotency key already used")

	// ErrOrderAlreadyPaid is returned by the conditional status update when the
	// order was settled by a concurrent request.
	ErrOrderAlreadyPaid = errors.New("order already paid")
)
