package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns for an expected business rule
// wraps exactly one of these; anything else is an infrastructure failure.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrInvalidPrice  = fmt.Errorf("%w: price must be greater than zero with at most two decimal places", ErrInvalidInput)
	ErrInvalidID     = fmt.Errorf("%w: id must be greater than zero", ErrInvalidInput)
	ErrEmptyToken    = fmt.Errorf("%w: token cannot be empty", ErrInvalidInput)
	ErrInvalidStatus = fmt.Errorf("%w: status must be accepted, rejected or canceled", ErrInvalidInput)
	ErrEmptyName     = fmt.Errorf("%w: name is required", ErrInvalidInput)

	ErrProductNotFound     = fmt.Errorf("%w: product", ErrNotFound)
	ErrNegotiationNotFound = fmt.Errorf("%w: negotiation", ErrNotFound)

	ErrNotPending        = fmt.Errorf("%w: negotiation is not pending", ErrConflict)
	ErrNotRejected       = fmt.Errorf("%w: negotiation has not been rejected", ErrConflict)
	ErrConcurrentUpdate  = fmt.Errorf("%w: negotiation was changed by another request", ErrConflict)
	ErrProductNameTaken  = fmt.Errorf("%w: product name is already taken", ErrConflict)
	ErrEmailTaken        = fmt.Errorf("%w: email is already registered", ErrConflict)
	ErrNicknameTaken     = fmt.Errorf("%w: nickname is already taken", ErrConflict)
	ErrInvalidCredential = fmt.Errorf("%w: wrong email or password", ErrUnauthorized)
)

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
