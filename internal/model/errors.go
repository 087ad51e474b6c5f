package model

import "errors"

// Lookup errors.
var (
	ErrItemNotFound        = errors.New("item not found")
	ErrLocationNotFound    = errors.New("location not found")
	ErrRecordNotFound      = errors.New("assignment not found")
	ErrItemTypeNotFound    = errors.New("item type not found")
	ErrAssociationNotFound = errors.New("association not found")
)

// State errors.
var (
	// ErrAlreadyClosed is returned when closing an assignment that has a removal time.
	ErrAlreadyClosed = errors.New("assignment already removed")

	// ErrInvariantViolation means more than one active assignment exists for
	// an item. It is never recovered from.
	ErrInvariantViolation = errors.New("invariant violation: multiple active assignments")

	// ErrConcurrencyConflict is a transient failure caused by a concurrent writer.
	ErrConcurrencyConflict = errors.New("concurrent modification, retry")

	ErrDuplicate    = errors.New("already exists")
	ErrInUse        = errors.New("still referenced")
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound reports whether err is any of the lookup errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrLocationNotFound) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrItemTypeNotFound) ||
		errors.Is(err, ErrAssociationNotFound)
}
