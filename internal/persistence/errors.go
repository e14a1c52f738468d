package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record with the same identity already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a row violates a check constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a row references a missing record.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrOverlap is returned when an active reservation would overlap another
	// active reservation on the same resource.
	ErrOverlap = errors.New("persistence: reservation overlap")
	// ErrActiveClaimExists is returned when an actor already holds an active
	// station reservation.
	ErrActiveClaimExists = errors.New("persistence: active station claim exists")
	// ErrStaleState is returned by conditional updates whose precondition no
	// longer holds.
	ErrStaleState = errors.New("persistence: stale state")
)
