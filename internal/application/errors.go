package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a record with the same identity already exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict matches every ConflictError.
	ErrConflict = errors.New("application: reservation conflict")
	// ErrStorageConflict matches ConflictErrors raised by a storage constraint
	// at commit time rather than by the pre-check.
	ErrStorageConflict = errors.New("application: reservation conflict detected by storage")
	// ErrDuplicateActiveReservation matches every DuplicateActiveReservationError.
	ErrDuplicateActiveReservation = errors.New("application: actor already holds an active reservation")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// ReservationConflict describes an active reservation that overlaps a requested window.
type ReservationConflict struct {
	ReservationID string
	ResourceID    string
	Start         time.Time
	End           time.Time
}

// ConflictError reports that a requested window overlaps active reservations
// on the same resource.
type ConflictError struct {
	ResourceID string
	Start      time.Time
	End        time.Time
	Conflicts  []ReservationConflict
	// StorageConflict is set when the overlap was rejected by the storage
	// constraint after the pre-check passed.
	StorageConflict bool
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("resource %s is already reserved between %s and %s",
		e.ResourceID, e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339))
	if len(e.Conflicts) > 0 {
		ids := make([]string, 0, len(e.Conflicts))
		for _, conflict := range e.Conflicts {
			ids = append(ids, conflict.ReservationID)
		}
		msg += " (conflicts with " + strings.Join(ids, ", ") + ")"
	}
	return msg
}

// Is matches ErrConflict, and ErrStorageConflict when raised by storage.
func (e *ConflictError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return true
	case ErrStorageConflict:
		return e != nil && e.StorageConflict
	}
	return false
}

// DuplicateActiveReservationError reports the actor's existing station claim.
type DuplicateActiveReservationError struct {
	ActorID       string
	ReservationID string
	ResourceID    string
	ResourceLabel string
	End           time.Time
}

// Error implements the error interface.
func (e *DuplicateActiveReservationError) Error() string {
	if e == nil {
		return ""
	}
	target := e.ResourceID
	if e.ResourceLabel != "" {
		target = e.ResourceLabel
	}
	if e.End.IsZero() {
		return fmt.Sprintf("actor %s already holds an active reservation", e.ActorID)
	}
	return fmt.Sprintf("actor %s already holds %s until %s",
		e.ActorID, target, e.End.UTC().Format(time.RFC3339))
}

// Is matches ErrDuplicateActiveReservation.
func (e *DuplicateActiveReservationError) Is(target error) bool {
	return target == ErrDuplicateActiveReservation
}
