package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "unauthorized", err: ErrUnauthorized, want: "unauthorized"},
		{name: "wrapped not found", err: fmt.Errorf("get: %w", ErrNotFound), want: "not_found"},
		{name: "conflict", err: &ConflictError{}, want: "conflict"},
		{name: "storage conflict", err: &ConflictError{StorageConflict: true}, want: "storage_conflict"},
		{name: "duplicate claim", err: &DuplicateActiveReservationError{}, want: "duplicate_active_reservation"},
		{name: "validation", err: newValidationError("end", "end before start"), want: "validation"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "unexpected", err: errors.New("boom"), want: "unexpected"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
