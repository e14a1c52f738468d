package testfixtures

import "testing"

func TestIDGenerator(t *testing.T) {
	gen := NewIDGenerator("reservation")

	if first, second := gen.Next(), gen.Next(); first != "reservation-001" || second != "reservation-002" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}

	gen.Reset("res")
	if next := gen.Next(); next != "res-001" {
		t.Fatalf("expected res-001 after reset, got %q", next)
	}

	if next := NewIDGenerator("").Next(); next != "id-001" {
		t.Fatalf("expected default prefix, got %q", next)
	}
}
