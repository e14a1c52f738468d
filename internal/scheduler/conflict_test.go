package scheduler

import (
	"testing"
	"time"
)

func TestDetectConflicts(t *testing.T) {
	base := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	at := func(hour, minute int) time.Time {
		return base.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	existing := []Window{
		{ID: "r-1", ResourceID: "room-1", Start: at(0, 0), End: at(1, 0)},
		{ID: "r-2", ResourceID: "room-1", Start: at(2, 0), End: at(3, 0)},
		{ID: "r-3", ResourceID: "room-2", Start: at(0, 0), End: at(3, 0)},
	}

	t.Run("overlapping window produces conflict", func(t *testing.T) {
		candidate := Window{ResourceID: "room-1", Start: at(0, 30), End: at(2, 30)}

		conflicts := DetectConflicts(existing, candidate, "")
		if len(conflicts) != 2 {
			t.Fatalf("expected 2 conflicts, got %#v", conflicts)
		}
		if conflicts[0].WithReservationID != "r-1" || conflicts[1].WithReservationID != "r-2" {
			t.Fatalf("unexpected conflict order: %#v", conflicts)
		}
	})

	t.Run("back-to-back windows do not conflict", func(t *testing.T) {
		candidate := Window{ResourceID: "room-1", Start: at(1, 0), End: at(2, 0)}

		if HasConflict(existing, candidate, "") {
			t.Fatalf("expected touching windows to be accepted")
		}
	})

	t.Run("other resources are ignored", func(t *testing.T) {
		candidate := Window{ResourceID: "room-3", Start: at(0, 0), End: at(3, 0)}

		if conflicts := DetectConflicts(existing, candidate, ""); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %#v", conflicts)
		}
	})

	t.Run("excluded reservation is skipped", func(t *testing.T) {
		candidate := Window{ID: "r-1", ResourceID: "room-1", Start: at(0, 15), End: at(1, 15)}

		if HasConflict(existing, candidate, "r-1") {
			t.Fatalf("expected the excluded reservation to be ignored")
		}
		if !HasConflict(existing, candidate, "") {
			t.Fatalf("expected a conflict without the exclusion")
		}
	})

	t.Run("contained window conflicts", func(t *testing.T) {
		candidate := Window{ResourceID: "room-2", Start: at(1, 0), End: at(1, 1)}

		conflicts := DetectConflicts(existing, candidate, "")
		if len(conflicts) != 1 || conflicts[0].WithReservationID != "r-3" {
			t.Fatalf("expected conflict with r-3, got %#v", conflicts)
		}
	})
}

func TestOverlaps(t *testing.T) {
	start := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name   string
		bStart time.Time
		bEnd   time.Time
		want   bool
	}{
		{name: "identical", bStart: start, bEnd: end, want: true},
		{name: "ends at start", bStart: start.Add(-time.Hour), bEnd: start, want: false},
		{name: "starts at end", bStart: end, bEnd: end.Add(time.Hour), want: false},
		{name: "straddles start", bStart: start.Add(-time.Minute), bEnd: start.Add(time.Second), want: true},
		{name: "one second inside end", bStart: end.Add(-time.Second), bEnd: end.Add(time.Hour), want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(start, end, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}
