package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Run("defaults to reference time", func(t *testing.T) {
		clock := NewClock(time.Time{})
		if !clock.Now().Equal(ReferenceTime()) {
			t.Fatalf("expected ReferenceTime, got %v", clock.Now())
		}
	})

	t.Run("advance and set", func(t *testing.T) {
		clock := NewClock(At(8, 0))

		if got := clock.Advance(90 * time.Minute); !got.Equal(At(9, 30)) {
			t.Fatalf("advance returned %v", got)
		}

		clock.Set(At(7, 15))
		if got := clock.Now(); !got.Equal(At(7, 15)) {
			t.Fatalf("expected %v, got %v", At(7, 15), got)
		}
	})

	t.Run("now func follows the clock", func(t *testing.T) {
		clock := NewClock(At(8, 0))
		nowFn := clock.NowFunc()

		clock.Advance(time.Minute)
		if got := nowFn(); !got.Equal(At(8, 1)) {
			t.Fatalf("expected %v, got %v", At(8, 1), got)
		}
	})

	t.Run("nil clock uses wall time", func(t *testing.T) {
		var clock *Clock
		if clock.NowFunc()().IsZero() {
			t.Fatalf("expected wall clock time")
		}
	})
}
