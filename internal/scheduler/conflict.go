package scheduler

import (
	"sort"
	"time"
)

// Window is a reserved half-open interval [Start, End) on a single resource.
type Window struct {
	ID         string
	ResourceID string
	Start      time.Time
	End        time.Time
}

// Conflict details an existing window that overlaps a candidate window.
type Conflict struct {
	WithReservationID string
	ResourceID        string
	Start             time.Time
	End               time.Time
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Windows that only touch at a boundary do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DetectConflicts returns the existing windows on the candidate's resource that
// overlap the candidate. The window whose ID equals excludeID is ignored so an
// update can be checked against everything but itself. Results are ordered by
// start time.
func DetectConflicts(existing []Window, candidate Window, excludeID string) []Conflict {
	var conflicts []Conflict
	for _, window := range existing {
		if excludeID != "" && window.ID == excludeID {
			continue
		}
		if window.ResourceID != candidate.ResourceID {
			continue
		}
		if !Overlaps(window.Start, window.End, candidate.Start, candidate.End) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithReservationID: window.ID,
			ResourceID:        window.ResourceID,
			Start:             window.Start,
			End:               window.End,
		})
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Start.Equal(conflicts[j].Start) {
			return conflicts[i].WithReservationID < conflicts[j].WithReservationID
		}
		return conflicts[i].Start.Before(conflicts[j].Start)
	})

	return conflicts
}

// HasConflict reports whether any existing window overlaps the candidate.
func HasConflict(existing []Window, candidate Window, excludeID string) bool {
	return len(DetectConflicts(existing, candidate, excludeID)) > 0
}
