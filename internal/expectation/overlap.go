package expectation

import (
	"time"

	"coachline/internal/domain"
)

// FindConflict scans rows in storage order and returns the id of the first
// active expectation for the same resource and type whose [start, end]
// intersects the candidate interval (inclusive on both bounds, containment
// in either direction included). excludeID skips the record being updated;
// pass 0 for inserts. The first match in row order wins — not the earliest
// conflicting interval.
func FindConflict(rows []domain.Expectation, resourceID int, expType string, start, end time.Time, excludeID int) (int, bool) {
	for _, row := range rows {
		if !row.Active {
			continue
		}
		if row.ResourceID != resourceID || row.Type != expType {
			continue
		}
		if excludeID != 0 && row.ID == excludeID {
			continue
		}
		rowStart, err := ParseDate(row.StartDate)
		if err != nil {
			continue
		}
		rowEnd, err := ParseDate(row.EndDate)
		if err != nil {
			continue
		}
		if intervalsOverlap(start, end, rowStart, rowEnd) {
			return row.ID, true
		}
	}
	return 0, false
}

// intervalsOverlap is the three-way inclusive test: the new start falls
// inside the existing interval, the new end does, or the new interval fully
// contains the existing one.
func intervalsOverlap(newStart, newEnd, start, end time.Time) bool {
	if within(newStart, start, end) {
		return true
	}
	if within(newEnd, start, end) {
		return true
	}
	return !start.Before(newStart) && !end.After(newEnd)
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
