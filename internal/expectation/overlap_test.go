package expectation

import (
	"testing"
	"time"

	"coachline/internal/domain"
)

func row(id, resource int, expType, start, end string, active bool) domain.Expectation {
	return domain.Expectation{
		ID:         id,
		ResourceID: resource,
		Type:       expType,
		StartDate:  start,
		EndDate:    end,
		Active:     active,
	}
}

func d(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return parsed
}

func TestFindConflictInclusiveBoundary(t *testing.T) {
	rows := []domain.Expectation{row(1, 10, "Agent", "2024-01-01", "2024-03-31", true)}
	// New range starting exactly on the existing end date conflicts.
	id, found := FindConflict(rows, 10, "Agent", d(t, "2024-03-31"), d(t, "2024-06-30"), 0)
	if !found || id != 1 {
		t.Fatalf("expected conflict with 1, got %d %v", id, found)
	}
}

func TestFindConflictAdjacentRangesDoNotOverlap(t *testing.T) {
	rows := []domain.Expectation{row(1, 10, "Agent", "2024-01-01", "2024-03-31", true)}
	if id, found := FindConflict(rows, 10, "Agent", d(t, "2024-04-01"), d(t, "2024-06-30"), 0); found {
		t.Fatalf("adjacent range must not conflict, got %d", id)
	}
}

func TestFindConflictContainment(t *testing.T) {
	rows := []domain.Expectation{row(1, 10, "Agent", "2024-02-01", "2024-02-28", true)}
	// New interval fully contains the stored one.
	if _, found := FindConflict(rows, 10, "Agent", d(t, "2024-01-01"), d(t, "2024-12-31"), 0); !found {
		t.Fatal("containment must conflict")
	}
	// Stored interval fully contains the new one.
	if _, found := FindConflict(rows, 10, "Agent", d(t, "2024-02-10"), d(t, "2024-02-15"), 0); !found {
		t.Fatal("being contained must conflict")
	}
}

func TestFindConflictSkipsInactive(t *testing.T) {
	rows := []domain.Expectation{row(1, 10, "Agent", "2024-01-01", "2024-12-31", false)}
	if _, found := FindConflict(rows, 10, "Agent", d(t, "2024-06-01"), d(t, "2024-06-30"), 0); found {
		t.Fatal("inactive rows must be ignored")
	}
}

func TestFindConflictScopesResourceAndType(t *testing.T) {
	rows := []domain.Expectation{
		row(1, 10, "Agent", "2024-01-01", "2024-12-31", true),
		row(2, 11, "Agent", "2024-01-01", "2024-12-31", true),
		row(3, 10, "Workgroup", "2024-01-01", "2024-12-31", true),
	}
	if id, found := FindConflict(rows, 11, "Workgroup", d(t, "2024-06-01"), d(t, "2024-06-30"), 0); found {
		t.Fatalf("different resource and type must not conflict, got %d", id)
	}
	if id, found := FindConflict(rows, 10, "Workgroup", d(t, "2024-06-01"), d(t, "2024-06-30"), 0); !found || id != 3 {
		t.Fatalf("expected conflict with 3, got %d %v", id, found)
	}
}

func TestFindConflictExcludesID(t *testing.T) {
	rows := []domain.Expectation{row(7, 10, "Agent", "2024-01-01", "2024-12-31", true)}
	if _, found := FindConflict(rows, 10, "Agent", d(t, "2024-01-01"), d(t, "2024-12-31"), 7); found {
		t.Fatal("a row must not conflict with itself when excluded")
	}
}

func TestFindConflictFirstMatchInStorageOrder(t *testing.T) {
	// Row 5 sits earlier in storage even though row 2 has the earlier
	// interval; the scan reports the first stored match.
	rows := []domain.Expectation{
		row(5, 10, "Agent", "2024-06-01", "2024-06-30", true),
		row(2, 10, "Agent", "2024-01-01", "2024-12-31", true),
	}
	id, found := FindConflict(rows, 10, "Agent", d(t, "2024-06-15"), d(t, "2024-07-15"), 0)
	if !found || id != 5 {
		t.Fatalf("expected first stored match 5, got %d %v", id, found)
	}
}

func TestFindConflictSkipsUnparseableRows(t *testing.T) {
	rows := []domain.Expectation{
		row(1, 10, "Agent", "garbage", "2024-12-31", true),
		row(2, 10, "Agent", "2024-01-01", "2024-12-31", true),
	}
	id, found := FindConflict(rows, 10, "Agent", d(t, "2024-06-01"), d(t, "2024-06-30"), 0)
	if !found || id != 2 {
		t.Fatalf("expected 2 after skipping bad row, got %d %v", id, found)
	}
}
