package expectation

import (
	"math"
	"time"

	"coachline/internal/domain"
)

// Bounds of the accepted date window for expectation ranges.
var (
	MinDate = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(3000, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Candidate carries the caller-suppliable fields of an expectation. Audit
// fields and the id are the repository's business.
type Candidate struct {
	ResourceID  int
	Performance float64
	OneToOne    float64
	SideBySide  float64
	StartDate   string
	EndDate     string
	Type        string
	Active      bool
}

// Validate checks field values in order and stops at the first failure.
// It performs no I/O; overlap detection is a separate, explicitly invoked
// step because it needs the persisted active set.
func Validate(c Candidate) error {
	counts := []struct {
		field string
		value float64
	}{
		{"performance", c.Performance},
		{"one_to_one", c.OneToOne},
		{"side_by_side", c.SideBySide},
	}
	for _, cnt := range counts {
		if math.IsNaN(cnt.value) || math.IsInf(cnt.value, 0) {
			return ValidationError{Field: cnt.field, Reason: "must be numeric"}
		}
		if cnt.value < 0 {
			return ValidationError{Field: cnt.field, Reason: "must not be negative"}
		}
	}
	start, err := ParseDate(c.StartDate)
	if err != nil {
		return ValidationError{Field: "start_date", Reason: "must be a yyyy-MM-dd date"}
	}
	if start.Before(MinDate) {
		return ValidationError{Field: "start_date", Reason: "must be on or after 1990-01-01"}
	}
	end, err := ParseDate(c.EndDate)
	if err != nil {
		return ValidationError{Field: "end_date", Reason: "must be a yyyy-MM-dd date"}
	}
	if end.After(MaxDate) {
		return ValidationError{Field: "end_date", Reason: "must be on or before 3000-12-31"}
	}
	if end.Before(start) {
		return ValidationError{Field: "end_date", Reason: "must not precede start_date"}
	}
	if !domain.ValidExpectationType(c.Type) {
		return ValidationError{Field: "type", Reason: "unknown expectation type"}
	}
	return nil
}

// ParseDate parses a yyyy-MM-dd date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
