package expectation

import (
	"errors"
	"math"
	"testing"
)

func validCandidate() Candidate {
	return Candidate{
		ResourceID:  10,
		Performance: 2,
		OneToOne:    1,
		SideBySide:  0.5,
		StartDate:   "2024-01-01",
		EndDate:     "2024-06-30",
		Type:        "Agent",
		Active:      true,
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := Validate(validCandidate()); err != nil {
		t.Fatalf("valid candidate rejected: %v", err)
	}
}

func TestValidateRejectsInOrder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Candidate)
		field  string
	}{
		{"negative performance", func(c *Candidate) { c.Performance = -1 }, "performance"},
		{"nan one_to_one", func(c *Candidate) { c.OneToOne = math.NaN() }, "one_to_one"},
		{"inf side_by_side", func(c *Candidate) { c.SideBySide = math.Inf(1) }, "side_by_side"},
		{"unparseable start", func(c *Candidate) { c.StartDate = "01/01/2024" }, "start_date"},
		{"start before window", func(c *Candidate) { c.StartDate = "1989-12-31" }, "start_date"},
		{"unparseable end", func(c *Candidate) { c.EndDate = "soon" }, "end_date"},
		{"end after window", func(c *Candidate) { c.EndDate = "3001-01-01" }, "end_date"},
		{"end before start", func(c *Candidate) { c.StartDate = "2024-06-30"; c.EndDate = "2024-01-01" }, "end_date"},
		{"unknown type", func(c *Candidate) { c.Type = "Team" }, "type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validCandidate()
			tc.mutate(&c)
			err := Validate(c)
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, ve.Field)
			}
		})
	}
}

func TestValidateShortCircuits(t *testing.T) {
	// Both the cadence and the date are bad; the cadence check comes first.
	c := validCandidate()
	c.Performance = -3
	c.StartDate = "not-a-date"
	err := Validate(c)
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Field != "performance" {
		t.Fatalf("expected performance error first, got %v", err)
	}
}

func TestValidateWindowBounds(t *testing.T) {
	c := validCandidate()
	c.StartDate = "1990-01-01"
	c.EndDate = "3000-12-31"
	if err := Validate(c); err != nil {
		t.Fatalf("window bounds are inclusive: %v", err)
	}
}

func TestValidateSingleDayRange(t *testing.T) {
	c := validCandidate()
	c.StartDate = "2024-03-15"
	c.EndDate = "2024-03-15"
	if err := Validate(c); err != nil {
		t.Fatalf("equal start and end must be allowed: %v", err)
	}
}
