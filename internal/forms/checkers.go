package forms

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"coachline/internal/expectation"
)

// Question kinds. Each kind carries its own answer-value checker.
const (
	KindCheckbox   = "checkbox"
	KindText       = "text"
	KindCategory   = "category"
	KindIdentifier = "identifier"
)

// Rules parameterizes the per-kind checkers from configuration.
type Rules struct {
	Categories    []string
	MaxTextLength int
}

// Checker validates one answer value for a question kind.
type Checker func(value string, rules Rules) error

// checkers is a flat function table, one entry per kind. Selection happens
// here and nowhere else.
var checkers = map[string]Checker{
	KindCheckbox:   checkCheckbox,
	KindText:       checkText,
	KindCategory:   checkCategory,
	KindIdentifier: checkIdentifier,
}

// CheckerFor returns the checker for the given kind.
func CheckerFor(kind string) (Checker, bool) {
	c, ok := checkers[kind]
	return c, ok
}

// ValidKind reports whether kind names a known question kind.
func ValidKind(kind string) bool {
	_, ok := checkers[kind]
	return ok
}

func checkCheckbox(value string, _ Rules) error {
	switch value {
	case "true", "false":
		return nil
	}
	return expectation.ValidationError{Field: "value", Reason: "must be true or false"}
}

func checkText(value string, rules Rules) error {
	if strings.TrimSpace(value) == "" {
		return expectation.ValidationError{Field: "value", Reason: "must not be empty"}
	}
	if rules.MaxTextLength > 0 && utf8.RuneCountInString(value) > rules.MaxTextLength {
		return expectation.ValidationError{Field: "value", Reason: fmt.Sprintf("must be at most %d characters", rules.MaxTextLength)}
	}
	return nil
}

func checkCategory(value string, rules Rules) error {
	for _, c := range rules.Categories {
		if c == value {
			return nil
		}
	}
	return expectation.ValidationError{Field: "value", Reason: "not in the category vocabulary"}
}

func checkIdentifier(value string, _ Rules) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return expectation.ValidationError{Field: "value", Reason: "must be a positive integer"}
	}
	return nil
}
