package validation

import (
	"sort"
	"strings"
)

// Error collects field-level validation messages.
type Error struct {
	Fields map[string][]string
}

func (e *Error) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *Error) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// Err returns nil when no field failed.
func (e *Error) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *Error) Error() string {
	if e.Empty() {
		return "validation: invalid input"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation: " + strings.Join(parts, ", ")
}

// Field builds a single-field error.
func Field(field, message string) error {
	e := &Error{}
	e.Add(field, message)
	return e
}
