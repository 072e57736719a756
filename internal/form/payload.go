package form

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"survey-drafts/internal/models"
)

// ErrValidation is matched by every *ValidationError
var ErrValidation = errors.New("validation failed")

// FieldProblem is one rejected value
type FieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in one pass
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Payload is the typed record body sent to the survey API
type Payload map[string]any

var requiredFields = []string{FieldCustomer, FieldDate}

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

/*
BuildPayload turns the raw snapshot into typed values. Drafts keep numbers as
typed text so a half-finished value survives a reload; this is where they
become ints and floats. Empty values are sent as null.
*/
func BuildPayload(snap models.Snapshot, fields []Field) (Payload, error) {
	out := make(Payload, len(fields))
	var problems []FieldProblem

	for _, fd := range fields {
		if fd.ID == "" || fd.Kind == KindHidden {
			continue
		}
		v, ok := snap[fd.ID]
		if fd.Kind == KindCheckbox {
			out[fd.ID] = ok && v.IsBool && v.Bool
			continue
		}

		raw := strings.TrimSpace(v.String())
		if raw == "" {
			out[fd.ID] = nil
			continue
		}

		typed, err := convert(fd, raw)
		if err != nil {
			problems = append(problems, FieldProblem{Field: fd.ID, Message: err.Error()})
			continue
		}
		out[fd.ID] = typed
	}

	if _, ok := out[FieldStatus]; ok && out[FieldStatus] == nil {
		out[FieldStatus] = defaultStatus
	}
	for _, id := range requiredFields {
		if _, known := out[id]; !known {
			continue
		}
		if out[id] == nil && !hasProblem(problems, id) {
			problems = append(problems, FieldProblem{Field: id, Message: "required"})
		}
	}

	if len(problems) > 0 {
		sort.SliceStable(problems, func(i, j int) bool { return problems[i].Field < problems[j].Field })
		return nil, &ValidationError{Problems: problems}
	}
	return out, nil
}

func convert(fd Field, raw string) (any, error) {
	switch fd.Kind {
	case KindNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a whole number", raw)
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative")
		}
		return n, nil
	case KindDecimal:
		f, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return f, nil
	case KindDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.Format("2006-01-02"), nil
			}
		}
		return nil, fmt.Errorf("%q is not a date (YYYY-MM-DD)", raw)
	case KindSelect:
		if len(fd.Options) > 0 && !contains(fd.Options, raw) {
			return nil, fmt.Errorf("%q is not one of %s", raw, strings.Join(fd.Options, ", "))
		}
		return raw, nil
	default:
		return raw, nil
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasProblem(problems []FieldProblem, id string) bool {
	for _, p := range problems {
		if p.Field == id {
			return true
		}
	}
	return false
}
