package drafts

import (
	"context"

	"survey-drafts/internal/models"
)

/*
Interfaces live with their consumer. The draft core only needs:
  - a key-value blob store (repository package implements several)
  - a form it can enumerate and write to (form package implements it)
  - the visibility rules of that form
  - something that tells the draft list view to refresh
*/

// KeyValueStore is the persistence boundary. Get returns nil, nil for a
// key that was never written.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ControlKind separates controls that hold a checked state from the rest
type ControlKind int

const (
	ControlValue    ControlKind = iota // text, number, date, select, textarea, hidden
	ControlCheckbox                    // checkbox and radio
)

// Control is one enumerated form control. Controls with an empty ID cannot
// be restored unambiguously and are never captured.
type Control struct {
	ID    string
	Kind  ControlKind
	Value models.FieldValue
}

// FieldProvider abstracts the live form
type FieldProvider interface {
	Enumerate() []Control
	Lookup(id string) (Control, bool)
	// SetValue reports false when no control has that id
	SetValue(id string, v models.FieldValue) bool
}

// ResettableForm is a form that can go back to its blank state
type ResettableForm interface {
	FieldProvider
	Reset()
}

// Visibility re-derives conditional sections. Each group is idempotent and
// has its own trigger logic, so callers replay them one by one.
type Visibility interface {
	Groups() []string
	Apply(group string)
}

// ListRefresher asks the draft list view of an operator to reload
type ListRefresher interface {
	RefreshDrafts(op *models.Operator)
}

// Pending is a scheduled action that can be dropped
type Pending interface {
	Cancel()
}
