package drafts

import (
	"errors"
	"fmt"
)

var (
	// ErrDraftNotFound is returned when a draft is absent or not visible to the operator
	ErrDraftNotFound = errors.New("draft not found")
	// ErrSessionNotFound is returned for an unknown or closed form session
	ErrSessionNotFound = errors.New("form session not found")
)

// PersistError reports that the draft list could not be written.
// In-memory state stays authoritative; callers decide whether to surface it.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist drafts (%s): %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IsPersistError reports whether err carries a *PersistError
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
