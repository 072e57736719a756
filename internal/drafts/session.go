package drafts

import (
	"sync"

	"survey-drafts/internal/models"
)

// SessionContext is the per-form binding state: who is editing, which draft
// the form writes to and which server record it mirrors. It replaces the
// ambient globals a page script would keep.
type SessionContext struct {
	mu             sync.RWMutex
	operator       *models.Operator
	draftID        string
	linkedRecordID *int64
	formType       models.FormType
}

func NewSessionContext(op *models.Operator, formType models.FormType) *SessionContext {
	if formType == "" {
		formType = models.FormTypeCabling
	}
	return &SessionContext{operator: op, formType: formType}
}

func (s *SessionContext) Operator() *models.Operator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.operator
}

// SetOperator swaps the authenticated operator. Bindings are left alone;
// logout goes through the bridge which clears them.
func (s *SessionContext) SetOperator(op *models.Operator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operator = op
}

func (s *SessionContext) DraftID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draftID
}

func (s *SessionContext) SetDraftID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftID = id
}

func (s *SessionContext) LinkedRecordID() *int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyID(s.linkedRecordID)
}

func (s *SessionContext) FormType() models.FormType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.formType
}

func (s *SessionContext) SetFormType(t models.FormType) {
	if t == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formType = t
}

// Bind points the session at a stored draft
func (s *SessionContext) Bind(d *models.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftID = d.ID
	s.linkedRecordID = copyID(d.LinkedRecordID)
	if d.FormType != "" {
		s.formType = d.FormType
	}
}

// OpenRecord starts editing a server record. The draft binding is dropped;
// the next save creates a draft linked to the record.
func (s *SessionContext) OpenRecord(recordID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftID = ""
	s.linkedRecordID = &recordID
}

// Clear drops both bindings
func (s *SessionContext) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draftID = ""
	s.linkedRecordID = nil
}

func (s *SessionContext) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.draftID == "":
		return models.StateUnbound
	case s.linkedRecordID != nil:
		return models.StateBoundEditing
	default:
		return models.StateBoundNew
	}
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
