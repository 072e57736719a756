package models

import (
	"time"
)

// SessionState is where a form-editing session stands relative to its draft
type SessionState string

const (
	StateUnbound      SessionState = "UNBOUND"       // no draft id yet
	StateBoundNew     SessionState = "BOUND_NEW"     // draft id, no server record
	StateBoundEditing SessionState = "BOUND_EDITING" // draft id and server record
)

// SessionInfo is the public view of a form session
type SessionInfo struct {
	ID              string       `json:"id"`
	Operator        *Operator    `json:"operator"`
	State           SessionState `json:"state"`
	DraftID         string       `json:"draft_id,omitempty"`
	LinkedRecordID  *int64       `json:"linked_record_id,omitempty"`
	FormType        FormType     `json:"form_type"`
	OpenedAt        time.Time    `json:"opened_at"`
	LastActiveAt    time.Time    `json:"last_active_at"`
	AutosavePending bool         `json:"autosave_pending"`
	Snapshot        Snapshot     `json:"field_snapshot,omitempty"`
}

// InputEvent is one change to a form control coming from the client.
// Checked is set for checkbox-like controls, Value for everything else.
type InputEvent struct {
	Field   string  `json:"field"`
	Value   *string `json:"value,omitempty"`
	Checked *bool   `json:"checked,omitempty"`
}

// MessageType defines the messages pushed to a session's socket
type MessageType string

const (
	MessageTypeAutosaved     MessageType = "autosaved"      // silent save done
	MessageTypeSaved         MessageType = "saved"          // manual save done
	MessageTypeDraftsChanged MessageType = "drafts_changed" // list view should refresh
	MessageTypeError         MessageType = "error"
)

// SessionMessage is the envelope written to the websocket
type SessionMessage struct {
	Type    MessageType `json:"type"`
	DraftID string      `json:"draft_id,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Inbound socket message types
const (
	InboundInput = "input"
	InboundSave  = "save"
)

// InboundMessage is what the client writes to the session socket
type InboundMessage struct {
	Type   string       `json:"type"`
	Events []InputEvent `json:"events,omitempty"`
}
