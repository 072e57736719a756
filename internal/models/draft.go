package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FormType tags which variant of the survey form is active
type FormType string

const (
	FormTypeCabling FormType = "utp_fibra" // UTP + fiber cabling
	FormTypeCameras FormType = "cameras"   // CCTV
)

// FieldValue is the value of one form control: a checkbox state or a raw string.
// Numbers stay strings so a half-typed value survives a reload.
type FieldValue struct {
	Str    string
	Bool   bool
	IsBool bool
}

func StringValue(s string) FieldValue { return FieldValue{Str: s} }

func BoolValue(b bool) FieldValue { return FieldValue{Bool: b, IsBool: true} }

// String renders the value the way a text control would show it
func (v FieldValue) String() string {
	if v.IsBool {
		return strconv.FormatBool(v.Bool)
	}
	return v.Str
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.IsBool {
		return json.Marshal(v.Bool)
	}
	return json.Marshal(v.Str)
}

// UnmarshalJSON is tolerant: numbers keep their literal text, null is empty.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*v = FieldValue{}
	case bytes.Equal(data, []byte("true")):
		*v = BoolValue(true)
	case bytes.Equal(data, []byte("false")):
		*v = BoolValue(false)
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = StringValue(n.String())
	default:
		return fmt.Errorf("unsupported field value: %s", data)
	}
	return nil
}

// Snapshot maps field identifiers to their values
type Snapshot map[string]FieldValue

// Clone returns an independent copy
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Draft is a locally persisted snapshot of one in-progress survey form.
// JSON names are the storage format; there is no version field, so decoding
// must keep tolerating missing keys.
type Draft struct {
	ID             string    `json:"id"`
	UserID         *int      `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	FormType       FormType  `json:"form_type"`
	Label          string    `json:"label"`
	LinkedRecordID *int64    `json:"linked_record_id"`
	FieldSnapshot  Snapshot  `json:"field_snapshot"`
}

// wireDraft is the lenient shape of a stored entry. Every field is kept raw
// and converted on its own, so one bad value never loses the whole entry.
type wireDraft struct {
	ID             json.RawMessage `json:"id"`
	UserID         json.RawMessage `json:"user_id"`
	CreatedAt      json.RawMessage `json:"created_at"`
	UpdatedAt      json.RawMessage `json:"updated_at"`
	FormType       json.RawMessage `json:"form_type"`
	Label          json.RawMessage `json:"label"`
	LinkedRecordID json.RawMessage `json:"linked_record_id"`
	FieldSnapshot  json.RawMessage `json:"field_snapshot"`
}

// UnmarshalJSON fails only when data is not a JSON object. Wrong-typed
// fields decode to their zero value: bad timestamps are zero, a non-numeric
// owner is anonymous, and snapshot entries that are neither string, number
// nor bool are left out.
func (d *Draft) UnmarshalJSON(data []byte) error {
	var w wireDraft
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*d = Draft{
		ID:        looseString(w.ID),
		CreatedAt: looseTime(w.CreatedAt),
		UpdatedAt: looseTime(w.UpdatedAt),
		FormType:  FormType(looseString(w.FormType)),
		Label:     looseString(w.Label),
	}
	if n, ok := looseInt(w.UserID); ok {
		id := int(n)
		d.UserID = &id
	}
	if n, ok := looseInt(w.LinkedRecordID); ok {
		d.LinkedRecordID = &n
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(w.FieldSnapshot, &fields) == nil && fields != nil {
		d.FieldSnapshot = make(Snapshot, len(fields))
		for id, raw := range fields {
			var v FieldValue
			if v.UnmarshalJSON(raw) == nil {
				d.FieldSnapshot[id] = v
			}
		}
	}
	return nil
}

// looseString accepts a string or a number literal
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// looseInt accepts an integer or a string holding one
func looseInt(raw json.RawMessage) (int64, bool) {
	s := looseString(raw)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func looseTime(raw json.RawMessage) time.Time {
	var s string
	if json.Unmarshal(raw, &s) != nil || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// OwnedBy reports whether the draft belongs to op (nil op means anonymous)
func (d *Draft) OwnedBy(op *Operator) bool {
	if op == nil {
		return d.UserID == nil
	}
	return d.UserID != nil && *d.UserID == op.ID
}

// PartialDraft carries the caller-controlled fields of a save.
// Ownership and timestamps are never taken from here.
type PartialDraft struct {
	ID             string
	FormType       *FormType
	Label          *string
	LinkedRecordID *int64
	FieldSnapshot  Snapshot
}
