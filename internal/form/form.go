package form

import (
	"errors"
	"fmt"
	"sync"

	"survey-drafts/internal/drafts"
	"survey-drafts/internal/models"
)

var (
	ErrUnknownField = errors.New("unknown form field")
	ErrWrongInput   = errors.New("input does not match the control kind")
)

// Form is the server-side model of one open survey form. It holds the raw
// control values and which controls the visibility rules currently hide.
type Form struct {
	mu     sync.RWMutex
	fields []Field
	index  map[string]int
	values map[string]models.FieldValue
	// hidden maps a field to the visibility groups hiding it
	hidden map[string]map[string]struct{}
}

// New builds a blank form over the standard catalog
func New() *Form {
	return NewWithFields(Catalog)
}

// NewWithFields builds a form over a custom field list. Fields without an
// id are kept for enumeration but are not addressable.
func NewWithFields(fields []Field) *Form {
	f := &Form{
		fields: append([]Field(nil), fields...),
		index:  make(map[string]int, len(fields)),
		values: make(map[string]models.FieldValue, len(fields)),
		hidden: make(map[string]map[string]struct{}),
	}
	for i, fd := range f.fields {
		if fd.ID == "" {
			continue
		}
		f.index[fd.ID] = i
		f.values[fd.ID] = blank(fd)
	}
	return f
}

func blank(fd Field) models.FieldValue {
	if fd.Kind == KindCheckbox {
		return models.BoolValue(false)
	}
	return models.StringValue(fd.Default)
}

func controlKind(k Kind) drafts.ControlKind {
	if k == KindCheckbox {
		return drafts.ControlCheckbox
	}
	return drafts.ControlValue
}

// Enumerate lists every control in document order
func (f *Form) Enumerate() []drafts.Control {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]drafts.Control, 0, len(f.fields))
	for _, fd := range f.fields {
		out = append(out, drafts.Control{ID: fd.ID, Kind: controlKind(fd.Kind), Value: f.values[fd.ID]})
	}
	return out
}

func (f *Form) Lookup(id string) (drafts.Control, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	i, ok := f.index[id]
	if !ok {
		return drafts.Control{}, false
	}
	fd := f.fields[i]
	return drafts.Control{ID: fd.ID, Kind: controlKind(fd.Kind), Value: f.values[fd.ID]}, true
}

// SetValue stores v as-is. Checkbox controls take the boolean state, the
// rest take the string form.
func (f *Form) SetValue(id string, v models.FieldValue) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.index[id]
	if !ok {
		return false
	}
	if f.fields[i].Kind == KindCheckbox {
		if !v.IsBool {
			v = models.BoolValue(v.Str != "" && v.Str != "false")
		}
	} else if v.IsBool {
		v = models.StringValue(v.String())
	}
	f.values[id] = v
	return true
}

// Reset returns every control to its default and shows everything again;
// callers replay the visibility rules afterwards.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, fd := range f.fields {
		if fd.ID != "" {
			f.values[fd.ID] = blank(fd)
		}
	}
	f.hidden = make(map[string]map[string]struct{})
}

// Input applies one client change. Checkbox controls need Checked, the rest
// need Value; hidden bookkeeping controls are not writable from outside.
func (f *Form) Input(ev models.InputEvent) error {
	f.mu.RLock()
	i, ok := f.index[ev.Field]
	f.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, ev.Field)
	}

	fd := f.fields[i]
	switch {
	case fd.Kind == KindHidden:
		return fmt.Errorf("%w: %q is not user editable", ErrWrongInput, ev.Field)
	case fd.Kind == KindCheckbox && ev.Checked != nil:
		f.SetValue(fd.ID, models.BoolValue(*ev.Checked))
	case fd.Kind != KindCheckbox && ev.Value != nil:
		f.SetValue(fd.ID, models.StringValue(*ev.Value))
	default:
		return fmt.Errorf("%w: %q is a %s control", ErrWrongInput, ev.Field, fd.Kind)
	}
	return nil
}

// Value returns the current string value of a control ("" when unknown)
func (f *Form) Value(id string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values[id].String()
}

// Checked returns the state of a checkbox control
func (f *Form) Checked(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v := f.values[id]
	return v.IsBool && v.Bool
}

// Field returns the definition of a control
func (f *Form) Field(id string) (Field, bool) {
	i, ok := f.index[id]
	if !ok {
		return Field{}, false
	}
	return f.fields[i], true
}

// Fields returns the definitions in document order
func (f *Form) Fields() []Field {
	return append([]Field(nil), f.fields...)
}

// Visible reports whether no visibility group currently hides the control
func (f *Form) Visible(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.hidden[id]) == 0
}

// HiddenFields lists the hidden controls in document order
func (f *Form) HiddenFields() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []string
	for _, fd := range f.fields {
		if len(f.hidden[fd.ID]) > 0 {
			out = append(out, fd.ID)
		}
	}
	return out
}

// setHidden records whether group hides the given controls
func (f *Form) setHidden(group string, ids []string, hide bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range ids {
		if _, ok := f.index[id]; !ok {
			continue
		}
		if !hide {
			delete(f.hidden[id], group)
			if len(f.hidden[id]) == 0 {
				delete(f.hidden, id)
			}
			continue
		}
		if f.hidden[id] == nil {
			f.hidden[id] = make(map[string]struct{})
		}
		f.hidden[id][group] = struct{}{}
	}
}
