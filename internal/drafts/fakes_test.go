package drafts

import (
	"context"
	"errors"
	"sync"

	"survey-drafts/internal/models"
)

// fakeForm is an in-memory FieldProvider
type fakeForm struct {
	order  []string
	kinds  map[string]ControlKind
	values map[string]models.FieldValue
}

func newFakeForm() *fakeForm {
	f := &fakeForm{kinds: map[string]ControlKind{}, values: map[string]models.FieldValue{}}
	f.add(DraftIDField, ControlValue)
	f.add(RecordIDField, ControlValue)
	f.add(FormTypeField, ControlValue)
	f.add(LabelField, ControlValue)
	f.add("cliente_endereco", ControlValue)
	f.add("quantidade_pontos_rede", ControlValue)
	f.add("servico_fibra", ControlCheckbox)
	f.add("possui_switch", ControlCheckbox)
	f.add("", ControlValue) // unnamed control
	return f
}

func (f *fakeForm) add(id string, kind ControlKind) {
	f.order = append(f.order, id)
	f.kinds[id] = kind
	if kind == ControlCheckbox {
		f.values[id] = models.BoolValue(false)
	} else {
		f.values[id] = models.StringValue("")
	}
}

func (f *fakeForm) Enumerate() []Control {
	out := make([]Control, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, Control{ID: id, Kind: f.kinds[id], Value: f.values[id]})
	}
	return out
}

func (f *fakeForm) Lookup(id string) (Control, bool) {
	kind, ok := f.kinds[id]
	if !ok || id == "" {
		return Control{}, false
	}
	return Control{ID: id, Kind: kind, Value: f.values[id]}, true
}

func (f *fakeForm) SetValue(id string, v models.FieldValue) bool {
	if _, ok := f.kinds[id]; !ok || id == "" {
		return false
	}
	f.values[id] = v
	return true
}

func (f *fakeForm) Reset() {
	for id, kind := range f.kinds {
		if kind == ControlCheckbox {
			f.values[id] = models.BoolValue(false)
		} else {
			f.values[id] = models.StringValue("")
		}
	}
}

func (f *fakeForm) typeInto(id, v string) { f.values[id] = models.StringValue(v) }

// fakeKV stores blobs in a map and can be told to fail
type fakeKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	failSet bool
	sets    int
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string][]byte{}} }

func (k *fakeKV) Get(ctx context.Context, key string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.failGet {
		return nil, errors.New("backend unavailable")
	}
	return k.data[key], nil
}

func (k *fakeKV) Set(ctx context.Context, key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.failSet {
		return errors.New("quota exceeded")
	}
	k.sets++
	k.data[key] = append([]byte(nil), value...)
	return nil
}

type fakeVisibility struct {
	groups []string
	calls  []string
}

func (v *fakeVisibility) Groups() []string   { return v.groups }
func (v *fakeVisibility) Apply(group string) { v.calls = append(v.calls, group) }

type fakeRefresher struct {
	refreshed []*models.Operator
}

func (r *fakeRefresher) RefreshDrafts(op *models.Operator) {
	r.refreshed = append(r.refreshed, op)
}

type fakePending struct{ cancelled int }

func (p *fakePending) Cancel() { p.cancelled++ }
