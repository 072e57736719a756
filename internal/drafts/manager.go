package drafts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"survey-drafts/internal/logger"
	"survey-drafts/internal/models"
)

// LabelField is the control the draft list label is derived from
const LabelField = "cliente_nome"

// FormTypeField is the select that switches the form variant
const FormTypeField = "tipo_formulario"

var tracer = otel.Tracer("survey-drafts/drafts")

/*
LEARNING: Read-modify-write over a single blob

Every mutation reads the whole list, edits it in memory and writes it back.
The mutex makes that atomic for every session hosted by this process. Two
processes sharing one backend key are still last-writer-wins.
*/
type Manager struct {
	mu       sync.Mutex
	store    *Store
	resolver *IdentityResolver
	now      func() time.Time
	log      *logger.Logger
}

func NewManager(store *Store, resolver *IdentityResolver, log *logger.Logger) *Manager {
	return &Manager{
		store:    store,
		resolver: resolver,
		now:      time.Now,
		log:      log.With("component", "DraftManager"),
	}
}

// WithClock replaces the time source; tests use it for stable timestamps
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Resolver exposes the identity resolver shared with the sessions
func (m *Manager) Resolver() *IdentityResolver { return m.resolver }

// ListForOperator returns the drafts visible to op, most recently updated
// first. Anonymous callers only see ownerless drafts.
func (m *Manager) ListForOperator(ctx context.Context, op *models.Operator) []models.Draft {
	ctx, span := tracer.Start(ctx, "DraftManager.ListForOperator")
	defer span.End()

	all := m.store.ReadAll(ctx)
	out := make([]models.Draft, 0, len(all))
	for i := range all {
		if all[i].OwnedBy(op) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	span.SetAttributes(attribute.Int("drafts.count", len(out)))
	return out
}

// All returns every stored draft regardless of owner, in storage order.
// Only administrative tooling uses it; sessions go through ListForOperator.
func (m *Manager) All(ctx context.Context) []models.Draft {
	ctx, span := tracer.Start(ctx, "DraftManager.All")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.ReadAll(ctx)
}

// Save creates or shallow-merges the draft with partial.ID. Owner and
// timestamps are always stamped here. The draft is returned even when the
// write fails, alongside a *PersistError.
func (m *Manager) Save(ctx context.Context, op *models.Operator, partial models.PartialDraft) (*models.Draft, error) {
	ctx, span := tracer.Start(ctx, "DraftManager.Save")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if partial.ID == "" {
		partial.ID = m.resolver.NewID()
	}
	span.SetAttributes(attribute.String("draft.id", partial.ID))

	now := m.now().UTC()
	all := m.store.ReadAll(ctx)

	idx := -1
	for i := range all {
		if all[i].ID == partial.ID {
			idx = i
			break
		}
	}

	var saved models.Draft
	if idx >= 0 {
		saved = all[idx]
		mergeDraft(&saved, partial)
		saved.UserID = models.OperatorID(op)
		saved.UpdatedAt = now
		all[idx] = saved
	} else {
		saved = models.Draft{
			ID:        partial.ID,
			UserID:    models.OperatorID(op),
			CreatedAt: now,
			UpdatedAt: now,
			FormType:  models.FormTypeCabling,
		}
		mergeDraft(&saved, partial)
		if saved.FieldSnapshot == nil {
			saved.FieldSnapshot = models.Snapshot{}
		}
		all = append(all, saved)
	}

	if err := m.store.WriteAll(ctx, all); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &saved, err
	}

	m.log.Debug("draft saved", "draft_id", saved.ID, "user_id", saved.UserID, "created", idx < 0)
	return &saved, nil
}

func mergeDraft(d *models.Draft, p models.PartialDraft) {
	if p.FormType != nil && *p.FormType != "" {
		d.FormType = *p.FormType
	}
	if p.Label != nil {
		d.Label = *p.Label
	}
	if p.LinkedRecordID != nil {
		d.LinkedRecordID = copyID(p.LinkedRecordID)
	}
	if p.FieldSnapshot != nil {
		d.FieldSnapshot = p.FieldSnapshot.Clone()
	}
}

// DeleteByID removes the draft. Deleting an absent id is a no-op; only a
// failed write is an error.
func (m *Manager) DeleteByID(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "DraftManager.DeleteByID")
	defer span.End()
	span.SetAttributes(attribute.String("draft.id", id))

	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.store.ReadAll(ctx)
	kept := all[:0]
	for _, d := range all {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(all) {
		return nil
	}

	if err := m.store.WriteAll(ctx, kept); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	m.log.Debug("draft deleted", "draft_id", id)
	return nil
}

// LoadByID returns the draft when it exists and op may see it
func (m *Manager) LoadByID(ctx context.Context, op *models.Operator, id string) (*models.Draft, error) {
	ctx, span := tracer.Start(ctx, "DraftManager.LoadByID")
	defer span.End()
	span.SetAttributes(attribute.String("draft.id", id))

	for _, d := range m.store.ReadAll(ctx) {
		if d.ID != id {
			continue
		}
		if !d.OwnedBy(op) {
			break
		}
		found := d
		return &found, nil
	}
	span.SetStatus(codes.Error, ErrDraftNotFound.Error())
	return nil, ErrDraftNotFound
}

// LoadIntoForm binds the session to d and restores its snapshot. Raw writes
// do not fire the show/hide cascades, so every visibility group is replayed
// afterwards.
func (m *Manager) LoadIntoForm(sess *SessionContext, d *models.Draft, form FieldProvider, vis Visibility) ApplyResult {
	sess.Bind(d)

	res := Apply(form, d.FieldSnapshot)
	form.SetValue(DraftIDField, models.StringValue(d.ID))
	if d.FormType != "" {
		form.SetValue(FormTypeField, models.StringValue(string(d.FormType)))
	}
	if d.LinkedRecordID != nil {
		form.SetValue(RecordIDField, models.StringValue(formatRecordID(*d.LinkedRecordID)))
	}

	replayVisibility(vis)

	if len(res.Skipped) > 0 {
		m.log.Debug("draft fields without a control", "draft_id", d.ID, "skipped", res.Skipped)
	}
	return res
}

// replayVisibility runs every conditional group in the order the rules list them
func replayVisibility(vis Visibility) {
	if vis == nil {
		return
	}
	for _, group := range vis.Groups() {
		vis.Apply(group)
	}
}

// SaveCurrentForm collects the form and saves it under the session's draft id
func (m *Manager) SaveCurrentForm(ctx context.Context, sess *SessionContext, form FieldProvider) (*models.Draft, error) {
	snap := Collect(form)
	id := m.resolver.Resolve(sess, form)
	// the resolver may just have backfilled the hidden control
	snap[DraftIDField] = models.StringValue(id)

	if v, ok := snap[FormTypeField]; ok && v.Str != "" {
		sess.SetFormType(models.FormType(v.Str))
	}
	formType := sess.FormType()
	label := strings.TrimSpace(snap[LabelField].Str)

	return m.Save(ctx, sess.Operator(), models.PartialDraft{
		ID:             id,
		FormType:       &formType,
		Label:          &label,
		LinkedRecordID: sess.LinkedRecordID(),
		FieldSnapshot:  snap,
	})
}
