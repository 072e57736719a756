package drafts

import (
	"context"
	"strconv"

	"survey-drafts/internal/logger"
	"survey-drafts/internal/models"
)

// RecordIDField is the hidden control holding the server record being edited
const RecordIDField = "record_id"

// Bridge ties the draft lifecycle to events outside the form: a successful
// submission, a logout, the "new evaluation" button.
type Bridge struct {
	manager   *Manager
	refresher ListRefresher
	log       *logger.Logger
}

func NewBridge(manager *Manager, refresher ListRefresher, log *logger.Logger) *Bridge {
	return &Bridge{manager: manager, refresher: refresher, log: log.With("component", "DraftBridge")}
}

// OnSubmitted deletes the bound draft once the server accepted the record.
// The pending autosave goes first so it cannot recreate the draft.
func (b *Bridge) OnSubmitted(ctx context.Context, sess *SessionContext, form ResettableForm, pending Pending) error {
	ctx, span := tracer.Start(ctx, "DraftBridge.OnSubmitted")
	defer span.End()

	if pending != nil {
		pending.Cancel()
	}

	var err error
	if id := sess.DraftID(); id != "" {
		if err = b.manager.DeleteByID(ctx, id); err != nil {
			span.RecordError(err)
			b.log.Error("failed to delete submitted draft", "draft_id", id, "error", err)
		} else {
			b.log.Info("submitted draft removed", "draft_id", id)
		}
	}

	sess.Clear()
	form.Reset()
	if b.refresher != nil {
		b.refresher.RefreshDrafts(sess.Operator())
	}
	return err
}

// OnLogout forgets the operator and the bindings. Stored drafts stay.
func (b *Bridge) OnLogout(sess *SessionContext, form ResettableForm, pending Pending) {
	if pending != nil {
		pending.Cancel()
	}
	sess.Clear()
	sess.SetOperator(nil)
	form.Reset()
}

// NewEvaluation starts a blank form for the same operator. The previous
// draft stays stored and listed.
func (b *Bridge) NewEvaluation(sess *SessionContext, form ResettableForm, pending Pending) {
	if pending != nil {
		pending.Cancel()
	}
	sess.Clear()
	form.Reset()
}

// OpenRecord loads a server record into a blank form. The first save after
// this creates a draft linked to the record.
func (b *Bridge) OpenRecord(sess *SessionContext, form ResettableForm, vis Visibility, pending Pending, recordID int64, values models.Snapshot) ApplyResult {
	if pending != nil {
		pending.Cancel()
	}
	form.Reset()
	sess.OpenRecord(recordID)

	res := Apply(form, values)
	// values from the server never carry a draft binding
	form.SetValue(DraftIDField, models.StringValue(""))
	form.SetValue(RecordIDField, models.StringValue(formatRecordID(recordID)))
	if v, ok := form.Lookup(FormTypeField); ok && v.Value.Str != "" {
		sess.SetFormType(models.FormType(v.Value.Str))
	}

	replayVisibility(vis)
	return res
}

func formatRecordID(id int64) string {
	return strconv.FormatInt(id, 10)
}
