package drafts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-drafts/internal/logger"
	"survey-drafts/internal/models"
)

func TestOnSubmittedDeletesBoundDraft(t *testing.T) {
	m, _ := newTestManager(newFakeKV())
	refresher := &fakeRefresher{}
	b := NewBridge(m, refresher, logger.Nop())
	ctx := context.Background()
	op := &models.Operator{ID: 7}
	sess := NewSessionContext(op, "")
	form := newFakeForm()
	form.typeInto(LabelField, "ACME")

	saved, err := m.SaveCurrentForm(ctx, sess, form)
	require.NoError(t, err)
	_, err = m.Save(ctx, op, models.PartialDraft{ID: "draft-unrelated"})
	require.NoError(t, err)

	pending := &fakePending{}
	require.NoError(t, b.OnSubmitted(ctx, sess, form, pending))

	assert.Equal(t, 1, pending.cancelled)
	assert.Equal(t, models.StateUnbound, sess.State())
	assert.Empty(t, form.values[LabelField].Str, "form reset")
	assert.Empty(t, form.values[DraftIDField].Str)
	_, err = m.LoadByID(ctx, op, saved.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.Len(t, m.ListForOperator(ctx, op), 1, "other drafts survive")
	require.Len(t, refresher.refreshed, 1)
	assert.Equal(t, op, refresher.refreshed[0])
}

func TestOnSubmittedUnboundSession(t *testing.T) {
	kv := newFakeKV()
	m, _ := newTestManager(kv)
	b := NewBridge(m, nil, logger.Nop())

	require.NoError(t, b.OnSubmitted(context.Background(), NewSessionContext(nil, ""), newFakeForm(), nil))
	assert.Zero(t, kv.sets)
}

func TestOnSubmittedReportsDeleteFailure(t *testing.T) {
	kv := newFakeKV()
	m, _ := newTestManager(kv)
	b := NewBridge(m, nil, logger.Nop())
	ctx := context.Background()
	sess := NewSessionContext(nil, "")
	_, err := m.SaveCurrentForm(ctx, sess, newFakeForm())
	require.NoError(t, err)

	kv.failSet = true
	err = b.OnSubmitted(ctx, sess, newFakeForm(), nil)
	assert.True(t, IsPersistError(err))
	assert.Equal(t, models.StateUnbound, sess.State(), "the record is on the server either way")
}

func TestOnLogoutKeepsDrafts(t *testing.T) {
	m, _ := newTestManager(newFakeKV())
	b := NewBridge(m, nil, logger.Nop())
	ctx := context.Background()
	op := &models.Operator{ID: 7}
	sess := NewSessionContext(op, "")
	form := newFakeForm()
	_, err := m.SaveCurrentForm(ctx, sess, form)
	require.NoError(t, err)

	pending := &fakePending{}
	b.OnLogout(sess, form, pending)

	assert.Equal(t, 1, pending.cancelled)
	assert.Nil(t, sess.Operator())
	assert.Equal(t, models.StateUnbound, sess.State())
	assert.Empty(t, form.values[DraftIDField].Str)
	assert.Len(t, m.ListForOperator(ctx, op), 1)
}

func TestNewEvaluationStartsSecondDraft(t *testing.T) {
	m, _ := newTestManager(newFakeKV())
	b := NewBridge(m, nil, logger.Nop())
	ctx := context.Background()
	op := &models.Operator{ID: 7}
	sess := NewSessionContext(op, "")
	form := newFakeForm()

	first, err := m.SaveCurrentForm(ctx, sess, form)
	require.NoError(t, err)

	b.NewEvaluation(sess, form, nil)
	assert.Equal(t, op, sess.Operator())

	second, err := m.SaveCurrentForm(ctx, sess, form)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, m.ListForOperator(ctx, op), 2)
}

func TestOpenRecord(t *testing.T) {
	m, _ := newTestManager(newFakeKV())
	b := NewBridge(m, nil, logger.Nop())
	sess := NewSessionContext(&models.Operator{ID: 7}, "")
	sess.SetDraftID("draft-previous")
	form := newFakeForm()
	form.typeInto(DraftIDField, "draft-previous")
	vis := &fakeVisibility{groups: []string{"tipo_formulario"}}

	b.OpenRecord(sess, form, vis, nil, 55, models.Snapshot{
		LabelField:    models.StringValue("Cliente Servidor"),
		FormTypeField: models.StringValue("cameras"),
		DraftIDField:  models.StringValue("draft-smuggled"),
	})

	assert.Equal(t, models.StateUnbound, sess.State())
	assert.Empty(t, form.values[DraftIDField].Str)
	assert.Equal(t, "55", form.values[RecordIDField].Str)
	assert.Equal(t, models.FormTypeCameras, sess.FormType())
	assert.Equal(t, []string{"tipo_formulario"}, vis.calls)

	d, err := m.SaveCurrentForm(context.Background(), sess, form)
	require.NoError(t, err)
	assert.NotEqual(t, "draft-previous", d.ID)
	assert.Equal(t, models.StateBoundEditing, sess.State())
}
