package formsession

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-drafts/internal/drafts"
	"survey-drafts/internal/form"
	"survey-drafts/internal/logger"
	"survey-drafts/internal/models"
	"survey-drafts/internal/repository"
)

const testDelay = 30 * time.Millisecond

type fixture struct {
	registry *Registry
	manager  *drafts.Manager
	hub      *Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Nop()
	kv := repository.NewMemoryKVRepository()
	mgr := drafts.NewManager(drafts.NewStore(kv, "avaliacoes_rascunhos", log), drafts.NewIdentityResolver(nil, nil), log)

	hub := NewHub(log)
	hub.Start()
	t.Cleanup(hub.Shutdown)

	bridge := drafts.NewBridge(mgr, hub, log)
	reg := NewRegistry(mgr, bridge, hub, Options{AutosaveDelay: testDelay, IdleTimeout: time.Minute}, log)
	t.Cleanup(reg.Shutdown)

	return &fixture{registry: reg, manager: mgr, hub: hub}
}

func str(s string) *string { return &s }
func checked(b bool) *bool { return &b }

func typeCustomer(name string) []models.InputEvent {
	return []models.InputEvent{{Field: form.FieldCustomer, Value: str(name)}}
}

func TestInputAutosavesOnce(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	op := &models.Operator{ID: 7}
	s := fx.registry.Open(op)

	for _, v := range []string{"A", "AC", "ACME"} {
		require.NoError(t, s.Input(ctx, typeCustomer(v)))
	}
	assert.True(t, s.Info().AutosavePending)

	require.Eventually(t, func() bool { return len(fx.manager.ListForOperator(ctx, op)) == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(2 * testDelay)

	list := fx.manager.ListForOperator(ctx, op)
	require.Len(t, list, 1)
	assert.Equal(t, "ACME", list[0].Label)

	info := s.Info()
	assert.Equal(t, models.StateBoundNew, info.State)
	assert.Equal(t, list[0].ID, info.DraftID)
	assert.False(t, info.AutosavePending)
}

func TestInputStopsAtFirstBadEvent(t *testing.T) {
	fx := newFixture(t)
	s := fx.registry.Open(nil)

	err := s.Input(context.Background(), []models.InputEvent{
		{Field: form.FieldCustomer, Value: str("ACME")},
		{Field: "campo_inexistente", Value: str("x")},
		{Field: "local", Value: str("never applied")},
	})
	require.ErrorIs(t, err, form.ErrUnknownField)

	info := s.Info()
	assert.Equal(t, "ACME", info.Snapshot[form.FieldCustomer].Str)
	assert.Empty(t, info.Snapshot["local"].Str)
	assert.True(t, info.AutosavePending, "applied events still schedule a save")
}

func TestInputReplaysTriggeredVisibility(t *testing.T) {
	fx := newFixture(t)
	s := fx.registry.Open(nil)
	ctx := context.Background()

	assert.Contains(t, s.HiddenFields(), "q2_modelo_switch")
	require.NoError(t, s.Input(ctx, []models.InputEvent{{Field: "q2_novo_switch", Checked: checked(true)}}))
	assert.NotContains(t, s.HiddenFields(), "q2_modelo_switch")

	require.NoError(t, s.Input(ctx, []models.InputEvent{{Field: form.FieldFormType, Value: str(form.TypeCameras)}}))
	assert.Equal(t, models.FormTypeCameras, s.Info().FormType)
	assert.Contains(t, s.HiddenFields(), "q1_qtd_cabos")
}

func TestManualSave(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	s := fx.registry.Open(&models.Operator{ID: 7})

	require.NoError(t, s.Input(ctx, typeCustomer("ACME")))
	first, err := s.Save(ctx)
	require.NoError(t, err)
	assert.False(t, s.Info().AutosavePending, "manual save supersedes the pending autosave")

	second, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, s.ListDrafts(ctx), 1)
}

func TestSubmittedRemovesDraftAndCancelsAutosave(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	op := &models.Operator{ID: 7}
	s := fx.registry.Open(op)

	require.NoError(t, s.Input(ctx, typeCustomer("ACME")))
	_, err := s.Save(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Input(ctx, typeCustomer("ACME 2")))

	info, err := s.Submitted(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StateUnbound, info.State)
	assert.Empty(t, info.Snapshot[form.FieldCustomer].Str)

	time.Sleep(3 * testDelay)
	assert.Empty(t, fx.manager.ListForOperator(ctx, op), "no residual draft may be recreated")
}

func TestLoadDraftIntoAnotherSession(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	op := &models.Operator{ID: 7}

	src := fx.registry.Open(op)
	require.NoError(t, src.Input(ctx, []models.InputEvent{
		{Field: form.FieldFormType, Value: str(form.TypeCameras)},
		{Field: form.FieldCustomer, Value: str("ACME")},
		{Field: "q4_camera", Checked: checked(true)},
		{Field: "q4_camera_qtd", Value: str("4")},
	}))
	d, err := src.Save(ctx)
	require.NoError(t, err)

	dst := fx.registry.Open(op)
	info, err := dst.LoadDraft(ctx, d.ID)
	require.NoError(t, err)

	assert.Equal(t, d.ID, info.DraftID)
	assert.Equal(t, models.FormTypeCameras, info.FormType)
	assert.Equal(t, "ACME", info.Snapshot[form.FieldCustomer].Str)
	assert.Equal(t, "4", info.Snapshot["q4_camera_qtd"].Str)
	assert.True(t, info.Snapshot["q4_camera"].Bool)
	assert.NotContains(t, dst.HiddenFields(), "q4_camera_modelo", "visibility replayed after load")
	assert.Contains(t, dst.HiddenFields(), "q1_qtd_cabos")

	other := fx.registry.Open(&models.Operator{ID: 8})
	_, err = other.LoadDraft(ctx, d.ID)
	assert.ErrorIs(t, err, drafts.ErrDraftNotFound)
}

func TestLoadDraftSavesPendingEditsFirst(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	op := &models.Operator{ID: 7}
	s := fx.registry.Open(op)

	require.NoError(t, s.Input(ctx, typeCustomer("Primeiro")))
	first, err := s.Save(ctx)
	require.NoError(t, err)

	s.NewEvaluation()
	require.NoError(t, s.Input(ctx, typeCustomer("Segundo")))

	_, err = s.LoadDraft(ctx, first.ID)
	require.NoError(t, err)

	labels := map[string]bool{}
	for _, d := range s.ListDrafts(ctx) {
		labels[d.Label] = true
	}
	assert.Equal(t, map[string]bool{"Primeiro": true, "Segundo": true}, labels)
}

func TestDeleteBoundDraftUnbinds(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	s := fx.registry.Open(&models.Operator{ID: 7})
	require.NoError(t, s.Input(ctx, typeCustomer("ACME")))
	d, err := s.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, s.DeleteDraft(ctx, d.ID))
	assert.Equal(t, models.StateUnbound, s.Info().State)
	assert.ErrorIs(t, s.DeleteDraft(ctx, d.ID), drafts.ErrDraftNotFound)

	again, err := s.Save(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, d.ID, again.ID)
}

func TestLogoutKeepsDraftsAndLoginAdoptsAnonymous(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	s := fx.registry.Open(nil)

	require.NoError(t, s.Input(ctx, typeCustomer("Anon")))
	anon, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Nil(t, anon.UserID)

	op := &models.Operator{ID: 7}
	s.Login(op)
	assert.Empty(t, s.ListDrafts(ctx), "anonymous drafts are not listed for an operator")

	adopted, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, anon.ID, adopted.ID)
	require.NotNil(t, adopted.UserID)
	assert.Equal(t, 7, *adopted.UserID)

	info := s.Logout()
	assert.Nil(t, info.Operator)
	assert.Equal(t, models.StateUnbound, info.State)
	assert.Len(t, fx.manager.ListForOperator(ctx, op), 1)
}

func TestOpenRecordThenSaveIsEditing(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	s := fx.registry.Open(&models.Operator{ID: 7})

	s.OpenRecord(42, models.Snapshot{form.FieldCustomer: models.StringValue("Servidor")})
	assert.Equal(t, models.StateUnbound, s.Info().State)

	d, err := s.Save(ctx)
	require.NoError(t, err)
	require.NotNil(t, d.LinkedRecordID)
	assert.Equal(t, int64(42), *d.LinkedRecordID)
	assert.Equal(t, "Servidor", d.Label)
	assert.Equal(t, models.StateBoundEditing, s.Info().State)
}

func TestPayload(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	s := fx.registry.Open(nil)

	_, err := s.Payload()
	require.ErrorIs(t, err, form.ErrValidation)

	require.NoError(t, s.Input(ctx, []models.InputEvent{
		{Field: form.FieldCustomer, Value: str("ACME")},
		{Field: form.FieldDate, Value: str("2024-05-10")},
		{Field: "q1_qtd_cabos", Value: str("8")},
	}))
	p, err := s.Payload()
	require.NoError(t, err)
	assert.Equal(t, 8, p["q1_qtd_cabos"])
}

// Unload saves only edited sessions: a form opened and closed untouched must
// not leave a blank draft behind, while pending edits are written at once.
func TestUnloadSavesOnlyDirtySessions(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	op := &models.Operator{ID: 7}

	clean := fx.registry.Open(op)
	require.NoError(t, fx.registry.Close(clean.ID()))
	assert.Empty(t, fx.manager.ListForOperator(ctx, op), "an untouched form leaves no draft")

	dirty := fx.registry.Open(op)
	require.NoError(t, dirty.Input(ctx, typeCustomer("ACME")))
	require.NoError(t, fx.registry.Close(dirty.ID()))

	list := fx.manager.ListForOperator(ctx, op)
	require.Len(t, list, 1, "unload saves without waiting for the timer")
	assert.Equal(t, "ACME", list[0].Label)

	_, err := fx.registry.Get(dirty.ID())
	assert.ErrorIs(t, err, drafts.ErrSessionNotFound)
	assert.ErrorIs(t, dirty.Input(ctx, typeCustomer("late")), drafts.ErrSessionNotFound)
	assert.ErrorIs(t, fx.registry.Close(dirty.ID()), drafts.ErrSessionNotFound)
}

func TestInputRacingUnloadIsSavedOrRejected(t *testing.T) {
	ctx := context.Background()
	op := &models.Operator{ID: 7}

	for i := 0; i < 50; i++ {
		fx := newFixture(t)
		s := fx.registry.Open(op)
		require.NoError(t, s.Input(ctx, typeCustomer("primeiro")))

		var wg sync.WaitGroup
		var inputErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			inputErr = s.Input(ctx, typeCustomer("segundo"))
		}()
		go func() {
			defer wg.Done()
			_ = fx.registry.Close(s.ID())
		}()
		wg.Wait()

		list := fx.manager.ListForOperator(ctx, op)
		require.Len(t, list, 1)
		if inputErr == nil {
			assert.Equal(t, "segundo", list[0].Label, "an accepted edit must reach the store")
		} else {
			require.ErrorIs(t, inputErr, drafts.ErrSessionNotFound)
			assert.Equal(t, "primeiro", list[0].Label)
		}
	}
}

func TestUnloadTwiceSavesOnce(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	op := &models.Operator{ID: 7}

	s := fx.registry.Open(op)
	require.NoError(t, s.Input(ctx, typeCustomer("ACME")))
	s.Unload()
	first := fx.manager.ListForOperator(ctx, op)
	require.Len(t, first, 1)

	s.Unload()
	second := fx.manager.ListForOperator(ctx, op)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].UpdatedAt, second[0].UpdatedAt)
	assert.False(t, s.Info().AutosavePending)
}

func TestRegistryIdleCleanup(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	op := &models.Operator{ID: 7}

	idle := fx.registry.Open(op)
	require.NoError(t, idle.Input(ctx, typeCustomer("Parado")))
	fx.registry.Open(op)
	require.Equal(t, 2, fx.registry.Len())

	assert.Zero(t, fx.registry.cleanup(time.Now()))
	assert.Equal(t, 2, fx.registry.cleanup(time.Now().Add(2*time.Minute)))
	assert.Zero(t, fx.registry.Len())
	assert.Len(t, fx.manager.ListForOperator(ctx, op), 1)
}
