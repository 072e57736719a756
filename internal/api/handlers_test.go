package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-drafts/internal/drafts"
	"survey-drafts/internal/logger"
	"survey-drafts/internal/middleware"
	"survey-drafts/internal/models"
	"survey-drafts/internal/repository"
	"survey-drafts/internal/services/formsession"
)

const testSecret = "api-test-secret"

type testServer struct {
	t      *testing.T
	router http.Handler
	kv     *failingKV
}

// failingKV wraps the memory backend with a switchable write failure
type failingKV struct {
	*repository.MemoryKVRepositoryImpl
	fail bool
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryKVRepositoryImpl.Set(ctx, key, value)
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Nop()
	kv := &failingKV{MemoryKVRepositoryImpl: repository.NewMemoryKVRepository()}
	mgr := drafts.NewManager(drafts.NewStore(kv, "avaliacoes_rascunhos", log), drafts.NewIdentityResolver(nil, nil), log)

	hub := formsession.NewHub(log)
	hub.Start()
	t.Cleanup(hub.Shutdown)

	reg := formsession.NewRegistry(mgr, drafts.NewBridge(mgr, hub, log), hub,
		formsession.Options{AutosaveDelay: time.Hour}, log)
	t.Cleanup(reg.Shutdown)

	h := NewHandler(reg, formsession.NewWebSocketHandler(reg, hub, log), "memory", log)
	return &testServer{t: t, router: SetupRoutes(h, middleware.NewAuthMiddleware(testSecret, log), log), kv: kv}
}

func token(t *testing.T, id int) string {
	t.Helper()
	tok, err := middleware.SignToken(testSecret, &models.Operator{ID: id}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(method, path, tok string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) open(tok string) models.SessionInfo {
	rec := ts.do(http.MethodPost, "/api/sessions", tok, nil)
	require.Equal(ts.t, http.StatusCreated, rec.Code)
	return decode[models.SessionInfo](ts.t, rec)
}

func input(field, value string) map[string]any {
	return map[string]any{"events": []map[string]any{{"field": field, "value": value}}}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","store_backend":"memory","open_sessions":0}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDraftFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	tok := token(t, 7)
	sess := ts.open(tok)
	assert.Equal(t, models.StateUnbound, sess.State)
	require.NotNil(t, sess.Operator)
	assert.Equal(t, 7, sess.Operator.ID)
	base := "/api/sessions/" + sess.ID

	rec := ts.do(http.MethodPatch, base+"/fields", tok, input("cliente_nome", "ACME"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, decode[models.SessionInfo](t, rec).AutosavePending)

	rec = ts.do(http.MethodPost, base+"/save", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[struct{ Draft models.Draft }](t, rec).Draft
	assert.Equal(t, "ACME", saved.Label)

	rec = ts.do(http.MethodGet, base+"/drafts", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct{ Drafts []models.Draft }](t, rec).Drafts
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)

	// a second session of the same operator loads it
	other := ts.open(tok)
	rec = ts.do(http.MethodPost, "/api/sessions/"+other.ID+"/drafts/"+saved.ID+"/load", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	loaded := decode[models.SessionInfo](t, rec)
	assert.Equal(t, saved.ID, loaded.DraftID)
	assert.Equal(t, "ACME", loaded.Snapshot["cliente_nome"].Str)

	rec = ts.do(http.MethodPost, "/api/sessions/"+other.ID+"/submitted", tok, map[string]any{"record_id": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StateUnbound, decode[models.SessionInfo](t, rec).State)

	rec = ts.do(http.MethodGet, base+"/drafts", tok, nil)
	assert.Empty(t, decode[struct{ Drafts []models.Draft }](t, rec).Drafts)
}

func TestLoadUnknownDraftIs404(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.open("")
	rec := ts.do(http.MethodPost, "/api/sessions/"+sess.ID+"/drafts/draft-nope/load", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)

	rec = ts.do(http.MethodGet, "/api/sessions/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManualSaveSurfacesPersistFailure(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.open("")
	ts.kv.fail = true

	rec := ts.do(http.MethodPost, "/api/sessions/"+sess.ID+"/save", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"draft could not be saved","code":"persist_failed"}}`, rec.Body.String())
}

func TestSessionOwnership(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.open(token(t, 7))
	base := "/api/sessions/" + sess.ID

	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, base, token(t, 8), nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(http.MethodGet, base, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, base, "not-a-token", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, base, token(t, 7), nil).Code)
}

func TestLoginAndLogout(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.open("")
	base := "/api/sessions/" + sess.ID

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, base+"/login", "", nil).Code)

	tok := token(t, 7)
	rec := ts.do(http.MethodPost, base+"/login", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, decode[models.SessionInfo](t, rec).Operator.ID)

	rec = ts.do(http.MethodPost, base+"/logout", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[models.SessionInfo](t, rec).Operator)
}

func TestPatchFieldsValidation(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.open("")
	base := "/api/sessions/" + sess.ID

	rec := ts.do(http.MethodPatch, base+"/fields", "", input("nao_existe", "x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPatch, base+"/fields", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayloadEndpoint(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.open("")
	base := "/api/sessions/" + sess.ID

	rec := ts.do(http.MethodGet, base+"/payload", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"cliente_nome"`)

	ts.do(http.MethodPatch, base+"/fields", "", map[string]any{"events": []map[string]any{
		{"field": "cliente_nome", "value": "ACME"},
		{"field": "data_avaliacao", "value": "2024-05-10"},
		{"field": "q3_tamanho_total_m", "value": "10,5"},
	}})
	rec = ts.do(http.MethodGet, base+"/payload", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[map[string]any](t, rec)
	assert.Equal(t, "ACME", p["cliente_nome"])
	assert.Equal(t, 10.5, p["q3_tamanho_total_m"])
	assert.Equal(t, "aberto", p["status"])
}

func TestOpenRecordAndDelete(t *testing.T) {
	ts := newTestServer(t)
	tok := token(t, 7)
	sess := ts.open(tok)
	base := "/api/sessions/" + sess.ID

	rec := ts.do(http.MethodPost, base+"/records/abc/open", tok, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, base+"/records/42/open", tok, map[string]any{
		"fields": map[string]any{"cliente_nome": "Servidor", "campo_antigo": "x", "q1_blindado": true},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Session models.SessionInfo
		Applied int
		Skipped []string
	}](t, rec)
	assert.Equal(t, []string{"campo_antigo"}, body.Skipped)
	require.NotNil(t, body.Session.LinkedRecordID)
	assert.Equal(t, int64(42), *body.Session.LinkedRecordID)

	rec = ts.do(http.MethodPost, base+"/save", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[struct{ Draft models.Draft }](t, rec).Draft

	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, base+"/drafts/"+d.ID, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, base+"/drafts/"+d.ID, tok, nil).Code)
}

func TestCloseSession(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.open("")
	base := "/api/sessions/" + sess.ID

	ts.do(http.MethodPatch, base+"/fields", "", input("cliente_nome", "Fechado"))
	assert.Equal(t, http.StatusNoContent, ts.do(http.MethodDelete, base, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, base, "", nil).Code)

	other := ts.open("")
	rec := ts.do(http.MethodGet, "/api/sessions/"+other.ID+"/drafts", "", nil)
	list := decode[struct{ Drafts []models.Draft }](t, rec).Drafts
	require.Len(t, list, 1, "closing a session saves its edits")
	assert.Equal(t, "Fechado", list[0].Label)
}

func TestPreflight(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodOptions, "/api/sessions", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
