package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"survey-drafts/internal/logger"
	"survey-drafts/internal/middleware"
	"survey-drafts/internal/models"
	"survey-drafts/internal/services/formsession"
)

// Handler handles HTTP requests
type Handler struct {
	sessions SessionRegistry
	sockets  SocketHandler
	backend  string
	log      *logger.Logger
}

func NewHandler(sessions SessionRegistry, sockets SocketHandler, backend string, log *logger.Logger) *Handler {
	return &Handler{sessions: sessions, sockets: sockets, backend: backend, log: log.With("component", "Handler")}
}

type inputRequest struct {
	Events []models.InputEvent `json:"events"`
}

type submittedRequest struct {
	RecordID *int64 `json:"record_id"`
}

type openRecordRequest struct {
	Fields models.Snapshot `json:"fields"`
}

// session resolves {sid} and checks the caller may drive it. Anonymous
// sessions are reachable by whoever holds the id.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*formsession.FormSession, bool) {
	s, err := h.sessions.Get(mux.Vars(r)["sid"])
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	owner := s.Operator()
	caller := middleware.OperatorFromContext(r.Context())
	if owner != nil && (caller == nil || caller.ID != owner.ID) {
		middleware.WriteError(w, http.StatusForbidden, "forbidden", "session belongs to another operator")
		return nil, false
	}
	return s, true
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Open(middleware.OperatorFromContext(r.Context()))
	respondJSON(w, http.StatusCreated, s.Info())
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session": s.Info(), "hidden_fields": s.HiddenFields()})
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Close(s.ID()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PatchFields applies input events; the draft is saved by the autosave timer
func (h *Handler) PatchFields(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if err := s.Input(r.Context(), req.Events); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, s.Info())
}

// Save is the manual save; unlike autosave its failures reach the user
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	d, err := s.Save(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"draft": d})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	op := middleware.OperatorFromContext(r.Context())
	if op == nil {
		middleware.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.Login(op))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.Logout())
}

func (h *Handler) NewEvaluation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.NewEvaluation())
}

// Submitted is called by the client after the survey API accepted the record
func (h *Handler) Submitted(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req submittedRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
			return
		}
	}

	info, err := s.Submitted(r.Context())
	if err != nil {
		// the record is on the server; only the local cleanup failed
		h.log.Error("draft cleanup after submission failed",
			"request_id", middleware.GetRequestID(r.Context()), "session_id", s.ID(), "record_id", req.RecordID, "error", err)
	}
	respondJSON(w, http.StatusOK, info)
}

func (h *Handler) OpenRecord(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rid, err := strconv.ParseInt(mux.Vars(r)["rid"], 10, 64)
	if err != nil || rid <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "bad_request", "record id must be a positive integer")
		return
	}
	var req openRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	res := s.OpenRecord(rid, req.Fields)
	respondJSON(w, http.StatusOK, map[string]any{
		"session": s.Info(),
		"applied": len(res.Applied),
		"skipped": res.Skipped,
	})
}

func (h *Handler) Payload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	p, err := s.Payload()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"drafts": s.ListDrafts(r.Context())})
}

func (h *Handler) LoadDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	info, err := s.LoadDraft(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.DeleteDraft(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"store_backend": h.backend,
		"open_sessions": h.sessions.Len(),
	})
}

func (h *Handler) HandleSessionWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.sockets == nil {
		respondError(w, errors.New("websocket handler not configured"))
		return
	}
	h.sockets.HandleSession(w, r)
}
