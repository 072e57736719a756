package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"survey-drafts/internal/logger"
	"survey-drafts/internal/middleware"
)

func SetupRoutes(h *Handler, auth *middleware.AuthMiddleware, log *logger.Logger) *mux.Router {
	r := mux.NewRouter()

	// tracing first so recovery and auth failures still get a request id
	r.Use(middleware.TracingMiddleware(log))
	r.Use(middleware.ErrorRecoveryMiddleware(log))
	r.Use(middleware.CORSMiddleware)
	r.Use(auth.Handler)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Form sessions
	api.HandleFunc("/sessions", h.OpenSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}", h.CloseSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{sid}/fields", h.PatchFields).Methods(http.MethodPatch)
	api.HandleFunc("/sessions/{sid}/save", h.Save).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/new", h.NewEvaluation).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/submitted", h.Submitted).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/records/{rid}/open", h.OpenRecord).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/payload", h.Payload).Methods(http.MethodGet)

	// Drafts of the session's operator
	api.HandleFunc("/sessions/{sid}/drafts", h.ListDrafts).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sid}/drafts/{id}/load", h.LoadDraft).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sid}/drafts/{id}", h.DeleteDraft).Methods(http.MethodDelete)

	r.HandleFunc("/ws/sessions/{sid}", h.HandleSessionWebSocket)

	// preflight for every route; CORSMiddleware answers it
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	return r
}
