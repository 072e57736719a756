package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"survey-drafts/internal/drafts"
	"survey-drafts/internal/form"
	"survey-drafts/internal/middleware"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps domain errors onto the error envelope
func respondError(w http.ResponseWriter, err error) {
	var ve *form.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": map[string]any{"message": "validation failed", "code": "validation_failed", "fields": ve.Problems},
		})
	case errors.Is(err, drafts.ErrDraftNotFound), errors.Is(err, drafts.ErrSessionNotFound):
		middleware.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrWrongInput):
		middleware.WriteError(w, http.StatusBadRequest, "bad_input", err.Error())
	case drafts.IsPersistError(err):
		middleware.WriteError(w, http.StatusInternalServerError, "persist_failed", "draft could not be saved")
	default:
		middleware.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
