package api

import (
	"net/http"

	"survey-drafts/internal/models"
	"survey-drafts/internal/services/formsession"
)

/*
LEARNING: CONSUMER-DRIVEN INTERFACES

The handlers are the consumer of the session host, so the interfaces they
need live here. Tests can swap in a registry built over a memory store
without touching the handlers.
*/

// SessionRegistry is what the handlers need from the form session host
type SessionRegistry interface {
	Open(op *models.Operator) *formsession.FormSession
	Get(id string) (*formsession.FormSession, error)
	Close(id string) error
	Len() int
}

// SocketHandler attaches a websocket to a session
type SocketHandler interface {
	HandleSession(w http.ResponseWriter, r *http.Request)
}
