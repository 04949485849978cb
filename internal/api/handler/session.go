package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/veldry/chatvault/internal/api/response"
	"github.com/veldry/chatvault/internal/domain"
	"github.com/veldry/chatvault/internal/service"
)

// SessionHandler exposes the admin lifecycle operations: inspect the active
// session for a chat, close it, and force a guided session inactive.
type SessionHandler struct {
	chatService    *service.ChatService
	sessionService *service.SessionService
	guidedService  *service.GuidedService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(chatService *service.ChatService, sessionService *service.SessionService, guidedService *service.GuidedService) *SessionHandler {
	return &SessionHandler{chatService: chatService, sessionService: sessionService, guidedService: guidedService}
}

// GetActive returns the active session for the external conversation id
func (h *SessionHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")
	if externalID == "" {
		response.BadRequest(w, "missing external id")
		return
	}

	chat, err := h.chatService.GetByExternalID(r.Context(), externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "chat not found")
			return
		}
		response.InternalError(w, "failed to get chat")
		return
	}

	session, err := h.sessionService.GetActiveByChat(r.Context(), chat.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "no active session")
			return
		}
		response.InternalError(w, "failed to get session")
		return
	}

	response.OK(w, session)
}

// Close ends the session now, cascading to its active guided sessions.
// Closing an already closed session succeeds without effect.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		response.BadRequest(w, "invalid session id")
		return
	}

	if err := h.sessionService.Close(r.Context(), sessionID, time.Now()); err != nil {
		response.InternalError(w, "failed to close session")
		return
	}

	response.NoContent(w)
}

// InactivateGuided marks a guided session incomplete
func (h *SessionHandler) InactivateGuided(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "guidedID")
	if err != nil {
		response.BadRequest(w, "invalid guided session id")
		return
	}

	if err := h.guidedService.Inactivate(r.Context(), id, time.Now()); err != nil {
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			response.Conflict(w, "guided session is not active")
			return
		}
		response.InternalError(w, "failed to inactivate guided session")
		return
	}

	response.NoContent(w)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
