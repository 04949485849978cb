package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/veldry/chatvault/internal/api/response"
	"github.com/veldry/chatvault/internal/domain"
	"github.com/veldry/chatvault/internal/service"
)

// ChatHandler serves chat metadata. Key material never crosses this surface:
// the wrapped key is excluded from serialization and no endpoint returns
// decrypted content.
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Get returns chat metadata by external conversation id
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	response.OK(w, chat)
}
