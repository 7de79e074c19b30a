package handlers

import (
	"matrixTasks/internal/handlers/dto"
	"net/http"
)

type ChatHandler struct {
	ChatService ChatService
}

func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{ChatService: chatService}
}

func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var request dto.ChatRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	reply, err := h.ChatService.Ask(r.Context(), userID(r), request.Message)
	if err != nil {
		handleError(w, r, err, "chat")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.ChatResponse{Reply: reply})
}
