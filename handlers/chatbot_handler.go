package handlers

import (
	"context"
	"net/http"
	"time"

	"fitTrackAPI/internal/types/chat"
	"fitTrackAPI/middleware"
	"fitTrackAPI/services"
)

type ChatbotHandler struct {
	chatbotService *services.ChatbotService
}

func NewChatbotHandler(chatbotService *services.ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{chatbotService: chatbotService}
}

// GET /api/chatbot/history
func (h *ChatbotHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	messages, err := h.chatbotService.History(ctx, userID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, messages)
}

// POST /api/chatbot/message
func (h *ChatbotHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	// Leaves room for a slow LLM answer.
	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req chat.BotMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	exchange, err := h.chatbotService.SendMessage(ctx, userID, req.Text)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, exchange)
}
