package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"fitTrackAPI/middleware"
	"fitTrackAPI/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ChatHandler struct {
	chatService   *services.ChatService
	hub           *services.ChatHub
	authenticator *middleware.Authenticator
	// serverCtx bounds websocket sessions to the server lifetime.
	serverCtx context.Context
}

func NewChatHandler(serverCtx context.Context, chatService *services.ChatService, hub *services.ChatHub, authenticator *middleware.Authenticator) *ChatHandler {
	return &ChatHandler{
		chatService:   chatService,
		hub:           hub,
		authenticator: authenticator,
		serverCtx:     serverCtx,
	}
}

func roomID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["roomId"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid room ID")
		return uuid.Nil, false
	}
	return id, true
}

// GET /api/chat/rooms
func (h *ChatHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	rooms, err := h.chatService.ListRooms(ctx, userID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, rooms)
}

// POST /api/chat/rooms/{roomId}/join
func (h *ChatHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}

	room, err := h.chatService.JoinRoom(ctx, id, userID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, room)
}

// GET /api/chat/rooms/{roomId}/messages
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id, ok := roomID(w, r)
	if !ok {
		return
	}

	messages, err := h.chatService.Messages(ctx, id, userID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, messages)
}

// GET /ws/chat?token=
func (h *ChatHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	u, err := h.authenticator.Authenticate(ctx, r.URL.Query().Get("token"))
	cancel()
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Token is not valid")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Could not upgrade connection: %v", err)
		return
	}

	client := services.NewChatClient(h.hub, conn, u.ID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.serverCtx)
}
