package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"fitTrackAPI/internal/notification"
	"fitTrackAPI/middleware"
	"fitTrackAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GET /api/notifications?page=&page_size=&unread_only=
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	response, err := h.notificationService.GetNotifications(ctx, userID, page, pageSize, unreadOnly)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, response)
}

// GET /api/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	unreadCount, err := h.notificationService.GetUnreadCount(ctx, userID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, map[string]int{"unread_count": unreadCount})
}

func notificationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid notification ID")
		return uuid.Nil, false
	}
	return id, true
}

// PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id, ok := notificationID(w, r)
	if !ok {
		return
	}

	if err := h.notificationService.MarkAsRead(ctx, id, userID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Notification marked as read", nil)
}

// PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	updated, err := h.notificationService.MarkAllAsRead(ctx, userID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "All notifications marked as read", map[string]int64{"updated": updated})
}

// DELETE /api/notifications/{id}
func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id, ok := notificationID(w, r)
	if !ok {
		return
	}

	if err := h.notificationService.DeleteNotification(ctx, id, userID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Notification deleted", nil)
}

// POST /api/notifications/register-device
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req notification.RegisterDeviceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.notificationService.RegisterDevice(ctx, userID, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Device registered successfully", nil)
}
