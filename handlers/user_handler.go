package handlers

import (
	"context"
	"net/http"
	"time"

	"fitTrackAPI/internal/user"
	"fitTrackAPI/middleware"
	"fitTrackAPI/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	users, err := h.userService.ListUsers(ctx)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, users)
}

// GET /api/users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.GetUser(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	respondWithData(w, http.StatusOK, u)
}

// PUT /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.UpdateProfileRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	updated, err := h.userService.UpdateProfile(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Profile updated", updated)
}
