package handlers

import (
	"context"
	"net/http"
	"time"

	"fitTrackAPI/internal/user"
	"fitTrackAPI/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req user.RegisterRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	resp, err := h.authService.Register(ctx, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusCreated, "User registered successfully", resp)
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req user.LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	resp, err := h.authService.Login(ctx, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, resp)
}
