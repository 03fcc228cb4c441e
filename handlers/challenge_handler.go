package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"fitTrackAPI/internal/types/challenge"
	"fitTrackAPI/middleware"
	"fitTrackAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

func challengeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge ID")
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/challenges
func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	creator, ok := middleware.GetUser(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.CreateChallengeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	created, err := h.challengeService.CreateChallenge(ctx, creator, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusCreated, "Challenge created successfully", created)
}

// GET /api/challenges?status=&type=&search=&page=&limit=
func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := challenge.ListFilter{
		Type:   challenge.ChallengeType(q.Get("type")),
		Search: q.Get("search"),
	}
	if status := q.Get("status"); status != "" {
		if !challenge.ValidStatus(status) {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filter.Status = challenge.Status(status)
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	var caller *uuid.UUID
	if id, ok := middleware.GetUserID(ctx); ok {
		caller = &id
	}

	list, err := h.challengeService.ListChallenges(ctx, filter, caller)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   list.Count,
		"total":   list.Total,
		"page":    list.Page,
		"pages":   list.Pages,
		"data":    list.Data,
	})
}

// GET /api/challenges/{id}
func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	var caller *uuid.UUID
	if userID, ok := middleware.GetUserID(ctx); ok {
		caller = &userID
	}

	c, err := h.challengeService.GetChallenge(ctx, id, caller)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, c)
}

// GET /api/challenges/user/me?status=
func (h *ChallengeHandler) GetMyChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && !challenge.ValidStatus(status) {
		respondWithError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}

	challenges, err := h.challengeService.MyChallenges(ctx, userID, challenge.Status(status))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(challenges),
		"data":    challenges,
	})
}

// POST /api/challenges/{id}/join
func (h *ChallengeHandler) JoinChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	actor, ok := middleware.GetUser(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	c, err := h.challengeService.JoinChallenge(ctx, id, actor)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Successfully joined the challenge", c)
}

// PUT /api/challenges/{id}/progress
func (h *ChallengeHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	var req challenge.UpdateProgressRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	progress, err := h.challengeService.UpdateProgress(ctx, id, userID, *req.Progress)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Progress updated successfully", progress)
}

// PUT /api/challenges/{id}/approve/{participantId}
func (h *ChallengeHandler) ApproveParticipant(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	trainerID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	approval, err := h.challengeService.ApproveParticipant(ctx, id, mux.Vars(r)["participantId"], trainerID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Participant approved", approval)
}

// POST /api/challenges/{id}/winner
func (h *ChallengeHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	trainerID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	var req challenge.DeclareWinnerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	winner, err := h.challengeService.DeclareWinner(ctx, id, trainerID, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Winner declared", winner)
}

// GET /api/challenges/leaderboard/{id}
func (h *ChallengeHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	board, err := h.challengeService.GetLeaderboard(ctx, id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, board)
}

// DELETE /api/challenges/{id}
func (h *ChallengeHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id, ok := challengeID(w, r)
	if !ok {
		return
	}

	if err := h.challengeService.DeleteChallenge(ctx, id, userID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithMessage(w, http.StatusOK, "Challenge deleted", nil)
}
