package handlers

import (
	"context"
	"net/http"
	"time"

	"fitTrackAPI/internal/types/measurement"
	"fitTrackAPI/middleware"
	"fitTrackAPI/services"
)

type ProgressHandler struct {
	measurementService *services.MeasurementService
}

func NewProgressHandler(measurementService *services.MeasurementService) *ProgressHandler {
	return &ProgressHandler{measurementService: measurementService}
}

// POST /api/progress
func (h *ProgressHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req measurement.CreateMeasurementRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	entry, err := h.measurementService.CreateMeasurement(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusCreated, entry)
}

// GET /api/progress
func (h *ProgressHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	entries, err := h.measurementService.ListMeasurements(ctx, userID, 0)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, entries)
}

// GET /api/progress/summary
func (h *ProgressHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	summary, err := h.measurementService.Summary(ctx, userID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithData(w, http.StatusOK, summary)
}
