package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fitTrackAPI/internal/apperr"
)

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

type errorResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithData(w http.ResponseWriter, code int, data any) {
	respondWithJSON(w, code, successResponse{Success: true, Data: data})
}

func respondWithMessage(w http.ResponseWriter, code int, message string, data any) {
	respondWithJSON(w, code, successResponse{Success: true, Message: message, Data: data})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:   http.StatusBadRequest,
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindConflict:     http.StatusConflict,
}

// respondWithServiceError writes err with the status of its kind. Internal
// causes are logged and replaced by a generic message.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
		log.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
		respondWithError(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondWithJSON(w, kindStatus[appErr.Kind], errorResponse{
		Error:  appErr.Message,
		Errors: appErr.Fields,
	})
}
