package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/smukkama/weather-monitor/internal/database"
)

// Error codes
const (
	errCodeBadRequest   = "BAD_REQUEST"
	errCodeUnauthorized = "UNAUTHORIZED"
	errCodeNotFound     = "NOT_FOUND"
	errCodeConflict     = "CONFLICT"
	errCodeUpstream     = "UPSTREAM_ERROR"
	errCodeUnavailable  = "UNAVAILABLE"
	errCodeInternal     = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

// storeError maps a store failure onto a response.
func (h *Handler) storeError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, database.ErrNotFound) {
		jsonError(w, http.StatusNotFound, errCodeNotFound, notFound)
		return
	}
	h.logger.Error("store operation failed", "error", err)
	jsonError(w, http.StatusInternalServerError, errCodeInternal, "internal server error")
}
