package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	app_errors "chat-relay/backend/internal/errors"
)

// generationErrorPrefix is prepended to the backend's error text in 500 responses.
const generationErrorPrefix = "Error generating response: "

// ErrorResponse defines the JSON structure for error messages.
type ErrorResponse struct {
	Detail string `json:"detail" example:"Error generating response: API token not configured"`
}

// respondWithError maps service-layer errors to HTTP status codes.
// Generation failures carry the backend's error text to the client.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var statusCode int
	var message string

	var failure *app_errors.GenerationFailure
	switch {
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.As(err, &failure):
		statusCode = http.StatusInternalServerError
		message = generationErrorPrefix + failure.Error()
	default:
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}

	slog.Warn("Responding with error",
		"request_id", middleware.GetReqID(r.Context()),
		"status_code", statusCode,
		"client_message", message,
		"internal_error", err,
	)

	respondWithJSON(w, statusCode, ErrorResponse{Detail: message})
}

// respondWithJSON marshals payload and writes it with the given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}
