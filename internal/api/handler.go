package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	app_errors "chat-relay/backend/internal/errors"
	"chat-relay/backend/internal/interfaces"
	"chat-relay/backend/internal/model"
)

// ChatHandler serves the chat relay endpoint.
type ChatHandler struct {
	service interfaces.RelayService
}

func NewChatHandler(svc interfaces.RelayService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// HandleChat godoc
// @Summary      Send a chat message
// @Description  Builds a prompt from the message (and optional history), submits it to the configured generation backend and returns the cleaned reply.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      model.ChatRequest  true  "Message and optional history"
// @Success      200      {object}  model.ChatResponse
// @Failure      422      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /chat [post]
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, fmt.Errorf("%w: invalid request body: %s", app_errors.ErrValidation, err.Error()))
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	resp, err := h.service.Reply(r.Context(), &req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// HealthHandler reports process liveness. It never contacts the backend.
type HealthHandler struct {
	service interfaces.RelayService
}

func NewHealthHandler(svc interfaces.RelayService) *HealthHandler {
	return &HealthHandler{service: svc}
}

// HandleHealth godoc
// @Summary      Health check
// @Description  Always reports healthy together with the configured model identifier.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  model.HealthResponse
// @Router       /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, model.HealthResponse{
		Status: "healthy",
		Model:  h.service.Model(),
	})
}
