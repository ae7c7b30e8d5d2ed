package interfaces

import (
	"context"

	"chat-relay/backend/internal/model"
)

// The api layer depends on these contracts instead of concrete services, so
// handlers can be tested against mocks.

// RelayService defines the contract for the chat relay business logic.
type RelayService interface {
	Reply(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error)
	Model() string
}
