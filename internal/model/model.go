package model

// Turn is a single prior exchange supplied by the caller.
type Turn struct {
	Role    string `json:"role" example:"user"`
	Content string `json:"content" example:"Hello!"`
}

// ChatRequest is the body of POST /chat. Message is a pointer so that a
// missing key can be told apart from an empty string, which is accepted.
type ChatRequest struct {
	Message *string `json:"message" validate:"required" example:"hi"`
	History []Turn  `json:"history,omitempty"`
}

// Text returns the message, or "" when it was not provided.
func (r *ChatRequest) Text() string {
	if r == nil || r.Message == nil {
		return ""
	}
	return *r.Message
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Response string `json:"response" example:"Hello! How can I help you today?"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
	Model  string `json:"model,omitempty" example:"distilgpt2"`
}
