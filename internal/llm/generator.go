package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Generator turns a prompt into generated text. Exactly one implementation is
// constructed at startup and then shared read-only by every request.
type Generator interface {
	// Generate returns the first candidate's continuation, excluding the prompt.
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
	// Name identifies the backend kind, e.g. "pipeline" or "remote".
	Name() string
	// Model identifies the model served by the backend.
	Model() string
}

// GenerationConfig holds the sampling parameters. It is fixed per deployment
// and never exposed to callers.
type GenerationConfig struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
	DoSample     bool
	StopToken    string
}

// temperature collapses to greedy decoding when sampling is disabled.
func (c GenerationConfig) temperature() float64 {
	if !c.DoSample {
		return 0
	}
	return c.Temperature
}

func (c GenerationConfig) stop() []string {
	if c.StopToken == "" {
		return nil
	}
	return []string{c.StopToken}
}

var (
	// ErrMissingCredential is returned before any network call when a backend
	// that needs an API token was started without one.
	ErrMissingCredential = errors.New("API token not configured")

	// ErrMalformedResponse is returned when the backend answered but the body
	// did not contain a usable candidate.
	ErrMalformedResponse = errors.New("malformed backend response")
)

func newHTTPClient(timeout time.Duration) *http.Client {
	// A zero timeout means no timeout at all.
	return &http.Client{Timeout: timeout}
}
