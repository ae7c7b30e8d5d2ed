package service

import (
	"context"
	"log/slog"
	"time"

	app_errors "chat-relay/backend/internal/errors"
	"chat-relay/backend/internal/llm"
	"chat-relay/backend/internal/metrics"
	"chat-relay/backend/internal/model"
	"chat-relay/backend/internal/prompt"
)

// RelayService builds a prompt, calls the single configured generator and
// cleans its output. It holds no per-request state.
type RelayService struct {
	generator llm.Generator
	builder   *prompt.Builder
	cleaner   *prompt.Cleaner
	genCfg    llm.GenerationConfig
	metrics   *metrics.Metrics
}

func NewRelayService(
	generator llm.Generator,
	builder *prompt.Builder,
	cleaner *prompt.Cleaner,
	genCfg llm.GenerationConfig,
	m *metrics.Metrics,
) *RelayService {
	return &RelayService{
		generator: generator,
		builder:   builder,
		cleaner:   cleaner,
		genCfg:    genCfg,
		metrics:   m,
	}
}

// Reply produces the response for a single chat request. Any backend error is
// returned as *errors.GenerationFailure carrying the backend's error text.
func (s *RelayService) Reply(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	backend := s.generator.Name()
	fullPrompt := s.builder.Build(req.Text(), req.History)

	slog.Debug("Submitting prompt",
		"backend", backend,
		"style", s.builder.Style(),
		"history_turns", len(req.History),
		"prompt_length", len(fullPrompt),
	)

	start := time.Now()
	text, err := s.generator.Generate(ctx, fullPrompt, s.genCfg)
	s.metrics.ObserveGeneration(backend, time.Since(start), err)
	if err != nil {
		return nil, &app_errors.GenerationFailure{Err: err}
	}

	reply, substituted := s.cleaner.Clean(text)
	if substituted {
		s.metrics.ObserveFallback(backend)
		slog.Debug("Replaced generated text with fallback", "backend", backend, "raw", text)
	}
	return &model.ChatResponse{Response: reply}, nil
}

// Model identifies the model behind the configured backend.
func (s *RelayService) Model() string {
	return s.generator.Model()
}
