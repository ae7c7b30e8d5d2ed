package llm

import (
	"context"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkg/errors"
)

type completionsGenerator struct {
	client openai.Client
	model  string
}

// NewCompletionsGenerator returns the "model" backend: a local tokenizer+model
// pair served behind an OpenAI-compatible /v1/completions endpoint
// (llama.cpp, ramalama, vLLM and friends).
func NewCompletionsGenerator(baseURL, model, apiKey string, timeout time.Duration) Generator {
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &completionsGenerator{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (g *completionsGenerator) Name() string  { return "model" }
func (g *completionsGenerator) Model() string { return g.model }

func (g *completionsGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	params := openai.CompletionNewParams{
		Model:       openai.CompletionNewParamsModel(g.model),
		Prompt:      openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
		MaxTokens:   openai.Int(int64(cfg.MaxNewTokens)),
		Temperature: openai.Float(cfg.temperature()),
		TopP:        openai.Float(cfg.TopP),
	}
	if cfg.StopToken != "" {
		params.Stop = openai.CompletionNewParamsStopUnion{OfString: openai.String(cfg.StopToken)}
	}

	completion, err := g.client.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "completion request failed")
	}
	if len(completion.Choices) == 0 {
		return "", errors.Wrap(ErrMalformedResponse, "completion returned no choices")
	}
	return completion.Choices[0].Text, nil
}
