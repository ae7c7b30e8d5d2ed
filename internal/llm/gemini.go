package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

type geminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator returns the "gemini" backend. Without an API key no
// client is created and Generate reports ErrMissingCredential.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (Generator, error) {
	g := &geminiGenerator{model: model}
	if apiKey == "" {
		return g, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}
	g.client = client
	return g, nil
}

func (g *geminiGenerator) Name() string  { return "gemini" }
func (g *geminiGenerator) Model() string { return g.model }

func (g *geminiGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	if g.client == nil {
		return "", ErrMissingCredential
	}

	// GenerativeModel holds per-call settings; the client stays shared.
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(float32(cfg.temperature()))
	m.SetTopP(float32(cfg.TopP))
	m.SetMaxOutputTokens(int32(cfg.MaxNewTokens))
	m.StopSequences = cfg.stop()

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", errors.Wrap(err, "gemini generation failed")
	}
	text, ok := firstCandidateText(resp)
	if !ok {
		return "", errors.Wrap(ErrMalformedResponse, "gemini returned no candidates")
	}
	return text, nil
}

// Close releases the underlying gRPC connection.
func (g *geminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func firstCandidateText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", false
	}
	var text strings.Builder
	if content := resp.Candidates[0].Content; content != nil {
		for _, part := range content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return text.String(), true
}
