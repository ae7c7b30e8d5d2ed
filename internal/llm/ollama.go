package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type ollamaGenerator struct {
	client *http.Client
	url    string
	model  string
}

// NewOllamaGenerator returns the "pipeline" backend: a locally running
// text-generation runtime fed a raw, already formatted prompt.
func NewOllamaGenerator(url, model string, timeout time.Duration) Generator {
	return &ollamaGenerator{
		client: newHTTPClient(timeout),
		url:    strings.TrimRight(url, "/"),
		model:  model,
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Raw     bool            `json:"raw"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int      `json:"num_predict"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (g *ollamaGenerator) Name() string  { return "pipeline" }
func (g *ollamaGenerator) Model() string { return g.model }

func (g *ollamaGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	// raw=true keeps the runtime from wrapping the prompt in its own chat
	// template; the response then holds only the continuation.
	body, err := json.Marshal(generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Raw:    true,
		Stream: false,
		Options: generateOptions{
			NumPredict:  cfg.MaxNewTokens,
			Temperature: cfg.temperature(),
			TopP:        cfg.TopP,
			Stop:        cfg.stop(),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "could not marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "could not create http request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "http request failed")
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "could not read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("api returned non-200 status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var genResp generateResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return "", errors.Wrapf(ErrMalformedResponse, "could not decode response: %s", string(bodyBytes))
	}
	if genResp.Error != "" {
		return "", errors.New(genResp.Error)
	}
	return genResp.Response, nil
}
