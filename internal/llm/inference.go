package llm

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/pkg/errors"
)

type inferenceGenerator struct {
	client *http.Client
	url    string
	model  string
	token  string
}

// NewInferenceGenerator returns the "remote" backend: a hosted text-generation
// inference endpoint addressed as POST <url> with a bearer token.
//
// An empty token is accepted here; every Generate call then fails with
// ErrMissingCredential without touching the network.
func NewInferenceGenerator(url, model, token string, timeout time.Duration) Generator {
	return &inferenceGenerator{
		client: newHTTPClient(timeout),
		url:    url,
		model:  model,
		token:  token,
	}
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type inferenceResult struct {
	GeneratedText *string `json:"generated_text"`
}

func (g *inferenceGenerator) Name() string  { return "remote" }
func (g *inferenceGenerator) Model() string { return g.model }

func (g *inferenceGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	if g.token == "" {
		return "", ErrMissingCredential
	}

	body, err := json.Marshal(inferenceRequest{
		Inputs: prompt,
		Parameters: inferenceParameters{
			MaxNewTokens:   cfg.MaxNewTokens,
			Temperature:    cfg.Temperature,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "could not marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "could not create http request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept-Encoding", "br, gzip, deflate")
	httpReq.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "http request failed")
	}
	defer resp.Body.Close()

	bodyBytes, err := readResponse(resp)
	if err != nil {
		return "", errors.Wrap(err, "could not read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("api returned non-2xx status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var results []inferenceResult
	if err := json.Unmarshal(bodyBytes, &results); err != nil {
		return "", errors.Wrapf(ErrMalformedResponse, "could not decode response: %s", string(bodyBytes))
	}
	if len(results) == 0 || results[0].GeneratedText == nil {
		return "", errors.Wrapf(ErrMalformedResponse, "missing generated_text in response: %s", string(bodyBytes))
	}
	return *results[0].GeneratedText, nil
}

// readResponse decodes the body according to Content-Encoding. Setting
// Accept-Encoding by hand turns off the transport's transparent gzip, so every
// encoding we advertise is handled here.
func readResponse(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "error creating gzip reader")
		}
		defer gzReader.Close()
		reader = gzReader
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		flateReader := flate.NewReader(resp.Body)
		defer flateReader.Close()
		reader = flateReader
	}

	return io.ReadAll(reader)
}
