package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionsGenerator(t *testing.T) {
	cfg := GenerationConfig{MaxNewTokens: 100, Temperature: 0.7, TopP: 0.9, DoSample: true, StopToken: "<|endoftext|>"}

	t.Run("Success", func(t *testing.T) {
		var captured map[string]any
		var capturedPath, capturedAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedPath = r.URL.Path
			capturedAuth = r.Header.Get("Authorization")
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			w.Header().Set("Content-Type", "application/json")
			_, err := w.Write([]byte(`{
				"id": "cmpl-1",
				"object": "text_completion",
				"created": 1700000000,
				"model": "DialoGPT-medium",
				"choices": [
					{"text": "Hey! How are you?", "index": 0, "finish_reason": "stop", "logprobs": null},
					{"text": "second", "index": 1, "finish_reason": "stop", "logprobs": null}
				]
			}`))
			assert.NoError(t, err)
		}))
		defer server.Close()

		gen := NewCompletionsGenerator(server.URL+"/v1", "DialoGPT-medium", "local-key", 0)
		text, err := gen.Generate(context.Background(), "hi<|endoftext|>", cfg)

		require.NoError(t, err)
		assert.Equal(t, "Hey! How are you?", text)
		assert.Equal(t, "/v1/completions", capturedPath)
		assert.Equal(t, "Bearer local-key", capturedAuth)
		assert.Equal(t, "DialoGPT-medium", captured["model"])
		assert.Equal(t, "hi<|endoftext|>", captured["prompt"])
		assert.EqualValues(t, 100, captured["max_tokens"])
		assert.InDelta(t, 0.7, captured["temperature"], 1e-9)
		assert.InDelta(t, 0.9, captured["top_p"], 1e-9)
		assert.Equal(t, "<|endoftext|>", captured["stop"])
	})

	t.Run("Failure - No choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"cmpl-2","object":"text_completion","created":0,"model":"m","choices":[]}`))
		}))
		defer server.Close()

		_, err := NewCompletionsGenerator(server.URL+"/v1", "m", "", 0).Generate(context.Background(), "p", cfg)

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedResponse))
	})

	t.Run("Failure - Server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"model failed to load","type":"server_error"}}`))
		}))
		defer server.Close()

		_, err := NewCompletionsGenerator(server.URL+"/v1", "m", "", 0).Generate(context.Background(), "p", cfg)

		require.Error(t, err)
		assert.ErrorContains(t, err, "completion request failed")
	})

	t.Run("Identity", func(t *testing.T) {
		gen := NewCompletionsGenerator("http://localhost:8080/v1", "DialoGPT-medium", "", 0)
		assert.Equal(t, "model", gen.Name())
		assert.Equal(t, "DialoGPT-medium", gen.Model())
	})
}
