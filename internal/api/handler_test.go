// Black-box tests: only the exported surface of the api package is used.
package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-relay/backend/internal/api"
	app_errors "chat-relay/backend/internal/errors"
	"chat-relay/backend/internal/interfaces/mocks"
	"chat-relay/backend/internal/model"
)

// setupChatHandler builds a ChatHandler backed by a fresh mock service.
func setupChatHandler(t *testing.T) (*api.ChatHandler, *mocks.MockRelayService) {
	mockSvc := mocks.NewMockRelayService(t)
	return api.NewChatHandler(mockSvc), mockSvc
}

func decodeDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body api.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Detail
}

func TestChatHandler_HandleChat(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// ARRANGE
		handler, mockSvc := setupChatHandler(t)
		mockSvc.On("Reply", mock.Anything, mock.MatchedBy(func(req *model.ChatRequest) bool {
			return req.Text() == "hi"
		})).Return(&model.ChatResponse{Response: "Hello there"}, nil).Once()

		// ACT
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		// ASSERT
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"response":"Hello there"}`, rr.Body.String())
	})

	t.Run("History is passed through", func(t *testing.T) {
		handler, mockSvc := setupChatHandler(t)
		mockSvc.On("Reply", mock.Anything, mock.MatchedBy(func(req *model.ChatRequest) bool {
			return len(req.History) == 2 && req.History[1].Content == "second"
		})).Return(&model.ChatResponse{Response: "ok"}, nil).Once()

		body := `{"message":"hi","history":[{"role":"user","content":"first"},{"role":"assistant","content":"second"}]}`
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Empty message is accepted", func(t *testing.T) {
		handler, mockSvc := setupChatHandler(t)
		mockSvc.On("Reply", mock.Anything, mock.MatchedBy(func(req *model.ChatRequest) bool {
			return req.Message != nil && *req.Message == ""
		})).Return(&model.ChatResponse{Response: "Russia"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":""}`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"response":"Russia"}`, rr.Body.String())
	})

	t.Run("Missing message fails validation", func(t *testing.T) {
		// The service must not be reached; the mock asserts no unexpected calls.
		handler, _ := setupChatHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, decodeDetail(t, rr), "Field 'message' failed on the 'required' tag")
	})

	t.Run("Malformed JSON fails validation", func(t *testing.T) {
		handler, _ := setupChatHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Contains(t, decodeDetail(t, rr), "invalid request body")
	})

	t.Run("Generation failure surfaces backend text", func(t *testing.T) {
		handler, mockSvc := setupChatHandler(t)
		failure := &app_errors.GenerationFailure{Err: errors.New("API token not configured")}
		mockSvc.On("Reply", mock.Anything, mock.Anything).Return(nil, failure).Once()

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Error generating response: API token not configured", decodeDetail(t, rr))
	})

	t.Run("Unexpected error is masked", func(t *testing.T) {
		handler, mockSvc := setupChatHandler(t)
		mockSvc.On("Reply", mock.Anything, mock.Anything).Return(nil, app_errors.ErrInternal).Once()

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "An unexpected internal server error occurred.", decodeDetail(t, rr))
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	mockSvc := mocks.NewMockRelayService(t)
	mockSvc.On("Model").Return("distilgpt2").Once()
	handler := api.NewHealthHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.HandleHealth(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy","model":"distilgpt2"}`, rr.Body.String())
}
