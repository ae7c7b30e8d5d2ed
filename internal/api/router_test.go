package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-relay/backend/internal/api"
	"chat-relay/backend/internal/interfaces/mocks"
	"chat-relay/backend/internal/model"
)

func setupRouter(t *testing.T) (http.Handler, *mocks.MockRelayService) {
	mockSvc := mocks.NewMockRelayService(t)
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "# metrics\n")
	})
	router := api.NewRouter(api.NewChatHandler(mockSvc), api.NewHealthHandler(mockSvc), metricsHandler)
	return router, mockSvc
}

func TestRouter_Routes(t *testing.T) {
	t.Run("POST /chat", func(t *testing.T) {
		router, mockSvc := setupRouter(t)
		mockSvc.On("Reply", mock.Anything, mock.Anything).Return(&model.ChatResponse{Response: "hey"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"response":"hey"}`, rr.Body.String())
	})

	t.Run("GET /health", func(t *testing.T) {
		router, mockSvc := setupRouter(t)
		mockSvc.On("Model").Return("gemini-1.5-flash").Once()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"healthy","model":"gemini-1.5-flash"}`, rr.Body.String())
	})

	t.Run("GET /metrics", func(t *testing.T) {
		router, _ := setupRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "# metrics\n", rr.Body.String())
	})

	t.Run("GET /chat is not allowed", func(t *testing.T) {
		router, _ := setupRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/chat", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}

func TestRequestID(t *testing.T) {
	t.Run("Generated when absent", func(t *testing.T) {
		router, mockSvc := setupRouter(t)
		mockSvc.On("Model").Return("m").Once()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		id := rr.Header().Get(api.RequestIDHeader)
		require.NotEmpty(t, id)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("Echoed when supplied", func(t *testing.T) {
		router, mockSvc := setupRouter(t)
		mockSvc.On("Model").Return("m").Once()

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(api.RequestIDHeader, "abc-123")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, "abc-123", rr.Header().Get(api.RequestIDHeader))
	})
}

func TestRouter_Docs(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/docs/doc.json", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Chat Relay API")
	assert.Contains(t, rr.Body.String(), "/chat")
}
