package api

import (
	"net/http"

	// Registers the generated OpenAPI document with swag.
	_ "chat-relay/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates the chi router with every route of the service.
func NewRouter(chatHandler *ChatHandler, healthHandler *HealthHandler, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Interactive API documentation.
	r.Get("/docs/*", httpSwagger.WrapHandler)

	// Liveness only: the backend is never probed here.
	r.Get("/health", healthHandler.HandleHealth)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// No request timeout: generation may legitimately take a long time.
	r.Post("/chat", chatHandler.HandleChat)

	return r
}
