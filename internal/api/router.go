package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/veldry/chatvault/internal/api/handler"
	customMiddleware "github.com/veldry/chatvault/internal/api/middleware"
	"github.com/veldry/chatvault/internal/config"
	"github.com/veldry/chatvault/internal/repository/postgres"
	"github.com/veldry/chatvault/internal/service"
)

// NewRouter creates and configures the HTTP router. This is an ops surface:
// health probes plus a small admin API over lifecycle state. Content stays
// encrypted end to end; nothing here decrypts.
func NewRouter(cfg *config.Config, db *postgres.DB, chats *service.ChatService, sessions *service.SessionService, guided *service.GuidedService) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	chatHandler := handler.NewChatHandler(chats)
	sessionHandler := handler.NewSessionHandler(chats, sessions, guided)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		r.Route("/admin", func(r chi.Router) {
			r.Get("/chats/{externalID}", chatHandler.Get)
			r.Get("/chats/{externalID}/session", sessionHandler.GetActive)
			r.Post("/sessions/{sessionID}/close", sessionHandler.Close)
			r.Post("/guided-sessions/{guidedID}/inactivate", sessionHandler.InactivateGuided)
		})
	})

	return r
}
