package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/zatekoja/storeassist/internal/api/handlers"
	"github.com/zatekoja/storeassist/internal/api/middleware"
	"github.com/zatekoja/storeassist/internal/infrastructure/observability"
	"github.com/zatekoja/storeassist/pkg/config"
)

// Router holds all route handlers
type Router struct {
	chatHandler    *handlers.ChatHandler
	adminHandler   *handlers.AdminHandler
	webhookHandler *handlers.WebhookHandler
	healthHandler  *handlers.HealthHandler

	auth    *middleware.Auth
	server  config.ServerConfig
	metrics *observability.Metrics
}

// NewRouter creates a new router. webhookHandler may be nil when no store
// API is configured.
func NewRouter(
	chatHandler *handlers.ChatHandler,
	adminHandler *handlers.AdminHandler,
	webhookHandler *handlers.WebhookHandler,
	healthHandler *handlers.HealthHandler,
	auth *middleware.Auth,
	server config.ServerConfig,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		chatHandler:    chatHandler,
		adminHandler:   adminHandler,
		webhookHandler: webhookHandler,
		healthHandler:  healthHandler,
		auth:           auth,
		server:         server,
		metrics:        metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	mux := chi.NewRouter()

	// CORS is outermost so preflights and errors carry the headers
	mux.Use(middleware.CORSMiddleware(r.server.AllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	// forwarded headers rewrite RemoteAddr only behind a trusted proxy
	if r.server.TrustProxyHeaders {
		mux.Use(chimiddleware.RealIP)
	}
	mux.Use(middleware.ObservabilityMiddleware(r.metrics))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(chimiddleware.Recoverer)
	mux.Use(chimiddleware.Compress(5, "application/json"))

	mux.Get("/health", r.healthHandler.Health)

	mux.Route("/api", func(api chi.Router) {
		// Widget endpoints
		api.With(r.auth.OptionalUser).Post("/chat/message", r.chatHandler.SendMessage)
		api.Get("/chat/quick-replies", r.chatHandler.GetQuickReplies)

		// Store owner endpoints
		api.Group(func(admin chi.Router) {
			admin.Use(r.auth.AdminOnly)

			admin.Get("/conversations/{session_id}", r.adminHandler.GetConversation)
			admin.Get("/admin/conversations", r.adminHandler.ListConversations)
			admin.Get("/admin/stats", r.adminHandler.GetStats)
			admin.Get("/admin/index/status", r.adminHandler.GetIndexStatus)
			admin.Post("/admin/reindex/{kind}", r.adminHandler.Reindex)
			admin.Post("/admin/ai/test", r.chatHandler.TestConnection)
		})
	})

	if r.webhookHandler != nil {
		mux.Post("/webhooks/woocommerce", r.webhookHandler.HandleWebhook)
	}

	return mux
}
