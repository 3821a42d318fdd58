package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/storeassist/internal/api/handlers"
	"github.com/zatekoja/storeassist/internal/api/middleware"
	"github.com/zatekoja/storeassist/internal/api/routes"
	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/pkg/config"
)

type echoChat struct{}

func (echoChat) ProcessMessage(ctx context.Context, req entities.ChatRequest) (*entities.ChatResponse, error) {
	return &entities.ChatResponse{SessionID: "s", Response: "ok"}, nil
}

func (echoChat) TestConnection(ctx context.Context, apiKey string) *entities.ConnectionTestResult {
	return &entities.ConnectionTestResult{Success: true}
}

func newTestRouter(server config.ServerConfig) http.Handler {
	chat := handlers.NewChatHandler(echoChat{}, nil, config.RateLimitConfig{ChatRequests: 1, ChatWindow: time.Minute})
	return routes.NewRouter(
		chat,
		handlers.NewAdminHandler(nil, nil),
		nil,
		handlers.NewHealthHandler(nil),
		middleware.NewAuth("secret", "admin"),
		server,
		nil,
	).SetupRoutes()
}

func sendFrom(h http.Handler, forwarded string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(`{"message":"hi"}`))
	req.RemoteAddr = "10.1.1.1:4000"
	req.Header.Set("X-Forwarded-For", forwarded)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestRouter_ForwardedHeadersIgnoredByDefault(t *testing.T) {
	router := newTestRouter(config.ServerConfig{AllowedOrigins: []string{"*"}})

	assert.Equal(t, http.StatusOK, sendFrom(router, "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(router, "198.51.100.2"))
}

func TestRouter_ForwardedHeadersTrustedBehindProxy(t *testing.T) {
	router := newTestRouter(config.ServerConfig{AllowedOrigins: []string{"*"}, TrustProxyHeaders: true})

	assert.Equal(t, http.StatusOK, sendFrom(router, "198.51.100.1"))
	assert.Equal(t, http.StatusOK, sendFrom(router, "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(router, "198.51.100.2"))
}

func TestRouter_WebhookRouteOnlyWithHandler(t *testing.T) {
	router := newTestRouter(config.ServerConfig{AllowedOrigins: []string{"*"}})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/woocommerce", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
