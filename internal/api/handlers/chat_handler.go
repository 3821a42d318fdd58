package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/zatekoja/storeassist/internal/api/middleware"
	"github.com/zatekoja/storeassist/internal/application/services"
	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/internal/domain/providers"
	"github.com/zatekoja/storeassist/pkg/config"
)

// ChatService defines the chat operations used by the handler.
type ChatService interface {
	ProcessMessage(ctx context.Context, req entities.ChatRequest) (*entities.ChatResponse, error)
	TestConnection(ctx context.Context, apiKey string) *entities.ConnectionTestResult
}

// ChatHandler serves the storefront widget.
type ChatHandler struct {
	service ChatService
	limiter *rateLimiter
}

// NewChatHandler creates a new chat handler. cache may be nil.
func NewChatHandler(service ChatService, cache providers.CacheProvider, limits config.RateLimitConfig) *ChatHandler {
	return &ChatHandler{
		service: service,
		limiter: newRateLimiter(cache, limits.ChatRequests, limits.ChatWindow),
	}
}

type chatMessageRequest struct {
	SessionID       string    `json:"session_id"`
	Message         string    `json:"message"`
	ShowSuggestions yesNoFlag `json:"show_suggestions"`
}

// yesNoFlag accepts a JSON boolean or the widget's "yes"/"no" strings
type yesNoFlag bool

func (f *yesNoFlag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = yesNoFlag(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = yesNoFlag(s == "yes")
	return nil
}

// SendMessage handles POST /api/chat/message
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var payload chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	allowed, retryAfter := h.limiter.allow(r.Context(), "chat:rate:"+clientIP(r))
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	resp, err := h.service.ProcessMessage(r.Context(), entities.ChatRequest{
		SessionID: payload.SessionID,
		UserID:    middleware.UserIDFromContext(r.Context()),
		Message:   payload.Message,

		ShowSuggestions: bool(payload.ShowSuggestions),
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// GetQuickReplies handles GET /api/chat/quick-replies?context=
func (h *ChatHandler) GetQuickReplies(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string][]string{
		"quick_replies": services.QuickReplies(r.URL.Query().Get("context")),
	})
}

type connectionTestRequest struct {
	APIKey string `json:"api_key"`
}

// TestConnection handles POST /api/admin/ai/test. The body is optional; an
// api_key in it is tested instead of the configured one.
func (h *ChatHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var payload connectionTestRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	result := h.service.TestConnection(r.Context(), payload.APIKey)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	respondWithJSON(w, status, result)
}
