package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/storeassist/internal/api/handlers"
	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/pkg/config"
	apperrors "github.com/zatekoja/storeassist/pkg/errors"
)

type stubChatService struct {
	requests []entities.ChatRequest
	response *entities.ChatResponse
	err      error
	test     *entities.ConnectionTestResult

	testedKeys []string
}

func (s *stubChatService) ProcessMessage(ctx context.Context, req entities.ChatRequest) (*entities.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	resp := *s.response
	if resp.SessionID == "" {
		resp.SessionID = req.SessionID
	}
	return &resp, nil
}

func (s *stubChatService) TestConnection(ctx context.Context, apiKey string) *entities.ConnectionTestResult {
	s.testedKeys = append(s.testedKeys, apiKey)
	return s.test
}

// counterCache implements providers.CacheProvider with only the counter wired
type counterCache struct {
	counts map[string]int64
	err    error
}

func (c *counterCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, errors.New("miss") }
func (c *counterCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	return nil
}
func (c *counterCache) Delete(ctx context.Context, key string) error         { return nil }
func (c *counterCache) Exists(ctx context.Context, key string) (bool, error) { return false, nil }
func (c *counterCache) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if c.err != nil {
		return 0, 0, c.err
	}
	c.counts[key]++
	return c.counts[key], window, nil
}

func chatLimits(n int) config.RateLimitConfig {
	return config.RateLimitConfig{ChatRequests: n, ChatWindow: time.Minute}
}

func postMessage(h *handlers.ChatHandler, body, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(body))
	req.RemoteAddr = ip + ":5555"
	w := httptest.NewRecorder()
	h.SendMessage(w, req)
	return w
}

func TestChatHandler_SendMessage_Success(t *testing.T) {
	service := &stubChatService{response: &entities.ChatResponse{
		Response:        "Try the Trail boots.",
		Recommendations: []entities.Recommendation{{ID: 4, Title: "Trail boots", Kind: entities.EntityKindProduct}},
		QuickReplies:    []string{"Show me more products"},
	}}
	handler := handlers.NewChatHandler(service, nil, chatLimits(10))

	w := postMessage(handler, `{"session_id":"abc-1","message":"boots?"}`, "10.0.0.1")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, service.requests, 1)
	assert.Equal(t, "boots?", service.requests[0].Message)
	assert.Equal(t, "abc-1", service.requests[0].SessionID)
	assert.Empty(t, service.requests[0].UserID)

	var resp entities.ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "abc-1", resp.SessionID)
	assert.Equal(t, "Try the Trail boots.", resp.Response)
	assert.Len(t, resp.Recommendations, 1)
}

func TestChatHandler_SendMessage_InvalidJSON(t *testing.T) {
	service := &stubChatService{}
	handler := handlers.NewChatHandler(service, nil, chatLimits(10))

	w := postMessage(handler, `{"message":`, "10.0.0.1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, service.requests)
}

func TestChatHandler_SendMessage_ValidationError(t *testing.T) {
	service := &stubChatService{err: apperrors.NewValidationError("message is required")}
	handler := handlers.NewChatHandler(service, nil, chatLimits(10))

	w := postMessage(handler, `{"message":""}`, "10.0.0.1")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "message is required", body["error"])
}

func TestChatHandler_SendMessage_InternalErrorHidesDetail(t *testing.T) {
	service := &stubChatService{err: apperrors.NewInternalError("failed to query", errors.New("pq: password authentication failed"))}
	handler := handlers.NewChatHandler(service, nil, chatLimits(10))

	w := postMessage(handler, `{"message":"hi"}`, "10.0.0.1")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestChatHandler_SendMessage_LocalRateLimit(t *testing.T) {
	service := &stubChatService{response: &entities.ChatResponse{Response: "ok"}}
	handler := handlers.NewChatHandler(service, nil, chatLimits(2))

	for i := 0; i < 2; i++ {
		w := postMessage(handler, `{"message":"hi"}`, "10.0.0.2")
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := postMessage(handler, `{"message":"hi"}`, "10.0.0.2")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// other clients have their own budget
	w = postMessage(handler, `{"message":"hi"}`, "10.0.0.3")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, service.requests, 3)
}

func TestChatHandler_SendMessage_ForwardedForDoesNotResetBudget(t *testing.T) {
	service := &stubChatService{response: &entities.ChatResponse{Response: "ok"}}
	handler := handlers.NewChatHandler(service, nil, chatLimits(1))

	for i, forwarded := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(`{"message":"hi"}`))
		req.RemoteAddr = "10.0.0.9:5555"
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		handler.SendMessage(w, req)

		if i == 0 {
			assert.Equal(t, http.StatusOK, w.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	}
	assert.Len(t, service.requests, 1)
}

func TestChatHandler_SendMessage_ShowSuggestions(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"widget yes", `{"message":"boots","show_suggestions":"yes"}`, true},
		{"widget no", `{"message":"boots","show_suggestions":"no"}`, false},
		{"boolean", `{"message":"boots","show_suggestions":true}`, true},
		{"absent", `{"message":"boots"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &stubChatService{response: &entities.ChatResponse{Response: "ok"}}
			handler := handlers.NewChatHandler(service, nil, chatLimits(10))

			w := postMessage(handler, tt.body, "10.0.0.1")

			assert.Equal(t, http.StatusOK, w.Code)
			require.Len(t, service.requests, 1)
			assert.Equal(t, tt.want, service.requests[0].ShowSuggestions)
		})
	}
}

func TestChatHandler_SendMessage_SharedRateLimit(t *testing.T) {
	service := &stubChatService{response: &entities.ChatResponse{Response: "ok"}}
	cache := &counterCache{counts: map[string]int64{}}
	handler := handlers.NewChatHandler(service, cache, chatLimits(1))

	assert.Equal(t, http.StatusOK, postMessage(handler, `{"message":"hi"}`, "10.0.0.4").Code)
	assert.Equal(t, http.StatusTooManyRequests, postMessage(handler, `{"message":"hi"}`, "10.0.0.4").Code)
	assert.Equal(t, int64(2), cache.counts["chat:rate:10.0.0.4"])
}

func TestChatHandler_SendMessage_CacheFailureFallsBackToLocal(t *testing.T) {
	service := &stubChatService{response: &entities.ChatResponse{Response: "ok"}}
	cache := &counterCache{counts: map[string]int64{}, err: errors.New("redis down")}
	handler := handlers.NewChatHandler(service, cache, chatLimits(1))

	assert.Equal(t, http.StatusOK, postMessage(handler, `{"message":"hi"}`, "10.0.0.5").Code)
	assert.Equal(t, http.StatusTooManyRequests, postMessage(handler, `{"message":"hi"}`, "10.0.0.5").Code)
}

func TestChatHandler_GetQuickReplies(t *testing.T) {
	handler := handlers.NewChatHandler(&stubChatService{}, nil, chatLimits(10))

	req := httptest.NewRequest(http.MethodGet, "/api/chat/quick-replies?context=order", nil)
	w := httptest.NewRecorder()
	handler.GetQuickReplies(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string][]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, []string{"Track my order", "When will my order arrive?", "Can I change my order?"}, body["quick_replies"])
}

func TestChatHandler_TestConnection(t *testing.T) {
	service := &stubChatService{test: &entities.ConnectionTestResult{Success: false, Provider: "openrouter", Error: "401"}}
	handler := handlers.NewChatHandler(service, nil, chatLimits(10))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/ai/test", nil)
	w := httptest.NewRecorder()
	handler.TestConnection(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	service.test = &entities.ConnectionTestResult{Success: true, Provider: "openrouter", Reply: "yes"}
	w = httptest.NewRecorder()
	handler.TestConnection(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"", ""}, service.testedKeys)
}

func TestChatHandler_TestConnection_WithKey(t *testing.T) {
	service := &stubChatService{test: &entities.ConnectionTestResult{Success: true}}
	handler := handlers.NewChatHandler(service, nil, chatLimits(10))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/ai/test", strings.NewReader(`{"api_key":"sk-or-new"}`))
	w := httptest.NewRecorder()
	handler.TestConnection(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sk-or-new"}, service.testedKeys)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/ai/test", strings.NewReader(`{"api_key":`))
	w = httptest.NewRecorder()
	handler.TestConnection(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
