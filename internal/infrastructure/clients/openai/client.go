package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/storeassist/internal/domain/providers"
	"github.com/zatekoja/storeassist/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "openai/gpt-4o"
)

// Client implements providers.ChatModel against any OpenAI compatible
// chat completions endpoint (OpenRouter, OpenAI, local gateways).
type Client struct {
	provider    string
	apiKey      string
	model       string
	baseURL     string
	referer     string
	title       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a new chat completions client.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("llm api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openrouter"
	}

	return &Client{
		provider:    provider,
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		referer:     cfg.Referer,
		title:       cfg.Title,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: newLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

// Provider returns the configured provider name.
func (c *Client) Provider() string { return c.provider }

// Model returns the model identifier sent with each request.
func (c *Client) Model() string { return c.model }

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the conversation and returns the assistant reply.
func (c *Client) Complete(ctx context.Context, req providers.ChatCompletionRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", errors.New("message is required")
	}

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordChatMetric(ctx, c.provider, c.model, 0, 0, err)
			return "", err
		}
		recordRateLimitWait(ctx, c.provider, c.model, time.Since(waitStart))
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    buildMessages(req),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		recordChatMetric(ctx, c.provider, c.model, 0, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		recordChatMetric(ctx, c.provider, c.model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: %s request failed with status %d", providers.ErrChatModelUnauthorized, c.provider, resp.StatusCode)
		}
		return "", fmt.Errorf("%s request failed with status %d: %s", c.provider, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var envelope completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordChatMetric(ctx, c.provider, c.model, resp.StatusCode, time.Since(start), err)
		return "", fmt.Errorf("failed to decode %s response: %w", c.provider, err)
	}

	if envelope.Error != nil && envelope.Error.Message != "" {
		err := fmt.Errorf("%s error: %s", c.provider, envelope.Error.Message)
		recordChatMetric(ctx, c.provider, c.model, resp.StatusCode, time.Since(start), err)
		return "", err
	}
	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		err := fmt.Errorf("%s response missing message content", c.provider)
		recordChatMetric(ctx, c.provider, c.model, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	recordChatMetric(ctx, c.provider, c.model, resp.StatusCode, time.Since(start), nil)
	return envelope.Choices[0].Message.Content, nil
}

// newLimiter returns nil when rpm is negative (limiting disabled).
func newLimiter(rpm int, burst int) *rate.Limiter {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
}

type chatMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var chatMetricsInit = false
var llmMetrics chatMetrics

func ensureChatMetrics() {
	if chatMetricsInit {
		return
	}
	meter := otel.Meter("github.com/zatekoja/storeassist/llm")

	requestCount, err := meter.Int64Counter(
		"ai.chat.request.count",
		metric.WithDescription("Number of chat completion requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.chat.request.duration",
		metric.WithDescription("Chat completion request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.chat.request.errors",
		metric.WithDescription("Number of chat completion errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.chat.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the chat rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	llmMetrics = chatMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
	chatMetricsInit = true
}

func recordChatMetric(ctx context.Context, provider, model string, statusCode int, duration time.Duration, err error) {
	ensureChatMetrics()
	if !chatMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	llmMetrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	llmMetrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		llmMetrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordRateLimitWait(ctx context.Context, provider, model string, wait time.Duration) {
	ensureChatMetrics()
	if !chatMetricsInit {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	}
	llmMetrics.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
