package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/zatekoja/storeassist/internal/domain/providers"
	"github.com/zatekoja/storeassist/pkg/config"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-1.5-flash"

// Client implements providers.ChatModel on Google Generative AI.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	timeout     time.Duration
}

// NewClient creates a Gemini chat client.
func NewClient(ctx context.Context, cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := cfg.Model
	// the OpenRouter style default is meaningless here
	if model == "" || strings.Contains(model, "/") {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	return &Client{
		client:      cl,
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(maxTokens),
		timeout:     cfg.Timeout,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Client) Provider() string { return "gemini" }

func (c *Client) Model() string { return c.model }

// Complete replays the history into a chat session and sends the new message.
func (c *Client) Complete(ctx context.Context, req providers.ChatCompletionRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", errors.New("message is required")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(c.temperature)
	m.SetMaxOutputTokens(c.maxTokens)
	if req.SystemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	session := m.StartChat()
	session.History = toHistory(req.History)

	resp, err := session.SendMessage(ctx, genai.Text(req.Message))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", errors.New("gemini response missing text")
	}
	return text, nil
}

// toHistory maps chat roles onto Gemini's user/model roles.
func toHistory(history []providers.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
