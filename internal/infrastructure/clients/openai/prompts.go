package openai

import (
	"strings"

	"github.com/zatekoja/storeassist/internal/domain/providers"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// buildMessages flattens a completion request into the messages array:
// system prompt, prior turns, then the new user message.
func buildMessages(req providers.ChatCompletionRequest) []chatMessage {
	messages := make([]chatMessage, 0, len(req.History)+2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.History {
		if m.Content == "" {
			continue
		}
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, chatMessage{Role: role, Content: m.Content})
	}
	return append(messages, chatMessage{Role: "user", Content: req.Message})
}
