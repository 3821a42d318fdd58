package providers

import (
	"context"
	"errors"
)

// ErrChatModelUnauthorized is returned when the provider rejects the credentials.
var ErrChatModelUnauthorized = errors.New("chat model unauthorized")

// ChatMessage is one message of the conversation history sent to the model
type ChatMessage struct {
	Role    string
	Content string
}

// ChatCompletionRequest is a single completion call
type ChatCompletionRequest struct {
	SystemPrompt string
	History      []ChatMessage
	Message      string
}

// ChatModel produces an assistant reply for a conversation.
type ChatModel interface {
	Complete(ctx context.Context, req ChatCompletionRequest) (string, error)
	Provider() string
	Model() string
}
