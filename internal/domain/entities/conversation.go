package entities

import "time"

// ConversationTurn is one user message and the assistant's reply
type ConversationTurn struct {
	ID              string           `json:"id"`
	SessionID       string           `json:"session_id"`
	UserID          string           `json:"user_id,omitempty"`
	Message         string           `json:"message"`
	Response        string           `json:"response"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// SessionSummary aggregates the turns of one session for the admin list
type SessionSummary struct {
	SessionID     string    `json:"session_id" db:"session_id"`
	UserID        string    `json:"user_id,omitempty" db:"user_id"`
	StartedAt     time.Time `json:"started_at" db:"started_at"`
	LastMessageAt time.Time `json:"last_message_at" db:"last_message_at"`
	MessageCount  int       `json:"message_count" db:"message_count"`
}

// ConversationStats are totals across all sessions
type ConversationStats struct {
	TotalSessions   int `json:"total_sessions" db:"total_sessions"`
	TotalMessages   int `json:"total_messages" db:"total_messages"`
	RegisteredUsers int `json:"registered_users" db:"registered_users"`
}

// MessageRole identifies the author of a transcript message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// TranscriptMessage is one side of a turn as shown to admins and sent to the model
type TranscriptMessage struct {
	Role            MessageRole      `json:"role"`
	Content         string           `json:"content"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Time            time.Time        `json:"time"`
}

// Transcript expands turns into alternating user and assistant messages
func Transcript(turns []*ConversationTurn) []TranscriptMessage {
	out := make([]TranscriptMessage, 0, len(turns)*2)
	for _, turn := range turns {
		out = append(out,
			TranscriptMessage{Role: RoleUser, Content: turn.Message, Time: turn.CreatedAt},
			TranscriptMessage{Role: RoleAssistant, Content: turn.Response, Recommendations: turn.Recommendations, Time: turn.CreatedAt},
		)
	}
	return out
}
