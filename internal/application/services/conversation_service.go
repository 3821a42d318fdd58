package services

import (
	"context"
	"fmt"

	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/internal/domain/repositories"
	apperrors "github.com/zatekoja/storeassist/pkg/errors"
)

const (
	defaultSessionsPerPage = 20
	maxSessionsPerPage     = 100
)

// Conversation is the admin view of one session
type Conversation struct {
	SessionID string                       `json:"session_id"`
	UserID    string                       `json:"user_id,omitempty"`
	Messages  []entities.TranscriptMessage `json:"messages"`
}

// SessionPage is one page of the admin session list
type SessionPage struct {
	Sessions []*entities.SessionSummary `json:"sessions"`
	Total    int                        `json:"total"`
	Page     int                        `json:"page"`
	PerPage  int                        `json:"per_page"`
}

// ConversationService exposes the conversation log to admins.
type ConversationService struct {
	repo repositories.ConversationRepository
}

// NewConversationService creates a new conversation service
func NewConversationService(repo repositories.ConversationRepository) *ConversationService {
	return &ConversationService{repo: repo}
}

// GetConversation returns the transcript of a session.
func (s *ConversationService) GetConversation(ctx context.Context, sessionID string) (*Conversation, error) {
	if !ValidSessionID(sessionID) {
		return nil, apperrors.NewValidationError("invalid session id")
	}

	turns, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("conversation %s not found", sessionID))
	}

	conv := &Conversation{
		SessionID: sessionID,
		Messages:  entities.Transcript(turns),
	}
	for _, t := range turns {
		if t.UserID != "" {
			conv.UserID = t.UserID
			break
		}
	}
	return conv, nil
}

// ListSessions pages through sessions, newest activity first. page starts at 1.
func (s *ConversationService) ListSessions(ctx context.Context, page, perPage int) (*SessionPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultSessionsPerPage
	}
	if perPage > maxSessionsPerPage {
		perPage = maxSessionsPerPage
	}

	sessions, total, err := s.repo.ListSessions(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*entities.SessionSummary{}
	}
	return &SessionPage{Sessions: sessions, Total: total, Page: page, PerPage: perPage}, nil
}

// Stats returns totals across the conversation log.
func (s *ConversationService) Stats(ctx context.Context) (*entities.ConversationStats, error) {
	return s.repo.Stats(ctx)
}
