package repositories

import (
	"context"

	"github.com/zatekoja/storeassist/internal/domain/entities"
)

// ConversationRepository is the append-only conversation log.
type ConversationRepository interface {
	Append(ctx context.Context, turn *entities.ConversationTurn) error

	// ListBySession returns every turn of a session, oldest first
	ListBySession(ctx context.Context, sessionID string) ([]*entities.ConversationTurn, error)

	// RecentBySession returns the latest limit turns, oldest first
	RecentBySession(ctx context.Context, sessionID string, limit int) ([]*entities.ConversationTurn, error)

	// ListSessions pages through sessions by most recent activity and
	// returns the total number of sessions
	ListSessions(ctx context.Context, limit, offset int) ([]*entities.SessionSummary, int, error)

	Stats(ctx context.Context) (*entities.ConversationStats, error)
}
