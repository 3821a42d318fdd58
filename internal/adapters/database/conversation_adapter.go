package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/internal/domain/repositories"
	"github.com/zatekoja/storeassist/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/storeassist/pkg/errors"
)

const conversationsTable = "conversations"

// ConversationAdapter implements the conversation log in Postgres.
type ConversationAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewConversationAdapter creates a new conversation adapter.
func NewConversationAdapter(client *postgres.Client) repositories.ConversationRepository {
	return &ConversationAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

type conversationRow struct {
	ID              string         `db:"id"`
	SessionID       string         `db:"session_id"`
	UserID          sql.NullString `db:"user_id"`
	Message         string         `db:"message"`
	Response        string         `db:"response"`
	Recommendations sql.NullString `db:"recommendations"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (r conversationRow) toEntity() *entities.ConversationTurn {
	turn := &entities.ConversationTurn{
		ID:        r.ID,
		SessionID: r.SessionID,
		UserID:    r.UserID.String,
		Message:   r.Message,
		Response:  r.Response,
		CreatedAt: r.CreatedAt,
	}
	if r.Recommendations.Valid && r.Recommendations.String != "" {
		if err := json.Unmarshal([]byte(r.Recommendations.String), &turn.Recommendations); err != nil {
			log.Warn().Err(err).Str("turn_id", r.ID).Msg("ignoring unreadable recommendations column")
			turn.Recommendations = nil
		}
	}
	return turn
}

var conversationColumns = []interface{}{
	"id", "session_id", "user_id", "message", "response", "recommendations", "created_at",
}

// Append writes one turn. Recommendations are stored as JSON, or NULL when empty.
func (a *ConversationAdapter) Append(ctx context.Context, turn *entities.ConversationTurn) error {
	if turn == nil {
		return apperrors.NewInternalError("conversation turn is nil", fmt.Errorf("conversation turn is nil"))
	}

	recommendations := sql.NullString{}
	if len(turn.Recommendations) > 0 {
		data, err := json.Marshal(turn.Recommendations)
		if err != nil {
			return apperrors.NewInternalError("failed to encode recommendations", err)
		}
		recommendations = sql.NullString{String: string(data), Valid: true}
	}

	record := goqu.Record{
		"id":              turn.ID,
		"session_id":      turn.SessionID,
		"user_id":         sql.NullString{String: turn.UserID, Valid: turn.UserID != ""},
		"message":         turn.Message,
		"response":        turn.Response,
		"recommendations": recommendations,
		"created_at":      turn.CreatedAt,
	}

	query, args, err := a.db.Insert(conversationsTable).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build conversation insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to append conversation turn", err)
	}
	return nil
}

// ListBySession returns all turns of a session in chronological order.
func (a *ConversationAdapter) ListBySession(ctx context.Context, sessionID string) ([]*entities.ConversationTurn, error) {
	query, args, err := a.db.From(conversationsTable).
		Select(conversationColumns...).
		Where(goqu.C("session_id").Eq(sessionID)).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build conversation query", err)
	}

	var rows []conversationRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to load conversation", err)
	}

	turns := make([]*entities.ConversationTurn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, row.toEntity())
	}
	return turns, nil
}

// RecentBySession returns the newest limit turns, oldest first.
func (a *ConversationAdapter) RecentBySession(ctx context.Context, sessionID string, limit int) ([]*entities.ConversationTurn, error) {
	if limit <= 0 {
		return []*entities.ConversationTurn{}, nil
	}

	query, args, err := a.db.From(conversationsTable).
		Select(conversationColumns...).
		Where(goqu.C("session_id").Eq(sessionID)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build history query", err)
	}

	var rows []conversationRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to load conversation history", err)
	}

	turns := make([]*entities.ConversationTurn, len(rows))
	for i, row := range rows {
		turns[len(rows)-1-i] = row.toEntity()
	}
	return turns, nil
}

// ListSessions returns one summary per session, most recently active first.
func (a *ConversationAdapter) ListSessions(ctx context.Context, limit, offset int) ([]*entities.SessionSummary, int, error) {
	countQuery, countArgs, err := a.db.From(conversationsTable).
		Select(goqu.COUNT(goqu.DISTINCT("session_id"))).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build session count query", err)
	}

	var total int
	if err := a.client.DBX().GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to count sessions", err)
	}

	query, args, err := a.db.From(conversationsTable).
		Select(
			goqu.C("session_id"),
			goqu.COALESCE(goqu.MAX("user_id"), "").As("user_id"),
			goqu.MIN("created_at").As("started_at"),
			goqu.MAX("created_at").As("last_message_at"),
			goqu.COUNT("*").As("message_count"),
		).
		GroupBy("session_id").
		Order(goqu.I("last_message_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build session list query", err)
	}

	sessions := []*entities.SessionSummary{}
	if err := a.client.DBX().SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to list sessions", err)
	}
	return sessions, total, nil
}

// Stats returns conversation totals.
func (a *ConversationAdapter) Stats(ctx context.Context) (*entities.ConversationStats, error) {
	query, args, err := a.db.From(conversationsTable).
		Select(
			goqu.COUNT(goqu.DISTINCT("session_id")).As("total_sessions"),
			goqu.COUNT("*").As("total_messages"),
			goqu.COUNT(goqu.DISTINCT("user_id")).As("registered_users"),
		).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build stats query", err)
	}

	var stats entities.ConversationStats
	if err := a.client.DBX().GetContext(ctx, &stats, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to load conversation stats", err)
	}
	return &stats, nil
}
