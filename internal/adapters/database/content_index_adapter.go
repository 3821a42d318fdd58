package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/internal/domain/repositories"
	"github.com/zatekoja/storeassist/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/storeassist/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/storeassist/pkg/errors"
)

const contentIndexTable = "content_index"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContentIndexAdapter implements ContentIndexRepository in Postgres.
type ContentIndexAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
	now     func() time.Time
}

// NewContentIndexAdapter creates a new content index adapter. metrics may be nil.
func NewContentIndexAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.ContentIndexRepository {
	return &ContentIndexAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
		now:     time.Now,
	}
}

// Upsert inserts the entity or replaces the payload of the existing row.
func (a *ContentIndexAdapter) Upsert(ctx context.Context, entity *entities.IndexedEntity) error {
	if entity == nil {
		return apperrors.NewInternalError("indexed entity is nil", fmt.Errorf("indexed entity is nil"))
	}
	if !entity.Kind.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown entity kind %q", entity.Kind))
	}

	entity.LastUpdated = a.now().UTC()

	query, args, err := a.db.Insert(contentIndexTable).
		Rows(goqu.Record{
			"kind":         string(entity.Kind),
			"entity_id":    entity.EntityID,
			"payload":      entity.Payload,
			"last_updated": entity.LastUpdated,
		}).
		OnConflict(goqu.DoUpdate("kind, entity_id", goqu.Record{
			"payload":      goqu.L("EXCLUDED.payload"),
			"last_updated": goqu.L("EXCLUDED.last_updated"),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build index upsert query", err)
	}

	start := time.Now()
	_, err = a.client.DB().ExecContext(ctx, query, args...)
	observability.RecordDBMetric(ctx, a.metrics, "content_index.upsert", time.Since(start))
	if err != nil {
		return apperrors.NewInternalError("failed to upsert indexed entity", err)
	}
	return nil
}

// Delete removes an entity from the index.
func (a *ContentIndexAdapter) Delete(ctx context.Context, kind entities.EntityKind, entityID int64) error {
	query, args, err := a.db.Delete(contentIndexTable).
		Where(goqu.Ex{
			"kind":      string(kind),
			"entity_id": entityID,
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build index delete query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to delete indexed entity", err)
	}
	return nil
}

// FindBySubstring matches needle against the raw serialized payload with a
// case-sensitive LIKE. LIKE wildcards in needle are escaped.
func (a *ContentIndexAdapter) FindBySubstring(ctx context.Context, kind entities.EntityKind, needle string, limit int) ([]*entities.IndexedEntity, error) {
	if needle == "" || limit <= 0 {
		return []*entities.IndexedEntity{}, nil
	}

	pattern := "%" + likeEscaper.Replace(needle) + "%"

	query, args, err := a.db.From(contentIndexTable).
		Select("kind", "entity_id", "payload", "last_updated").
		Where(
			goqu.C("kind").Eq(string(kind)),
			goqu.C("payload").Like(pattern),
		).
		Order(goqu.C("entity_id").Asc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build index search query", err)
	}

	start := time.Now()
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	observability.RecordDBMetric(ctx, a.metrics, "content_index.find", time.Since(start))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to search index", err)
	}
	defer rows.Close()

	results := make([]*entities.IndexedEntity, 0, limit)
	for rows.Next() {
		var (
			e    entities.IndexedEntity
			kind string
		)
		if err := rows.Scan(&kind, &e.EntityID, &e.Payload, &e.LastUpdated); err != nil {
			return nil, apperrors.NewInternalError("failed to scan indexed entity", err)
		}
		e.Kind = entities.EntityKind(kind)
		results = append(results, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate index rows", err)
	}

	return results, nil
}

// Stats returns the number of indexed entities and the latest update time.
func (a *ContentIndexAdapter) Stats(ctx context.Context, kind entities.EntityKind) (*entities.IndexStats, error) {
	query, args, err := a.db.From(contentIndexTable).
		Select(
			goqu.COUNT("*").As("count"),
			goqu.MAX("last_updated").As("last_updated"),
		).
		Where(goqu.C("kind").Eq(string(kind))).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build index stats query", err)
	}

	var (
		count       int
		lastUpdated sql.NullTime
	)
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&count, &lastUpdated); err != nil {
		return nil, apperrors.NewInternalError("failed to load index stats", err)
	}

	stats := &entities.IndexStats{Kind: kind, Count: count}
	if lastUpdated.Valid {
		t := lastUpdated.Time
		stats.LastUpdated = &t
	}
	return stats, nil
}
