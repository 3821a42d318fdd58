package repositories

import (
	"context"

	"github.com/zatekoja/storeassist/internal/domain/entities"
)

// ContentIndexRepository stores the denormalized product and page index.
type ContentIndexRepository interface {
	// Upsert inserts or replaces the entity keyed by (Kind, EntityID)
	Upsert(ctx context.Context, entity *entities.IndexedEntity) error

	// Delete removes an entity; deleting a missing entity is not an error
	Delete(ctx context.Context, kind entities.EntityKind, entityID int64) error

	// FindBySubstring returns entities of kind whose serialized payload
	// contains needle (case-sensitive), ordered by entity id
	FindBySubstring(ctx context.Context, kind entities.EntityKind, needle string, limit int) ([]*entities.IndexedEntity, error)

	// Stats returns the entity count and latest update time for kind
	Stats(ctx context.Context, kind entities.EntityKind) (*entities.IndexStats, error)
}
