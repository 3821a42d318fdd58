package providers

import (
	"context"

	"github.com/zatekoja/storeassist/internal/domain/entities"
)

// ContentSource reads the canonical store content that gets indexed.
// Get methods return a NOT_FOUND AppError when the item no longer exists.
type ContentSource interface {
	GetProduct(ctx context.Context, id int64) (*entities.ProductPayload, error)
	ListProducts(ctx context.Context, page, perPage int) ([]*entities.ProductPayload, error)
	GetPage(ctx context.Context, postType string, id int64) (*entities.PagePayload, error)
	ListPages(ctx context.Context, postType string, page, perPage int) ([]*entities.PagePayload, error)
	// SearchProducts returns up to perPage published products matching query
	SearchProducts(ctx context.Context, query string, perPage int) ([]*entities.ProductPayload, error)
}
