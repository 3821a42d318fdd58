package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/internal/domain/providers"
	"github.com/zatekoja/storeassist/internal/domain/repositories"
	"github.com/zatekoja/storeassist/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/storeassist/pkg/errors"
)

const (
	defaultIndexPageSize = 100
	indexStatusCacheKey  = "index:status"
	indexStatusCacheTTL  = 60
	publishStatus        = "publish"
)

// IndexedPostTypes are the WordPress post types kept in the page index
var IndexedPostTypes = []string{"page", "post"}

var (
	// ErrReindexRunning is returned when a full reindex is already in progress
	ErrReindexRunning = apperrors.NewConflictError("a reindex is already running")
	// ErrNoContentSource is returned by fetching operations when no store API is configured
	ErrNoContentSource = apperrors.NewValidationError("store API is not configured")
)

// IndexingService keeps the content index in step with the store.
type IndexingService struct {
	source   providers.ContentSource
	index    repositories.ContentIndexRepository
	cache    providers.CacheProvider
	pageSize int
	metrics  *observability.Metrics
	running  atomic.Bool
}

// NewIndexingService creates a new indexing service. cache and metrics may be
// nil. With a nil source only deletes and Status work.
func NewIndexingService(
	source providers.ContentSource,
	index repositories.ContentIndexRepository,
	cache providers.CacheProvider,
	pageSize int,
	metrics *observability.Metrics,
) *IndexingService {
	if pageSize <= 0 {
		pageSize = defaultIndexPageSize
	}
	return &IndexingService{
		source:   source,
		index:    index,
		cache:    cache,
		pageSize: pageSize,
		metrics:  metrics,
	}
}

// IndexProduct fetches a product and stores it. Products that are gone or
// not published are removed from the index instead.
func (s *IndexingService) IndexProduct(ctx context.Context, id int64) error {
	if s.source == nil {
		return ErrNoContentSource
	}
	product, err := s.source.GetProduct(ctx, id)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return s.DeleteProduct(ctx, id)
		}
		return err
	}
	return s.storeProduct(ctx, product)
}

// IndexPage fetches a page or post and stores it, with the same removal rules
// as IndexProduct.
func (s *IndexingService) IndexPage(ctx context.Context, postType string, id int64) error {
	if !isIndexedPostType(postType) {
		return apperrors.NewValidationError(fmt.Sprintf("post type %q is not indexed", postType))
	}
	if s.source == nil {
		return ErrNoContentSource
	}
	page, err := s.source.GetPage(ctx, postType, id)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return s.DeletePage(ctx, id)
		}
		return err
	}
	return s.storePage(ctx, page)
}

// DeleteProduct removes a product from the index.
func (s *IndexingService) DeleteProduct(ctx context.Context, id int64) error {
	return s.remove(ctx, entities.EntityKindProduct, id)
}

// DeletePage removes a page or post from the index.
func (s *IndexingService) DeletePage(ctx context.Context, id int64) error {
	return s.remove(ctx, entities.EntityKindPage, id)
}

// IndexAllProducts walks the whole catalogue. Items that fail to store are
// logged and skipped; a failed page fetch stops the walk.
func (s *IndexingService) IndexAllProducts(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, ErrNoContentSource
	}
	if !s.running.CompareAndSwap(false, true) {
		return 0, ErrReindexRunning
	}
	defer s.running.Store(false)
	return s.indexAllProducts(ctx)
}

// IndexAllPages walks every published page and post.
func (s *IndexingService) IndexAllPages(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, ErrNoContentSource
	}
	if !s.running.CompareAndSwap(false, true) {
		return 0, ErrReindexRunning
	}
	defer s.running.Store(false)
	return s.indexAllPages(ctx)
}

// ReindexAll runs both full reindexes.
func (s *IndexingService) ReindexAll(ctx context.Context) (*entities.ReindexResult, error) {
	if s.source == nil {
		return nil, ErrNoContentSource
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrReindexRunning
	}
	defer s.running.Store(false)

	result := &entities.ReindexResult{}
	var err error
	if result.Products, err = s.indexAllProducts(ctx); err != nil {
		return result, err
	}
	if result.Pages, err = s.indexAllPages(ctx); err != nil {
		return result, err
	}
	return result, nil
}

func (s *IndexingService) indexAllProducts(ctx context.Context) (int, error) {
	logger := observability.LoggerFromContext(ctx)
	indexed := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		products, err := s.source.ListProducts(ctx, page, s.pageSize)
		if err != nil {
			return indexed, fmt.Errorf("failed to list products page %d: %w", page, err)
		}
		for _, p := range products {
			if err := s.storeProduct(ctx, p); err != nil {
				logger.Warn().Err(err).Int64("product_id", p.ID).Msg("failed to index product")
				continue
			}
			indexed++
		}
		if len(products) < s.pageSize {
			break
		}
	}
	logger.Info().Int("count", indexed).Msg("product reindex finished")
	return indexed, nil
}

func (s *IndexingService) indexAllPages(ctx context.Context) (int, error) {
	logger := observability.LoggerFromContext(ctx)
	indexed := 0
	for _, postType := range IndexedPostTypes {
		for page := 1; ; page++ {
			if err := ctx.Err(); err != nil {
				return indexed, err
			}
			pages, err := s.source.ListPages(ctx, postType, page, s.pageSize)
			if err != nil {
				return indexed, fmt.Errorf("failed to list %s page %d: %w", postType, page, err)
			}
			for _, p := range pages {
				if err := s.storePage(ctx, p); err != nil {
					logger.Warn().Err(err).Int64("page_id", p.ID).Str("type", postType).Msg("failed to index page")
					continue
				}
				indexed++
			}
			if len(pages) < s.pageSize {
				break
			}
		}
	}
	logger.Info().Int("count", indexed).Msg("page reindex finished")
	return indexed, nil
}

// StartPeriodicIndexing reindexes everything now and then on every tick until
// ctx is done. It returns immediately. A non-positive interval starts nothing.
func (s *IndexingService) StartPeriodicIndexing(ctx context.Context, interval time.Duration) {
	logger := observability.LoggerFromContext(ctx)
	if interval <= 0 {
		logger.Error().Dur("interval", interval).Msg("periodic indexing not started, interval must be positive")
		return
	}
	run := func() {
		result, err := s.ReindexAll(ctx)
		switch {
		case errors.Is(err, ErrReindexRunning):
			logger.Info().Msg("skipping scheduled reindex, one is already running")
		case err != nil:
			logger.Error().Err(err).Msg("scheduled reindex failed")
		default:
			logger.Info().Int("products", result.Products).Int("pages", result.Pages).Msg("scheduled reindex complete")
		}
	}

	go func() {
		run()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("stopping periodic indexing")
				return
			case <-ticker.C:
				run()
			}
		}
	}()
	logger.Info().Dur("interval", interval).Msg("started periodic indexing")
}

// Status returns per-kind index stats, cached briefly when a cache is set.
func (s *IndexingService) Status(ctx context.Context) (*entities.IndexStatus, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, indexStatusCacheKey); err == nil {
			var cached entities.IndexStatus
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	products, err := s.index.Stats(ctx, entities.EntityKindProduct)
	if err != nil {
		return nil, err
	}
	pages, err := s.index.Stats(ctx, entities.EntityKindPage)
	if err != nil {
		return nil, err
	}
	status := &entities.IndexStatus{Products: *products, Pages: *pages}

	if s.cache != nil {
		if data, err := json.Marshal(status); err == nil {
			if err := s.cache.Set(ctx, indexStatusCacheKey, data, indexStatusCacheTTL); err != nil {
				observability.LoggerFromContext(ctx).Debug().Err(err).Msg("failed to cache index status")
			}
		}
	}
	return status, nil
}

func (s *IndexingService) storeProduct(ctx context.Context, p *entities.ProductPayload) error {
	if p.Status != "" && p.Status != publishStatus {
		return s.DeleteProduct(ctx, p.ID)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return apperrors.NewInternalError("failed to encode product payload", err)
	}
	return s.upsert(ctx, &entities.IndexedEntity{Kind: entities.EntityKindProduct, EntityID: p.ID, Payload: string(data)})
}

func (s *IndexingService) storePage(ctx context.Context, p *entities.PagePayload) error {
	if (p.Status != "" && p.Status != publishStatus) || !isIndexedPostType(p.Type) {
		return s.DeletePage(ctx, p.ID)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return apperrors.NewInternalError("failed to encode page payload", err)
	}
	return s.upsert(ctx, &entities.IndexedEntity{Kind: entities.EntityKindPage, EntityID: p.ID, Payload: string(data)})
}

func (s *IndexingService) upsert(ctx context.Context, entity *entities.IndexedEntity) error {
	err := s.index.Upsert(ctx, entity)
	observability.RecordIndexOperation(ctx, s.metrics, string(entity.Kind), "upsert", err)
	if err == nil {
		s.invalidateStatus(ctx)
	}
	return err
}

func (s *IndexingService) remove(ctx context.Context, kind entities.EntityKind, id int64) error {
	err := s.index.Delete(ctx, kind, id)
	observability.RecordIndexOperation(ctx, s.metrics, string(kind), "delete", err)
	if err == nil {
		s.invalidateStatus(ctx)
	}
	return err
}

func (s *IndexingService) invalidateStatus(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, indexStatusCacheKey); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Msg("failed to drop cached index status")
	}
}

func isIndexedPostType(postType string) bool {
	for _, t := range IndexedPostTypes {
		if t == postType {
			return true
		}
	}
	return false
}
