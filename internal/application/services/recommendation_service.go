package services

import (
	"context"
	"iter"
	"slices"

	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/internal/domain/repositories"
	"github.com/zatekoja/storeassist/internal/infrastructure/observability"
	"github.com/zatekoja/storeassist/pkg/config"
	"github.com/zatekoja/storeassist/pkg/utils"
)

// perKeywordLimit caps the rows read from the index for a single keyword
const perKeywordLimit = 10

// RecommendationService turns keywords into product and page suggestions by
// substring matching against the content index.
type RecommendationService struct {
	index    repositories.ContentIndexRepository
	cfg      config.RecommendationConfig
	currency config.CurrencyConfig
	metrics  *observability.Metrics
}

// NewRecommendationService creates a new recommendation service. metrics may be nil.
func NewRecommendationService(
	index repositories.ContentIndexRepository,
	cfg config.RecommendationConfig,
	currency config.CurrencyConfig,
	metrics *observability.Metrics,
) *RecommendationService {
	return &RecommendationService{
		index:    index,
		cfg:      cfg,
		currency: currency,
		metrics:  metrics,
	}
}

// Recommend matches products first and falls back to pages only when no
// product matched. Each side is skipped when disabled in config.
func (s *RecommendationService) Recommend(ctx context.Context, keywords []string) ([]entities.Recommendation, error) {
	priority := entities.ParsePriority(s.cfg.Priority)

	if s.cfg.EnableProducts {
		products, err := s.MatchProducts(ctx, keywords, priority, s.cfg.MaxResults)
		if err != nil {
			return nil, err
		}
		if len(products) > 0 {
			return products, nil
		}
	}

	if s.cfg.EnablePages {
		return s.MatchPages(ctx, keywords, s.cfg.MaxResults)
	}

	return []entities.Recommendation{}, nil
}

// MatchProducts matches products and orders them by priority.
func (s *RecommendationService) MatchProducts(ctx context.Context, keywords []string, priority entities.Priority, maxResults int) ([]entities.Recommendation, error) {
	return s.Match(ctx, keywords, entities.EntityKindProduct, priority, maxResults)
}

// MatchPages matches pages and posts in discovery order.
func (s *RecommendationService) MatchPages(ctx context.Context, keywords []string, maxResults int) ([]entities.Recommendation, error) {
	return s.Match(ctx, keywords, entities.EntityKindPage, entities.PriorityRelevance, maxResults)
}

// Match collects at most maxResults distinct recommendations of kind, then
// applies priority. Pages ignore price orderings.
func (s *RecommendationService) Match(
	ctx context.Context,
	keywords []string,
	kind entities.EntityKind,
	priority entities.Priority,
	maxResults int,
) ([]entities.Recommendation, error) {
	if len(keywords) == 0 || maxResults <= 0 {
		return []entities.Recommendation{}, nil
	}

	results := make([]entities.Recommendation, 0, maxResults)
	for rec, err := range s.candidates(ctx, keywords, kind) {
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
		if len(results) == maxResults {
			break
		}
	}

	if kind == entities.EntityKindPage && (priority == entities.PriorityPriceLow || priority == entities.PriorityPriceHigh) {
		priority = entities.PriorityRelevance
	}
	sortRecommendations(results, priority)

	observability.RecordRecommendations(ctx, s.metrics, string(kind), len(results))
	return results, nil
}

// candidates yields each distinct valid entity matching any keyword, in
// keyword order then index order. The consumer stops the scan by breaking.
func (s *RecommendationService) candidates(ctx context.Context, keywords []string, kind entities.EntityKind) iter.Seq2[entities.Recommendation, error] {
	return func(yield func(entities.Recommendation, error) bool) {
		logger := observability.LoggerFromContext(ctx)
		seen := make(map[int64]struct{})

		for _, keyword := range keywords {
			if err := ctx.Err(); err != nil {
				yield(entities.Recommendation{}, err)
				return
			}

			rows, err := s.index.FindBySubstring(ctx, kind, keyword, perKeywordLimit)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					yield(entities.Recommendation{}, ctxErr)
					return
				}
				logger.Warn().Err(err).Str("kind", string(kind)).Str("keyword", keyword).Msg("index lookup failed, skipping keyword")
				continue
			}

			for _, row := range rows {
				if _, dup := seen[row.EntityID]; dup {
					continue
				}
				seen[row.EntityID] = struct{}{}

				rec, ok := s.toRecommendation(row)
				if !ok {
					continue
				}
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

// toRecommendation decodes a stored payload. ok is false when the payload is
// unreadable or lacks its name/title.
func (s *RecommendationService) toRecommendation(row *entities.IndexedEntity) (entities.Recommendation, bool) {
	switch row.Kind {
	case entities.EntityKindProduct:
		p, ok := entities.DecodeProductPayload(row.Payload)
		if !ok {
			return entities.Recommendation{}, false
		}
		return entities.Recommendation{
			ID:    row.EntityID,
			Title: p.Name,
			URL:   p.Permalink,
			Price: utils.FormatPrice(p.Price, s.currency),
			Image: p.Thumbnail(),
			Stock: p.StockStatus,
			Kind:  entities.EntityKindProduct,
			Type:  "product",
		}, true
	case entities.EntityKindPage:
		p, ok := entities.DecodePagePayload(row.Payload)
		if !ok {
			return entities.Recommendation{}, false
		}
		return entities.Recommendation{
			ID:    row.EntityID,
			Title: p.Title,
			URL:   p.Permalink,
			Image: p.Thumbnail(),
			Kind:  entities.EntityKindPage,
			Type:  p.Type,
		}, true
	default:
		return entities.Recommendation{}, false
	}
}

func sortRecommendations(recs []entities.Recommendation, priority entities.Priority) {
	switch priority {
	case entities.PriorityNewest:
		slices.SortStableFunc(recs, func(a, b entities.Recommendation) int {
			switch {
			case a.ID > b.ID:
				return -1
			case a.ID < b.ID:
				return 1
			default:
				return 0
			}
		})
	case entities.PriorityPriceLow:
		// prices read "." as the decimal point, so "1.299,90 €" sorts as 1.2999
		slices.SortStableFunc(recs, func(a, b entities.Recommendation) int {
			return compareFloat(utils.PriceMagnitude(a.Price), utils.PriceMagnitude(b.Price))
		})
	case entities.PriorityPriceHigh:
		slices.SortStableFunc(recs, func(a, b entities.Recommendation) int {
			return compareFloat(utils.PriceMagnitude(b.Price), utils.PriceMagnitude(a.Price))
		})
	}
	// relevance and sales keep discovery order
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
