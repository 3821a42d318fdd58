package services_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/internal/domain/providers"
)

// memoryIndex is an in-memory ContentIndexRepository with the same
// substring semantics as the Postgres adapter.
type memoryIndex struct {
	mu       sync.Mutex
	rows     map[entities.EntityKind]map[int64]*entities.IndexedEntity
	failOn   map[string]error
	queries  []string
	upserts  int
	deletes  int
	statsErr error
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{
		rows:   map[entities.EntityKind]map[int64]*entities.IndexedEntity{},
		failOn: map[string]error{},
	}
}

func (m *memoryIndex) put(kind entities.EntityKind, id int64, payload string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[kind] == nil {
		m.rows[kind] = map[int64]*entities.IndexedEntity{}
	}
	m.rows[kind][id] = &entities.IndexedEntity{Kind: kind, EntityID: id, Payload: payload}
}

func (m *memoryIndex) get(kind entities.EntityKind, id int64) (*entities.IndexedEntity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[kind][id]
	return e, ok
}

func (m *memoryIndex) Upsert(_ context.Context, entity *entities.IndexedEntity) error {
	m.put(entity.Kind, entity.EntityID, entity.Payload)
	m.mu.Lock()
	m.upserts++
	m.mu.Unlock()
	return nil
}

func (m *memoryIndex) Delete(_ context.Context, kind entities.EntityKind, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows[kind], id)
	m.deletes++
	return nil
}

func (m *memoryIndex) FindBySubstring(_ context.Context, kind entities.EntityKind, needle string, limit int) ([]*entities.IndexedEntity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, needle)
	if err := m.failOn[needle]; err != nil {
		return nil, err
	}

	var out []*entities.IndexedEntity
	for _, e := range m.rows[kind] {
		if strings.Contains(e.Payload, needle) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryIndex) Stats(_ context.Context, kind entities.EntityKind) (*entities.IndexStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return &entities.IndexStats{Kind: kind, Count: len(m.rows[kind])}, nil
}

type mockChatModel struct {
	mock.Mock
}

func (m *mockChatModel) Complete(ctx context.Context, req providers.ChatCompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockChatModel) Provider() string { return "openrouter" }

func (m *mockChatModel) Model() string { return "openai/gpt-4o" }

type mockConversationRepository struct {
	mock.Mock
}

func (m *mockConversationRepository) Append(ctx context.Context, turn *entities.ConversationTurn) error {
	return m.Called(ctx, turn).Error(0)
}

func (m *mockConversationRepository) ListBySession(ctx context.Context, sessionID string) ([]*entities.ConversationTurn, error) {
	args := m.Called(ctx, sessionID)
	turns, _ := args.Get(0).([]*entities.ConversationTurn)
	return turns, args.Error(1)
}

func (m *mockConversationRepository) RecentBySession(ctx context.Context, sessionID string, limit int) ([]*entities.ConversationTurn, error) {
	args := m.Called(ctx, sessionID, limit)
	turns, _ := args.Get(0).([]*entities.ConversationTurn)
	return turns, args.Error(1)
}

func (m *mockConversationRepository) ListSessions(ctx context.Context, limit, offset int) ([]*entities.SessionSummary, int, error) {
	args := m.Called(ctx, limit, offset)
	sessions, _ := args.Get(0).([]*entities.SessionSummary)
	return sessions, args.Int(1), args.Error(2)
}

func (m *mockConversationRepository) Stats(ctx context.Context) (*entities.ConversationStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*entities.ConversationStats)
	return stats, args.Error(1)
}

type mockContentSource struct {
	mock.Mock
}

func (m *mockContentSource) GetProduct(ctx context.Context, id int64) (*entities.ProductPayload, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*entities.ProductPayload)
	return p, args.Error(1)
}

func (m *mockContentSource) ListProducts(ctx context.Context, page, perPage int) ([]*entities.ProductPayload, error) {
	args := m.Called(ctx, page, perPage)
	p, _ := args.Get(0).([]*entities.ProductPayload)
	return p, args.Error(1)
}

func (m *mockContentSource) GetPage(ctx context.Context, postType string, id int64) (*entities.PagePayload, error) {
	args := m.Called(ctx, postType, id)
	p, _ := args.Get(0).(*entities.PagePayload)
	return p, args.Error(1)
}

func (m *mockContentSource) ListPages(ctx context.Context, postType string, page, perPage int) ([]*entities.PagePayload, error) {
	args := m.Called(ctx, postType, page, perPage)
	p, _ := args.Get(0).([]*entities.PagePayload)
	return p, args.Error(1)
}

func (m *mockContentSource) SearchProducts(ctx context.Context, query string, perPage int) ([]*entities.ProductPayload, error) {
	args := m.Called(ctx, query, perPage)
	p, _ := args.Get(0).([]*entities.ProductPayload)
	return p, args.Error(1)
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	c.sets++
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok, nil
}

func (c *memoryCache) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 1, window, nil
}
