package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zatekoja/storeassist/internal/application/services"
	"github.com/zatekoja/storeassist/internal/domain/entities"
)

// ConversationService defines the conversation log operations used by the admin handler.
type ConversationService interface {
	GetConversation(ctx context.Context, sessionID string) (*services.Conversation, error)
	ListSessions(ctx context.Context, page, perPage int) (*services.SessionPage, error)
	Stats(ctx context.Context) (*entities.ConversationStats, error)
}

// IndexingService defines the index operations used by the admin handler.
type IndexingService interface {
	IndexAllProducts(ctx context.Context) (int, error)
	IndexAllPages(ctx context.Context) (int, error)
	ReindexAll(ctx context.Context) (*entities.ReindexResult, error)
	Status(ctx context.Context) (*entities.IndexStatus, error)
}

// AdminHandler serves the store owner's conversation and index views.
type AdminHandler struct {
	conversations ConversationService
	indexing      IndexingService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(conversations ConversationService, indexing IndexingService) *AdminHandler {
	return &AdminHandler{conversations: conversations, indexing: indexing}
}

// GetConversation handles GET /api/conversations/{session_id}
func (h *AdminHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.GetConversation(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, conv)
}

// ListConversations handles GET /api/admin/conversations?page=&per_page=
func (h *AdminHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("per_page"))

	result, err := h.conversations.ListSessions(r.Context(), page, perPage)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

type statsResponse struct {
	Conversations *entities.ConversationStats `json:"conversations"`
	Index         *entities.IndexStatus       `json:"index"`
}

// GetStats handles GET /api/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.Stats(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	index, err := h.indexing.Status(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, statsResponse{Conversations: conv, Index: index})
}

// GetIndexStatus handles GET /api/admin/index/status
func (h *AdminHandler) GetIndexStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.indexing.Status(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// Reindex handles POST /api/admin/reindex/{kind} where kind is products,
// pages or all. It runs synchronously and reports how many items were indexed.
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result := &entities.ReindexResult{}
	var err error

	switch chi.URLParam(r, "kind") {
	case "products":
		result.Products, err = h.indexing.IndexAllProducts(ctx)
	case "pages":
		result.Pages, err = h.indexing.IndexAllPages(ctx)
	case "all":
		result, err = h.indexing.ReindexAll(ctx)
	default:
		respondWithError(w, http.StatusBadRequest, "kind must be one of products, pages, all")
		return
	}
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status": "completed",
		"result": result,
	})
}
