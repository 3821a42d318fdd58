package services

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/zatekoja/storeassist/internal/domain/entities"
	"github.com/zatekoja/storeassist/internal/domain/providers"
	"github.com/zatekoja/storeassist/internal/domain/repositories"
	"github.com/zatekoja/storeassist/internal/infrastructure/observability"
	"github.com/zatekoja/storeassist/pkg/config"
	apperrors "github.com/zatekoja/storeassist/pkg/errors"
	"github.com/zatekoja/storeassist/pkg/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// NotConfiguredReply is sent when no chat model is available
	NotConfiguredReply = "The chatbot is not properly configured. Please contact the site administrator."
	// FailureReply is sent when the chat model call fails
	FailureReply = "Sorry, I encountered an error while processing your request. Please try again."

	historyTurns           = 10
	maxMessageRunes        = 2000
	defaultSuggestionCount = 5

	connectionTestPrompt = "You are a helpful assistant."
	connectionTestMsg    = `Hello, this is a test message. Please respond with "Connection successful."`
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9-]{1,50}$`)

// ValidSessionID reports whether id is an acceptable client session id
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Recommender produces recommendations for a keyword set
type Recommender interface {
	Recommend(ctx context.Context, keywords []string) ([]entities.Recommendation, error)
}

// ProductSearcher runs the store's product search
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string, perPage int) ([]*entities.ProductPayload, error)
}

// ModelFactory builds a chat model for an API key other than the configured one
type ModelFactory func(ctx context.Context, apiKey string) (providers.ChatModel, error)

// ChatSettings are the chat service knobs taken from config
type ChatSettings struct {
	Store        config.StoreConfig
	Timeout      time.Duration
	QuickReplies bool

	// Suggestions allows store search results when a request asks for them
	Suggestions     bool
	SuggestionCount int
}

// ChatService answers customer messages through the chat model and attaches
// recommendations matched from the message and the reply.
type ChatService struct {
	model         providers.ChatModel
	conversations repositories.ConversationRepository
	recommender   Recommender
	products      ProductSearcher
	newModel      ModelFactory
	settings      ChatSettings
	now           func() time.Time
}

// NewChatService creates a new chat service. model may be nil when no API key
// is configured; every message then gets NotConfiguredReply.
func NewChatService(
	model providers.ChatModel,
	conversations repositories.ConversationRepository,
	recommender Recommender,
	settings ChatSettings,
) *ChatService {
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.SuggestionCount <= 0 {
		settings.SuggestionCount = defaultSuggestionCount
	}
	return &ChatService{
		model:         model,
		conversations: conversations,
		recommender:   recommender,
		settings:      settings,
		now:           time.Now,
	}
}

// SetProductSearcher enables product suggestions. Without one requests for
// suggestions get an empty list.
func (s *ChatService) SetProductSearcher(products ProductSearcher) {
	s.products = products
}

// SetModelFactory lets TestConnection try an API key that is not saved yet.
func (s *ChatService) SetModelFactory(factory ModelFactory) {
	s.newModel = factory
}

// ProcessMessage handles one customer message end to end. Only validation
// errors are returned; model and storage failures degrade the response.
func (s *ChatService) ProcessMessage(ctx context.Context, req entities.ChatRequest) (*entities.ChatResponse, error) {
	ctx, span := observability.StartSpan(ctx, "ChatService.ProcessMessage")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required")
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		return nil, apperrors.NewValidationError(fmt.Sprintf("message must be at most %d characters", maxMessageRunes))
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if !ValidSessionID(sessionID) {
		return nil, apperrors.NewValidationError("invalid session id")
	}
	observability.SetSpanAttributes(span, attribute.String("chat.session_id", sessionID))

	reply := NotConfiguredReply
	recommendations := []entities.Recommendation{}
	if s.model != nil {
		reply, recommendations = s.answer(ctx, sessionID, message)
	}
	observability.SetSpanAttributes(span, attribute.Int("chat.recommendations", len(recommendations)))

	turn := &entities.ConversationTurn{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		UserID:          req.UserID,
		Message:         message,
		Response:        reply,
		Recommendations: recommendations,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.conversations.Append(ctx, turn); err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to log conversation turn")
	}

	resp := &entities.ChatResponse{
		SessionID:          sessionID,
		Response:           reply,
		Recommendations:    recommendations,
		ProductSuggestions: []entities.ProductSuggestion{},
	}
	if req.ShowSuggestions && s.settings.Suggestions {
		resp.ProductSuggestions = s.suggestProducts(ctx, message)
	}
	if s.settings.QuickReplies {
		resp.QuickReplies = QuickReplies(DetectQuickReplyContext(message + " " + reply))
	}
	return resp, nil
}

// answer asks the model for a reply and matches recommendations against the
// message and the reply. A failed call yields FailureReply and nothing else.
func (s *ChatService) answer(ctx context.Context, sessionID, message string) (string, []entities.Recommendation) {
	logger := observability.LoggerFromContext(ctx)
	recommendations := []entities.Recommendation{}

	reply, err := s.complete(ctx, s.model, providers.ChatCompletionRequest{
		SystemPrompt: BuildSystemPrompt(s.settings.Store),
		History:      s.loadHistory(ctx, sessionID),
		Message:      message,
	})
	if err != nil {
		observability.RecordError(trace.SpanFromContext(ctx), err)
		logger.Error().Err(err).Str("session_id", sessionID).Str("provider", s.model.Provider()).Msg("chat completion failed")
		return FailureReply, recommendations
	}
	if s.recommender == nil {
		return reply, recommendations
	}

	recs, err := s.recommender.Recommend(ctx, utils.ExtractKeywords(message+" "+reply))
	if err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("recommendation lookup failed")
	} else if recs != nil {
		recommendations = recs
	}
	return reply, recommendations
}

// suggestProducts searches the store with the message keywords. Search
// failures leave the list empty.
func (s *ChatService) suggestProducts(ctx context.Context, message string) []entities.ProductSuggestion {
	suggestions := []entities.ProductSuggestion{}
	if s.products == nil {
		return suggestions
	}
	keywords := utils.ExtractKeywords(message)
	if len(keywords) == 0 {
		return suggestions
	}

	count := s.settings.SuggestionCount
	products, err := s.products.SearchProducts(ctx, strings.Join(keywords, " "), count)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("product suggestion search failed")
		return suggestions
	}

	for _, p := range products {
		if p == nil {
			continue
		}
		image := s.settings.Store.PlaceholderImage
		if len(p.Images) > 0 && p.Images[0].URL != "" {
			image = p.Images[0].URL
		}
		suggestions = append(suggestions, entities.ProductSuggestion{
			ID:    p.ID,
			Title: p.Name,
			Price: utils.FormatPrice(p.Price, s.settings.Store.Currency),
			URL:   p.Permalink,
			Image: image,
		})
		if len(suggestions) == count {
			break
		}
	}
	return suggestions
}

// TestConnection sends a fixed test message to the chat model. A non-empty
// apiKey is tried through the model factory instead of the configured model.
func (s *ChatService) TestConnection(ctx context.Context, apiKey string) *entities.ConnectionTestResult {
	model := s.model
	if apiKey != "" {
		if s.newModel == nil {
			return &entities.ConnectionTestResult{Success: false, Error: "testing an unsaved API key is not supported"}
		}
		candidate, err := s.newModel(ctx, apiKey)
		if err != nil {
			return &entities.ConnectionTestResult{Success: false, Error: err.Error()}
		}
		if closer, ok := candidate.(io.Closer); ok {
			defer closer.Close()
		}
		model = candidate
	}
	if model == nil {
		return &entities.ConnectionTestResult{Success: false, Error: "chat model is not configured"}
	}

	result := &entities.ConnectionTestResult{Provider: model.Provider(), Model: model.Model()}
	reply, err := s.complete(ctx, model, providers.ChatCompletionRequest{
		SystemPrompt: connectionTestPrompt,
		Message:      connectionTestMsg,
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.Reply = reply
	return result
}

func (s *ChatService) complete(ctx context.Context, model providers.ChatModel, req providers.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()
	return model.Complete(ctx, req)
}

// loadHistory returns the session's recent turns as alternating messages.
// A failed read only costs the model its context.
func (s *ChatService) loadHistory(ctx context.Context, sessionID string) []providers.ChatMessage {
	turns, err := s.conversations.RecentBySession(ctx, sessionID, historyTurns)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("failed to load conversation history")
		return nil
	}

	history := make([]providers.ChatMessage, 0, len(turns)*2)
	for _, t := range turns {
		history = append(history,
			providers.ChatMessage{Role: string(entities.RoleUser), Content: t.Message},
			providers.ChatMessage{Role: string(entities.RoleAssistant), Content: t.Response},
		)
	}
	return history
}

// BuildSystemPrompt renders the assistant instructions for a store
func BuildSystemPrompt(store config.StoreConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful shopping assistant for the online store '%s'. ", store.Name)
	if d := strings.TrimSpace(store.Description); d != "" {
		fmt.Fprintf(&b, "Store description: %s. ", strings.TrimRight(d, "."))
	}
	b.WriteString("Your goal is to assist customers by answering questions about products, store policies, and providing helpful information. ")
	b.WriteString("Be friendly, concise, and helpful. ")
	b.WriteString("If you don't know the answer to a question, suggest that the customer contact support for more information.")
	return b.String()
}
