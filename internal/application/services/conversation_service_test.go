package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/storeassist/internal/application/services"
	"github.com/zatekoja/storeassist/internal/domain/entities"
	apperrors "github.com/zatekoja/storeassist/pkg/errors"
)

func TestGetConversation(t *testing.T) {
	repo := &mockConversationRepository{}
	svc := services.NewConversationService(repo)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	repo.On("ListBySession", mock.Anything, "sess-1").Return([]*entities.ConversationTurn{
		{Message: "hi", Response: "hello", CreatedAt: at},
		{UserID: "9", Message: "boots?", Response: "try these", CreatedAt: at.Add(time.Minute),
			Recommendations: []entities.Recommendation{{ID: 1, Title: "Boot"}}},
	}, nil)

	conv, err := svc.GetConversation(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, "9", conv.UserID)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, entities.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, entities.RoleAssistant, conv.Messages[3].Role)
	assert.Len(t, conv.Messages[3].Recommendations, 1)
	repo.AssertExpectations(t)
}

func TestGetConversation_NotFound(t *testing.T) {
	repo := &mockConversationRepository{}
	svc := services.NewConversationService(repo)

	repo.On("ListBySession", mock.Anything, "nobody").Return([]*entities.ConversationTurn{}, nil)

	_, err := svc.GetConversation(context.Background(), "nobody")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestGetConversation_InvalidID(t *testing.T) {
	svc := services.NewConversationService(&mockConversationRepository{})

	_, err := svc.GetConversation(context.Background(), "a b")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestListSessions_Paging(t *testing.T) {
	tests := []struct {
		name           string
		page, perPage  int
		limit, offset  int
		wantPage, want int
	}{
		{"defaults", 0, 0, 20, 0, 1, 20},
		{"third page", 3, 10, 10, 20, 3, 10},
		{"clamped", 1, 500, 100, 0, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockConversationRepository{}
			svc := services.NewConversationService(repo)
			repo.On("ListSessions", mock.Anything, tt.limit, tt.offset).Return(nil, 42, nil)

			page, err := svc.ListSessions(context.Background(), tt.page, tt.perPage)

			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.want, page.PerPage)
			assert.Equal(t, 42, page.Total)
			assert.NotNil(t, page.Sessions)
			repo.AssertExpectations(t)
		})
	}
}

func TestConversationStats(t *testing.T) {
	repo := &mockConversationRepository{}
	svc := services.NewConversationService(repo)
	repo.On("Stats", mock.Anything).Return(&entities.ConversationStats{TotalSessions: 2}, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
}
