package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/storeassist/internal/application/services"
)

func TestDetectQuickReplyContext(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"product word", "Which item should I BUY?", services.QuickReplyProduct},
		{"order word", "Where is my delivery", services.QuickReplyOrder},
		{"product wins over order", "Can I return a sale item?", services.QuickReplyProduct},
		{"nothing matched", "hello there", services.QuickReplyGeneral},
		{"empty", "", services.QuickReplyGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.DetectQuickReplyContext(tt.text))
		})
	}
}

func TestQuickReplies(t *testing.T) {
	assert.Equal(t, []string{"Track my order", "When will my order arrive?", "Can I change my order?"}, services.QuickReplies("order"))
	assert.Equal(t, []string{"Show me more products", "What's on sale?", "What's your best seller?"}, services.QuickReplies(" Product "))
	assert.Equal(t, services.QuickReplies("general"), services.QuickReplies("unknown"))
}

func TestQuickReplies_ReturnsCopy(t *testing.T) {
	first := services.QuickReplies("general")
	first[0] = "mutated"
	assert.Equal(t, "Tell me more", services.QuickReplies("general")[0])
}
