package services

import "strings"

// Quick reply contexts
const (
	QuickReplyProduct = "product"
	QuickReplyOrder   = "order"
	QuickReplyGeneral = "general"
)

const quickReplyCount = 3

var quickReplySets = map[string][]string{
	QuickReplyProduct: {
		"Show me more products",
		"What's on sale?",
		"What's your best seller?",
		"Do you have any discounts?",
		"Can you recommend something?",
	},
	QuickReplyOrder: {
		"Track my order",
		"When will my order arrive?",
		"Can I change my order?",
		"What's your return policy?",
		"How do I cancel my order?",
	},
	QuickReplyGeneral: {
		"Tell me more",
		"How does this work?",
		"Can you help me find something?",
		"What payment methods do you accept?",
		"Do you ship internationally?",
	},
}

var (
	productContextWords = []string{"product", "item", "buy", "purchase", "price", "cost", "sale", "discount", "offer"}
	orderContextWords   = []string{"order", "shipping", "delivery", "track", "status", "arrive", "return", "cancel"}
)

// DetectQuickReplyContext classifies a turn by plain substring checks on the
// lower-cased text. Product words take precedence over order words.
func DetectQuickReplyContext(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, productContextWords) {
		return QuickReplyProduct
	}
	if containsAny(lower, orderContextWords) {
		return QuickReplyOrder
	}
	return QuickReplyGeneral
}

// QuickReplies returns the suggestions for a context name. Unknown names get
// the general set.
func QuickReplies(context string) []string {
	set, ok := quickReplySets[strings.ToLower(strings.TrimSpace(context))]
	if !ok {
		set = quickReplySets[QuickReplyGeneral]
	}
	out := make([]string, quickReplyCount)
	copy(out, set)
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
