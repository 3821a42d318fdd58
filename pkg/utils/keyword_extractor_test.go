package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: []string{}},
		{name: "whitespace only", input: " \t\n ", want: []string{}},
		{name: "only stop words", input: "The a an", want: []string{}},
		{name: "accents kept", input: "Café évasion", want: []string{"café", "évasion"}},
		{name: "punctuation splits words", input: "red-shoes,blue.socks!", want: []string{"red", "shoes", "blue", "socks"}},
		{name: "dedupe keeps first order", input: "Shoe shoe SHOE boots shoe", want: []string{"shoe", "boots"}},
		{name: "short tokens dropped", input: "go to an ox farm", want: []string{"farm"}},
		{name: "digits kept", input: "Size 42 or 105cm?", want: []string{"size", "105cm"}},
		{name: "contraction split", input: "I don't know which jacket", want: []string{"know", "jacket"}},
		{name: "other scripts", input: "Зимняя куртка 冬のジャケット", want: []string{"зимняя", "куртка", "冬のジャケット"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.input))
		})
	}
}

func TestExtractKeywords_Properties(t *testing.T) {
	inputs := []string{
		"Do you have any waterproof hiking boots under $100?",
		"Sorry, I can't help with that. Please contact support!",
		"ÜBER große Äpfel & Birnen: 3 für 2",
		"!!!???...",
		"the THE The tHe",
	}

	for _, input := range inputs {
		got := ExtractKeywords(input)
		seen := map[string]bool{}
		for _, kw := range got {
			assert.Greater(t, utf8.RuneCountInString(kw), 2, "keyword %q too short", kw)
			assert.False(t, IsStopWord(kw), "stop word %q leaked", kw)
			assert.Equal(t, strings.ToLower(kw), kw)
			assert.False(t, seen[kw], "duplicate %q", kw)
			seen[kw] = true
		}
	}
}

func TestExtractKeywords_Deterministic(t *testing.T) {
	input := "leather wallet with leather strap and wallet chain"
	first := ExtractKeywords(input)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ExtractKeywords(input))
	}
	assert.Equal(t, []string{"leather", "wallet", "strap", "chain"}, first)
}
