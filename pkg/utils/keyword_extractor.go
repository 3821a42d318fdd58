package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinKeywordLength is the shortest token (in runes) kept as a keyword
const MinKeywordLength = 3

// stopWords are common English function words that never make useful
// search terms. Contractions appear in their split form because the
// apostrophe is treated as a separator.
var stopWords = buildStopWords(
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "when",
	"at", "from", "by", "for", "with", "about", "against", "between",
	"into", "through", "during", "before", "after", "above", "below",
	"to", "of", "in", "on", "is", "are", "was", "were", "be", "been",
	"being", "have", "has", "had", "having", "do", "does", "did", "doing",
	"i", "me", "my", "mine", "myself", "you", "your", "yours", "yourself",
	"yourselves", "he", "him", "his", "himself", "she", "her", "hers",
	"herself", "it", "its", "itself", "they", "them", "their", "theirs",
	"themselves", "we", "us", "our", "ours", "ourselves",
	"what", "which", "who", "whom", "this", "that", "these", "those",
	"am", "can", "could", "may", "might", "must", "shall", "should",
	"will", "would", "how", "where", "why", "all", "any", "both",
	"each", "few", "more", "most", "other", "some", "such", "no", "nor",
	"not", "only", "own", "same", "so", "than", "too", "very",
	"out", "off", "over", "under", "again", "further", "once", "here",
	"there", "just", "now", "also", "as", "because", "until", "while",
	"up", "down", "s", "t", "d", "ll", "m", "o", "re", "ve", "y",
	"don", "ain", "aren", "couldn", "didn", "doesn", "hadn", "hasn",
	"haven", "isn", "ma", "mightn", "mustn", "needn", "shan", "shouldn",
	"wasn", "weren", "won", "wouldn",
)

func buildStopWords(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopWord reports whether word is on the stop word list
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// ExtractKeywords turns free text into its significant search terms.
//
// The text is lower-cased and every rune that is not a letter, a number or
// whitespace becomes a space. Stop words and tokens shorter than
// MinKeywordLength runes are dropped. Duplicates are removed while keeping
// first-seen order, so the result is stable for a given input.
func ExtractKeywords(text string) []string {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	tokens := strings.Fields(normalized)
	keywords := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))

	for _, token := range tokens {
		if utf8.RuneCountInString(token) < MinKeywordLength {
			continue
		}
		if IsStopWord(token) {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}

	return keywords
}
