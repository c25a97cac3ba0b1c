package ingest

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"shard-markdown/internal/vectorstore"
)

const (
	// candidateFactor is how many vector candidates are fetched per requested result.
	candidateFactor = 3

	lexicalLengthScale = float32(10.0)
	maxLexicalScore    = float32(0.4)
	headingMatchBonus  = float32(0.1)
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
}

// rerank adds a lexical score to every vector score and returns the best k results.
// Ties keep the vector store order.
func rerank(query string, results []vectorstore.SearchResult, k int) []vectorstore.SearchResult {
	queryTokens := filterStopwords(tokenize(query))
	for i := range results {
		results[i].Score += lexicalScore(queryTokens, results[i].Text, results[i].Meta[MetaHeadingPath])
	}

	slices.SortStableFunc(results, func(a, b vectorstore.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// lexicalScore computes a lightweight lexical relevance score for a chunk.
// The score stays within [0, maxLexicalScore] so it can be blended with vector scores.
func lexicalScore(queryTokens []string, chunkText, headingPath string) float32 {
	if len(queryTokens) == 0 {
		return 0
	}

	chunkTokens := tokenize(chunkText)
	if len(chunkTokens) == 0 {
		return 0
	}

	chunkFreq := make(map[string]int, len(chunkTokens))
	for _, token := range chunkTokens {
		chunkFreq[token]++
	}

	var rawMatches int
	for _, token := range queryTokens {
		rawMatches += chunkFreq[token]
	}

	score := (float32(rawMatches) / (1 + float32(len(chunkTokens)))) * lexicalLengthScale

	if headingTokens := tokenize(headingPath); len(headingTokens) > 0 {
		headingSet := make(map[string]struct{}, len(headingTokens))
		for _, token := range headingTokens {
			headingSet[token] = struct{}{}
		}
		var headingMatches int
		for _, token := range queryTokens {
			if _, ok := headingSet[token]; ok {
				headingMatches++
			}
		}
		score += float32(headingMatches) * headingMatchBonus
	}

	return min(score, maxLexicalScore)
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	return strings.Fields(builder.String())
}

func filterStopwords(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	return result
}
