package search

import "strings"

// Tokenize lowers and splits a query, keeping at most five tokens. The
// scorer only looks at t1..t5.
func Tokenize(query string) []string {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(tokens) > 5 {
		tokens = tokens[:5]
	}
	return tokens
}

// Score computes the lexical relevance of a title against a query.
// Three additive components: phrase match, word-order bonus, position
// bonus.
func Score(title, query string) float64 {
	phrase := strings.ToLower(strings.TrimSpace(query))
	if phrase == "" {
		return 0
	}
	lowerTitle := strings.ToLower(title)
	tokens := Tokenize(query)

	return phraseScore(lowerTitle, phrase, tokens) +
		wordOrderBonus(lowerTitle, tokens) +
		positionBonus(lowerTitle, tokens)
}

// phraseScore: 100 for a full phrase hit, 80 for a phrase prefix,
// otherwise 20 per matched token capped at 5 tokens.
func phraseScore(title, phrase string, tokens []string) float64 {
	if strings.Contains(title, phrase) {
		return 100
	}
	if strings.HasPrefix(title, phrase) {
		return 80
	}
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			matched++
		}
	}
	if matched > 5 {
		matched = 5
	}
	return float64(20 * matched)
}

// wordOrderBonus: 30 / 20 / 10 for adjacent-pair matches of
// (t1,t2) / (t2,t3) / (t3,t4), taking the maximum applicable.
func wordOrderBonus(title string, tokens []string) float64 {
	pairBonus := []float64{30, 20, 10}
	for i := 0; i < 3 && i+1 < len(tokens); i++ {
		if strings.Contains(title, tokens[i]+" "+tokens[i+1]) {
			return pairBonus[i]
		}
	}
	return 0
}

// positionBonus: 15 / 10 / 5 when the title starts with t1 / t2 / t3
func positionBonus(title string, tokens []string) float64 {
	startBonus := []float64{15, 10, 5}
	for i := 0; i < 3 && i < len(tokens); i++ {
		if strings.HasPrefix(title, tokens[i]) {
			return startBonus[i]
		}
	}
	return 0
}
