package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"apple", "iphone"}, Tokenize("  Apple IPHONE "))
	assert.Empty(t, Tokenize(""))
	// Only the first five tokens participate in scoring
	assert.Equal(t,
		[]string{"a", "b", "c", "d", "e"},
		Tokenize("a b c d e f g"))
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		query    string
		expected float64
	}{
		{
			name:  "full phrase at title start",
			title: "Apple iPhone 15 Pro",
			query: "apple iphone",
			// phrase 100 + adjacent (t1,t2) 30 + starts with t1 15
			expected: 145,
		},
		{
			name:  "full phrase mid-title",
			title: "Apple iPhone 15 Pro",
			query: "iphone 15",
			// phrase 100 + adjacent (t1,t2) 30, no position bonus
			expected: 130,
		},
		{
			name:  "one of two tokens",
			title: "Samsung Galaxy S24",
			query: "galaxy charger",
			// one token match 20
			expected: 20,
		},
		{
			name:  "second token starts title",
			title: "Galaxy Phone Stand",
			query: "samsung galaxy",
			// token match 20 + starts with t2 10
			expected: 30,
		},
		{
			name:  "second pair adjacent",
			title: "Pro Max 256GB Case",
			query: "silicone pro max",
			// tokens pro+max 40 + adjacent (t2,t3) 20 + starts with t2 10
			expected: 70,
		},
		{
			name:     "no match",
			title:    "Dishwasher Tablets",
			query:    "iphone",
			expected: 0,
		},
		{
			name:     "empty query",
			title:    "Anything",
			query:    "",
			expected: 0,
		},
		{
			name:  "case insensitive",
			title: "APPLE WATCH SERIES 9",
			query: "apple watch",
			expected: 145,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Score(tt.title, tt.query))
		})
	}
}

func TestScoreOrdering(t *testing.T) {
	// A phrase hit must always outrank token-only matches
	phrase := Score("Apple iPhone 15", "apple iphone")
	scattered := Score("iPhone case for Apple devices", "apple iphone")
	assert.Greater(t, phrase, scattered)
}
