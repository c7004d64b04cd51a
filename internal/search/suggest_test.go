package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSuggestionSource struct {
	rows    []SuggestionRow
	err     error
	queries []string
}

func (f *fakeSuggestionSource) SuggestionRows(ctx context.Context, q string, limit int) ([]SuggestionRow, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func TestSuggestOrdering(t *testing.T) {
	src := &fakeSuggestionSource{rows: []SuggestionRow{
		{Text: "Apple", Kind: "brand", Weight: 500},
		{Text: "Apple iPhone 15", Kind: "title", Weight: 12},
		{Text: "Apple Watch", Kind: "title", Weight: 30},
		{Text: "Phones", Kind: "category", Weight: 900},
	}}
	s := NewSuggester(src)

	got := s.Suggest(context.Background(), "apple", 10, false)
	// Titles before brands before categories, popular first within a kind
	assert.Equal(t, []string{"Apple Watch", "Apple iPhone 15", "Apple", "Phones"}, got)
}

func TestSuggestTypoCorrectionFirst(t *testing.T) {
	src := &fakeSuggestionSource{rows: []SuggestionRow{
		{Text: "iPhone 15 Pro", Kind: "title", Weight: 10},
	}}
	s := NewSuggester(src)

	got := s.Suggest(context.Background(), "iphne", 10, false)
	require.NotEmpty(t, got)
	assert.Equal(t, "iphone", got[0])
	// The lookup uses the corrected query
	require.NotEmpty(t, src.queries)
	assert.Equal(t, "iphone", src.queries[0])
}

func TestSuggestDedupeCaseInsensitive(t *testing.T) {
	src := &fakeSuggestionSource{rows: []SuggestionRow{
		{Text: "Samsung TV", Kind: "title", Weight: 5},
		{Text: "SAMSUNG TV", Kind: "title", Weight: 3},
		{Text: "samsung tv", Kind: "brand", Weight: 9},
	}}
	s := NewSuggester(src)

	got := s.Suggest(context.Background(), "samsung", 10, false)
	assert.Equal(t, []string{"Samsung TV"}, got)
}

func TestSuggestLimit(t *testing.T) {
	src := &fakeSuggestionSource{rows: []SuggestionRow{
		{Text: "One", Kind: "title", Weight: 5},
		{Text: "Two", Kind: "title", Weight: 4},
		{Text: "Three", Kind: "title", Weight: 3},
	}}
	s := NewSuggester(src)

	got := s.Suggest(context.Background(), "thing", 2, false)
	assert.Len(t, got, 2)
}

func TestSuggestEmptyQuery(t *testing.T) {
	s := NewSuggester(&fakeSuggestionSource{})
	assert.Empty(t, s.Suggest(context.Background(), "   ", 10, false))
}

func TestSuggestStoreErrorDegrades(t *testing.T) {
	src := &fakeSuggestionSource{err: errors.New("db down")}
	s := NewSuggester(src)

	// No correction available: empty result, no panic
	got := s.Suggest(context.Background(), "gibberish", 10, false)
	assert.Empty(t, got)

	// With a typo correction the correction still comes through
	got = s.Suggest(context.Background(), "samsun", 10, false)
	assert.Equal(t, []string{"samsung"}, got)
}

func TestSuggestFuzzy(t *testing.T) {
	src := &fakeSuggestionSource{rows: []SuggestionRow{
		{Text: "Speakers", Kind: "title", Weight: 7},
	}}
	s := NewSuggester(src)

	// "speakrs" isn't a substring match but sits within edit distance
	got := s.Suggest(context.Background(), "speakrs", 10, true)
	assert.Contains(t, got, "Speakers")
	// The fuzzy pass broadens the lookup to a short prefix
	require.Len(t, src.queries, 2)
	assert.Equal(t, "sp", src.queries[1])
}

func TestTokenSimilarity(t *testing.T) {
	tests := []struct {
		a, b     string
		expected float64
	}{
		{"same", "same", 1},
		{"", "abc", 0},
		{"speakrs", "speakers", 0.875},
		{"cat", "dog", 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, tokenSimilarity(tt.a, tt.b), 0.001, "%s vs %s", tt.a, tt.b)
	}
}
