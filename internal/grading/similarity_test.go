package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello world", normalize("  Hello,   WORLD! "))
	assert.Equal(t, "", normalize(" ... "))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 1, levenshtein("paris", "pariss"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		name      string
		real      string
		user      string
		wantScore float64
		wantFB    string
	}{
		{"exact after normalization", "Paris.", "  paris", 100, "Correct."},
		{"no reference", "", "anything", 0, "No reference answer to compare against."},
		{"no answer", "Paris", "  ", 0, "No answer given."},
		{"one typo", "photosynthesis", "photosynthesys", 92.9, "Close to the expected answer. Keywords matched: 0/1."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Similarity(tc.real, tc.user)
			assert.InDelta(t, tc.wantScore, got.Score, 0.05)
			assert.Equal(t, tc.wantFB, got.Feedback)
		})
	}
}

func TestSimilarityUnrelated(t *testing.T) {
	got := Similarity("The mitochondria produces energy", "bananas")
	assert.Less(t, got.Score, 50.0)
	assert.Contains(t, got.Feedback, "Does not match")
	assert.Contains(t, got.Feedback, "Keywords matched: 0/3.")
}
