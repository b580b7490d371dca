package grading

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Result is the outcome of comparing a user answer with the reference answer.
type Result struct {
	Score    float64 // 0..100
	Feedback string
}

// Similarity scores user against real out of 100. An exact match after
// normalization scores 100; anything else scores by edit distance relative
// to the longer answer, with keyword coverage reported in the feedback.
func Similarity(real, user string) Result {
	nr, nu := normalize(real), normalize(user)
	switch {
	case nr == "":
		return Result{Score: 0, Feedback: "No reference answer to compare against."}
	case nu == "":
		return Result{Score: 0, Feedback: "No answer given."}
	case nr == nu:
		return Result{Score: 100, Feedback: "Correct."}
	}

	longest := utf8.RuneCountInString(nr)
	if n := utf8.RuneCountInString(nu); n > longest {
		longest = n
	}
	ratio := 1 - float64(levenshtein(nr, nu))/float64(longest)
	score := math.Round(ratio*1000) / 10

	hits, total := keywordCoverage(nr, nu)
	var fb string
	switch {
	case score >= 80:
		fb = "Close to the expected answer."
	case score >= 50:
		fb = "Partially matches the expected answer."
	default:
		fb = "Does not match the expected answer."
	}
	if total > 0 {
		fb += fmt.Sprintf(" Keywords matched: %d/%d.", hits, total)
	}
	return Result{Score: score, Feedback: fb}
}

// keywordCoverage counts how many distinct words of the reference (longer
// than three runes) appear in the answer.
func keywordCoverage(real, user string) (hits, total int) {
	have := map[string]struct{}{}
	for _, w := range strings.Fields(user) {
		have[w] = struct{}{}
	}
	seen := map[string]struct{}{}
	for _, w := range strings.Fields(real) {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		total++
		if _, ok := have[w]; ok {
			hits++
		}
	}
	return hits, total
}
