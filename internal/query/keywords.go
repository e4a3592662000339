package query

import (
	"cmp"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storyreel/internal/textutil"
)

// ExtractKeywords returns up to k keywords from text: alphabetic tokens,
// case-folded, without stopwords and longer than two characters, ranked by
// frequency then alphabetically.
func ExtractKeywords(text string, k int, stopwords map[string]struct{}) []string {
	if k <= 0 {
		return nil
	}
	lower := cases.Lower(language.Und)
	words := textutil.Words(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		w = lower.String(w)
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}

	freq := make(map[string]int, len(tokens))
	for _, w := range tokens {
		freq[w]++
	}
	ranked := make([]string, 0, len(freq))
	for w := range freq {
		ranked = append(ranked, w)
	}
	slices.SortFunc(ranked, func(a, b string) int {
		if c := cmp.Compare(freq[b], freq[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
