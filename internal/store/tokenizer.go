package store

import "strings"

// Tokenize splits text for BM25 indexing and querying: case-fold, then
// whitespace-split. No stemming, no stop word removal — queries and chunks
// must be tokenized identically for the corpus statistics to line up.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
