// Package tokenizer implements the tokenizer adapter (spec.md §4.11): it
// normalizes raw attribute text into a sequence of lowercase word tokens
// with stable positions. It performs no stemming and no stopword
// removal — either would shift token positions and break the phrase
// recheck in internal/phrase, and stemming is an explicit spec
// non-goal.
package tokenizer

import (
	"strings"
	"unicode"

	"mboxsearch/internal/token"
)

// Tokenize splits text on any rune that is not a letter or digit,
// lowercases each resulting word, and assigns it a zero-based position
// within the returned stream. Consecutive separators produce no empty
// tokens, so positions are dense.
func Tokenize(text string) []token.Token {
	var tokens []token.Token
	var b strings.Builder
	pos := 0
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tokens = append(tokens, token.Token{Name: b.String(), Positions: []int{pos}})
		pos++
		b.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return mergeDuplicates(tokens)
}

// Words returns the raw ordered lowercase word stream, one entry per
// position, with no deduplication. The phrase recheck (spec.md §4.7
// step 5) needs this form: it indexes directly by position to test
// content[k+pos] == token.name, which a deduplicated-by-name token list
// cannot support.
func Words(text string) []string {
	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		words = append(words, b.String())
		b.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return words
}

// mergeDuplicates combines repeated occurrences of the same word within
// one attribute into a single token.Token carrying every position it
// occurred at, which is what the phrase recheck expects (spec.md §4.7
// step 5 indexes Positions per distinct token name).
func mergeDuplicates(tokens []token.Token) []token.Token {
	order := make([]string, 0, len(tokens))
	byName := make(map[string]*token.Token, len(tokens))
	for i := range tokens {
		t := tokens[i]
		existing, ok := byName[t.Name]
		if !ok {
			stored := t
			byName[t.Name] = &stored
			order = append(order, t.Name)
			continue
		}
		existing.Positions = append(existing.Positions, t.Positions...)
	}
	out := make([]token.Token, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}
