// Package phrase implements the exact-phrase recheck hook (spec.md
// §4.7 step 5): re-tokenize an attribute's rendered text and verify a
// phrase occurs at some contiguous offset.
package phrase

import (
	"mboxsearch/internal/document"
	"mboxsearch/internal/tokenizer"
)

// Text resolves an attribute name to the document field it was rendered
// from. Only the two attributes spec.md §6's request body exposes
// (title, content) carry rendered text; any other attribute name has no
// phrase-checkable backing text.
func Text(doc document.Document, attribute string) (string, bool) {
	switch attribute {
	case "title":
		return doc.Content.Title, true
	case "content":
		return doc.Content.Body, true
	default:
		return "", false
	}
}

// Matches reports whether phrase occurs as a contiguous word sequence
// within attribute's rendered text, per spec.md §4.7 step 5: for some
// start offset k, content[k+i] == phrase[i] for every i.
func Matches(doc document.Document, attribute string, exactPhrase []string) bool {
	if len(exactPhrase) == 0 {
		return false
	}
	text, ok := Text(doc, attribute)
	if !ok {
		return false
	}
	content := tokenizer.Words(text)
	if len(exactPhrase) > len(content) {
		return false
	}
	for k := 0; k <= len(content)-len(exactPhrase); k++ {
		if matchesAt(content, exactPhrase, k) {
			return true
		}
	}
	return false
}

func matchesAt(content, phrase []string, k int) bool {
	for i, word := range phrase {
		if content[k+i] != word {
			return false
		}
	}
	return true
}
