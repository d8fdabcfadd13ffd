package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	tokens := Tokenize("Hello, World! Hello again.")
	byName := make(map[string][]int)
	for _, tok := range tokens {
		byName[tok.Name] = tok.Positions
	}
	if !reflect.DeepEqual(byName["hello"], []int{0, 2}) {
		t.Fatalf("expected hello at positions [0 2], got %v", byName["hello"])
	}
	if !reflect.DeepEqual(byName["world"], []int{1}) {
		t.Fatalf("expected world at position [1], got %v", byName["world"])
	}
	if !reflect.DeepEqual(byName["again"], []int{3}) {
		t.Fatalf("expected again at position [3], got %v", byName["again"])
	}
}

func TestTokenizeNoStemming(t *testing.T) {
	tokens := Tokenize("running runs")
	names := make(map[string]bool)
	for _, tok := range tokens {
		names[tok.Name] = true
	}
	if !names["running"] || !names["runs"] {
		t.Fatalf("expected both running and runs preserved unstemmed, got %v", names)
	}
}

func TestWordsPreservesOrderAndDuplicates(t *testing.T) {
	words := Words("the quick brown fox the lazy dog")
	want := []string{"the", "quick", "brown", "fox", "the", "lazy", "dog"}
	if !reflect.DeepEqual(words, want) {
		t.Fatalf("Words: got %v, want %v", words, want)
	}
}

func TestWordsEmptyInput(t *testing.T) {
	if words := Words(""); len(words) != 0 {
		t.Fatalf("expected no words for empty input, got %v", words)
	}
}

func TestTokenizeIgnoresConsecutiveSeparators(t *testing.T) {
	tokens := Tokenize("a,,,b")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %+v", len(tokens), tokens)
	}
}
