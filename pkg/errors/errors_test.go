package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(KindNotFound, "missing")
	if !Is(err, KindNotFound) {
		t.Fatalf("expected Is to match KindNotFound")
	}
	if Is(err, KindConflict) {
		t.Fatalf("expected Is not to match a different kind")
	}
}

func TestIsFalseForForeignError(t *testing.T) {
	if Is(fmt.Errorf("plain error"), KindNotFound) {
		t.Fatalf("expected Is to be false for a non-Error error")
	}
}

func TestWrapPreservesCauseViaUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	wrapped := Wrap(KindIO, cause, "reading file")
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected errors.Is to see through Wrap to the cause")
	}
}

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindInvalidArgument, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindIO, http.StatusServiceUnavailable},
		{KindInternal, http.StatusInternalServerError},
		{KindCorruption, http.StatusInternalServerError},
	}
	for _, c := range cases {
		got := HTTPStatusCode(New(c.kind, "x"))
		if got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestHTTPStatusCodeForForeignError(t *testing.T) {
	if got := HTTPStatusCode(fmt.Errorf("boom")); got != http.StatusInternalServerError {
		t.Fatalf("expected a foreign error to map to 500, got %d", got)
	}
}

func TestCorruptionCarriesKey(t *testing.T) {
	err := Corruption([]byte("bad-key"), fmt.Errorf("short read"))
	if string(err.Key) != "bad-key" {
		t.Fatalf("expected Corruption to carry the offending key, got %q", err.Key)
	}
	if err.Kind != KindCorruption {
		t.Fatalf("expected KindCorruption, got %v", err.Kind)
	}
}

func TestCodeIsStablePerKind(t *testing.T) {
	if New(KindNotFound, "x").Code() != New(KindNotFound, "y").Code() {
		t.Fatalf("expected Code to depend only on Kind, not Message")
	}
}
