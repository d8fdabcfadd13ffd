package ids

import (
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	id := New(time.Unix(1700000000, 123456789), 42, "msg-1")
	decoded, err := Decode(id.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != id {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, id)
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	id := New(time.Unix(1700000000, 0), 7, "msg-2")
	parsed, err := Parse(id.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("round trip mismatch: got %+v, want %+v", parsed, id)
	}
}

func TestLessOrdersBySecondsThenSequenceThenHash(t *testing.T) {
	earlier := ID{Seconds: 100, Sequence: 0}
	later := ID{Seconds: 200, Sequence: 0}
	if !earlier.Less(later) {
		t.Fatalf("expected earlier second to sort first")
	}

	sameSecondLowerSeq := ID{Seconds: 100, Sequence: 1}
	sameSecondHigherSeq := ID{Seconds: 100, Sequence: 2}
	if !sameSecondLowerSeq.Less(sameSecondHigherSeq) {
		t.Fatalf("expected lower sequence to sort first within the same second")
	}

	lowerHash := ID{Seconds: 100, Sequence: 1, Hash: 1}
	higherHash := ID{Seconds: 100, Sequence: 1, Hash: 2}
	if !lowerHash.Less(higherHash) {
		t.Fatalf("expected lower hash to sort first within the same second and sequence")
	}
}

func TestSuccessorIsStrictlyGreater(t *testing.T) {
	id := New(time.Unix(1700000000, 0), 5, "msg-3")
	succ := id.Successor()
	if !id.Less(succ) {
		t.Fatalf("expected Successor() to sort strictly after id")
	}
	if succ.Compare(id) != 1 {
		t.Fatalf("expected Compare to report successor as greater")
	}
}

func TestSuccessorCarriesAcrossFields(t *testing.T) {
	id := ID{Seconds: 1, Nanoseconds: 0, Sequence: 0, Hash: ^uint64(0)}
	succ := id.Successor()
	if succ.Hash != 0 || succ.Sequence != 1 {
		t.Fatalf("expected carry into Sequence on Hash overflow, got %+v", succ)
	}
}

func TestZeroIsSmallestAndMaxIsLargest(t *testing.T) {
	id := New(time.Unix(1700000000, 0), 5, "msg-4")
	if !Zero.Less(id) {
		t.Fatalf("expected Zero to sort before any real id")
	}
	if !id.Less(Max) {
		t.Fatalf("expected Max to sort after any real id")
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected an error decoding a short buffer")
	}
}

func TestHashExternalIDIsDeterministic(t *testing.T) {
	if HashExternalID("same") != HashExternalID("same") {
		t.Fatalf("expected HashExternalID to be deterministic")
	}
	if HashExternalID("a") == HashExternalID("b") {
		t.Fatalf("expected different external ids to hash differently (collision is vanishingly unlikely here)")
	}
}
