package shardset

import (
	"reflect"
	"testing"
)

func TestAddContainsSorted(t *testing.T) {
	s := New()
	s.Add(3)
	s.Add(1)
	s.Add(2)
	if !s.Contains(2) {
		t.Fatalf("expected set to contain 2")
	}
	if s.Contains(9) {
		t.Fatalf("did not expect set to contain 9")
	}
	if got := s.Sorted(); !reflect.DeepEqual(got, []uint32{1, 2, 3}) {
		t.Fatalf("Sorted: got %v, want [1 2 3]", got)
	}
	if s.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", s.Len())
	}
}

func TestUnion(t *testing.T) {
	a := FromShards(1, 2)
	b := FromShards(2, 3)
	a.Union(b)
	if got := a.Sorted(); !reflect.DeepEqual(got, []uint32{1, 2, 3}) {
		t.Fatalf("Union: got %v, want [1 2 3]", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := FromShards(5, 10, 15)
	decoded, err := Decode([]byte("key"), s.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := decoded.Sorted(); !reflect.DeepEqual(got, []uint32{5, 10, 15}) {
		t.Fatalf("round trip mismatch: got %v", got)
	}
}

func TestMergeUnionsBaseAndOperand(t *testing.T) {
	base := FromShards(1, 2).Encode()
	operand := FromShards(2, 3).Encode()
	merged, err := Merge([]byte("key"), base, operand)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	decoded, err := Decode([]byte("key"), merged)
	if err != nil {
		t.Fatalf("Decode merged: %v", err)
	}
	if got := decoded.Sorted(); !reflect.DeepEqual(got, []uint32{1, 2, 3}) {
		t.Fatalf("merge result mismatch: got %v", got)
	}
}

func TestMergeWithNoExistingValue(t *testing.T) {
	operand := FromShards(7).Encode()
	merged, err := Merge([]byte("key"), nil, operand)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	decoded, err := Decode([]byte("key"), merged)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.Contains(7) {
		t.Fatalf("expected merged set to contain the operand's shard")
	}
}
