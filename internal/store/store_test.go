package store

import (
	"testing"
)

type addingMerge struct{}

func (addingMerge) FullMerge(cf ColumnFamily, key, existing, operand []byte) ([]byte, error) {
	if existing == nil {
		return operand, nil
	}
	out := make([]byte, len(existing))
	for i := range existing {
		out[i] = existing[i] + operand[i%len(operand)]
	}
	return out, nil
}

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(t.TempDir(), Options{Mode: BulkLoad, MergeOperator: addingMerge{}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenRequiresMergeOperator(t *testing.T) {
	if _, err := Open(t.TempDir(), Options{}); err == nil {
		t.Fatalf("expected an error opening without a MergeOperator")
	}
}

func TestPutAndGetRoundTrip(t *testing.T) {
	st := openTest(t)
	b := NewWriteBatch()
	b.Put(Documents, []byte("k"), []byte("v"))
	if err := st.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := st.Get(Documents, []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("got %q, want %q", got, "v")
	}
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	st := openTest(t)
	if _, err := st.Get(Documents, []byte("missing")); err == nil {
		t.Fatalf("expected an error for a missing key")
	}
}

func TestMergeAppliesOperator(t *testing.T) {
	st := openTest(t)
	b := NewWriteBatch()
	b.Merge(Documents, []byte("k"), []byte{1})
	b.Merge(Documents, []byte("k"), []byte{1})
	if err := st.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := st.Get(Documents, []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got[0] != 2 {
		t.Fatalf("expected merges to accumulate, got %v", got)
	}
}

func TestWriteEmptyBatchIsNoOp(t *testing.T) {
	st := openTest(t)
	if err := st.Write(NewWriteBatch()); err != nil {
		t.Fatalf("expected writing an empty batch to succeed, got %v", err)
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	st, err := Open(t.TempDir(), Options{Mode: ReadOnly, MergeOperator: addingMerge{}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	b := NewWriteBatch()
	b.Put(Documents, []byte("k"), []byte("v"))
	if err := st.Write(b); err == nil {
		t.Fatalf("expected an error writing to a read-only store")
	}
}

func TestCompactPreservesLiveValues(t *testing.T) {
	st := openTest(t)
	b := NewWriteBatch()
	b.Put(Documents, []byte("a"), []byte("1"))
	b.Put(Indexes, []byte("b"), []byte("2"))
	if err := st.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := st.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if got, err := st.Get(Documents, []byte("a")); err != nil || string(got) != "1" {
		t.Fatalf("expected a to survive compaction, got %q, %v", got, err)
	}
	if got, err := st.Get(Indexes, []byte("b")); err != nil || string(got) != "2" {
		t.Fatalf("expected b to survive compaction, got %q, %v", got, err)
	}
}

func TestReplayRebuildsStateAfterReopen(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir, Options{Mode: ReadWrite, MergeOperator: addingMerge{}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b := NewWriteBatch()
	b.Put(Documents, []byte("k"), []byte("v"))
	if err := st.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir, Options{Mode: ReadWrite, MergeOperator: addingMerge{}})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(Documents, []byte("k"))
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("got %q, want %q", got, "v")
	}
}

func TestColumnFamilyString(t *testing.T) {
	if Documents.String() != "documents" {
		t.Fatalf("expected documents, got %q", Documents.String())
	}
	if Indexes.String() != "indexes" {
		t.Fatalf("expected indexes, got %q", Indexes.String())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	st, err := Open(t.TempDir(), Options{Mode: BulkLoad, MergeOperator: addingMerge{}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}
