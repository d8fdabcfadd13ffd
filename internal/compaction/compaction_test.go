package compaction

import (
	"context"
	"fmt"
	"testing"

	"mboxsearch/internal/mergeops"
	"mboxsearch/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), store.Options{
		Mode:          store.BulkLoad,
		MergeOperator: mergeops.New("token_shards.", "index."),
	})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedDocuments(t *testing.T, st *store.Store, n int) {
	t.Helper()
	batch := store.NewWriteBatch()
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("doc-%04d", i)
		batch.Put(store.Documents, []byte(key), []byte("value"))
	}
	if err := st.Write(batch); err != nil {
		t.Fatalf("seeding documents: %v", err)
	}
}

func TestParseColumnFamily(t *testing.T) {
	if cf, err := ParseColumnFamily("documents"); err != nil || cf != store.Documents {
		t.Fatalf("expected documents, got %v err %v", cf, err)
	}
	if cf, err := ParseColumnFamily("indexes"); err != nil || cf != store.Indexes {
		t.Fatalf("expected indexes, got %v err %v", cf, err)
	}
	if _, err := ParseColumnFamily("bogus"); err == nil {
		t.Fatalf("expected an error for an unknown column family name")
	}
}

func TestRunColumnFamilyVisitsOnlyThatFamily(t *testing.T) {
	st := openTestStore(t)
	seedDocuments(t, st, 5)

	stats, err := RunColumnFamily(context.Background(), st, store.Documents, Options{})
	if err != nil {
		t.Fatalf("RunColumnFamily: %v", err)
	}
	if stats.ColumnFamilies != 1 {
		t.Fatalf("expected exactly 1 column family compacted, got %d", stats.ColumnFamilies)
	}
	if stats.KeysVisited != 5 {
		t.Fatalf("expected 5 keys visited, got %d", stats.KeysVisited)
	}
}

func TestRunVisitsBothFamilies(t *testing.T) {
	st := openTestStore(t)
	seedDocuments(t, st, 3)

	stats, err := Run(context.Background(), st, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.ColumnFamilies != 2 {
		t.Fatalf("expected both column families compacted, got %d", stats.ColumnFamilies)
	}
	if stats.KeysVisited != 3 {
		t.Fatalf("expected 3 keys visited (indexes family is empty), got %d", stats.KeysVisited)
	}
}

func TestRunChunksAtBoundary(t *testing.T) {
	st := openTestStore(t)
	seedDocuments(t, st, 10)

	stats, err := RunColumnFamily(context.Background(), st, store.Documents, Options{ChunkBytes: 1})
	if err != nil {
		t.Fatalf("RunColumnFamily: %v", err)
	}
	if stats.Chunks != 10 {
		t.Fatalf("expected one chunk per key at a 1-byte chunk size, got %d", stats.Chunks)
	}
}
