// Package store wraps an ordered key-value engine with the two logical
// column families and the associative-merge write path the rest of the
// system is built on. It does not know what postings or shard directories
// are — key-prefix dispatch and merge semantics for those live in
// internal/mergeops, which registers a MergeOperator at Open time.
package store

import (
	"os"
	"path/filepath"
	"sync"

	mboxerrors "mboxsearch/pkg/errors"
)

// ColumnFamily identifies one of the two logical key spaces.
type ColumnFamily uint8

const (
	// Documents holds document bodies keyed by indexed-id, plus the
	// external-id -> indexed-id secondary index.
	Documents ColumnFamily = iota
	// Indexes holds posting lists and shard directories.
	Indexes
)

func (cf ColumnFamily) String() string {
	if cf == Documents {
		return "documents"
	}
	return "indexes"
}

// Mode selects the tuning profile a Store is opened with.
type Mode int

const (
	// ReadWrite is the default serving mode.
	ReadWrite Mode = iota
	// ReadOnly rejects Write calls; used by read replicas and tools that
	// only inspect a database.
	ReadOnly
	// BulkLoad is the mode the offline compactor opens with. The in-memory
	// engine applies no separate write-throughput tuning for it: a BulkLoad
	// store behaves exactly like a ReadWrite one.
	BulkLoad
)

// MergeOperator implements the associative merge hook described in
// spec.md §4.3. Store dispatches every Merge operation in a batch to
// FullMerge immediately: because the operator's contract requires the
// union to be associative and idempotent, applying operands one at a
// time against the current base value is observationally identical to
// batching them, and it keeps the Store implementation simple. A real
// operand-queueing engine would keep unmerged operands until a read and
// only then call FullMerge; this implementation always has a value to
// merge against, so PartialMerge is never needed.
type MergeOperator interface {
	// FullMerge combines existing (nil if absent) with operand and
	// returns the new value to store, or an error. key is passed so the
	// operator can dispatch on its prefix and so Corruption errors can
	// be annotated.
	FullMerge(cf ColumnFamily, key, existing []byte, operand []byte) ([]byte, error)
}

// Op is one mutation inside a WriteBatch.
type Op struct {
	CF      ColumnFamily
	Key     []byte
	Value   []byte
	IsMerge bool
}

// WriteBatch accumulates puts and merges for atomic application via
// Store.Write. spec.md §4.4 requires the indexes batch to commit before
// the documents batch for a single document; callers build two batches
// and call Write twice in that order, not within one batch.
type WriteBatch struct {
	ops []Op
}

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch { return &WriteBatch{} }

// Put stages a plain write.
func (b *WriteBatch) Put(cf ColumnFamily, key, value []byte) {
	b.ops = append(b.ops, Op{CF: cf, Key: key, Value: value})
}

// Merge stages an associative-merge write.
func (b *WriteBatch) Merge(cf ColumnFamily, key, operand []byte) {
	b.ops = append(b.ops, Op{CF: cf, Key: key, Value: operand, IsMerge: true})
}

// Len reports the number of staged operations.
func (b *WriteBatch) Len() int { return len(b.ops) }

// Store is the thin wrapper over the ordered KV engine described in
// spec.md §4.2.
type Store struct {
	mu      sync.RWMutex
	dir     string
	mode    Mode
	merge   MergeOperator
	cfs     [2]*skiplist
	log     *wal
	closed  bool
}

// Options configures Open.
type Options struct {
	Mode          Mode
	MergeOperator MergeOperator
}

// Open opens (creating if absent) an ordered KV rooted at path, replaying
// its write-ahead log to rebuild in-memory state, and registers the
// merge operator for the lifetime of the returned Store.
func Open(path string, opts Options) (*Store, error) {
	if opts.MergeOperator == nil {
		return nil, mboxerrors.New(mboxerrors.KindInvalidArgument, "store: MergeOperator is required")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, mboxerrors.Wrap(mboxerrors.KindIO, err, "creating store directory")
	}
	log, err := openWAL(path)
	if err != nil {
		return nil, err
	}
	s := &Store{
		dir:   path,
		mode:  opts.Mode,
		merge: opts.MergeOperator,
		cfs:   [2]*skiplist{newSkiplist(), newSkiplist()},
		log:   log,
	}
	if err := s.replay(); err != nil {
		log.close()
		return nil, err
	}
	return s, nil
}

func (s *Store) replay() error {
	return s.log.replay(func(rec walRecord) error {
		list := s.cfs[rec.cf]
		switch rec.op {
		case walOpPut:
			list.Put(rec.key, rec.value)
		case walOpMerge:
			existing, _ := list.Get(rec.key)
			merged, err := s.merge.FullMerge(rec.cf, rec.key, existing, rec.value)
			if err != nil {
				return err
			}
			list.Put(rec.key, merged)
		}
		return nil
	})
}

// Get performs a point read. Returns a NotFound error if key is absent.
func (s *Store) Get(cf ColumnFamily, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.cfs[cf].Get(key)
	if !ok {
		return nil, mboxerrors.Newf(mboxerrors.KindNotFound, "key not found in %s", cf)
	}
	return value, nil
}

// Write atomically applies every operation in batch: merges are resolved
// in order, each against the value left by earlier operations on the same
// key in this batch (or the stored value if there are none), and the
// results, along with plain puts, are
// appended to the write-ahead log before any in-memory state changes, so
// a crash mid-write never leaves a partially-applied batch visible.
func (s *Store) Write(batch *WriteBatch) error {
	if s.mode == ReadOnly {
		return mboxerrors.New(mboxerrors.KindInvalidArgument, "store: opened read-only")
	}
	if batch.Len() == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]walRecord, 0, len(batch.ops))
	resolved := make([][]byte, len(batch.ops))
	pending := make(map[string][]byte)
	for i, op := range batch.ops {
		k := string([]byte{byte(op.CF)}) + string(op.Key)
		if !op.IsMerge {
			resolved[i] = op.Value
			pending[k] = op.Value
			records = append(records, walRecord{op: walOpPut, cf: op.CF, key: op.Key, value: op.Value})
			continue
		}
		existing, ok := pending[k]
		if !ok {
			existing, _ = s.cfs[op.CF].Get(op.Key)
		}
		merged, err := s.merge.FullMerge(op.CF, op.Key, existing, op.Value)
		if err != nil {
			return err
		}
		resolved[i] = merged
		pending[k] = merged
		records = append(records, walRecord{op: walOpMerge, cf: op.CF, key: op.Key, value: op.Value})
	}

	if err := s.log.append(records); err != nil {
		return err
	}
	for i, op := range batch.ops {
		s.cfs[op.CF].Put(op.Key, resolved[i])
	}
	return nil
}

// Compact triggers a full-range compaction of both column families: the
// write-ahead log is rewritten to hold exactly one put per live key,
// discarding the superseded merge-operand history. This mirrors
// spec.md §4.2's compact() and is invoked by the offline compaction tool
// and the /compact endpoint.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.compact(func() []walRecord {
		var records []walRecord
		for cf, list := range s.cfs {
			node := list.seekNode(nil)
			for node != nil {
				records = append(records, walRecord{op: walOpPut, cf: ColumnFamily(cf), key: node.key, value: node.value})
				node = node.forward[0]
			}
		}
		return records
	})
}

// CompactRange is the range-bounded variant used by the offline chunked
// compactor (spec.md §4.8); the in-memory engine has no per-range work to
// do beyond what Compact already performs, since the whole log is
// rewritten in one pass regardless of range width.
func (s *Store) CompactRange(cf ColumnFamily, start, end []byte) error {
	return s.Compact()
}

// Close flushes and releases the underlying write-ahead log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.log.close()
}

// Dir returns the path the store was opened at.
func (s *Store) Dir() string { return s.dir }

// Path joins the store's directory with a relative component.
func (s *Store) Path(elem ...string) string {
	return filepath.Join(append([]string{s.dir}, elem...)...)
}
