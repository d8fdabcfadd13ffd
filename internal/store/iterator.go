package store

import "bytes"

// Iterator is a forward-only ordered cursor over one column family,
// optionally bounded to a key range. It is not safe for concurrent use;
// each caller constructs its own (spec.md §5 "Iterators are not shared
// across threads").
type Iterator struct {
	list *skiplist
	node *skiplistNode
	end  []byte // exclusive upper bound, nil for unbounded
	err  error
}

// NewIterator returns an iterator over cf positioned before the first
// key. Call Seek or Next before reading Key/Value. end is an exclusive
// upper bound; pass nil for no upper bound.
func (s *Store) NewIterator(cf ColumnFamily, end []byte) *Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Iterator{list: s.cfs[cf], end: end}
}

// Seek positions the iterator at the first key >= target.
func (it *Iterator) Seek(target []byte) {
	it.node = it.list.seekNode(target)
	it.clampEnd()
}

// Next advances to the next key.
func (it *Iterator) Next() {
	if it.node == nil {
		return
	}
	it.node = it.node.forward[0]
	it.clampEnd()
}

func (it *Iterator) clampEnd() {
	if it.node != nil && it.end != nil && bytes.Compare(it.node.key, it.end) >= 0 {
		it.node = nil
	}
}

// Valid reports whether the iterator is positioned on a live entry.
func (it *Iterator) Valid() bool { return it.err == nil && it.node != nil }

// Key returns the current key. Only valid when Valid() is true.
func (it *Iterator) Key() []byte { return it.node.key }

// Value returns the current value. Only valid when Valid() is true.
func (it *Iterator) Value() []byte { return it.node.value }

// Status returns any error encountered during iteration.
func (it *Iterator) Status() error { return it.err }
