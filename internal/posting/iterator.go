package posting

import (
	"mboxsearch/internal/ids"
	"mboxsearch/internal/shardset"
	"mboxsearch/internal/store"
	mboxerrors "mboxsearch/pkg/errors"
)

// Reader is the subset of *store.Store the iterator needs; defined as an
// interface so tests can substitute an in-memory fake.
type Reader interface {
	Get(cf store.ColumnFamily, key []byte) ([]byte, error)
}

// Iterator is the per-(mailbox, attribute, token-name) lazy ascending
// cursor over a token's postings, spanning however many shards its
// directory lists (spec.md §4.6). Exhaustion is terminal: once Valid
// returns false it never returns true again.
type Iterator struct {
	reader    Reader
	shardKey  string
	keyPrefix string // token.Key(mailbox, attribute, name), shard index appended per-shard
	shards    []uint32
	shardPos  int
	current   List
	pos       int
	valid     bool
	err       error
}

// NewIterator opens an iterator for the token whose shard-directory key
// is shardKey and whose per-shard posting-list keys are
// keyPrefix + "." + shard. It reads the shard directory eagerly (a
// single point read) but decodes each shard's posting list lazily, only
// when iteration reaches it.
func NewIterator(reader Reader, shardKey, keyPrefix string) *Iterator {
	it := &Iterator{reader: reader, shardKey: shardKey, keyPrefix: keyPrefix}
	it.loadShardDirectory()
	it.advanceToNonEmptyShard()
	return it
}

func (it *Iterator) loadShardDirectory() {
	raw, err := it.reader.Get(store.Indexes, []byte(it.shardKey))
	if err != nil {
		if mboxerrors.Is(err, mboxerrors.KindNotFound) {
			it.shards = nil
			return
		}
		it.err = err
		return
	}
	set, err := shardset.Decode([]byte(it.shardKey), raw)
	if err != nil {
		it.err = err
		return
	}
	it.shards = set.Sorted()
}

// advanceToNonEmptyShard loads shards in ascending order until one
// yields a non-empty, successfully decoded posting list, or the shard
// list is exhausted.
func (it *Iterator) advanceToNonEmptyShard() {
	for it.err == nil {
		if it.pos < len(it.current) {
			it.valid = true
			return
		}
		if it.shardPos >= len(it.shards) {
			it.valid = false
			return
		}
		shard := it.shards[it.shardPos]
		it.shardPos++
		shardKey := shardedKey(it.keyPrefix, shard)
		raw, err := it.reader.Get(store.Indexes, []byte(shardKey))
		if err != nil {
			if mboxerrors.Is(err, mboxerrors.KindNotFound) {
				continue
			}
			it.err = err
			return
		}
		list, err := Decode([]byte(shardKey), raw)
		if err != nil {
			// A single corrupt shard is skipped, not fatal
			// (spec.md §4.7 edge cases).
			continue
		}
		it.current = list
		it.pos = 0
	}
}

func shardedKey(prefix string, shard uint32) string {
	return prefix + "." + itoa(shard)
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Valid reports whether Current returns a usable id.
func (it *Iterator) Valid() bool { return it.valid }

// Current returns the id the iterator is positioned on.
func (it *Iterator) Current() ids.ID { return it.current[it.pos] }

// Next advances to the next posting in ascending order.
func (it *Iterator) Next() {
	if !it.valid {
		return
	}
	it.pos++
	it.advanceToNonEmptyShard()
}

// Seek advances to the first posting >= target, skipping entire shards
// whose maximum id is < target (spec.md §4.6 step 3). Because each
// shard's list is held fully decoded once loaded, skipping within a
// shard is a linear scan from the current position; skipping a whole
// shard is recognized by its max element.
func (it *Iterator) Seek(target ids.ID) {
	for it.valid {
		if len(it.current) > 0 && it.current[len(it.current)-1].Less(target) {
			it.pos = len(it.current)
			it.advanceToNonEmptyShard()
			continue
		}
		if it.Current().Less(target) {
			it.pos++
			if it.pos >= len(it.current) {
				it.advanceToNonEmptyShard()
				continue
			}
			continue
		}
		return
	}
}

// Err returns any error encountered while iterating.
func (it *Iterator) Err() error { return it.err }
