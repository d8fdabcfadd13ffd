// Package shardset implements the shard-directory entity: the set of
// shard indices a token's postings are partitioned across (spec.md §3,
// "Shard Directory"). It doubles as the full-merge logic for the
// token_shards. key prefix (spec.md §4.3): merging is bitmap union.
package shardset

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"mboxsearch/internal/codec"
	mboxerrors "mboxsearch/pkg/errors"
)

const version uint8 = 1

// compressionThreshold is the encoded-payload size, in bytes, above which
// Encode asks codec to zstd-compress a shard directory. SetCompressionThreshold
// overrides it; callers normally wire this to config.StoreConfig.CompressionThreshold
// once at startup.
var compressionThreshold = 4096

// SetCompressionThreshold changes the threshold used by subsequent Encode calls.
func SetCompressionThreshold(n int) { compressionThreshold = n }

// Set is a deduplicated, sorted collection of shard indices.
type Set struct {
	bitmap *roaring.Bitmap
}

// New returns an empty set.
func New() *Set { return &Set{bitmap: roaring.New()} }

// FromShards builds a set containing exactly the given shard indices.
func FromShards(shards ...uint32) *Set {
	s := New()
	for _, sh := range shards {
		s.bitmap.Add(sh)
	}
	return s
}

// Add inserts a shard index.
func (s *Set) Add(shard uint32) { s.bitmap.Add(shard) }

// Contains reports whether shard is a member.
func (s *Set) Contains(shard uint32) bool { return s.bitmap.Contains(shard) }

// Sorted returns the member shard indices in ascending order.
func (s *Set) Sorted() []uint32 { return s.bitmap.ToArray() }

// Len returns the number of member shards.
func (s *Set) Len() int { return int(s.bitmap.GetCardinality()) }

// Union merges other into s in place.
func (s *Set) Union(other *Set) { s.bitmap.Or(other.bitmap) }

// Encode serializes the set to its versioned binary form.
func (s *Set) Encode() []byte {
	w := codec.NewWriter(version)
	raw, err := s.bitmap.ToBytes()
	if err != nil {
		// roaring's ToBytes only fails on a write error from an
		// in-memory buffer, which cannot happen.
		panic(fmt.Sprintf("shardset: encoding roaring bitmap: %v", err))
	}
	w.PutBytes(raw)
	return codec.Compress(w.Bytes(), compressionThreshold)
}

// Decode parses the versioned binary form produced by Encode.
func Decode(key, data []byte) (*Set, error) {
	decompressed, err := codec.Decompress(key, data)
	if err != nil {
		return nil, err
	}
	r, err := codec.NewReader(key, decompressed)
	if err != nil {
		return nil, err
	}
	raw, err := r.GetBytes()
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	if _, err := bm.FromBuffer(raw); err != nil {
		return nil, mboxerrors.Corruption(key, fmt.Errorf("decoding roaring bitmap: %w", err))
	}
	return &Set{bitmap: bm}, nil
}

// Merge implements the token_shards. full-merge: union the base set (if
// any) with the operand set and return the re-serialized result.
// Partial-merge is intentionally not offered (spec.md §4.3): the store
// always resolves merges against a base value, so there is nothing for a
// partial-merge path to defer.
func Merge(key, existing, operand []byte) ([]byte, error) {
	base := New()
	if existing != nil {
		decoded, err := Decode(key, existing)
		if err != nil {
			return nil, err
		}
		base = decoded
	}
	operandSet, err := Decode(key, operand)
	if err != nil {
		return nil, err
	}
	base.Union(operandSet)
	return base.Encode(), nil
}
