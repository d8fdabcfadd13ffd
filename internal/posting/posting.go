// Package posting implements the Posting entity and posting-list merge
// logic (spec.md §3, §4.3 "index." prefix), plus the per-token posting
// iterator (spec.md §4.6).
package posting

import (
	"sort"

	"mboxsearch/internal/codec"
	"mboxsearch/internal/ids"
)

const version uint8 = 1

// compressionThreshold is the encoded-payload size, in bytes, above which
// Encode asks codec to zstd-compress a shard's posting list. SetCompressionThreshold
// overrides it; callers normally wire this to config.StoreConfig.CompressionThreshold
// once at startup.
var compressionThreshold = 4096

// SetCompressionThreshold changes the threshold used by subsequent Encode calls.
func SetCompressionThreshold(n int) { compressionThreshold = n }

// List is a sorted-unique sequence of indexed ids: the decoded form of a
// single shard's posting-list value.
type List []ids.ID

// Encode serializes the list in its versioned binary form. Callers must
// pass an already sorted-unique list; Merge is the only code path that
// produces one.
func (l List) Encode() []byte {
	w := codec.NewWriter(version)
	w.PutUint32(uint32(len(l)))
	for _, id := range l {
		w.PutBytes(id.Encode())
	}
	return codec.Compress(w.Bytes(), compressionThreshold)
}

// Decode parses the versioned binary form produced by Encode.
func Decode(key, data []byte) (List, error) {
	decompressed, err := codec.Decompress(key, data)
	if err != nil {
		return nil, err
	}
	r, err := codec.NewReader(key, decompressed)
	if err != nil {
		return nil, err
	}
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	out := make(List, 0, n)
	for i := uint32(0); i < n; i++ {
		raw, err := r.GetBytes()
		if err != nil {
			return nil, err
		}
		id, err := ids.Decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// New encodes a single-posting operand list, the form a write batch
// merges into a shard's posting-list key.
func New(id ids.ID) []byte {
	return List{id}.Encode()
}

// Merge implements the index. full-merge: union the base posting list
// (if any) with the operand's postings into a sorted-unique list and
// re-serialize it (spec.md §4.3). Partial-merge is not offered for the
// same reason as shardset.Merge: the store always resolves against a
// base value.
func Merge(key, existing, operand []byte) ([]byte, error) {
	var base List
	if existing != nil {
		decoded, err := Decode(key, existing)
		if err != nil {
			return nil, err
		}
		base = decoded
	}
	operandList, err := Decode(key, operand)
	if err != nil {
		return nil, err
	}
	merged := unionSortedUnique(base, operandList)
	return merged.Encode(), nil
}

func unionSortedUnique(a, b List) List {
	seen := make(map[ids.ID]struct{}, len(a)+len(b))
	out := make(List, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
