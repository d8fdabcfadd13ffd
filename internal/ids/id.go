// Package ids implements the Indexed ID: the fixed-width, lexicographically
// sortable document identifier described in spec.md §3. Its byte encoding
// orders ascending by (seconds, nanoseconds, sequence, hash) so that
// ascending iteration over the encoded form yields chronological order with
// a deterministic tie-break.
package ids

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"time"
)

// Size is the byte width of an encoded ID: 8 (seconds) + 4 (nanoseconds) +
// 8 (sequence) + 8 (hash).
const Size = 8 + 4 + 8 + 8

// ID is the sortable document identifier. It encodes to Size (28) bytes;
// it is not packed into 128 bits.
type ID struct {
	Seconds     uint64
	Nanoseconds uint32
	Sequence    uint64
	Hash        uint64
}

// New builds an ID from a timestamp, the monotonic sequence allocated by
// the metadata counter, and the external document id (hashed, not stored
// verbatim — spec.md §4.4 step 1).
func New(ts time.Time, sequence uint64, externalID string) ID {
	return ID{
		Seconds:     uint64(ts.Unix()),
		Nanoseconds: uint32(ts.Nanosecond()),
		Sequence:    sequence,
		Hash:        HashExternalID(externalID),
	}
}

// HashExternalID hashes an external id into the fixed 64-bit space used as
// the ID's deterministic tie-break component.
func HashExternalID(externalID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(externalID))
	return h.Sum64()
}

// Encode returns the canonical, sort-order-preserving byte encoding.
func (id ID) Encode() []byte {
	buf := make([]byte, Size)
	binary.BigEndian.PutUint64(buf[0:8], id.Seconds)
	binary.BigEndian.PutUint32(buf[8:12], id.Nanoseconds)
	binary.BigEndian.PutUint64(buf[12:20], id.Sequence)
	binary.BigEndian.PutUint64(buf[20:28], id.Hash)
	return buf
}

// Decode parses the canonical byte encoding produced by Encode.
func Decode(buf []byte) (ID, error) {
	if len(buf) != Size {
		return ID{}, fmt.Errorf("indexed id: expected %d bytes, got %d", Size, len(buf))
	}
	return ID{
		Seconds:     binary.BigEndian.Uint64(buf[0:8]),
		Nanoseconds: binary.BigEndian.Uint32(buf[8:12]),
		Sequence:    binary.BigEndian.Uint64(buf[12:20]),
		Hash:        binary.BigEndian.Uint64(buf[20:28]),
	}, nil
}

// String returns the printable hex form used in API responses and cursors.
func (id ID) String() string {
	return hex.EncodeToString(id.Encode())
}

// Parse parses the printable hex form produced by String.
func Parse(s string) (ID, error) {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("indexed id: invalid hex %q: %w", s, err)
	}
	return Decode(buf)
}

// Less reports whether id sorts strictly before other. Because Encode is
// big-endian and field-ordered, this is equivalent to comparing the
// encoded byte strings lexicographically.
func (id ID) Less(other ID) bool {
	if id.Seconds != other.Seconds {
		return id.Seconds < other.Seconds
	}
	if id.Nanoseconds != other.Nanoseconds {
		return id.Nanoseconds < other.Nanoseconds
	}
	if id.Sequence != other.Sequence {
		return id.Sequence < other.Sequence
	}
	return id.Hash < other.Hash
}

// Compare returns -1, 0, or 1 as id is less than, equal to, or greater
// than other.
func (id ID) Compare(other ID) int {
	switch {
	case id == other:
		return 0
	case id.Less(other):
		return -1
	default:
		return 1
	}
}

// Time reconstructs the wall-clock timestamp encoded in id.
func (id ID) Time() time.Time {
	return time.Unix(int64(id.Seconds), int64(id.Nanoseconds)).UTC()
}

// Successor returns the smallest ID strictly greater than id, treating
// the encoded form as a big-endian integer and adding one with carry.
// Used to turn the pagination cursor (an exclusive lower bound) into an
// inclusive seek target.
func (id ID) Successor() ID {
	buf := id.Encode()
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i]++
		if buf[i] != 0 {
			break
		}
	}
	succ, _ := Decode(buf)
	return succ
}

// Zero is the smallest possible ID, usable as an inclusive lower bound.
var Zero = ID{}

// Max is the largest possible ID, usable as an exclusive upper bound.
var Max = ID{Seconds: ^uint64(0), Nanoseconds: ^uint32(0), Sequence: ^uint64(0), Hash: ^uint64(0)}
