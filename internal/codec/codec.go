// Package codec implements the self-describing binary encoding shared by
// every persistent entity in the store: indexed IDs, postings, shard
// directories, and the metadata record. Every encoded record begins with a
// one-byte version tag so that a decoder can always tell which schema it is
// reading, and decoders must keep accepting every version they have ever
// produced (spec.md §4.1). Integers are written in a fixed little-endian
// width so the encoding is independent of the host's word size.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	mboxerrors "mboxsearch/pkg/errors"
)

// Writer accumulates a versioned binary record.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter starts a new record tagged with the given schema version.
func NewWriter(version uint8) *Writer {
	w := &Writer{}
	w.buf.WriteByte(version)
	return w
}

func (w *Writer) PutUint8(v uint8) { w.buf.WriteByte(v) }

func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) PutInt64(v int64) { w.PutUint64(uint64(v)) }

// PutBytes writes a length-prefixed byte slice.
func (w *Writer) PutBytes(b []byte) {
	w.PutUint32(uint32(len(b)))
	w.buf.Write(b)
}

// PutString writes a length-prefixed UTF-8 string.
func (w *Writer) PutString(s string) { w.PutBytes([]byte(s)) }

// Bytes returns the accumulated record.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Reader decodes a versioned binary record produced by Writer.
type Reader struct {
	key     []byte
	data    []byte
	off     int
	Version uint8
}

// NewReader opens data for decoding. key is retained only to annotate any
// Corruption error this Reader produces.
func NewReader(key, data []byte) (*Reader, error) {
	if len(data) < 1 {
		return nil, mboxerrors.Corruption(key, fmt.Errorf("record too short: %d bytes", len(data)))
	}
	return &Reader{key: key, data: data, off: 1, Version: data[0]}, nil
}

func (r *Reader) fail(err error) error {
	return mboxerrors.Corruption(r.key, err)
}

func (r *Reader) need(n int) error {
	if r.off+n > len(r.data) {
		return r.fail(fmt.Errorf("record truncated: need %d bytes at offset %d, have %d", n, r.off, len(r.data)))
	}
	return nil
}

func (r *Reader) GetUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *Reader) GetUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *Reader) GetUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *Reader) GetInt64() (int64, error) {
	v, err := r.GetUint64()
	return int64(v), err
}

func (r *Reader) GetBytes() ([]byte, error) {
	n, err := r.GetUint32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := r.data[r.off : r.off+int(n)]
	r.off += int(n)
	return b, nil
}

func (r *Reader) GetString() (string, error) {
	b, err := r.GetBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Done reports whether the record has been fully consumed. A decoder that
// leaves trailing bytes unconsumed should treat this as a soft signal that
// a newer schema version wrote extra fields it does not understand yet;
// callers are free to ignore it.
func (r *Reader) Done() bool { return r.off >= len(r.data) }

var zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var zstdDecoder, _ = zstd.NewReader(nil)

// Compress compresses payload with zstd if it exceeds threshold bytes,
// prefixing the result with a one-byte flag so Decompress knows whether
// compression was applied. Payloads at or below the threshold are passed
// through unmodified to avoid paying compression overhead on small posting
// shards and shard directories.
func Compress(payload []byte, threshold int) []byte {
	if threshold <= 0 || len(payload) <= threshold {
		return append([]byte{0}, payload...)
	}
	compressed := zstdEncoder.EncodeAll(payload, make([]byte, 0, len(payload)))
	return append([]byte{1}, compressed...)
}

// Decompress reverses Compress.
func Decompress(key, raw []byte) ([]byte, error) {
	if len(raw) < 1 {
		return nil, mboxerrors.Corruption(key, fmt.Errorf("compressed record too short"))
	}
	flag, payload := raw[0], raw[1:]
	if flag == 0 {
		return payload, nil
	}
	decoded, err := zstdDecoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, mboxerrors.Corruption(key, fmt.Errorf("zstd decode: %w", err))
	}
	return decoded, nil
}
