package codec

import "testing"

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(1)
	w.PutUint8(7)
	w.PutUint32(42)
	w.PutUint64(1 << 40)
	w.PutInt64(-5)
	w.PutString("hello")
	w.PutBytes([]byte{1, 2, 3})

	r, err := NewReader([]byte("key"), w.Bytes())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.Version != 1 {
		t.Fatalf("expected version 1, got %d", r.Version)
	}
	if v, err := r.GetUint8(); err != nil || v != 7 {
		t.Fatalf("GetUint8: %v, %v", v, err)
	}
	if v, err := r.GetUint32(); err != nil || v != 42 {
		t.Fatalf("GetUint32: %v, %v", v, err)
	}
	if v, err := r.GetUint64(); err != nil || v != 1<<40 {
		t.Fatalf("GetUint64: %v, %v", v, err)
	}
	if v, err := r.GetInt64(); err != nil || v != -5 {
		t.Fatalf("GetInt64: %v, %v", v, err)
	}
	if s, err := r.GetString(); err != nil || s != "hello" {
		t.Fatalf("GetString: %v, %v", s, err)
	}
	if b, err := r.GetBytes(); err != nil || string(b) != "\x01\x02\x03" {
		t.Fatalf("GetBytes: %v, %v", b, err)
	}
	if !r.Done() {
		t.Fatalf("expected reader to be fully consumed")
	}
}

func TestReaderTruncatedRecord(t *testing.T) {
	w := NewWriter(1)
	w.PutUint64(123)
	buf := w.Bytes()
	r, err := NewReader([]byte("key"), buf[:len(buf)-4])
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.GetUint64(); err == nil {
		t.Fatalf("expected an error reading past a truncated record")
	}
}

func TestNewReaderRejectsEmptyData(t *testing.T) {
	if _, err := NewReader([]byte("key"), nil); err == nil {
		t.Fatalf("expected an error for empty input")
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	small := []byte("short")
	encoded := Compress(small, 4096)
	decoded, err := Decompress([]byte("key"), encoded)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(decoded) != string(small) {
		t.Fatalf("expected round trip to preserve payload, got %q", decoded)
	}

	large := make([]byte, 8192)
	for i := range large {
		large[i] = byte(i % 251)
	}
	encodedLarge := Compress(large, 4096)
	if encodedLarge[0] != 1 {
		t.Fatalf("expected payload above threshold to be flagged as compressed")
	}
	decodedLarge, err := Decompress([]byte("key"), encodedLarge)
	if err != nil {
		t.Fatalf("Decompress large: %v", err)
	}
	if string(decodedLarge) != string(large) {
		t.Fatalf("expected compressed round trip to preserve payload")
	}
}

func TestCompressBelowThresholdIsNotCompressed(t *testing.T) {
	payload := []byte("tiny")
	encoded := Compress(payload, 4096)
	if encoded[0] != 0 {
		t.Fatalf("expected payload at or below threshold to be stored uncompressed")
	}
}
