package store

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mboxsearch/internal/codec"
	mboxerrors "mboxsearch/pkg/errors"
)

const walFileName = "store.wal"
const walRecordVersion uint8 = 1

type walOpcode uint8

const (
	walOpPut   walOpcode = 1
	walOpMerge walOpcode = 2
)

type walRecord struct {
	op    walOpcode
	cf    ColumnFamily
	key   []byte
	value []byte
}

// wal is the on-disk append log that makes the skiplists durable across
// restarts. Every accepted write batch is appended here before it is
// applied in memory; on open, the log is replayed in order to rebuild
// state. compact() rewrites the log to hold only what a fresh replay of
// the current in-memory state would produce, so the log does not grow
// without bound across the lifetime of a database.
type wal struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

func openWAL(dir string) (*wal, error) {
	path := filepath.Join(dir, walFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, mboxerrors.Wrap(mboxerrors.KindIO, err, "opening write-ahead log")
	}
	return &wal{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (l *wal) append(records []walRecord) error {
	for _, rec := range records {
		w := codec.NewWriter(walRecordVersion)
		w.PutUint8(uint8(rec.op))
		w.PutUint8(uint8(rec.cf))
		w.PutBytes(rec.key)
		w.PutBytes(rec.value)
		buf := w.Bytes()
		var lenPrefix [4]byte
		putUint32(lenPrefix[:], uint32(len(buf)))
		if _, err := l.w.Write(lenPrefix[:]); err != nil {
			return mboxerrors.Wrap(mboxerrors.KindIO, err, "appending wal record")
		}
		if _, err := l.w.Write(buf); err != nil {
			return mboxerrors.Wrap(mboxerrors.KindIO, err, "appending wal record")
		}
	}
	if err := l.w.Flush(); err != nil {
		return mboxerrors.Wrap(mboxerrors.KindIO, err, "flushing wal")
	}
	if err := l.f.Sync(); err != nil {
		return mboxerrors.Wrap(mboxerrors.KindIO, err, "syncing wal")
	}
	return nil
}

// replay reads every record from the start of the log and invokes fn for
// each in order.
func (l *wal) replay(fn func(walRecord) error) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return mboxerrors.Wrap(mboxerrors.KindIO, err, "opening wal for replay")
	}
	defer f.Close()
	r := bufio.NewReader(f)
	for {
		var lenPrefix [4]byte
		_, err := io.ReadFull(r, lenPrefix[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return mboxerrors.Corruption([]byte(walFileName), fmt.Errorf("reading wal record length: %w", err))
		}
		n := getUint32(lenPrefix[:])
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return mboxerrors.Corruption([]byte(walFileName), fmt.Errorf("reading wal record body: %w", err))
		}
		rec, err := decodeWALRecord(buf)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func decodeWALRecord(buf []byte) (walRecord, error) {
	r, err := codec.NewReader([]byte(walFileName), buf)
	if err != nil {
		return walRecord{}, err
	}
	op, err := r.GetUint8()
	if err != nil {
		return walRecord{}, err
	}
	cf, err := r.GetUint8()
	if err != nil {
		return walRecord{}, err
	}
	key, err := r.GetBytes()
	if err != nil {
		return walRecord{}, err
	}
	value, err := r.GetBytes()
	if err != nil {
		return walRecord{}, err
	}
	return walRecord{op: walOpcode(op), cf: ColumnFamily(cf), key: key, value: value}, nil
}

// compact rewrites the log from scratch using a snapshot producer so the
// file only ever holds one put per live key.
func (l *wal) compact(snapshot func() []walRecord) error {
	tmpPath := l.path + ".compact"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return mboxerrors.Wrap(mboxerrors.KindIO, err, "creating compacted wal")
	}
	w := bufio.NewWriter(f)
	for _, rec := range snapshot() {
		enc := codec.NewWriter(walRecordVersion)
		enc.PutUint8(uint8(rec.op))
		enc.PutUint8(uint8(rec.cf))
		enc.PutBytes(rec.key)
		enc.PutBytes(rec.value)
		buf := enc.Bytes()
		var lenPrefix [4]byte
		putUint32(lenPrefix[:], uint32(len(buf)))
		if _, err := w.Write(lenPrefix[:]); err != nil {
			f.Close()
			return mboxerrors.Wrap(mboxerrors.KindIO, err, "writing compacted wal")
		}
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return mboxerrors.Wrap(mboxerrors.KindIO, err, "writing compacted wal")
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return mboxerrors.Wrap(mboxerrors.KindIO, err, "flushing compacted wal")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return mboxerrors.Wrap(mboxerrors.KindIO, err, "syncing compacted wal")
	}
	f.Close()

	l.w = nil
	if err := l.f.Close(); err != nil {
		return mboxerrors.Wrap(mboxerrors.KindIO, err, "closing wal before compaction swap")
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		return mboxerrors.Wrap(mboxerrors.KindIO, err, "swapping compacted wal into place")
	}
	nf, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return mboxerrors.Wrap(mboxerrors.KindIO, err, "reopening wal after compaction")
	}
	l.f = nf
	l.w = bufio.NewWriter(nf)
	return nil
}

func (l *wal) close() error {
	if l.w != nil {
		if err := l.w.Flush(); err != nil {
			l.f.Close()
			return mboxerrors.Wrap(mboxerrors.KindIO, err, "flushing wal on close")
		}
	}
	if err := l.f.Close(); err != nil {
		return mboxerrors.Wrap(mboxerrors.KindIO, err, "closing wal")
	}
	return nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
