// Package metadata implements the process-wide sequence counter
// (spec.md §4.10, §9 "Monotonic sequence as global state"). It owns a
// periodic flush timer that holds a back-reference to the store; the
// timer is always stopped before the store it flushes into tears down,
// so no callback can fire against a closed store.
package metadata

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"mboxsearch/internal/codec"
	"mboxsearch/internal/store"
	mboxerrors "mboxsearch/pkg/errors"
)

const version uint8 = 1

// Metadata is the store-owned singleton counter shared by all writers.
type Metadata struct {
	st     *store.Store
	key    []byte
	seq    atomic.Uint64
	dirty  atomic.Bool
	logger *slog.Logger
}

// Open reads the metadata key (if present) to seed the counter, or
// starts from zero for a fresh database.
func Open(st *store.Store, metadataKey string, logger *slog.Logger) (*Metadata, error) {
	m := &Metadata{st: st, key: []byte(metadataKey), logger: logger}
	raw, err := st.Get(store.Documents, m.key)
	if err != nil {
		if mboxerrors.Is(err, mboxerrors.KindNotFound) {
			return m, nil
		}
		return nil, err
	}
	seq, err := decode(m.key, raw)
	if err != nil {
		return nil, err
	}
	m.seq.Store(seq)
	return m, nil
}

// NextSequence returns the old counter value and advances it, marking
// the counter dirty so the next periodic or forced flush persists it.
func (m *Metadata) NextSequence() uint64 {
	v := m.seq.Add(1) - 1
	m.dirty.Store(true)
	return v
}

// Flush persists the counter if it is dirty. A clean counter is a no-op,
// per spec.md §4.10's point that the dirty bit avoids unnecessary writes.
func (m *Metadata) Flush() error {
	if !m.dirty.CompareAndSwap(true, false) {
		return nil
	}
	batch := store.NewWriteBatch()
	batch.Put(store.Documents, m.key, encode(m.seq.Load()))
	if err := m.st.Write(batch); err != nil {
		m.dirty.Store(true)
		return err
	}
	return nil
}

// StartFlushLoop runs a periodic flush every interval until ctx is
// canceled, performing one final forced flush on shutdown
// (spec.md §4.10 "At clean shutdown the flush is forced"). interval <= 0
// disables the periodic flush entirely (spec.md §6
// sync_metadata_timeout_ms = 0); callers must still call Flush at
// shutdown themselves in that case.
func (m *Metadata) StartFlushLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if err := m.Flush(); err != nil {
					m.logger.Error("final metadata flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if err := m.Flush(); err != nil {
					m.logger.Error("periodic metadata flush failed", "error", err)
				}
			}
		}
	}()
}

func encode(seq uint64) []byte {
	w := codec.NewWriter(version)
	w.PutUint64(seq)
	return w.Bytes()
}

func decode(key, data []byte) (uint64, error) {
	r, err := codec.NewReader(key, data)
	if err != nil {
		return 0, err
	}
	return r.GetUint64()
}
