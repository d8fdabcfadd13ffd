// Package compaction implements the offline chunked compactor
// (spec.md §4.8): unlike the /compact endpoint, which rewrites the whole
// store in one pass while it stays open for serving, the offline
// compactor walks each column family in size-bounded chunks so a very
// large store can be compacted without holding the write path closed for
// the entire run.
package compaction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mboxsearch/internal/store"
)

// DefaultChunkBytes is the default size threshold at which a chunk's key
// range is closed off and compacted before the walk continues.
const DefaultChunkBytes = 1 << 30 // 1 GiB

// Options configures Run.
type Options struct {
	// ChunkBytes bounds the total key+value size considered per chunk
	// before CompactRange is called for that chunk. <= 0 uses
	// DefaultChunkBytes.
	ChunkBytes int64
	// PauseBetweenChunks, if > 0, is slept between chunks so a compactor
	// running alongside a live server yields CPU and lock time back to
	// request handling.
	PauseBetweenChunks time.Duration
}

// Stats summarizes one Run.
type Stats struct {
	ColumnFamilies int
	Chunks         int
	KeysVisited    int64
	BytesVisited   int64
	Duration       time.Duration
}

// Run walks every column family of st in key order, accumulating chunks
// up to opts.ChunkBytes and compacting that range before moving on. It
// mirrors spec.md §4.2 Compact's "rewrite with the latest merged value
// per key" contract, applied one bounded range at a time.
func Run(ctx context.Context, st *store.Store, opts Options) (Stats, error) {
	return run(ctx, st, []store.ColumnFamily{store.Documents, store.Indexes}, opts)
}

// RunColumnFamily is the single-column-family variant the CLI's --column
// flag selects (spec.md §6 "offline compactor").
func RunColumnFamily(ctx context.Context, st *store.Store, cf store.ColumnFamily, opts Options) (Stats, error) {
	return run(ctx, st, []store.ColumnFamily{cf}, opts)
}

func run(ctx context.Context, st *store.Store, cfs []store.ColumnFamily, opts Options) (Stats, error) {
	chunkBytes := opts.ChunkBytes
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}
	logger := slog.Default().With("component", "compactor")
	start := time.Now()
	stats := Stats{}

	for _, cf := range cfs {
		stats.ColumnFamilies++
		if err := compactColumnFamily(ctx, st, cf, chunkBytes, opts.PauseBetweenChunks, logger, &stats); err != nil {
			return stats, err
		}
	}

	stats.Duration = time.Since(start)
	logger.Info("compaction run complete",
		"chunks", stats.Chunks,
		"keys_visited", stats.KeysVisited,
		"bytes_visited", stats.BytesVisited,
		"duration", stats.Duration,
	)
	return stats, nil
}

// ParseColumnFamily maps a CLI --column value to its store.ColumnFamily.
func ParseColumnFamily(name string) (store.ColumnFamily, error) {
	switch name {
	case "documents":
		return store.Documents, nil
	case "indexes":
		return store.Indexes, nil
	default:
		return 0, fmt.Errorf("unknown column family %q (want documents or indexes)", name)
	}
}

func compactColumnFamily(ctx context.Context, st *store.Store, cf store.ColumnFamily, chunkBytes int64, pause time.Duration, logger *slog.Logger, stats *Stats) error {
	it := st.NewIterator(cf, nil)
	it.Seek(nil)

	var chunkStart []byte
	var chunkSize int64

	flush := func(end []byte) error {
		if chunkStart == nil {
			return nil
		}
		if err := st.CompactRange(cf, chunkStart, end); err != nil {
			return err
		}
		stats.Chunks++
		logger.Debug("compacted chunk", "cf", cf, "bytes", chunkSize)
		chunkStart = nil
		chunkSize = 0
		return nil
	}

	for it.Valid() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key, value := it.Key(), it.Value()
		if chunkStart == nil {
			chunkStart = append([]byte{}, key...)
		}
		chunkSize += int64(len(key) + len(value))
		stats.KeysVisited++
		stats.BytesVisited += int64(len(key) + len(value))

		if chunkSize >= chunkBytes {
			// end is exclusive; the successor of key closes the range
			// after the entry we just counted.
			end := append([]byte{}, key...)
			end = append(end, 0x00)
			if err := flush(end); err != nil {
				return err
			}
			if pause > 0 {
				time.Sleep(pause)
			}
		}
		it.Next()
	}
	if err := it.Status(); err != nil {
		return err
	}
	return flush(nil)
}
