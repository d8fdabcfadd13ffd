// Command compactor runs the offline chunked compaction pass described in
// spec.md §6: given a store path and a single column family, it walks the
// family and compacts it in bounded-size chunks without requiring the
// server to keep the whole store open for one giant rewrite.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mboxsearch/internal/compaction"
	"mboxsearch/internal/mergeops"
	"mboxsearch/internal/posting"
	"mboxsearch/internal/shardset"
	"mboxsearch/internal/store"
	"mboxsearch/pkg/config"
	"mboxsearch/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	path := flag.String("path", "", "path to the store (required)")
	column := flag.String("column", "", "column family to compact: documents or indexes (required)")
	sizeMiB := flag.Int64("size", 1024, "chunk size in MiB")
	configPath := flag.String("config", "configs/development.yaml", "path to config file, used only for merge-operator key prefixes")
	flag.Parse()

	logger.Setup("info", "text")

	if *path == "" {
		fmt.Fprintln(os.Stderr, "compactor: --path is required")
		return -22 // EINVAL
	}
	if *column == "" {
		fmt.Fprintln(os.Stderr, "compactor: --column is required")
		return -22
	}
	cf, err := compaction.ParseColumnFamily(*column)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compactor: %v\n", err)
		return -22
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Warn("failed to load config, using defaults for merge-operator prefixes", "error", err)
		cfg, err = config.Load("")
		if err != nil {
			slog.Error("failed to build default config", "error", err)
			return -5
		}
	}

	posting.SetCompressionThreshold(cfg.Store.CompressionThreshold)
	shardset.SetCompressionThreshold(cfg.Store.CompressionThreshold)

	merge := mergeops.New(cfg.Store.TokenShardsPrefix, cfg.Store.IndexPrefix)
	st, err := store.Open(*path, store.Options{Mode: store.BulkLoad, MergeOperator: merge})
	if err != nil {
		slog.Error("failed to open store", "error", err)
		return -5 // EIO
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := compaction.Options{ChunkBytes: *sizeMiB * 1 << 20}
	slog.Info("starting compaction", "path", *path, "column", cf, "chunk_mib", *sizeMiB)

	stats, err := compaction.RunColumnFamily(ctx, st, cf, opts)
	if err != nil {
		slog.Error("compaction failed", "error", err)
		return -5
	}

	slog.Info("compaction complete",
		"chunks", stats.Chunks,
		"keys_visited", stats.KeysVisited,
		"bytes_visited", stats.BytesVisited,
		"duration", stats.Duration.Round(time.Millisecond),
	)
	return 0
}
