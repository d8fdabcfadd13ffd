package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mboxsearch/internal/cache"
	"mboxsearch/internal/catalog"
	"mboxsearch/internal/events"
	"mboxsearch/internal/httpapi"
	"mboxsearch/internal/indexwriter"
	"mboxsearch/internal/intersect"
	"mboxsearch/internal/mergeops"
	"mboxsearch/internal/metadata"
	"mboxsearch/internal/posting"
	"mboxsearch/internal/shardset"
	"mboxsearch/internal/store"
	"mboxsearch/pkg/config"
	"mboxsearch/pkg/health"
	pkgkafka "mboxsearch/pkg/kafka"
	"mboxsearch/pkg/logger"
	"mboxsearch/pkg/metrics"
	pkgpostgres "mboxsearch/pkg/postgres"
	pkgredis "mboxsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting mboxsearchd", "port", cfg.Server.Port, "store_path", cfg.Store.Path)

	posting.SetCompressionThreshold(cfg.Store.CompressionThreshold)
	shardset.SetCompressionThreshold(cfg.Store.CompressionThreshold)

	merge := mergeops.New(cfg.Store.TokenShardsPrefix, cfg.Store.IndexPrefix)
	st, err := store.Open(cfg.Store.Path, store.Options{Mode: store.ReadWrite, MergeOperator: merge})
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	meta, err := metadata.Open(st, cfg.Store.MetadataKey, slog.Default().With("component", "metadata"))
	if err != nil {
		slog.Error("failed to open metadata", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncInterval := time.Duration(cfg.Store.SyncMetadataTimeoutMs) * time.Millisecond
	meta.StartFlushLoop(ctx, syncInterval)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}
	checker := health.NewChecker()
	checker.Register("store", func(context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp}
	})

	var collector *events.Collector
	if cfg.Kafka.Enabled {
		producer := pkgkafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		collector = events.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("event collector started", "topic", cfg.Kafka.Topics.IndexComplete)

		if cfg.Postgres.Enabled {
			db, err := pkgpostgres.New(cfg.Postgres)
			if err != nil {
				slog.Warn("postgres unavailable, mailbox catalog disabled", "error", err)
			} else {
				defer db.Close()
				mailboxCatalog := catalog.New(db)
				consumer := catalog.NewConsumer(mailboxCatalog)
				reader := pkgkafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, consumer.Handle)
				go func() {
					if err := reader.Start(ctx); err != nil {
						slog.Error("catalog consumer stopped", "error", err)
					}
				}()
				checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
					if err := db.DB.PingContext(ctx); err != nil {
						return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
					}
					return health.ComponentHealth{Status: health.StatusUp}
				})
				slog.Info("mailbox catalog consumer started")
			}
		}
	}

	var resultCache *cache.ResultCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			resultCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var publisher indexwriter.Publisher
	if collector != nil {
		publisher = collector
	}
	writer := indexwriter.New(st, meta, cfg.Index.TokensShardSize, publisher)
	intersector := intersect.New(st, httpapi.Recheck, cfg.Search.MaxConcurrentQueries)
	h := httpapi.New(st, writer, intersector, resultCache, collector, m, cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)

	handlerChain := httpapi.Router(h, m, checker, cfg.Server.WriteTimeout, cfg.Index.RateLimitPerSec)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handlerChain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if err := meta.Flush(); err != nil {
			slog.Error("final metadata flush failed", "error", err)
		}
	}()

	slog.Info("mboxsearchd listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("mboxsearchd stopped")
}
