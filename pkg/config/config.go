// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem: the HTTP server, the store, the index writer, search
// execution limits, and the ambient/domain stack (Postgres, Kafka, Redis,
// logging, metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StoreConfig holds the ordered-KV store's on-disk and tuning parameters.
// Field names and defaults mirror spec.md §6's recognized options.
type StoreConfig struct {
	Path                  string        `yaml:"path"`
	BitsPerKey            int           `yaml:"bitsPerKey"`
	LRUCacheSize          int64         `yaml:"lruCacheSize"`
	SyncMetadataTimeoutMs int           `yaml:"syncMetadataTimeoutMs"`
	MetadataKey           string        `yaml:"metadataKey"`
	DocumentsPrefix       string        `yaml:"documentsPrefix"`
	TokenShardsPrefix     string        `yaml:"tokenShardsPrefix"`
	IndexPrefix           string        `yaml:"indexPrefix"`
	CompressionThreshold  int           `yaml:"compressionThreshold"`
}

// IndexConfig controls document ingest and shard sizing.
type IndexConfig struct {
	TokensShardSize int64 `yaml:"tokensShardSize"`
	RateLimitPerSec int   `yaml:"rateLimitPerSecond"`
}

// SearchConfig controls query execution limits and concurrency.
type SearchConfig struct {
	DefaultPageSize      int `yaml:"defaultPageSize"`
	MaxPageSize          int `yaml:"maxPageSize"`
	MaxConcurrentQueries int `yaml:"maxConcurrentQueries"`
}

// PostgresConfig holds PostgreSQL connection parameters for the mailbox
// catalog sink.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	Enabled         bool          `yaml:"enabled"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings for the analytics
// event pipeline.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
	Enabled       bool        `yaml:"enabled"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete  string `yaml:"indexComplete"`
	SearchExecuted string `yaml:"searchExecuted"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	Enabled  bool          `yaml:"enabled"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment
// variable overrides, returning a Config populated with defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Path:                  "./data/mboxsearch",
			BitsPerKey:            10,
			LRUCacheSize:          100 * 1024 * 1024,
			SyncMetadataTimeoutMs: 60000,
			MetadataKey:           "greylock.meta.key",
			DocumentsPrefix:       "documents.",
			TokenShardsPrefix:     "token_shards.",
			IndexPrefix:           "index.",
			CompressionThreshold:  4096,
		},
		Index: IndexConfig{
			TokensShardSize: 4000000,
			RateLimitPerSec: 500,
		},
		Search: SearchConfig{
			DefaultPageSize:      20,
			MaxPageSize:          200,
			MaxConcurrentQueries: 16,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "mboxsearch",
			User:            "mboxsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			Enabled:         false,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "mboxsearch-catalog",
			Topics: KafkaTopics{
				IndexComplete:  "index.complete",
				SearchExecuted: "search.executed",
			},
			Enabled: false,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 30 * time.Second,
			Enabled:  false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads MBOX_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MBOX_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MBOX_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("MBOX_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("MBOX_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("MBOX_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MBOX_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("MBOX_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MBOX_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
