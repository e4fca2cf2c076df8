// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (indexing, query, autocomplete, storage backends, observability).
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
	Server       ServerConfig       `yaml:"server"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Redis        RedisConfig        `yaml:"redis"`
	Indexer      IndexerConfig      `yaml:"indexer"`
	Query        QueryConfig        `yaml:"query"`
	Autocomplete AutocompleteConfig `yaml:"autocomplete"`
	Logging      LoggingConfig      `yaml:"logging"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ServerConfig holds the query service's /metrics HTTP listener
// settings. The core never imports net/http itself; this config only
// feeds cmd/corpusquery's metrics endpoint.
type ServerConfig struct {
	MetricsPort     int           `yaml:"metricsPort"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the
// optional metadata source.
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
	MetadataQuery   string        `yaml:"metadataQuery"`
	LookupTimeout   time.Duration `yaml:"lookupTimeout"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings for the optional
// cleaned-document ingestion transport.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	CleanedDocs   string   `yaml:"cleanedDocsTopic"`
	// BuildEvents is the topic corpusindex announces completed builds
	// on, so a long-lived corpusquery instance can watch for a new
	// index directory to reload. Empty disables the announcement.
	BuildEvents string `yaml:"buildEventsTopic"`
}

// RedisConfig holds Redis connection and query-result-cache parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig controls the offline indexing pipeline: output and
// staging directories, SPIMI flush budget, and shard fan-out.
type IndexerConfig struct {
	OutDir             string `yaml:"outDir"`
	StagingDir         string `yaml:"stagingDir"`
	FlushBudgetBytes   int64  `yaml:"flushBudgetBytes"`
	ShardCount         int    `yaml:"shardCount"`
	DropAllDigitTokens bool   `yaml:"dropAllDigitTokens"`
}

// QueryConfig controls the query executor's ranking constants and the
// posting-reader residency strategy.
type QueryConfig struct {
	K1                  float64       `yaml:"k1"`
	B                   float64       `yaml:"b"`
	TitleFrac           float64       `yaml:"titleFrac"`
	TitleBoost          float64       `yaml:"titleBoost"`
	AbstractFrac        float64       `yaml:"abstractFrac"`
	AbstractBoost       float64       `yaml:"abstractBoost"`
	BodyBoost           float64       `yaml:"bodyBoost"`
	RecencyDecay        float64       `yaml:"recencyDecay"`
	RecencyWeight       float64       `yaml:"recencyWeight"`
	RecencyScale        float64       `yaml:"recencyScale"`
	PhraseConstant      float64       `yaml:"phraseConstant"`
	DefaultTopK         int           `yaml:"defaultTopK"`
	DefaultDeadline     time.Duration `yaml:"defaultDeadline"`
	ShardResidency      string        `yaml:"shardResidency"` // "resident" or "lru"
	LRUMaxResidentShards int          `yaml:"lruMaxResidentShards"`
	CacheEnabled        bool          `yaml:"cacheEnabled"`
}

// AutocompleteConfig holds prefix index parameters. Only TopKPerPrefix
// is read (by cmd/corpusindex); MaxPrefixLen and SlowQueryThreshold are
// not read anywhere, and the autocomplete package uses its own constants
// of the same names instead.
type AutocompleteConfig struct {
	MaxPrefixLen       int           `yaml:"maxPrefixLen"`
	TopKPerPrefix      int           `yaml:"topKPerPrefix"`
	SlowQueryThreshold time.Duration `yaml:"slowQueryThreshold"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls the in-process span tree, logged via slog.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls where corpusindex pushes its one-shot indexing
// metrics after a build completes. corpusquery instead serves metrics
// continuously over ServerConfig.MetricsPort, since it is long-lived and
// has something to scrape; corpusindex exits once the build is done, so
// it pushes to a Prometheus Pushgateway instead of waiting to be
// scraped. An empty PushGatewayURL disables the push.
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	PushGatewayURL string `yaml:"pushGatewayUrl"`
	Job            string `yaml:"job"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with the default value for every
// ranking and indexing constant.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MetricsPort:     9090,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "corpussearch",
			User:            "corpussearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			MetadataQuery:   "SELECT title, authors, pub_date FROM documents WHERE doc_key = $1",
			LookupTimeout:   2 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "corpussearch-indexer",
			CleanedDocs:   "cleaned-documents",
			BuildEvents:   "index-build-events",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexer: IndexerConfig{
			OutDir:             "./data/index",
			StagingDir:         "./data/staging",
			FlushBudgetBytes:   256 << 20,
			ShardCount:         4,
			DropAllDigitTokens: false,
		},
		Query: QueryConfig{
			K1:                   1.2,
			B:                    0.75,
			TitleFrac:            0.10,
			TitleBoost:           3.0,
			AbstractFrac:         0.30,
			AbstractBoost:        2.0,
			BodyBoost:            1.0,
			RecencyDecay:         0.1,
			RecencyWeight:        0.10,
			RecencyScale:         10,
			PhraseConstant:       100,
			DefaultTopK:          10,
			DefaultDeadline:      500 * time.Millisecond,
			ShardResidency:       "resident",
			LRUMaxResidentShards: 2,
			CacheEnabled:         false,
		},
		Autocomplete: AutocompleteConfig{
			MaxPrefixLen:       15,
			TopKPerPrefix:      20,
			SlowQueryThreshold: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			PushGatewayURL: "",
			Job:            "corpusindex",
		},
	}
}

// applyEnvOverrides reads CORPUS_* environment variables and overrides
// the corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CORPUS_SERVER_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = port
		}
	}
	if v := os.Getenv("CORPUS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CORPUS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CORPUS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CORPUS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CORPUS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CORPUS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("CORPUS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CORPUS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CORPUS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CORPUS_INDEXER_OUT_DIR"); v != "" {
		cfg.Indexer.OutDir = v
	}
	if v := os.Getenv("CORPUS_INDEXER_SHARD_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.ShardCount = n
		}
	}
	if v := os.Getenv("CORPUS_QUERY_SHARD_RESIDENCY"); v != "" {
		cfg.Query.ShardResidency = v
	}
	if v := os.Getenv("CORPUS_QUERY_CACHE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Query.CacheEnabled = b
		}
	}
	if v := os.Getenv("CORPUS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CORPUS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
