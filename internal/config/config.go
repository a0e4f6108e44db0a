package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	LogLevel        string
	ShutdownTimeout time.Duration

	StorageDriver string
	DatabaseURI   string

	ProviderURL       string
	ProviderAPIKey    string
	ProviderTimeout   time.Duration
	ProviderMockDelay time.Duration

	SweepSchedule       string
	SweepStaleAfter     time.Duration
	SweepBatchSize      int
	SweepConcurrency    int
	DispatchClaimTTL    time.Duration
	MaxDispatchAttempts int

	BroadcastDriver string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisChannel    string
	KafkaBrokers    []string
	KafkaTopic      string
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverKafka    = "kafka"
)

const (
	defaultRunAddress          = ":8080"
	defaultLogLevel            = "info"
	defaultShutdownTimeout     = 10 * time.Second
	defaultProviderTimeout     = 15 * time.Second
	defaultProviderMockDelay   = time.Second
	defaultSweepSchedule       = "@every 1m"
	defaultSweepStaleAfter     = 5 * time.Minute
	defaultSweepBatchSize      = 10
	defaultSweepConcurrency    = 1
	defaultDispatchClaimTTL    = 2 * time.Minute
	defaultMaxDispatchAttempts = 5
	defaultRedisChannel        = "orders:status"
	defaultKafkaTopic          = "orders.status"
)

// Load parses configuration from an optional .env file, environment variables and flags.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return load(os.Args[1:], os.LookupEnv)
}

// loadDotEnv populates the process environment from .env files. Variables
// already set are never overridden and missing files are ignored.
func loadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:          getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		LogLevel:            getString(lookup, "LOG_LEVEL", defaultLogLevel),
		ShutdownTimeout:     getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		StorageDriver:       getString(lookup, "STORAGE_DRIVER", ""),
		DatabaseURI:         getString(lookup, "DATABASE_URI", ""),
		ProviderURL:         getString(lookup, "PROVIDER_URL", ""),
		ProviderAPIKey:      getString(lookup, "PROVIDER_API_KEY", ""),
		ProviderTimeout:     getDuration(lookup, "PROVIDER_TIMEOUT", defaultProviderTimeout),
		ProviderMockDelay:   getDuration(lookup, "PROVIDER_MOCK_DELAY", defaultProviderMockDelay),
		SweepSchedule:       getString(lookup, "SWEEP_SCHEDULE", defaultSweepSchedule),
		SweepStaleAfter:     getDuration(lookup, "SWEEP_STALE_AFTER", defaultSweepStaleAfter),
		SweepBatchSize:      getInt(lookup, "SWEEP_BATCH_SIZE", defaultSweepBatchSize),
		SweepConcurrency:    getInt(lookup, "SWEEP_CONCURRENCY", defaultSweepConcurrency),
		DispatchClaimTTL:    getDuration(lookup, "DISPATCH_CLAIM_TTL", defaultDispatchClaimTTL),
		MaxDispatchAttempts: getInt(lookup, "MAX_DISPATCH_ATTEMPTS", defaultMaxDispatchAttempts),
		BroadcastDriver:     getString(lookup, "BROADCAST_DRIVER", DriverMemory),
		RedisAddr:           getString(lookup, "REDIS_ADDR", ""),
		RedisPassword:       getString(lookup, "REDIS_PASSWORD", ""),
		RedisDB:             getInt(lookup, "REDIS_DB", 0),
		RedisChannel:        getString(lookup, "REDIS_CHANNEL", defaultRedisChannel),
		KafkaBrokers:        getList(lookup, "KAFKA_BROKERS"),
		KafkaTopic:          getString(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
	}

	fs := flag.NewFlagSet("growthmart", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		providerTimeoutStr = cfg.ProviderTimeout.String()
		staleAfterStr      = cfg.SweepStaleAfter.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.ProviderURL, "p", cfg.ProviderURL, "Fulfillment provider base URL; empty selects the mock provider")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "Order storage driver (postgres|memory)")
	fs.StringVar(&cfg.BroadcastDriver, "broadcast", cfg.BroadcastDriver, "Status broadcast driver (memory|redis|kafka)")
	fs.StringVar(&cfg.SweepSchedule, "sweep-schedule", cfg.SweepSchedule, "Cron schedule of the stale order sweep")
	fs.IntVar(&cfg.SweepBatchSize, "sweep-batch", cfg.SweepBatchSize, "Maximum orders retried per sweep")
	fs.IntVar(&cfg.SweepConcurrency, "sweep-concurrency", cfg.SweepConcurrency, "Concurrent dispatches per sweep")
	fs.StringVar(&staleAfterStr, "stale-after", staleAfterStr, "Age after which a pending order is retried")
	fs.StringVar(&providerTimeoutStr, "provider-timeout", providerTimeoutStr, "Provider request timeout")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ProviderTimeout, err = time.ParseDuration(providerTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid provider timeout: %w", err)
	}

	if cfg.SweepStaleAfter, err = time.ParseDuration(staleAfterStr); err != nil {
		return nil, fmt.Errorf("invalid stale after: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	normalize(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func normalize(cfg *Config) {
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = DriverMemory
		if cfg.DatabaseURI != "" {
			cfg.StorageDriver = DriverPostgres
		}
	}
	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	cfg.BroadcastDriver = strings.ToLower(cfg.BroadcastDriver)

	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	if cfg.ProviderMockDelay < 0 {
		cfg.ProviderMockDelay = 0
	}
	if cfg.SweepStaleAfter <= 0 {
		cfg.SweepStaleAfter = defaultSweepStaleAfter
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}
	if cfg.SweepConcurrency <= 0 {
		cfg.SweepConcurrency = defaultSweepConcurrency
	}
	if cfg.DispatchClaimTTL <= 0 {
		cfg.DispatchClaimTTL = defaultDispatchClaimTTL
	}
	if cfg.MaxDispatchAttempts <= 0 {
		cfg.MaxDispatchAttempts = defaultMaxDispatchAttempts
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if strings.TrimSpace(cfg.SweepSchedule) == "" {
		cfg.SweepSchedule = defaultSweepSchedule
	}
}

func validate(cfg *Config) error {
	if cfg.DispatchClaimTTL <= cfg.ProviderTimeout {
		return fmt.Errorf("dispatch claim ttl (%s) must exceed provider timeout (%s)", cfg.DispatchClaimTTL, cfg.ProviderTimeout)
	}

	switch cfg.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURI == "" {
			return fmt.Errorf("database URI must be provided for postgres storage")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}

	switch cfg.BroadcastDriver {
	case DriverMemory:
	case DriverRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("redis address must be provided for redis broadcast")
		}
	case DriverKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka brokers must be provided for kafka broadcast")
		}
	default:
		return fmt.Errorf("unsupported broadcast driver: %s", cfg.BroadcastDriver)
	}

	return nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getList(lookup envLookup, key string) []string {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	var items []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
