package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageBackendPostgres = "postgres"
	StorageBackendMongo    = "mongo"

	ClickLogBackendRedis = "redis"
	ClickLogBackendKafka = "kafka"
)

type Config struct {
	App        AppConfig
	Server     ServerConfig
	Storage    StorageConfig
	Postgres   PostgresConfig
	MongoDB    MongoDBConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	ClickHouse ClickHouseConfig
	Redirect   RedirectConfig
	Clicks     ClicksConfig
	Aggregator AggregatorConfig
	Cron       CronConfig
	GeoIP      GeoIPConfig
	OTel       OTelConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port      string
	Host      string
	AdminPort string
}

type StorageConfig struct {
	Backend string // postgres or mongo
}

type PostgresConfig struct {
	DSN string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string
	MaxWait      time.Duration
	BatchTimeout time.Duration
}

type ClickHouseConfig struct {
	Enabled  bool
	Addr     string
	User     string
	Password string
	Database string
}

type RedirectConfig struct {
	ShortDomain       string
	DomainAliases     map[string]string
	Status            int // 301 or 302
	LookupTimeout     time.Duration
	EmbedCheckTimeout time.Duration
	LastKnownTTL      time.Duration
	PasswordSecret    string
}

type ClicksConfig struct {
	LogBackend   string // redis or kafka
	LogKey       string
	EmitTimeout  time.Duration
	MaxInFlight  int
	DedupeWindow time.Duration
}

type AggregatorConfig struct {
	DrainLimit  int
	BatchSize   int
	Parallelism int
	ItemTimeout time.Duration
	Interval    time.Duration
	LeaseKey    string
	LeaseTTL    time.Duration
	WorkerID    string
}

type CronConfig struct {
	SigningSecret      string
	Issuer             string
	RateLimitPerMinute int
}

type GeoIPConfig struct {
	DatabasePath string
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	shortDomain := strings.ToLower(GetEnv("SHORT_DOMAIN", "sho.rt"))

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "linkedge"),
			Version:  GetEnv("APP_VERSION", "0.1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:      GetEnv("APP_PORT", "8080"),
			Host:      GetEnv("APP_HOST", "localhost"),
			AdminPort: GetEnv("ADMIN_PORT", "9090"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(GetEnv("STORAGE_BACKEND", StorageBackendPostgres)),
		},
		Postgres: PostgresConfig{
			DSN: GetEnv("DB_DSN", DefaultPostgresDSN()),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: GetEnv("MONGODB_DATABASE", "linkedge"),
		},
		Redis: RedisConfig{
			Addr:     GetEnv("REDIS_ADDR", "localhost:6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
			PoolSize: GetEnvInt("REDIS_POOL_SIZE", 50),
		},
		Kafka: KafkaConfig{
			Brokers:      SplitCSV(GetEnv("KAFKA_BROKERS", "kafka:9092")),
			Topic:        GetEnv("KAFKA_CLICK_TOPIC", "clicks.recorded"),
			GroupID:      GetEnv("KAFKA_CLICK_GROUP_ID", "click-aggregator"),
			MaxWait:      GetEnvDuration("KAFKA_CONSUMER_MAX_WAIT", 250*time.Millisecond),
			BatchTimeout: GetEnvDuration("KAFKA_WRITER_BATCH_TIMEOUT", 10*time.Millisecond),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  GetEnvBool("CLICKHOUSE_ENABLED", false),
			Addr:     GetEnv("CLICKHOUSE_ADDR", "localhost:9000"),
			User:     GetEnv("CLICKHOUSE_USER", "default"),
			Password: GetEnv("CLICKHOUSE_PASSWORD", ""),
			Database: GetEnv("CLICKHOUSE_DB", "linkedge"),
		},
		Redirect: RedirectConfig{
			ShortDomain:       shortDomain,
			DomainAliases:     DefaultDomainAliases(shortDomain),
			Status:            GetEnvInt("REDIRECT_STATUS", 302),
			LookupTimeout:     GetEnvDuration("LOOKUP_TIMEOUT", 500*time.Millisecond),
			EmbedCheckTimeout: GetEnvDuration("EMBED_CHECK_TIMEOUT", 1500*time.Millisecond),
			LastKnownTTL:      GetEnvDuration("LAST_KNOWN_TTL", 10*time.Minute),
			PasswordSecret:    GetEnv("LINK_PASSWORD_SECRET", ""),
		},
		Clicks: ClicksConfig{
			LogBackend:   strings.ToLower(GetEnv("CLICK_LOG_BACKEND", ClickLogBackendRedis)),
			LogKey:       GetEnv("CLICK_LOG_KEY", "clicks:events"),
			EmitTimeout:  GetEnvDuration("CLICK_EMIT_TIMEOUT", 50*time.Millisecond),
			MaxInFlight:  GetEnvInt("CLICK_EMIT_MAX_IN_FLIGHT", 10_000),
			DedupeWindow: GetEnvDuration("CLICK_DEDUPE_WINDOW", 0),
		},
		Aggregator: AggregatorConfig{
			DrainLimit:  GetEnvInt("AGGREGATOR_DRAIN_LIMIT", 1000),
			BatchSize:   GetEnvInt("AGGREGATOR_BATCH_SIZE", 50),
			Parallelism: GetEnvInt("AGGREGATOR_PARALLELISM", 10),
			ItemTimeout: GetEnvDuration("AGGREGATOR_ITEM_TIMEOUT", 5*time.Second),
			Interval:    GetEnvDuration("AGGREGATOR_INTERVAL", 5*time.Second),
			LeaseKey:    GetEnv("AGGREGATOR_LEASE_KEY", "click-aggregator"),
			LeaseTTL:    GetEnvDuration("AGGREGATOR_LEASE_TTL", 60*time.Second),
			WorkerID:    GetEnv("AGGREGATOR_WORKER_ID", DefaultWorkerID("click-aggregator")),
		},
		Cron: CronConfig{
			SigningSecret:      GetEnv("CRON_SIGNING_SECRET", ""),
			Issuer:             GetEnv("CRON_ISSUER", "linkedge-scheduler"),
			RateLimitPerMinute: GetEnvInt("CRON_RATE_LIMIT_PER_MINUTE", 30),
		},
		GeoIP: GeoIPConfig{
			DatabasePath: GetEnv("GEOIP_DATABASE_PATH", ""),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if path := GetEnv("DOMAIN_ALIASES_FILE", ""); path != "" {
		extra, err := LoadDomainAliases(path)
		if err != nil {
			return nil, fmt.Errorf("load domain aliases: %w", err)
		}
		for alias, canonical := range extra {
			cfg.Redirect.DomainAliases[alias] = canonical
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.AdminPort == c.Server.Port {
		return fmt.Errorf("ADMIN_PORT must differ from APP_PORT (both %q)", c.Server.Port)
	}
	if c.Redirect.Status != 301 && c.Redirect.Status != 302 {
		return fmt.Errorf("REDIRECT_STATUS must be 301 or 302 (got %d)", c.Redirect.Status)
	}
	if c.Storage.Backend != StorageBackendPostgres && c.Storage.Backend != StorageBackendMongo {
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q (got %q)", StorageBackendPostgres, StorageBackendMongo, c.Storage.Backend)
	}
	if c.Clicks.LogBackend != ClickLogBackendRedis && c.Clicks.LogBackend != ClickLogBackendKafka {
		return fmt.Errorf("CLICK_LOG_BACKEND must be %q or %q (got %q)", ClickLogBackendRedis, ClickLogBackendKafka, c.Clicks.LogBackend)
	}
	if c.Clicks.LogBackend == ClickLogBackendKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.Clicks.EmitTimeout <= 0 {
		return fmt.Errorf("CLICK_EMIT_TIMEOUT must be > 0")
	}
	if c.Clicks.LogBackend == ClickLogBackendKafka && c.Kafka.BatchTimeout >= c.Clicks.EmitTimeout {
		return fmt.Errorf("KAFKA_WRITER_BATCH_TIMEOUT must be below CLICK_EMIT_TIMEOUT (%s >= %s)", c.Kafka.BatchTimeout, c.Clicks.EmitTimeout)
	}
	if c.Clicks.DedupeWindow < 0 {
		return fmt.Errorf("CLICK_DEDUPE_WINDOW must be >= 0")
	}
	if c.Redirect.LookupTimeout <= 0 {
		return fmt.Errorf("LOOKUP_TIMEOUT must be > 0")
	}
	if c.Redirect.EmbedCheckTimeout <= 0 {
		return fmt.Errorf("EMBED_CHECK_TIMEOUT must be > 0")
	}
	if c.Aggregator.DrainLimit <= 0 {
		return fmt.Errorf("AGGREGATOR_DRAIN_LIMIT must be > 0")
	}
	if c.Aggregator.BatchSize <= 0 {
		return fmt.Errorf("AGGREGATOR_BATCH_SIZE must be > 0")
	}
	if c.Aggregator.Parallelism <= 0 {
		return fmt.Errorf("AGGREGATOR_PARALLELISM must be > 0")
	}
	if c.Cron.RateLimitPerMinute <= 0 {
		return fmt.Errorf("CRON_RATE_LIMIT_PER_MINUTE must be > 0")
	}
	if c.Aggregator.LeaseTTL <= 0 {
		return fmt.Errorf("AGGREGATOR_LEASE_TTL must be > 0")
	}
	// the lease is extended between batches, so it must outlive one batch
	waves := (c.Aggregator.BatchSize + c.Aggregator.Parallelism - 1) / c.Aggregator.Parallelism
	if batch := time.Duration(waves) * c.Aggregator.ItemTimeout; c.Aggregator.LeaseTTL <= batch {
		return fmt.Errorf("AGGREGATOR_LEASE_TTL must exceed the worst-case batch time %s", batch)
	}
	return nil
}

// DefaultDomainAliases maps local and staging hosts onto the canonical short domain.
func DefaultDomainAliases(shortDomain string) map[string]string {
	return map[string]string{
		"localhost":              shortDomain,
		"localhost:8080":         shortDomain,
		"127.0.0.1:8080":         shortDomain,
		"staging." + shortDomain: shortDomain,
		"preview." + shortDomain: shortDomain,
	}
}
