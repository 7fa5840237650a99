package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	TokenStoreDB DatabaseConfig     `mapstructure:"token_store_database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Lock         LockConfig         `mapstructure:"lock"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	FastPath     FastPathConfig     `mapstructure:"fast_path"`
	Processor    ProcessorConfig    `mapstructure:"processor"`
	TokenStore   TokenStoreConfig   `mapstructure:"token_store"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	AES          AESConfig          `mapstructure:"aes"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// QueueConfig tunes the Redis Streams-backed message queue.
type QueueConfig struct {
	DedupTTL  time.Duration `mapstructure:"dedup_ttl"`
	StreamMax int64         `mapstructure:"stream_max"`
	BlockTime time.Duration `mapstructure:"block_time"`
	// VisibilityTimeout is how long a delivered message stays invisible to
	// other consumers before Consume reclaims it via XAUTOCLAIM; this is
	// what turns the Authorization Worker's Nack into an actual redelivery.
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
}

// LockConfig tunes the Redis-backed distributed lock.
type LockConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// WorkerConfig tunes the Authorization Worker's retry behavior. A transient
// processor failure is never retried in-process: it is appended as a
// retryable AuthAttemptFailed and left for the queue to redeliver, up to
// MaxRetries attempts total before the request is failed out terminally.
type WorkerConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
}

// FastPathConfig tunes the in-process synchronous-wait window ingress
// offers callers before falling back to polling.
type FastPathConfig struct {
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// ProcessorConfig configures the Processor Adapter registry.
type ProcessorConfig struct {
	StripeSecretKey string        `mapstructure:"stripe_secret_key"`
	MockLatency     time.Duration `mapstructure:"mock_latency"`
}

// TokenStoreConfig configures the Token Store's device-key derivation.
type TokenStoreConfig struct {
	DeviceKeyMasterSecret string `mapstructure:"device_key_master_secret"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PAP_ (Payment
// Authorization Platform). Nested keys use underscore: PAP_DATABASE_HOST,
// PAP_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "payauth")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("token_store_database.host", "localhost")
	v.SetDefault("token_store_database.port", 5432)
	v.SetDefault("token_store_database.user", "postgres")
	v.SetDefault("token_store_database.password", "postgres")
	v.SetDefault("token_store_database.dbname", "payauth_token_store")
	v.SetDefault("token_store_database.sslmode", "disable")
	v.SetDefault("token_store_database.max_conns", 10)
	v.SetDefault("token_store_database.min_conns", 2)
	v.SetDefault("token_store_database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("queue.dedup_ttl", "24h")
	v.SetDefault("queue.stream_max", 100000)
	v.SetDefault("queue.block_time", "5s")
	v.SetDefault("queue.visibility_timeout", "30s")
	v.SetDefault("lock.ttl", "30s")
	v.SetDefault("lock.retry_delay", "50ms")
	v.SetDefault("worker.max_retries", 5)
	v.SetDefault("fast_path.wait_timeout", "8s")
	v.SetDefault("processor.stripe_secret_key", "")
	v.SetDefault("processor.mock_latency", "0s")
	v.SetDefault("token_store.device_key_master_secret", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "payauth-platform")
	v.SetDefault("aes.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: PAP_DATABASE_HOST -> database.host
	v.SetEnvPrefix("PAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required -- env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
