package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"

	TransportNone     = "none"
	TransportKafka    = "kafka"
	TransportRabbitMQ = "rabbitmq"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"memory"`
	MongoURI    string `envconfig:"MONGO_URI"`
	MongoDB     string `envconfig:"MONGO_DB" default:"bookly"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	LockDriver    string        `envconfig:"LOCK_DRIVER"`
	LockTTL       time.Duration `envconfig:"LOCK_TTL" default:"10s"`
	LockWait      time.Duration `envconfig:"LOCK_WAIT" default:"3s"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`

	NotifyTransport    string   `envconfig:"NOTIFY_TRANSPORT" default:"none"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopicPrefix   string   `envconfig:"KAFKA_TOPIC_PREFIX"`
	KafkaGroupID       string   `envconfig:"KAFKA_GROUP_ID" default:"bookly-notifier"`
	NotificationsTopic string   `envconfig:"NOTIFICATIONS_TOPIC" default:"notifications"`
	RabbitURL          string   `envconfig:"RABBIT_URL"`
	RabbitExchange     string   `envconfig:"RABBIT_EXCHANGE" default:"bookly.events"`
	RabbitQueue        string   `envconfig:"RABBIT_QUEUE" default:"bookly.notifications"`

	IdempotencyTTL     time.Duration   `envconfig:"IDEMP_TTL" default:"168h"`
	OutboxPollInterval time.Duration   `envconfig:"OUTBOX_POLL_INTERVAL" default:"500ms"`
	RetryBackoff       []time.Duration `envconfig:"RETRY_BACKOFF" default:"1s,5s,30s"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"40"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	FixturesPath string `envconfig:"FIXTURES_PATH" default:"data/fixtures.json"`
}

// Load reads an optional .env file and parses configuration from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver == "" {
		c.StoreDriver = DriverMemory
	}
	c.LockDriver = strings.ToLower(strings.TrimSpace(c.LockDriver))
	if c.LockDriver == "" {
		// Locks live next to the data unless configured otherwise.
		c.LockDriver = c.StoreDriver
	}
	c.NotifyTransport = strings.ToLower(strings.TrimSpace(c.NotifyTransport))
	if c.NotifyTransport == "" {
		c.NotifyTransport = TransportNone
	}
	brokers := c.KafkaBrokers[:0]
	for _, b := range c.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.KafkaBrokers = brokers
}

// Validate checks that every selected driver has its settings.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.LockDriver {
	case DriverMemory:
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required")
		}
	case DriverPostgres:
		if c.StoreDriver != DriverPostgres {
			return errors.New("LOCK_DRIVER postgres requires STORE_DRIVER postgres")
		}
	default:
		return fmt.Errorf("unsupported LOCK_DRIVER %q", c.LockDriver)
	}
	if c.LockWait <= 0 {
		return errors.New("LOCK_WAIT must be positive")
	}
	if c.LockTTL <= 0 {
		return errors.New("LOCK_TTL must be positive")
	}

	switch c.NotifyTransport {
	case TransportNone:
	case TransportKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
	case TransportRabbitMQ:
		if c.RabbitURL == "" {
			return errors.New("RABBIT_URL is required")
		}
	default:
		return fmt.Errorf("unsupported NOTIFY_TRANSPORT %q", c.NotifyTransport)
	}

	if c.JWTSecret == "" && c.Env != "dev" && c.Env != "local" && c.Env != "test" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Warnings lists settings that are valid but unsafe outside a single process.
func (c Config) Warnings() []string {
	var out []string
	if c.StoreDriver != DriverMemory && c.LockDriver == DriverMemory {
		out = append(out, "LOCK_DRIVER memory only serializes bookings within one process; replicas sharing "+c.StoreDriver+" can double-book")
	}
	return out
}

// Location resolves APP_TIMEZONE, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SigningSecret returns JWT_SECRET or a fixed development secret.
func (c Config) SigningSecret() []byte {
	if c.JWTSecret != "" {
		return []byte(c.JWTSecret)
	}
	return []byte("bookly-dev-secret")
}
