package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORE_DRIVER", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != DriverMemory || cfg.LockDriver != DriverMemory || cfg.NotifyTransport != TransportNone {
		t.Fatalf("unexpected drivers: %+v", cfg)
	}
	if cfg.LockWait != 3*time.Second {
		t.Fatalf("LockWait = %v", cfg.LockWait)
	}
	if len(cfg.RetryBackoff) != 3 || cfg.RetryBackoff[2] != 30*time.Second {
		t.Fatalf("RetryBackoff = %v", cfg.RetryBackoff)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", cfg.Location())
	}
}

func TestLoadParsesLists(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("NOTIFY_TRANSPORT", "KAFKA")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NotifyTransport != TransportKafka {
		t.Fatalf("NotifyTransport = %q", cfg.NotifyTransport)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
}

func TestValidateDriverSettings(t *testing.T) {
	base := Config{
		Env:             "test",
		Timezone:        "UTC",
		StoreDriver:     DriverMemory,
		LockDriver:      DriverMemory,
		NotifyTransport: TransportNone,
		LockWait:        time.Second,
		LockTTL:         time.Second,
		JWTTTL:          time.Hour,
	}
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"mongo store", func(c *Config) { c.StoreDriver = DriverMongo }, "MONGO_URI is required"},
		{"postgres store", func(c *Config) { c.StoreDriver = DriverPostgres }, "POSTGRES_DSN is required"},
		{"unknown store", func(c *Config) { c.StoreDriver = "sqlite" }, "unsupported STORE_DRIVER"},
		{"redis lock", func(c *Config) { c.LockDriver = DriverRedis; c.RedisAddr = "" }, "REDIS_ADDR is required"},
		{"postgres lock", func(c *Config) { c.LockDriver = DriverPostgres }, "requires STORE_DRIVER postgres"},
		{"kafka", func(c *Config) { c.NotifyTransport = TransportKafka }, "KAFKA_BROKERS is required"},
		{"rabbit", func(c *Config) { c.NotifyTransport = TransportRabbitMQ }, "RABBIT_URL is required"},
		{"prod secret", func(c *Config) { c.Env = "prod" }, "JWT_SECRET is required"},
		{"timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "invalid APP_TIMEZONE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLockDriverFollowsStore(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://bookly@localhost/bookly")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LockDriver != DriverPostgres {
		t.Fatalf("LockDriver = %q, want postgres", cfg.LockDriver)
	}
	if w := cfg.Warnings(); len(w) != 0 {
		t.Fatalf("unexpected warnings %v", w)
	}

	t.Setenv("LOCK_DRIVER", "memory")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w := cfg.Warnings(); len(w) != 1 || !strings.Contains(w[0], "one process") {
		t.Fatalf("expected a single-process lock warning, got %v", w)
	}
}
