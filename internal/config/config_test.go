package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"SERVICE_NAME", "ENV", "HTTP_ADDR",
	"DB_DRIVER", "DB_DSN", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_PASSWORD_FILE", "DB_NAME",
	"CACHE_DRIVER", "REDIS_ADDR", "REDIS_DB", "CACHE_TTL_SEC",
	"GATEWAY", "GATEWAY_URL", "GATEWAY_API_KEY", "GATEWAY_TIMEOUT_MS", "PAYMENT_CLAIM_TTL_SEC",
	"EVENT_SINK", "KAFKA_BROKERS", "KAFKA_TOPIC", "RABBITMQ_URL", "RABBITMQ_EXCHANGE",
	"JWT_SECRET", "JWT_SECRET_FILE", "JWT_ISSUER",
}

func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	cleanEnv(t)
	t.Setenv("JWT_SECRET", "dev-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "minishop", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "minishop.db?_busy_timeout=5000&_foreign_keys=on", cfg.DBDSN)
	assert.Equal(t, CacheMemory, cfg.CacheDriver)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, GatewayMock, cfg.Gateway)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 2*time.Minute, cfg.ClaimTTL)
	assert.Equal(t, SinkNone, cfg.EventSink)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("CACHE_DRIVER", "redis")
	t.Setenv("GATEWAY", "http")
	t.Setenv("GATEWAY_URL", "https://pay.example.com")
	t.Setenv("GATEWAY_TIMEOUT_MS", "2500")
	t.Setenv("EVENT_SINK", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Contains(t, cfg.DBDSN, "root:pw@tcp(db:3306)/minishop")
	assert.Equal(t, CacheRedis, cfg.CacheDriver)
	assert.Equal(t, 2500*time.Millisecond, cfg.GatewayTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadReadsSecretFiles(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "jwt")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("JWT_SECRET_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)

	t.Setenv("JWT_SECRET_FILE", filepath.Join(t.TempDir(), "missing"))
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"no secret":        {"JWT_SECRET": ""},
		"bad driver":       {"DB_DRIVER": "oracle"},
		"bad cache":        {"CACHE_DRIVER": "memcached"},
		"http without url": {"GATEWAY": "http"},
		"bad sink":         {"EVENT_SINK": "sqs"},
		"bad ttl":          {"CACHE_TTL_SEC": "0"},
		"bad port":         {"DB_PORT": "abc"},
		"claim too short":  {"GATEWAY_TIMEOUT_MS": "5000", "PAYMENT_CLAIM_TTL_SEC": "5"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			cleanEnv(t)
			t.Setenv("JWT_SECRET", "s")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
