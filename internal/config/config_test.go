package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"APP_ENV", "APP_PORT", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS",
	"JWT_SECRET", "KAFKA_BROKERS", "KAFKA_TOPIC", "REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func noFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", DriverMemory)

	cfg, err := Load(noFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Development())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.DBMaxConns)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "bizledger.events", cfg.KafkaTopic)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://ledger@db/ledger")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := Load(noFile(t))
	require.NoError(t, err)

	assert.False(t, cfg.Development())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.DBMaxConns, "unparsable values fall back to the default")
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=memory\nAPP_PORT=9090\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	base := Config{Env: "development", StoreDriver: DriverMemory, RequestTimeout: time.Second}
	require.NoError(t, base.Validate())

	pg := base
	pg.StoreDriver = DriverPostgres
	assert.ErrorContains(t, pg.Validate(), "DATABASE_URL")

	unknown := base
	unknown.StoreDriver = "sqlite"
	assert.ErrorContains(t, unknown.Validate(), "STORE_DRIVER")

	prod := base
	prod.Env = "production"
	assert.ErrorContains(t, prod.Validate(), "JWT_SECRET")

	noTimeout := base
	noTimeout.RequestTimeout = 0
	assert.Error(t, noTimeout.Validate())
}
