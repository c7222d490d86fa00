package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "vehicle_data", cfg.RawTable)
	assert.Equal(t, "cleaned_vehicle_data", cfg.CleanedTable)
	assert.Equal(t, 50, cfg.DecodeBatchSize)
	assert.Equal(t, 15, cfg.DecodeConcurrency)
	assert.Equal(t, 30*time.Second, cfg.DecodeTimeout)
	assert.Equal(t, time.Minute, cfg.ScrapeTimeout)
	assert.Len(t, cfg.Brands, 15)
	require.NoError(t, cfg.Validate())
}

func TestLoadTestMode(t *testing.T) {
	t.Setenv("MODE", "test")
	cfg := Load()
	assert.Equal(t, "vehicle_data_test_env", cfg.RawTable)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/v.db")
	t.Setenv("DECODE_BATCH_SIZE", "25")
	t.Setenv("DECODE_CONCURRENCY", "not-a-number")
	t.Setenv("ZIP_CODES", "63301, 10001,,")
	t.Setenv("CARS_BASE_URL", "http://localhost:8080/")
	t.Setenv("SCRAPE_TIMEOUT_MS", "1500")

	cfg := Load()
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "/tmp/v.db", cfg.DSN())
	assert.Equal(t, 25, cfg.DecodeBatchSize)
	assert.Equal(t, 15, cfg.DecodeConcurrency)
	assert.Equal(t, []string{"63301", "10001"}, cfg.ZipCodes)
	assert.Equal(t, "http://localhost:8080", cfg.CarsBaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.ScrapeTimeout)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.DBDriver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.DecodeBatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.DecodeConcurrency = 0
	assert.Error(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{
		DBDriver:         DriverPostgres,
		PostgresHost:     "db",
		PostgresPort:     "5432",
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresDB:       "vehicles",
		PostgresSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=vehicles sslmode=disable", cfg.DSN())
}
