package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var defaultBrands = []string{
	"toyota", "ford", "chevrolet", "honda", "nissan", "hyundai", "subaru", "kia",
	"mercedes-benz", "bmw", "volkswagen", "audi", "mazda", "dodge", "lexus",
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBDriver         string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string

	Mode             string
	RawTable         string
	CleanedTable     string
	MaintenanceTable string

	DecoderURL        string
	DecodeBatchSize   int
	DecodeConcurrency int
	DecodeTimeout     time.Duration
	DecodeRetries     int

	ZipCodes       []string
	PagesPerZip    int
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	ScrapeTimeout  time.Duration
	ChromeBin      string
	CarsBaseURL    string
	CarEdgeBaseURL string
	Brands         []string
	CSVOutputPath  string

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	mode := getEnv("MODE", "prod")
	rawTable := "vehicle_data"
	if mode == "test" {
		rawTable = "vehicle_data_test_env"
	}

	return &Config{
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "vehicle_data_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "./output/vehicle_data.db"),

		Mode:             mode,
		RawTable:         getEnv("RAW_TABLE", rawTable),
		CleanedTable:     getEnv("CLEANED_TABLE", "cleaned_vehicle_data"),
		MaintenanceTable: getEnv("MAINTENANCE_TABLE", "car_maintenance_data"),

		DecoderURL:        getEnv("DECODER_URL", "https://vpic.nhtsa.dot.gov/api/vehicles/DecodeVINValuesBatch/"),
		DecodeBatchSize:   getEnvInt("DECODE_BATCH_SIZE", 50),
		DecodeConcurrency: getEnvInt("DECODE_CONCURRENCY", 15),
		DecodeTimeout:     time.Duration(getEnvInt("DECODE_TIMEOUT_MS", 30000)) * time.Millisecond,
		DecodeRetries:     getEnvInt("DECODE_RETRIES", 0),

		ZipCodes:       getEnvList("ZIP_CODES", []string{"63301"}),
		PagesPerZip:    getEnvInt("PAGES_PER_ZIP", 2),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		ScrapeTimeout:  time.Duration(getEnvInt("SCRAPE_TIMEOUT_MS", 60000)) * time.Millisecond,
		ChromeBin:      getEnv("CHROME_BIN", ""),
		CarsBaseURL:    strings.TrimRight(getEnv("CARS_BASE_URL", "https://www.cars.com"), "/"),
		CarEdgeBaseURL: strings.TrimRight(getEnv("CAREDGE_BASE_URL", "https://caredge.com"), "/"),
		Brands:         getEnvList("MAINTENANCE_BRANDS", defaultBrands),
		CSVOutputPath:  getEnv("CSV_OUTPUT_PATH", "./output/raw_vehicle_data.csv"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.DecodeBatchSize < 1 {
		return fmt.Errorf("config: DECODE_BATCH_SIZE must be positive, got %d", c.DecodeBatchSize)
	}
	if c.DecodeConcurrency < 1 {
		return fmt.Errorf("config: DECODE_CONCURRENCY must be positive, got %d", c.DecodeConcurrency)
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
