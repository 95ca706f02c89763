package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Data backends.
const (
	BackendSQL      = "sql"
	BackendBigQuery = "bigquery"
	BackendMemory   = "memory"
)

// SQL drivers accepted by the sql backend.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var (
	validBackends = []string{BackendSQL, BackendBigQuery, BackendMemory}
	validDrivers  = []string{DriverSQLite, DriverMySQL, DriverPostgres}
	validLevels   = []string{"debug", "info", "warn", "error"}
	validFormats  = []string{"text", "json"}

	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	TrustedProxies     string

	// Backend selection
	DataBackend string

	// Relational store
	DBDriver       string
	DBDSN          string
	DBQueryTimeout time.Duration

	// Year tables
	YearList    string
	TablePrefix string

	// BigQuery
	BQProject                string
	BQDataset                string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory backend
	MemoryDataDir string

	// Table cache
	CacheTTL      time.Duration
	CacheMaxYears int
	CacheWarmup   bool

	// ReloadOnImport reloads a year as soon as its import is announced.
	ReloadOnImport bool

	// AMQP (empty URL disables notifications)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Importer
	ImportBatchSize int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnv("TRUSTED_PROXIES", ""),

		DataBackend: getEnv("DATA_BACKEND", BackendSQL),

		DBDriver:       getEnv("DB_DRIVER", DriverSQLite),
		DBDSN:          getEnv("DB_DSN", "./data/covid19.db"),
		DBQueryTimeout: getEnvDuration("DB_QUERY_TIMEOUT", 2*time.Minute),

		YearList:    getEnv("COVID_YEARS", "2020,2021,2022,2023"),
		TablePrefix: getEnv("TABLE_PREFIX", "covid19_"),

		BQProject: getEnv("BQ_PROJECT", ""),
		BQDataset: getEnv("BQ_DATASET", ""),

		// GOOGLE_APPLICATION_CREDENTIALS is honoured by the client itself.
		GoogleServiceAccountJSON: strings.TrimSpace(getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", "")),
		GoogleServiceAccountFile: strings.TrimSpace(getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", "")),

		MemoryDataDir: getEnv("MEMORY_DATA_DIR", "./data"),

		CacheTTL:      getEnvDuration("CACHE_TTL", 6*time.Hour),
		CacheMaxYears: getEnvInt("CACHE_MAX_YEARS", 8),
		CacheWarmup:   getEnvBool("CACHE_WARMUP", true),

		ReloadOnImport: getEnvBool("RELOAD_ON_IMPORT", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "covidmx"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_imported"),

		ImportBatchSize: getEnvInt("IMPORT_BATCH_SIZE", 500),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// Years parses the configured year list, keeping its order.
func (c *Config) Years() ([]int, error) {
	var years []int
	for _, part := range strings.Split(c.YearList, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil || y < 1900 || y > 9999 {
			return nil, fmt.Errorf("invalid year '%s': must be a 4-digit year", part)
		}
		if slices.Contains(years, y) {
			return nil, fmt.Errorf("duplicate year %d", y)
		}
		years = append(years, y)
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("no years configured")
	}
	return years, nil
}

// Proxies splits the trusted proxy list into CIDRs.
func (c *Config) Proxies() []string {
	var out []string
	for _, part := range strings.Split(c.TrustedProxies, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error

	if port, err := strconv.Atoi(c.Port); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		result = multierror.Append(result, fmt.Errorf("invalid port %d: must be between 1 and 65535", port))
	}

	for _, cidr := range c.Proxies() {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid trusted proxy '%s': %v", cidr, err))
		}
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		result = multierror.Append(result, fmt.Errorf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQL {
		if !slices.Contains(validDrivers, c.DBDriver) {
			result = multierror.Append(result, fmt.Errorf("invalid database driver '%s': must be one of %v", c.DBDriver, validDrivers))
		}
		if c.DBDSN == "" {
			result = multierror.Append(result, fmt.Errorf("DB_DSN cannot be empty when using the sql backend"))
		} else if c.DBDriver == DriverSQLite {
			dir := filepath.Dir(c.DBDSN)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						result = multierror.Append(result, fmt.Errorf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
		if c.DBQueryTimeout <= 0 {
			result = multierror.Append(result, fmt.Errorf("invalid query timeout %v: must be positive", c.DBQueryTimeout))
		}
	}

	if c.DataBackend == BackendBigQuery {
		if c.BQProject == "" {
			result = multierror.Append(result, fmt.Errorf("BQ_PROJECT is required when using the bigquery backend"))
		}
		if !identifierRe.MatchString(c.BQDataset) {
			result = multierror.Append(result, fmt.Errorf("invalid BigQuery dataset '%s'", c.BQDataset))
		}
	}

	if c.DataBackend == BackendMemory && c.MemoryDataDir == "" {
		result = multierror.Append(result, fmt.Errorf("MEMORY_DATA_DIR cannot be empty when using the memory backend"))
	}

	if _, err := c.Years(); err != nil {
		result = multierror.Append(result, err)
	}
	if !identifierRe.MatchString(c.TablePrefix) {
		result = multierror.Append(result, fmt.Errorf("invalid table prefix '%s': must be a SQL identifier", c.TablePrefix))
	}

	if c.CacheTTL <= 0 {
		result = multierror.Append(result, fmt.Errorf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}
	if c.CacheMaxYears < 1 {
		result = multierror.Append(result, fmt.Errorf("invalid cache size %d: must be at least 1", c.CacheMaxYears))
	}
	if c.RateLimitPerMinute < 1 {
		result = multierror.Append(result, fmt.Errorf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	if c.ImportBatchSize < 1 || c.ImportBatchSize > 10000 {
		result = multierror.Append(result, fmt.Errorf("invalid import batch size %d: must be between 1 and 10000", c.ImportBatchSize))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			result = multierror.Append(result, fmt.Errorf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			result = multierror.Append(result, fmt.Errorf("AMQP exchange name cannot be empty when AMQP URL is provided"))
		}
		if c.AMQPQueue == "" {
			result = multierror.Append(result, fmt.Errorf("AMQP queue name cannot be empty when AMQP URL is provided"))
		}
	}

	if !slices.Contains(validLevels, c.LogLevel) {
		result = multierror.Append(result, fmt.Errorf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	if !slices.Contains(validFormats, c.LogFormat) {
		result = multierror.Append(result, fmt.Errorf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
