// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Source kinds accepted by SOURCE
const (
	SourceCSV       = "csv"
	SourcePostgres  = "postgres"
	SourceSnowflake = "snowflake"
)

// Config represents the application configuration
type Config struct {
	// Dataset source
	Source    string // csv | postgres | snowflake
	InputPath string // CSV path when Source is csv
	TableName string // Logical dataset name, also the source table name

	// Classification settings
	PIIMatchThreshold float64 // Minimum match ratio to assign a category
	SampleSize        int     // Non-null values sampled per field; 0 means full column

	// Validation settings
	ContractPath         string  // YAML contract; empty uses the built-in contract
	CriticalHaltFraction float64 // CRITICAL violation fraction that raises the halt signal
	Revalidate           bool    // Run the contract again after remediation
	HaltOnCritical       bool    // Act on the halt signal instead of only reporting it

	// Masking settings
	MaskPolicyPath string // YAML masking policy; empty masks every PII category

	// Remediation settings
	DateFormats       []string          // Recognized date layouts, tried in order
	PhoneDigitLength  int               // Digit count a phone must have after stripping
	StringPlaceholder string            // Imputation placeholder for string fields
	NumberPlaceholder float64           // Imputation placeholder for numeric fields
	ImputeOverrides   map[string]string // Per-field placeholder overrides
	DropFields        []string          // Fields whose null records are dropped instead of imputed

	// Output
	OutputDir string

	// Audit trail database (optional)
	AuditEnabled bool
	Postgres     *PostgresConfig

	// Snowflake source (loaded only when Source is snowflake)
	Snowflake *SnowflakeConfig

	// Batch settings
	WorkerPoolSize int
	RetryAttempts  int
	RetryDelay     time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// DefaultDateFormats are the layouts recognized when DATE_FORMATS is unset.
// Order matters: the first layout that parses wins.
var DefaultDateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Default values
		Source:    getEnv("SOURCE", SourceCSV),
		InputPath: getEnv("INPUT_CSV", "data/customer_data.csv"),
		TableName: getEnv("TABLE_NAME", "customers"),

		PIIMatchThreshold: getEnvAsFloat("PII_MATCH_THRESHOLD", 0.8),
		SampleSize:        getEnvAsInt("CLASSIFY_SAMPLE_SIZE", 0),

		ContractPath:         getEnv("CONTRACT_PATH", ""),
		CriticalHaltFraction: getEnvAsFloat("CRITICAL_HALT_FRACTION", 0.5),
		Revalidate:           getEnvAsBool("REVALIDATE", true),
		HaltOnCritical:       getEnvAsBool("HALT_ON_CRITICAL", false),

		MaskPolicyPath: getEnv("MASK_POLICY_PATH", ""),

		DateFormats:       getEnvAsStringSlice("DATE_FORMATS", DefaultDateFormats),
		PhoneDigitLength:  getEnvAsInt("PHONE_DIGIT_LENGTH", 10),
		StringPlaceholder: getEnv("IMPUTE_STRING_PLACEHOLDER", "[UNKNOWN]"),
		NumberPlaceholder: getEnvAsFloat("IMPUTE_NUMBER_PLACEHOLDER", 0),
		ImputeOverrides:   getEnvAsStringMap("IMPUTE_OVERRIDES", map[string]string{"account_status": "unknown"}),
		DropFields:        getEnvAsStringSlice("IMPUTE_DROP_FIELDS", nil),

		OutputDir: getEnv("OUTPUT_DIR", "output"),

		AuditEnabled: getEnvAsBool("AUDIT_DB_ENABLED", false),

		WorkerPoolSize: getEnvAsInt("WORKER_POOL_SIZE", 0), // 0 sizes the pool from the host CPU count
		RetryAttempts:  getEnvAsInt("RETRY_ATTEMPTS", 3),
		RetryDelay:     time.Duration(getEnvAsInt("RETRY_DELAY_MS", 1000)) * time.Millisecond,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Database configurations are loaded only when a component needs them
	if cfg.Source == SourceSnowflake {
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, errors.New("failed to load Snowflake configuration: " + err.Error())
		}
		cfg.Snowflake = snowConfig
	}

	if cfg.AuditEnabled || cfg.Source == SourcePostgres {
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		cfg.Postgres = pgConfig
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	switch c.Source {
	case SourceCSV, SourcePostgres, SourceSnowflake:
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}

	if c.Source == SourceCSV && c.InputPath == "" {
		return errors.New("input path is required for the csv source")
	}

	if c.PIIMatchThreshold <= 0 || c.PIIMatchThreshold > 1 {
		return errors.New("pii match threshold must be in (0, 1]")
	}

	if c.CriticalHaltFraction <= 0 || c.CriticalHaltFraction > 1 {
		return errors.New("critical halt fraction must be in (0, 1]")
	}

	if c.SampleSize < 0 {
		return errors.New("sample size cannot be negative")
	}

	if c.PhoneDigitLength <= 0 {
		return errors.New("phone digit length must be positive")
	}

	if len(c.DateFormats) == 0 {
		return errors.New("at least one date format is required")
	}

	if c.TableName == "" {
		return errors.New("table name is required")
	}

	if c.RetryAttempts < 0 {
		return errors.New("retry attempts cannot be negative")
	}

	if c.Source == SourceSnowflake && c.Snowflake == nil {
		return errors.New("snowflake configuration is required")
	}

	if (c.AuditEnabled || c.Source == SourcePostgres) && c.Postgres == nil {
		return errors.New("postgreSQL configuration is required")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsStringMap parses "key=value" pairs from a comma-delimited list
func getEnvAsStringMap(key string, defaultValue map[string]string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	result := make(map[string]string)
	for _, pair := range splitCommaDelimited(value) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		result[parts[0]] = parts[1]
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
