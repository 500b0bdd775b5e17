// pkg/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, SourceCSV, cfg.Source)
	assert.Equal(t, "customers", cfg.TableName)
	assert.Equal(t, 0.8, cfg.PIIMatchThreshold)
	assert.Equal(t, 0.5, cfg.CriticalHaltFraction)
	assert.Equal(t, 10, cfg.PhoneDigitLength)
	assert.Equal(t, "[UNKNOWN]", cfg.StringPlaceholder)
	assert.Equal(t, float64(0), cfg.NumberPlaceholder)
	assert.Equal(t, "unknown", cfg.ImputeOverrides["account_status"])
	assert.Equal(t, DefaultDateFormats, cfg.DateFormats)
	assert.True(t, cfg.Revalidate)
	assert.False(t, cfg.HaltOnCritical)
	assert.False(t, cfg.AuditEnabled)
	assert.Nil(t, cfg.Snowflake)
	assert.Nil(t, cfg.Postgres)
	assert.Equal(t, time.Second, cfg.RetryDelay)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PII_MATCH_THRESHOLD", "0.9")
	t.Setenv("CRITICAL_HALT_FRACTION", "0.25")
	t.Setenv("REVALIDATE", "false")
	t.Setenv("HALT_ON_CRITICAL", "true")
	t.Setenv("DATE_FORMATS", `2006-01-02,"January 2, 2006"`)
	t.Setenv("IMPUTE_OVERRIDES", "account_status=unknown,notes=n/a")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.PIIMatchThreshold)
	assert.Equal(t, 0.25, cfg.CriticalHaltFraction)
	assert.False(t, cfg.Revalidate)
	assert.True(t, cfg.HaltOnCritical)
	assert.Equal(t, []string{"2006-01-02", "January 2, 2006"}, cfg.DateFormats)
	assert.Equal(t, "n/a", cfg.ImputeOverrides["notes"])
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Source:               SourceCSV,
			InputPath:            "data/customers.csv",
			TableName:            "customers",
			PIIMatchThreshold:    0.8,
			CriticalHaltFraction: 0.5,
			PhoneDigitLength:     10,
			DateFormats:          DefaultDateFormats,
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Source = "kafka"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.PIIMatchThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.CriticalHaltFraction = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DateFormats = nil
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Source = SourceSnowflake
	assert.Error(t, cfg.Validate(), "snowflake source without snowflake config")

	cfg = base()
	cfg.AuditEnabled = true
	assert.Error(t, cfg.Validate(), "audit enabled without postgres config")
}

func TestSplitCommaDelimited(t *testing.T) {
	got := splitCommaDelimited(`a, b ,"c, d",e`)
	assert.Equal(t, []string{"a", "b", "c, d", "e"}, got)
}

func TestPostgresConnectionString(t *testing.T) {
	pg := &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "audit",
		Password: "secret",
		Database: "pii",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=audit password=secret dbname=pii sslmode=disable",
		pg.ConnectionString())
}
