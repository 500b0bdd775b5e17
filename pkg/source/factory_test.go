// pkg/source/factory_test.go
package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/config"
)

func factoryConfig() *config.Config {
	return &config.Config{
		Source:    config.SourceCSV,
		InputPath: "data/customer_data.csv",
		TableName: "customers",
	}
}

func TestSourceFactoryCreatesCSVSource(t *testing.T) {
	factory, err := NewSourceFactory(factoryConfig(), zap.NewNop())
	require.NoError(t, err)

	src, err := factory.Create(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)
}

func TestSourceFactoryRejectsUnknownSource(t *testing.T) {
	cfg := factoryConfig()
	cfg.Source = "kafka"

	factory, err := NewSourceFactory(cfg, zap.NewNop())
	require.NoError(t, err)

	_, err = factory.Create(context.Background())
	assert.ErrorContains(t, err, "unknown source")
}

func TestNewSourceFactoryValidation(t *testing.T) {
	_, err := NewSourceFactory(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewSourceFactory(factoryConfig(), nil)
	assert.Error(t, err)
}
