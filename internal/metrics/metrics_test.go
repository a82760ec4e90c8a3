package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, provider)
	require.NoError(t, SetupMetrics(nil, "firelive"))
}

func TestNewProvider_Stdout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Interval = time.Hour

	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	require.NotNil(t, provider)

	defer func() {
		require.NoError(t, provider.Shutdown(context.Background()))
	}()

	require.NoError(t, SetupMetrics(provider, "firelive"))
	assert.Equal(t, provider, otel.GetMeterProvider())
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "statsd"})
	require.Error(t, err)
}
