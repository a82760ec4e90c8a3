// Package metrics sets up the otel meter provider used by the containers.
package metrics

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/looplj/firelive/internal/log"
)

const (
	ExporterStdout   = "stdout"
	ExporterOTLPGRPC = "otlp_grpc"
	ExporterOTLPHTTP = "otlp_http"
)

type Config struct {
	Enabled     bool          `conf:"enabled" yaml:"enabled" json:"enabled"`
	ServiceName string        `conf:"service_name" yaml:"service_name" json:"service_name"`
	Exporter    string        `conf:"exporter" yaml:"exporter" json:"exporter"`
	Endpoint    string        `conf:"endpoint" yaml:"endpoint" json:"endpoint"`
	Insecure    bool          `conf:"insecure" yaml:"insecure" json:"insecure"`
	Interval    time.Duration `conf:"interval" yaml:"interval" json:"interval"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "firelive",
		Exporter:    ExporterStdout,
		Interval:    time.Minute,
	}
}

// NewProvider builds a meter provider, or returns nil when metrics are off.
func NewProvider(cfg Config) (*sdk.MeterProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	exporter, err := newExporter(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("metrics resource: %w", err)
	}

	return sdk.NewMeterProvider(
		sdk.WithResource(res),
		sdk.WithReader(sdk.NewPeriodicReader(exporter, sdk.WithInterval(interval))),
	), nil
}

func newExporter(ctx context.Context, cfg Config) (sdk.Exporter, error) {
	switch cfg.Exporter {
	case ExporterStdout, "":
		return stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
	case ExporterOTLPGRPC:
		var opts []otlpmetricgrpc.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
		}

		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}

		return otlpmetricgrpc.New(ctx, opts...)
	case ExporterOTLPHTTP:
		var opts []otlpmetrichttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}

		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}

		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported metrics exporter: %q", cfg.Exporter)
	}
}

// SetupMetrics installs provider as the global meter provider. Meters that
// were created before keep working through the otel global delegate.
func SetupMetrics(provider *sdk.MeterProvider, name string) error {
	if provider == nil {
		return nil
	}

	otel.SetMeterProvider(provider)
	log.Info(context.Background(), "metrics enabled", log.String("service", name))

	return nil
}
