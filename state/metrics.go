package state

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/looplj/firelive/state"

type instruments struct {
	active   metric.Int64UpDownCounter
	pushes   metric.Int64Counter
	failures metric.Int64Counter
}

// Instruments live on the global meter and are created on first use.
var getInstruments = sync.OnceValue(func() instruments {
	meter := otel.Meter(meterName)

	active, _ := meter.Int64UpDownCounter("firelive.state.subscriptions",
		metric.WithDescription("Open container subscriptions."))
	pushes, _ := meter.Int64Counter("firelive.state.pushes",
		metric.WithDescription("Values delivered to containers."))
	failures, _ := meter.Int64Counter("firelive.state.errors",
		metric.WithDescription("Subscription failures captured by containers."))

	return instruments{active: active, pushes: pushes, failures: failures}
})

func recordSubscribe(ctx context.Context, name string, delta int64) {
	if m := getInstruments(); m.active != nil {
		m.active.Add(ctx, delta, metric.WithAttributes(attribute.String("state", name)))
	}
}

func recordPush(ctx context.Context, name string) {
	if m := getInstruments(); m.pushes != nil {
		m.pushes.Add(ctx, 1, metric.WithAttributes(attribute.String("state", name)))
	}
}

func recordFailure(ctx context.Context, name string, code Code) {
	if m := getInstruments(); m.failures != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("state", name),
			attribute.String("code", string(code)),
		))
	}
}
