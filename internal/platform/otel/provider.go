// Package otel wires OpenTelemetry tracing for the loreweave binary.
package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/loreweave/loreweave/internal/platform/config"
)

// Enabled stays a string so a set-but-empty variable reads as enabled
// instead of failing the parse.
type tracingSettings struct {
	Endpoint string `env:"LOREWEAVE_OTEL_ENDPOINT"`
	Enabled  string `env:"LOREWEAVE_OTEL_ENABLED" envDefault:"true"`
}

// Setup initialises tracing for the given service and returns a shutdown
// function that flushes pending spans; callers should defer it.
//
// Tracing is opt-in: without LOREWEAVE_OTEL_ENDPOINT, or with
// LOREWEAVE_OTEL_ENABLED=false, Setup registers nothing and the returned
// shutdown is a no-op.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var settings tracingSettings
	if err := config.ParseEnv(&settings); err != nil {
		return noop, err
	}
	if strings.EqualFold(settings.Enabled, "false") || settings.Endpoint == "" {
		return noop, nil
	}

	tp, err := newTracerProvider(ctx, serviceName, settings.Endpoint)
	if err != nil {
		return noop, err
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

func newTracerProvider(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}
