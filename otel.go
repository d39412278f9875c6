package mealagent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

const (
	TracerNameWorkflow    = "meal-workflow"
	TracerNameCoordinator = "ingredient-coordinator"
	TracerNameGaps        = "gap-advisor"
	MeterName             = "mealagent"
)

// OtelConfig describes the telemetry resource and where to export it. With no
// endpoint, spans and metrics are recorded in process but never exported.
type OtelConfig struct {
	Endpoint       string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string        `env:"OTEL_SERVICE_NAME,default=meal-agent"`
	ServiceVersion string        `env:"OTEL_SERVICE_VERSION,default=0.1.0"`
	DeployEnv      string        `env:"OTEL_DEPLOY_ENV,default=development"`
	MetricInterval time.Duration `env:"OTEL_METRIC_EXPORT_INTERVAL_DURATION,default=30s"`
}

type otelShutdown func(ctx context.Context) error

// NewOtelResource describes this process to telemetry backends. OTEL_RESOURCE_ATTRIBUTES
// entries are merged in and win over cfg.
func NewOtelResource(ctx context.Context, cfg OtelConfig) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentName(cfg.DeployEnv),
			attribute.String("mealagent.tracers", TracerNameWorkflow+","+TracerNameCoordinator+","+TracerNameGaps),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build otel resource: %w", err)
	}
	return res, nil
}

// InitOtel installs global tracer and meter providers for the meal agent and returns
// them with a shutdown function that flushes both.
func InitOtel(ctx context.Context) (*sdktrace.TracerProvider, *metric.MeterProvider, otelShutdown, error) {
	var cfg OtelConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode otel config: %w", err)
	}

	res, err := NewOtelResource(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	meterOpts := []metric.Option{metric.WithResource(res)}

	if cfg.Endpoint != "" {
		// The gRPC exporters read endpoint, headers and TLS settings from the standard
		// OTEL_EXPORTER_OTLP_* variables.
		traceExporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		metricExporter, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExporter))
		meterOpts = append(meterOpts, metric.WithReader(
			metric.NewPeriodicReader(metricExporter, metric.WithInterval(cfg.MetricInterval))))
	}

	tracerProvider := sdktrace.NewTracerProvider(traceOpts...)
	meterProvider := metric.NewMeterProvider(meterOpts...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(ctx context.Context) error {
		err := errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
		if err != nil && err.Error() == "gRPC exporter is shutdown" {
			return nil
		}
		return err
	}

	return tracerProvider, meterProvider, shutdown, nil
}
