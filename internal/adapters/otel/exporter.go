package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "variance"
	serviceVersion = "1.0.0"
)

// Exporter exports engine counters to an OTEL Collector.
type Exporter struct {
	provider          *sdkmetric.MeterProvider
	meter             metric.Meter
	assignmentsTotal  metric.Int64Counter
	exclusionsTotal   metric.Int64Counter
	observationsTotal metric.Int64Counter
}

// NewExporter creates a new OTEL metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	assignmentsTotal, err := meter.Int64Counter(
		"variance_assignments_total",
		metric.WithDescription("Total variant assignments created"),
		metric.WithUnit("{assignment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating assignments counter: %w", err)
	}

	exclusionsTotal, err := meter.Int64Counter(
		"variance_traffic_exclusions_total",
		metric.WithDescription("Total subjects excluded by the traffic gate"),
		metric.WithUnit("{subject}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exclusions counter: %w", err)
	}

	observationsTotal, err := meter.Int64Counter(
		"variance_metric_observations_total",
		metric.WithDescription("Total metric observations recorded"),
		metric.WithUnit("{observation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating observations counter: %w", err)
	}

	return &Exporter{
		provider:          provider,
		meter:             meter,
		assignmentsTotal:  assignmentsTotal,
		exclusionsTotal:   exclusionsTotal,
		observationsTotal: observationsTotal,
	}, nil
}

func (e *Exporter) AssignmentCreated(ctx context.Context, experimentID, variant string) {
	e.assignmentsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment_id", experimentID),
		attribute.String("variant", variant),
	))
}

func (e *Exporter) SubjectExcluded(ctx context.Context, experimentID string) {
	e.exclusionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment_id", experimentID),
	))
}

func (e *Exporter) ObservationRecorded(ctx context.Context, experimentID, metricName string) {
	e.observationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment_id", experimentID),
		attribute.String("metric_name", metricName),
	))
}

// Close shuts down the meter provider, flushing pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	if e.provider == nil {
		return nil
	}
	return e.provider.Shutdown(ctx)
}
