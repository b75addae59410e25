package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records business operation metrics across the application's
// domains (authorization, principals, requests, catalog, identity).
type BusinessMetrics interface {
	// RecordOperation records a business operation with its status.
	// Operation examples: "acl_update", "access_check", "request_submit".
	// Status examples: "success", "error".
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the duration of a business operation as a
	// histogram in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordDecision records the outcome of one access evaluation: "allow"
	// or "deny".
	RecordDecision(ctx context.Context, outcome string)

	// RecordClosureSize records how many principals a closure expansion
	// produced. Large closures are the main latency driver for checks.
	RecordClosureSize(ctx context.Context, size int)
}

// businessMetrics implements BusinessMetrics using OpenTelemetry instruments.
type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	decisionCounter  metric.Int64Counter
	closureHisto     metric.Int64Histogram
}

// NewBusinessMetrics creates a BusinessMetrics implementation using the
// provided meter provider.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	decisionCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_access_decisions_total", namespace),
		metric.WithDescription("Total number of access evaluation decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision counter: %w", err)
	}

	closureHisto, err := meter.Int64Histogram(
		fmt.Sprintf("%s_principal_closure_size", namespace),
		metric.WithDescription("Number of principals produced by closure expansion"),
		metric.WithUnit("{principal}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create closure histogram: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		decisionCounter:  decisionCounter,
		closureHisto:     closureHisto,
	}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordDecision(ctx context.Context, outcome string) {
	b.decisionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
		),
	)
}

func (b *businessMetrics) RecordClosureSize(ctx context.Context, size int) {
	b.closureHisto.Record(ctx, int64(size))
}

// NoOpBusinessMetrics is used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
}

func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

func (n *NoOpBusinessMetrics) RecordDecision(ctx context.Context, outcome string) {}

func (n *NoOpBusinessMetrics) RecordClosureSize(ctx context.Context, size int) {}
