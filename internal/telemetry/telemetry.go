// Package telemetry wraps the OpenTelemetry tracer/meter the service layer
// uses to instrument Connect/Disconnect and the retry engine. It is kept
// separate from cla/logx: logging is the primary human-readable surface
// (spec.md §7), telemetry is the ambient dashboard layer a host may or may
// not scrape.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/distcla/cla"

// Telemetry bundles the tracer and the handful of counters the service
// layer increments. A nil *Telemetry is valid and every method on it is a
// no-op, so wiring it in is optional for hosts that never configured an
// OTel provider.
type Telemetry struct {
	tracer trace.Tracer

	connectAttempts  metric.Int64Counter
	connectSuccesses metric.Int64Counter
	retryAttempts    metric.Int64Counter
}

// New builds a Telemetry instance against the globally registered OTel
// providers (otel.SetTracerProvider/otel.SetMeterProvider). Hosts that
// never call those get OTel's no-op providers, so New always succeeds.
func New() (*Telemetry, error) {
	meter := otel.Meter(instrumentationName)

	attempts, err := meter.Int64Counter("cla.connect.attempts",
		metric.WithDescription("Service Connect calls; participant creation retries within one call are not counted"))
	if err != nil {
		return nil, err
	}
	successes, err := meter.Int64Counter("cla.connect.successes",
		metric.WithDescription("Participant connect attempts that succeeded"))
	if err != nil {
		return nil, err
	}
	retries, err := meter.Int64Counter("cla.method.retries",
		metric.WithDescription("Consumed method calls requeued after ServerNotReachable"))
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		tracer:           otel.Tracer(instrumentationName),
		connectAttempts:  attempts,
		connectSuccesses: successes,
		retryAttempts:    retries,
	}, nil
}

// StartConnect opens a span around one Connect attempt and increments the
// attempt counter.
func (t *Telemetry) StartConnect(ctx context.Context, participantName string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := t.tracer.Start(ctx, "cla.Connect",
		trace.WithAttributes(attribute.String("cla.participant", participantName)))
	t.connectAttempts.Add(ctx, 1)
	return ctx, span
}

// RecordConnectSuccess increments the success counter for a Connect
// attempt that eventually produced a Middleware.
func (t *Telemetry) RecordConnectSuccess(ctx context.Context) {
	if t == nil {
		return
	}
	t.connectSuccesses.Add(ctx, 1)
}

// StartDisconnect opens a span around one Disconnect call.
func (t *Telemetry) StartDisconnect(ctx context.Context, participantName string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "cla.Disconnect",
		trace.WithAttributes(attribute.String("cla.participant", participantName)))
}

// RecordRetry increments the retry counter for one member's call.
func (t *Telemetry) RecordRetry(ctx context.Context, memberPath string) {
	if t == nil {
		return
	}
	t.retryAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("cla.member", memberPath)))
}
