package telemetry_test

import (
	"context"
	"testing"

	"github.com/distcla/cla/internal/telemetry"
)

func TestNewAndSpanLifecycle(t *testing.T) {
	tel, err := telemetry.New()
	if err != nil {
		t.Fatal(err)
	}

	ctx, span := tel.StartConnect(context.Background(), "p1")
	span.End()
	tel.RecordConnectSuccess(ctx)

	ctx, span = tel.StartDisconnect(ctx, "p1")
	span.End()

	tel.RecordRetry(ctx, "N::I.Add")
}

func TestNilTelemetryIsNoop(t *testing.T) {
	var tel *telemetry.Telemetry
	ctx, span := tel.StartConnect(context.Background(), "p1")
	span.End()
	tel.RecordConnectSuccess(ctx)
	ctx, span = tel.StartDisconnect(ctx, "p1")
	span.End()
	tel.RecordRetry(ctx, "N::I.Add")
}
