package callguard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/distcla/cla/internal/callguard"
)

func TestEnterMarksContext(t *testing.T) {
	ctx := context.Background()
	if callguard.InCallback(ctx) {
		t.Fatal("fresh context reports InCallback")
	}
	ctx = callguard.Enter(ctx)
	if !callguard.InCallback(ctx) {
		t.Fatal("Enter did not mark context")
	}
}

func TestCheckRejectsInsideCallback(t *testing.T) {
	ctx := callguard.Enter(context.Background())
	if err := callguard.Check(ctx); !errors.Is(err, callguard.ErrSynchronousCallFromCallback) {
		t.Fatalf("Check() = %v, want ErrSynchronousCallFromCallback", err)
	}
}

func TestCheckAllowsOutsideCallback(t *testing.T) {
	if err := callguard.Check(context.Background()); err != nil {
		t.Fatalf("Check() = %v, want nil", err)
	}
}
