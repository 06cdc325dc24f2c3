// Package callguard carries the "currently inside a member callback" flag
// through a context.Context (spec.md §5, §9): Go has no thread-local
// storage, so the in-callback marker the original design keeps per-thread
// is instead threaded explicitly as a context value. The package only
// provides the marker and the check: no member runtime in this module
// calls Enter or Check.
package callguard

import (
	"context"
	"errors"
)

type guardKey struct{}

// ErrSynchronousCallFromCallback is returned by a blocking call helper
// invoked while already inside a member callback (spec.md §7 "invalid
// usage"): blocking there would deadlock the single worker/callback path.
var ErrSynchronousCallFromCallback = errors.New("callguard: synchronous call issued from inside a callback")

// Enter returns a context marked as running inside a member callback.
// The member runtimes do not call it; callbacks they invoke run unmarked.
func Enter(ctx context.Context) context.Context {
	return context.WithValue(ctx, guardKey{}, true)
}

// InCallback reports whether ctx was produced by (or derived from) Enter.
func InCallback(ctx context.Context) bool {
	v, _ := ctx.Value(guardKey{}).(bool)
	return v
}

// Check returns ErrSynchronousCallFromCallback if ctx is marked in-callback,
// nil otherwise. Blocking helpers call this before they block.
func Check(ctx context.Context) error {
	if InCallback(ctx) {
		return ErrSynchronousCallFromCallback
	}
	return nil
}
