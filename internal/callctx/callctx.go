// Package callctx implements the per-invocation call contexts described in
// spec.md §3 "CallContext" and §4.C: a consumer-side state machine driving
// async dispatch through to Returned/Discarded, and a provider-side
// context that records whether output parameters were ever written.
package callctx

import (
	"sync"
	"sync/atomic"

	"github.com/distcla/cla/internal/valueentity"
)

// State is the consumer call-state machine (spec.md §3).
type State int32

const (
	Initial State = iota
	Called
	Returned
	Discarded
)

func (s State) String() string {
	switch s {
	case Initial:
		return "Initial"
	case Called:
		return "Called"
	case Returned:
		return "Returned"
	case Discarded:
		return "Discarded"
	default:
		return "Unknown"
	}
}

// ResponseCallback is invoked exactly once when a consumer call context
// terminates (Returned with output bytes, or Discarded with nil).
type ResponseCallback func(state State, output []byte)

// ConsumerCallContext is owned by the host across one async call. Its
// input/output buffers are independent ValueEntities so codec access
// reuses the same Serializer/Deserializer wiring as any other member.
type ConsumerCallContext struct {
	InputParameters  *valueentity.ValueEntity
	OutputParameters *valueentity.ValueEntity

	state State // accessed only via atomic CAS/Load

	mu        sync.Mutex
	cb        ResponseCallback
	onDestroy func()
	destroyed bool
}

// NewConsumerCallContext returns a context in the Initial state.
func NewConsumerCallContext() *ConsumerCallContext {
	return &ConsumerCallContext{
		InputParameters:  valueentity.New(),
		OutputParameters: valueentity.New(),
		state:            Initial,
	}
}

// State returns the current call state.
func (c *ConsumerCallContext) State() State {
	return State(atomic.LoadInt32((*int32)(&c.state)))
}

func (c *ConsumerCallContext) cas(from, to State) bool {
	return atomic.CompareAndSwapInt32((*int32)(&c.state), int32(from), int32(to))
}

// ErrInvalidState is returned when CallAsync is invoked from any state
// other than Initial (spec.md §4.C).
type ErrInvalidState struct{ Got State }

func (e ErrInvalidState) Error() string {
	return "callctx: CallAsync requires state Initial, got " + e.Got.String()
}

// CallAsync transitions Initial -> Called and records cb, which is invoked
// exactly once when the call terminates. cb may be nil for a one-way call:
// no terminal transition is required and the context may be dropped
// immediately after Dispatch returns.
func (c *ConsumerCallContext) CallAsync(cb ResponseCallback) error {
	if !c.cas(Initial, Called) {
		return ErrInvalidState{Got: c.State()}
	}
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
	return nil
}

// Resolve transitions Called -> Returned, stores the response bytes, and
// invokes the registered callback exactly once. If the context is no
// longer Called (already Discarded), the response is dropped silently.
func (c *ConsumerCallContext) Resolve(output []byte) {
	if !c.cas(Called, Returned) {
		return
	}
	c.OutputParameters.SetData(output)
	c.invoke(Returned, output)
}

// DiscardUnreachable transitions Called -> Discarded (timeout, or the
// server stays unreachable) and invokes the callback with no output.
func (c *ConsumerCallContext) DiscardUnreachable() {
	if !c.cas(Called, Discarded) {
		return
	}
	c.invoke(Discarded, nil)
}

func (c *ConsumerCallContext) invoke(state State, output []byte) {
	c.mu.Lock()
	cb := c.cb
	c.cb = nil
	c.mu.Unlock()
	if cb != nil {
		cb(state, output)
	}
}

// OnDestroy registers a hook the owning member calls when the host
// releases this context (spec.md §5 "Cancellation"). Call Destroy to
// invoke it; it fires at most once.
func (c *ConsumerCallContext) OnDestroy(fn func()) {
	c.mu.Lock()
	c.onDestroy = fn
	c.mu.Unlock()
}

// Destroy runs the registered on-destroy hook at most once. The host calls
// it when it releases the context; ConsumedMethod's hook discards the call
// and evicts its pending-call map entry. Nothing calls Destroy
// automatically: ConsumedMethod's runtime.AddCleanup backstop evicts the
// pending entry without running the hook.
func (c *ConsumerCallContext) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	fn := c.onDestroy
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// ErrInvalidUsage marks operations spec.md §7 classifies as "invalid
// usage": writing a provider's immutable input, or writing a consumer's
// output (which is driven solely by Resolve).
type ErrInvalidUsage struct{ Msg string }

func (e ErrInvalidUsage) Error() string { return "callctx: invalid usage: " + e.Msg }

// ProviderCallContext is constructed per inbound request. Reading the
// input is always safe (it is immutable for the call's lifetime); writing
// the output records outputsSerialized so the member knows whether to
// submit the written buffer or an empty one.
type ProviderCallContext struct {
	InputParameters  *valueentity.ValueEntity
	OutputParameters *valueentity.ValueEntity

	mu                sync.Mutex
	outputsSerialized bool
}

// NewProviderCallContext seeds the input buffer with the inbound request
// payload.
func NewProviderCallContext(requestPayload []byte) *ProviderCallContext {
	in := valueentity.New()
	in.SetData(requestPayload)
	return &ProviderCallContext{
		InputParameters:  in,
		OutputParameters: valueentity.New(),
	}
}

// WriteOutput installs the output payload and marks outputsSerialized.
// It is the only call that marks the output: a handler that calls
// OutputParameters.SetData directly leaves outputsSerialized false.
func (c *ProviderCallContext) WriteOutput(payload []byte) {
	c.OutputParameters.SetData(payload)
	c.mu.Lock()
	c.outputsSerialized = true
	c.mu.Unlock()
}

// OutputsSerialized reports whether WriteOutput has ever been called.
func (c *ProviderCallContext) OutputsSerialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputsSerialized
}
