package member

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/distcla/cla/internal/callctx"
	"github.com/distcla/cla/internal/path"
	"github.com/distcla/cla/internal/telemetry"
	"github.com/distcla/cla/internal/transport"
	"github.com/distcla/cla/internal/worker"
)

// ConsumedMethod is the runtime for a Consumed Method member (spec.md §4.F):
// dispatches consumer calls over an RPCClient and retries them on
// transport.ServerNotReachable until the worker service's sweep finds the
// server reachable again or the call context is destroyed.
//
// Pending calls are tracked by a weak, non-owning reference (spec.md §9
// "Member must not keep a CallContext alive past the host's own
// reference"): the host owns the *callctx.ConsumerCallContext; the pending
// map only holds a weak.Pointer to it, backstopped by runtime.AddCleanup
// in case a host forgets to call Destroy. A call waiting in the retry queue
// is held by a strong pointer, so its context stays reachable until a sweep
// sends it or finds it Discarded.
type ConsumedMethod struct {
	fullPath string
	worker   *worker.Service
	tel      *telemetry.Telemetry

	mu        sync.Mutex
	connected bool
	client    transport.RPCClient

	nextHandle uint64

	pendingMu sync.Mutex
	pending   map[uint64]weak.Pointer[callctx.ConsumerCallContext]

	retryMu    sync.Mutex
	retryQueue []retryEntry
}

type retryEntry struct {
	handle  uint64
	payload []byte
	cc      *callctx.ConsumerCallContext
}

// NewConsumedMethod returns an unconnected Consumed Method runtime. w is the
// shared worker service its retry task is pushed onto.
func NewConsumedMethod(fullPath string, w *worker.Service) *ConsumedMethod {
	return &ConsumedMethod{
		fullPath: fullPath,
		worker:   w,
		pending:  make(map[uint64]weak.Pointer[callctx.ConsumerCallContext]),
	}
}

// SetTelemetry attaches the counters the retry engine reports through. A
// ConsumedMethod with no telemetry attached (the default) simply skips
// recording, since *telemetry.Telemetry methods are nil-receiver safe.
func (m *ConsumedMethod) SetTelemetry(t *telemetry.Telemetry) { m.tel = t }

func (m *ConsumedMethod) Path() string        { return m.fullPath }
func (m *ConsumedMethod) Kind() Kind          { return Method }
func (m *ConsumedMethod) Direction() Direction { return DirConsumed }

func (m *ConsumedMethod) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Connect creates the RPC client and installs the response demultiplexer.
func (m *ConsumedMethod) Connect(mw transport.Middleware, labels path.Labels) error {
	client, err := mw.NewRPCClient(labels)
	if err != nil {
		return err
	}
	client.SetResponseHandler(m.onResponse)

	m.mu.Lock()
	m.client = client
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *ConsumedMethod) Disconnect() error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.connected = false
	m.mu.Unlock()
	if client != nil {
		return client.Close()
	}
	return nil
}

// Dispatch registers cb on cc, transitions it Initial->Called, and attempts
// delivery. A transport.ServerNotReachable result is queued for retry; any
// other non-Success result is an immediate, non-retried discard (spec.md
// §4.F dispatch steps 1-4).
//
// cb == nil is a one-way call (spec.md §9 "one-way method semantics"): cc
// is transitioned to Called and forgotten immediately — no pending-call
// entry is tracked, no response is awaited, and a transient
// ServerNotReachable is not retried.
func (m *ConsumedMethod) Dispatch(ctx context.Context, payload []byte, cc *callctx.ConsumerCallContext, cb callctx.ResponseCallback) error {
	if err := cc.CallAsync(cb); err != nil {
		return err
	}

	if cb == nil {
		m.mu.Lock()
		client := m.client
		m.mu.Unlock()
		if client != nil {
			client.Call(ctx, atomic.AddUint64(&m.nextHandle, 1), payload)
		}
		return nil
	}

	handle := atomic.AddUint64(&m.nextHandle, 1)
	m.track(handle, cc)
	cc.OnDestroy(func() {
		cc.DiscardUnreachable()
		m.untrack(handle)
	})

	m.attempt(ctx, handle, payload, cc)
	return nil
}

func (m *ConsumedMethod) track(handle uint64, cc *callctx.ConsumerCallContext) {
	m.pendingMu.Lock()
	m.pending[handle] = weak.Make(cc)
	m.pendingMu.Unlock()

	runtime.AddCleanup(cc, func(h uint64) {
		m.untrack(h)
	}, handle)
}

func (m *ConsumedMethod) untrack(handle uint64) {
	m.pendingMu.Lock()
	delete(m.pending, handle)
	m.pendingMu.Unlock()
}

func (m *ConsumedMethod) attempt(ctx context.Context, handle uint64, payload []byte, cc *callctx.ConsumerCallContext) {
	m.mu.Lock()
	client := m.client
	connected := m.connected
	m.mu.Unlock()

	if !connected || client == nil {
		cc.DiscardUnreachable()
		m.untrack(handle)
		return
	}

	switch client.Call(ctx, handle, payload) {
	case transport.ServerNotReachable:
		m.enqueueRetry(handle, payload, cc)
	case transport.NotConnected, transport.ContextDestroyed:
		cc.DiscardUnreachable()
		m.untrack(handle)
	case transport.Success:
		// response (if any) arrives asynchronously via onResponse
	}
}

func (m *ConsumedMethod) enqueueRetry(handle uint64, payload []byte, cc *callctx.ConsumerCallContext) {
	m.retryMu.Lock()
	wasEmpty := len(m.retryQueue) == 0
	m.retryQueue = append(m.retryQueue, retryEntry{handle: handle, payload: payload, cc: cc})
	m.retryMu.Unlock()

	m.tel.RecordRetry(context.Background(), m.fullPath)

	if wasEmpty && m.worker != nil {
		m.worker.PushTask(m.sweepRetries)
	}
}

// sweepRetries is the worker.Task pushed while retryQueue is non-empty. It
// walks the queue in order, re-attempting each entry whose context hasn't
// been discarded. On ServerNotReachable/NotConnected it stops iterating
// immediately and keeps that entry and everything after it queued,
// untouched and in order, for the next sweep (spec.md §4.F "retries
// preserve submission order"; matches original_source's
// DoConsumedMethod::RetryCalls, which breaks on the same two results
// instead of skipping past a still-unreachable entry).
func (m *ConsumedMethod) sweepRetries() bool {
	m.retryMu.Lock()
	queue := m.retryQueue
	m.retryQueue = nil
	m.retryMu.Unlock()

	var still []retryEntry
	for i, e := range queue {
		if e.cc.State() == callctx.Discarded {
			m.untrack(e.handle)
			continue
		}

		m.mu.Lock()
		client := m.client
		connected := m.connected
		m.mu.Unlock()

		if !connected || client == nil {
			still = append(still, queue[i:]...)
			break
		}

		switch client.Call(context.Background(), e.handle, e.payload) {
		case transport.ServerNotReachable, transport.NotConnected:
			still = append(still, queue[i:]...)
		case transport.ContextDestroyed:
			e.cc.DiscardUnreachable()
			m.untrack(e.handle)
			continue
		case transport.Success:
			continue
		}
		break
	}

	m.retryMu.Lock()
	m.retryQueue = append(still, m.retryQueue...)
	done := len(m.retryQueue) == 0
	m.retryMu.Unlock()
	return done
}

func (m *ConsumedMethod) onResponse(callHandle uint64, payload []byte, transportErr error) {
	m.pendingMu.Lock()
	wp, ok := m.pending[callHandle]
	delete(m.pending, callHandle)
	m.pendingMu.Unlock()
	if !ok {
		return
	}
	cc := wp.Value()
	if cc == nil {
		return
	}
	if transportErr != nil {
		cc.DiscardUnreachable()
		return
	}
	cc.Resolve(payload)
}
