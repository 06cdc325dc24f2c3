// Package transport defines the contracts the adapter core requires from
// the middleware (spec.md §1 "Excluded: the transport middleware itself").
// Concrete adapters live under transport/ (grpcrpc, kafkapubsub) and
// internal/transport/inproc (loopback, used by tests and single-binary
// demos). The core only ever depends on these interfaces.
package transport

import (
	"context"

	"github.com/distcla/cla/internal/path"
)

// CallResult classifies the outcome of one RPC dispatch attempt
// (spec.md §4.F).
type CallResult int

const (
	Success CallResult = iota
	ServerNotReachable
	NotConnected
	ContextDestroyed
)

func (r CallResult) String() string {
	switch r {
	case Success:
		return "Success"
	case ServerNotReachable:
		return "ServerNotReachable"
	case NotConnected:
		return "NotConnected"
	case ContextDestroyed:
		return "ContextDestroyed"
	default:
		return "Unknown"
	}
}

// Error lets a CallResult be passed as a ResponseHandler's transportErr.
func (r CallResult) Error() string { return r.String() }

// ResponseHandler demultiplexes an inbound RPC response on the call
// handle that originated it.
type ResponseHandler func(callHandle uint64, payload []byte, transportErr error)

// Publisher publishes byte payloads to a topic identified by Labels.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close() error
}

// Subscriber delivers inbound payloads for a topic to handler, until Close.
type Subscriber interface {
	Close() error
}

// SubscribeHandler is invoked for every inbound message on a subscription.
type SubscribeHandler func(payload []byte)

// RPCClient dispatches consumer method calls and demultiplexes responses.
// Call returns Success only when the transport has scheduled the request;
// ServerNotReachable/NotConnected indicate the request could not be sent
// right now (spec.md §4.F dispatch step 3-4).
type RPCClient interface {
	Call(ctx context.Context, callHandle uint64, payload []byte) CallResult
	SetResponseHandler(h ResponseHandler)
	Close() error
}

// RequestHandler answers one inbound provider method request. send=false
// means the provider member was disconnected before a response could be
// produced and the transport must drop the reply silently (spec.md §4.G).
type RequestHandler func(requestPayload []byte) (responsePayload []byte, send bool)

// RPCServer answers inbound provider method requests.
type RPCServer interface {
	SetRequestHandler(h RequestHandler)
	Close() error
}

// Middleware is the "Participant" contract (spec.md §4.H): a connected
// session with the messaging substrate, capable of minting the per-member
// endpoints above, all scoped by the mandatory matching labels
// (spec.md §4.I).
type Middleware interface {
	NewPublisher(labels path.Labels) (Publisher, error)
	NewSubscriber(labels path.Labels, handler SubscribeHandler) (Subscriber, error)
	NewRPCClient(labels path.Labels) (RPCClient, error)
	NewRPCServer(labels path.Labels) (RPCServer, error)
	Close() error
}

// Factory creates a Middleware "Participant", retried by ClaService per
// spec.md §4.H (every 2s, warn at attempt 5, info on eventual success).
type Factory func(ctx context.Context, participantName string) (Middleware, error)
