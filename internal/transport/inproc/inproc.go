// Package inproc is a loopback Middleware: an in-memory broker matching
// publishers to subscribers and RPC clients to RPC servers purely by
// canonical member path. It implements transport.Middleware so the rest
// of the adapter core exercises the exact same code path a real
// gRPC/Kafka backend would — this package exists to make the core
// testable without a live broker, and to back single-binary demos.
//
// Delivery is synchronous by design (unlike the network-backed adapters):
// tests that assert fan-out ordering (spec.md §8 invariants) need a
// deterministic transport, not one racing a goroutine scheduler.
package inproc

import (
	"context"
	"sync"

	"github.com/distcla/cla/internal/path"
	"github.com/distcla/cla/internal/transport"
)

// Broker is shared state simulating the network between a set of
// participants. Tests construct one Broker and hand it to every
// participant under test that should be able to see each other.
type Broker struct {
	mu         sync.Mutex
	topics     map[string]*topicState
	rpcServers map[string]*rpcServerState
	unreach    map[string]bool
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{
		topics:     make(map[string]*topicState),
		rpcServers: make(map[string]*rpcServerState),
		unreach:    make(map[string]bool),
	}
}

// SetUnreachable is a test hook simulating spec.md §4.F's
// ServerNotReachable condition for the RPC client bound to name.
func (b *Broker) SetUnreachable(canonicalName string, down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if down {
		b.unreach[canonicalName] = true
	} else {
		delete(b.unreach, canonicalName)
	}
}

func (b *Broker) isUnreachable(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unreach[name]
}

type topicState struct {
	mu   sync.Mutex
	subs []transport.SubscribeHandler
}

type rpcServerState struct {
	mu      sync.Mutex
	handler transport.RequestHandler
}

// Participant is the Middleware handle returned by Dial.
type Participant struct {
	name   string
	broker *Broker
}

// Dial returns a Middleware bound to broker under the given participant
// name. Matches transport.Factory so it can be used directly as a
// ClaService transport factory in tests and demos.
func Dial(broker *Broker) transport.Factory {
	return func(_ context.Context, participantName string) (transport.Middleware, error) {
		return &Participant{name: participantName, broker: broker}, nil
	}
}

func (p *Participant) Close() error { return nil }

func (p *Participant) topic(labels path.Labels) *topicState {
	p.broker.mu.Lock()
	defer p.broker.mu.Unlock()
	t, ok := p.broker.topics[labels.CanonicalName]
	if !ok {
		t = &topicState{}
		p.broker.topics[labels.CanonicalName] = t
	}
	return t
}

func (p *Participant) NewPublisher(labels path.Labels) (transport.Publisher, error) {
	return &publisher{topic: p.topic(labels)}, nil
}

type publisher struct {
	topic *topicState
}

func (pub *publisher) Publish(_ context.Context, payload []byte) error {
	pub.topic.mu.Lock()
	subs := append([]transport.SubscribeHandler(nil), pub.topic.subs...)
	pub.topic.mu.Unlock()
	for _, h := range subs {
		h(payload)
	}
	return nil
}

func (pub *publisher) Close() error { return nil }

func (p *Participant) NewSubscriber(labels path.Labels, handler transport.SubscribeHandler) (transport.Subscriber, error) {
	t := p.topic(labels)
	t.mu.Lock()
	t.subs = append(t.subs, handler)
	idx := len(t.subs) - 1
	t.mu.Unlock()
	return &subscriber{topic: t, idx: idx}, nil
}

type subscriber struct {
	topic *topicState
	idx   int
}

func (s *subscriber) Close() error {
	s.topic.mu.Lock()
	defer s.topic.mu.Unlock()
	if s.idx >= 0 && s.idx < len(s.topic.subs) {
		s.topic.subs[s.idx] = func([]byte) {} // tombstone, keep indices stable
	}
	return nil
}

func (p *Participant) NewRPCClient(labels path.Labels) (transport.RPCClient, error) {
	return &rpcClient{participant: p, name: labels.CanonicalName}, nil
}

type rpcClient struct {
	participant *Participant
	name        string
	mu          sync.Mutex
	handler     transport.ResponseHandler
}

func (c *rpcClient) SetResponseHandler(h transport.ResponseHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *rpcClient) Call(_ context.Context, callHandle uint64, payload []byte) transport.CallResult {
	if c.participant.broker.isUnreachable(c.name) {
		return transport.ServerNotReachable
	}

	c.participant.broker.mu.Lock()
	srv, ok := c.participant.broker.rpcServers[c.name]
	c.participant.broker.mu.Unlock()
	if !ok {
		return transport.NotConnected
	}

	srv.mu.Lock()
	h := srv.handler
	srv.mu.Unlock()
	if h == nil {
		return transport.NotConnected
	}

	resp, send := h(payload)
	if !send {
		return transport.Success
	}

	c.mu.Lock()
	respHandler := c.handler
	c.mu.Unlock()
	if respHandler != nil {
		respHandler(callHandle, resp, nil)
	}
	return transport.Success
}

func (c *rpcClient) Close() error { return nil }

func (p *Participant) NewRPCServer(labels path.Labels) (transport.RPCServer, error) {
	p.broker.mu.Lock()
	s, ok := p.broker.rpcServers[labels.CanonicalName]
	if !ok {
		s = &rpcServerState{}
		p.broker.rpcServers[labels.CanonicalName] = s
	}
	p.broker.mu.Unlock()
	return &rpcServer{broker: p.broker, name: labels.CanonicalName, state: s}, nil
}

type rpcServer struct {
	broker *Broker
	name   string
	state  *rpcServerState
}

func (s *rpcServer) SetRequestHandler(h transport.RequestHandler) {
	s.state.mu.Lock()
	s.state.handler = h
	s.state.mu.Unlock()
}

func (s *rpcServer) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if cur, ok := s.broker.rpcServers[s.name]; ok && cur == s.state {
		delete(s.broker.rpcServers, s.name)
	}
	return nil
}
