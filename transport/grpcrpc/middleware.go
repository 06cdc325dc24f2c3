// Package grpcrpc implements transport.RPCClient/transport.RPCServer over a
// gRPC bidirectional stream per member, multiplexed by call handle
// (SPEC_FULL.md "Consumed/Provided Method — RPC transport binding"). It
// does not implement Publisher/Subscriber: Data/Event members bind to
// transport/kafkapubsub instead.
package grpcrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/distcla/cla/internal/path"
	"github.com/distcla/cla/internal/transport"
)

var errNotSupported = errors.New("grpcrpc: Data/Event members are not supported, use transport/kafkapubsub")

var clientStreamDesc = &grpc.StreamDesc{
	StreamName:    methodName,
	ServerStreams: true,
	ClientStreams: true,
}

// Dial returns a transport.Factory connecting to a Broker at addr. Every
// Middleware it mints owns its own grpc.ClientConn; each Consumed/Provided
// Method member opens its own stream on that connection (spec.md §4.H
// "Participant").
func Dial(addr string) transport.Factory {
	return func(ctx context.Context, _ string) (transport.Middleware, error) {
		conn, err := grpc.NewClient(addr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rawCodecName)),
		)
		if err != nil {
			return nil, fmt.Errorf("grpcrpc: dial %s: %w", addr, err)
		}
		return &Middleware{conn: conn}, nil
	}
}

// Middleware is the grpcrpc Participant (spec.md §4.H).
type Middleware struct {
	conn *grpc.ClientConn
}

func (m *Middleware) NewPublisher(path.Labels) (transport.Publisher, error) {
	return nil, errNotSupported
}

func (m *Middleware) NewSubscriber(path.Labels, transport.SubscribeHandler) (transport.Subscriber, error) {
	return nil, errNotSupported
}

func (m *Middleware) Close() error { return m.conn.Close() }

// NewRPCClient opens one bidirectional stream for a Consumed Method
// member and starts its response-demultiplexing loop.
func (m *Middleware) NewRPCClient(labels path.Labels) (transport.RPCClient, error) {
	stream, err := m.conn.NewStream(context.Background(), clientStreamDesc, relayMethod)
	if err != nil {
		return nil, fmt.Errorf("grpcrpc: open client stream for %s: %w", labels.CanonicalName, err)
	}

	c := &rpcClient{
		name:   labels.CanonicalName,
		stream: stream,
		closed: make(chan struct{}),
	}
	go c.recvLoop()
	return c, nil
}

type rpcClient struct {
	name   string
	stream grpc.ClientStream

	sendMu sync.Mutex

	handlerMu sync.Mutex
	handler   transport.ResponseHandler

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *rpcClient) SetResponseHandler(h transport.ResponseHandler) {
	c.handlerMu.Lock()
	c.handler = h
	c.handlerMu.Unlock()
}

func (c *rpcClient) Call(_ context.Context, callHandle uint64, payload []byte) transport.CallResult {
	c.sendMu.Lock()
	err := c.stream.SendMsg(&rawMessage{data: encodeEnvelope(envelope{
		kind:          kindRequest,
		canonicalName: c.name,
		callHandle:    callHandle,
		payload:       payload,
	})})
	c.sendMu.Unlock()
	if err != nil {
		return transport.ServerNotReachable
	}
	return transport.Success
}

func (c *rpcClient) recvLoop() {
	for {
		var msg rawMessage
		if err := c.stream.RecvMsg(&msg); err != nil {
			return
		}
		env := decodeEnvelope(msg.data)
		if env.kind != kindResponse {
			continue
		}

		c.handlerMu.Lock()
		h := c.handler
		c.handlerMu.Unlock()
		if h == nil {
			continue
		}
		if env.unreachable {
			h(env.callHandle, nil, transport.ServerNotReachable)
		} else {
			h(env.callHandle, env.payload, nil)
		}
	}
}

func (c *rpcClient) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.stream.CloseSend()
}

// NewRPCServer opens one bidirectional stream for a Provided Method
// member, registers it with the broker, and starts answering inbound
// requests through the installed RequestHandler.
func (m *Middleware) NewRPCServer(labels path.Labels) (transport.RPCServer, error) {
	stream, err := m.conn.NewStream(context.Background(), clientStreamDesc, relayMethod)
	if err != nil {
		return nil, fmt.Errorf("grpcrpc: open server stream for %s: %w", labels.CanonicalName, err)
	}

	s := &rpcServer{
		name:   labels.CanonicalName,
		stream: stream,
	}
	if err := stream.SendMsg(&rawMessage{data: encodeEnvelope(envelope{
		kind:          kindRegister,
		canonicalName: labels.CanonicalName,
	})}); err != nil {
		return nil, fmt.Errorf("grpcrpc: register %s: %w", labels.CanonicalName, err)
	}

	go s.recvLoop()
	return s, nil
}

type rpcServer struct {
	name   string
	stream grpc.ClientStream
	sendMu sync.Mutex

	handlerMu sync.Mutex
	handler   transport.RequestHandler
}

func (s *rpcServer) SetRequestHandler(h transport.RequestHandler) {
	s.handlerMu.Lock()
	s.handler = h
	s.handlerMu.Unlock()
}

func (s *rpcServer) recvLoop() {
	for {
		var msg rawMessage
		if err := s.stream.RecvMsg(&msg); err != nil {
			if !errors.Is(err, io.EOF) {
				return
			}
			return
		}
		env := decodeEnvelope(msg.data)
		if env.kind != kindRequest {
			continue
		}

		s.handlerMu.Lock()
		h := s.handler
		s.handlerMu.Unlock()
		if h == nil {
			continue
		}

		resp, send := h(env.payload)
		if !send {
			continue
		}
		s.sendMu.Lock()
		s.stream.SendMsg(&rawMessage{data: encodeEnvelope(envelope{
			kind:       kindResponse,
			callHandle: env.callHandle,
			payload:    resp,
		})})
		s.sendMu.Unlock()
	}
}

func (s *rpcServer) Close() error {
	return s.stream.CloseSend()
}
