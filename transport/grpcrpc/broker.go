package grpcrpc

import (
	"fmt"
	"io"
	"net"
	"sync"

	"google.golang.org/grpc"
)

const (
	serviceName = "cla.grpcrpc.CallRelay"
	methodName  = "Relay"
)

var relayMethod = "/" + serviceName + "/" + methodName

// Broker is a small gRPC-native relay: Consumed Method Middlewares and
// Provided Method Middlewares each dial it and open one bidirectional
// stream per member (SPEC_FULL.md "RPC transport binding"). The broker
// forwards kindRequest envelopes to whichever stream registered the
// matching canonicalName, and routes the matching kindResponse back to
// the stream that sent the request, keyed by callHandle — the same
// demultiplexing discipline as the core's pendingCalls map, just on the
// wire instead of in process memory.
type Broker struct {
	grpcServer *grpc.Server
	listener   net.Listener

	mu        sync.Mutex
	providers map[string]*wireStream // canonicalName -> provider stream
	inflight  map[uint64]*wireStream // callHandle -> requesting stream
}

// wireStream wraps a grpc.ServerStream with a send mutex: grpc streams
// tolerate one concurrent Send and one concurrent Recv, not two
// concurrent Sends (SendMsg is called both from this stream's own relay
// loop and, for provider streams, from other goroutines forwarding
// requests into it).
type wireStream struct {
	mu     sync.Mutex
	stream grpc.ServerStream
}

func (w *wireStream) send(e envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stream.SendMsg(&rawMessage{data: encodeEnvelope(e)})
}

// NewBroker starts listening on addr and serving the relay method in a
// background goroutine. Call Close to stop it.
func NewBroker(addr string) (*Broker, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpcrpc: listen %s: %w", addr, err)
	}

	b := &Broker{
		listener:  ln,
		providers: make(map[string]*wireStream),
		inflight:  make(map[uint64]*wireStream),
	}

	desc := &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*any)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    methodName,
			Handler:       b.handleRelay,
			ServerStreams: true,
			ClientStreams: true,
		}},
	}

	b.grpcServer = grpc.NewServer()
	b.grpcServer.RegisterService(desc, nil)

	go b.grpcServer.Serve(ln)
	return b, nil
}

// Addr is the broker's listen address, suitable for Dial.
func (b *Broker) Addr() string { return b.listener.Addr().String() }

// Close stops serving and releases the listener.
func (b *Broker) Close() error {
	b.grpcServer.Stop()
	return nil
}

func (b *Broker) handleRelay(_ any, stream grpc.ServerStream) error {
	self := &wireStream{stream: stream}
	var registeredAs string

	defer func() {
		if registeredAs != "" {
			b.mu.Lock()
			if cur, ok := b.providers[registeredAs]; ok && cur == self {
				delete(b.providers, registeredAs)
			}
			b.mu.Unlock()
		}
	}()

	for {
		var msg rawMessage
		if err := stream.RecvMsg(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		env := decodeEnvelope(msg.data)

		switch env.kind {
		case kindRegister:
			registeredAs = env.canonicalName
			b.mu.Lock()
			b.providers[env.canonicalName] = self
			b.mu.Unlock()

		case kindRequest:
			b.mu.Lock()
			provider, ok := b.providers[env.canonicalName]
			if ok {
				b.inflight[env.callHandle] = self
			}
			b.mu.Unlock()
			if !ok {
				if err := self.send(envelope{
					kind:        kindResponse,
					callHandle:  env.callHandle,
					unreachable: true,
				}); err != nil {
					return err
				}
				continue
			}
			if err := provider.send(env); err != nil {
				return err
			}

		case kindResponse:
			b.mu.Lock()
			requester, ok := b.inflight[env.callHandle]
			delete(b.inflight, env.callHandle)
			b.mu.Unlock()
			if ok {
				if err := requester.send(env); err != nil {
					return err
				}
			}
		}
	}
}
