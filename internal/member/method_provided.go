package member

import (
	"sync"

	"github.com/distcla/cla/internal/callctx"
	"github.com/distcla/cla/internal/path"
	"github.com/distcla/cla/internal/transport"
)

// ProvidedHandler services one inbound request. It reads cc.InputParameters
// and may call cc.WriteOutput; if it does not (including when it writes
// OutputParameters directly through SetData), an empty response is
// submitted.
type ProvidedHandler func(cc *callctx.ProviderCallContext)

// ProvidedMethod is the runtime for a Provided Method member (spec.md §4.G):
// services inbound RPC requests one at a time — handler invocations are
// serialized, matching the single-threaded semantics the rest of the
// adapter core assumes for provider callbacks (spec.md §5).
type ProvidedMethod struct {
	fullPath string

	mu        sync.Mutex
	connected bool
	server    transport.RPCServer

	handlerMu sync.Mutex
	handler   ProvidedHandler

	// invokeMu serializes handler invocations; spec.md §4.G requires
	// provider callbacks never run concurrently with one another.
	invokeMu sync.Mutex
}

// NewProvidedMethod returns an unconnected Provided Method runtime with no
// handler installed; requests are answered with an empty payload until
// SetHandler is called.
func NewProvidedMethod(fullPath string) *ProvidedMethod {
	return &ProvidedMethod{fullPath: fullPath}
}

func (m *ProvidedMethod) Path() string        { return m.fullPath }
func (m *ProvidedMethod) Kind() Kind          { return Method }
func (m *ProvidedMethod) Direction() Direction { return DirProvided }

func (m *ProvidedMethod) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetHandler installs (or replaces) the servicing callback.
func (m *ProvidedMethod) SetHandler(h ProvidedHandler) {
	m.handlerMu.Lock()
	m.handler = h
	m.handlerMu.Unlock()
}

// Connect creates the RPC server and installs the request dispatcher.
func (m *ProvidedMethod) Connect(mw transport.Middleware, labels path.Labels) error {
	server, err := mw.NewRPCServer(labels)
	if err != nil {
		return err
	}
	server.SetRequestHandler(m.onRequest)

	m.mu.Lock()
	m.server = server
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *ProvidedMethod) Disconnect() error {
	m.mu.Lock()
	server := m.server
	m.server = nil
	m.connected = false
	m.mu.Unlock()
	if server != nil {
		return server.Close()
	}
	return nil
}

// onRequest runs the installed handler and decides whether a response
// should be sent. send=false tells the transport to drop the reply
// silently (spec.md §4.G): this member was disconnected by the time the
// handler returned, so there is no longer a publisher side to answer on.
func (m *ProvidedMethod) onRequest(requestPayload []byte) (responsePayload []byte, send bool) {
	m.invokeMu.Lock()
	defer m.invokeMu.Unlock()

	cc := callctx.NewProviderCallContext(requestPayload)

	m.handlerMu.Lock()
	h := m.handler
	m.handlerMu.Unlock()
	if h != nil {
		h(cc)
	}

	if !m.Connected() {
		return nil, false
	}
	if cc.OutputsSerialized() {
		return cc.OutputParameters.CopyData(), true
	}
	return nil, true
}
