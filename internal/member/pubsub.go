package member

import (
	"context"
	"sync"
	"time"

	"github.com/distcla/cla/internal/path"
	"github.com/distcla/cla/internal/transport"
	"github.com/distcla/cla/internal/valueentity"
)

// Consumed is the runtime for a Consumed Data or Event member
// (spec.md §4.D): a pub-sub subscriber overwriting Entity on every inbound
// message, fanning out through Entity's own callback lists.
type Consumed struct {
	fullPath string
	kind     Kind
	entity   *valueentity.ValueEntity

	mu        sync.Mutex
	connected bool
	sub       transport.Subscriber

	firstMu      sync.Mutex
	firstArmed   bool
	firstCh      chan struct{}
	firstClosed  bool
}

// NewConsumed returns an unconnected Consumed Data/Event runtime backed by
// entity. Field passes its own shared entity in here for the Notification
// sub-member (spec.md §3 "A Field's ValueEntity is shared...").
func NewConsumed(fullPath string, kind Kind, entity *valueentity.ValueEntity) *Consumed {
	return &Consumed{fullPath: fullPath, kind: kind, entity: entity}
}

func (m *Consumed) Path() string                     { return m.fullPath }
func (m *Consumed) Kind() Kind                        { return m.kind }
func (m *Consumed) Direction() Direction              { return DirConsumed }
func (m *Consumed) Entity() *valueentity.ValueEntity  { return m.entity }

func (m *Consumed) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Connect subscribes to the member's canonical topic. Inbound messages
// overwrite Entity, which performs its own on-update/on-change fan-out.
func (m *Consumed) Connect(mw transport.Middleware, labels path.Labels) error {
	sub, err := mw.NewSubscriber(labels, m.onMessage)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sub = sub
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *Consumed) Disconnect() error {
	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	m.connected = false
	m.mu.Unlock()
	if sub != nil {
		return sub.Close()
	}
	return nil
}

func (m *Consumed) onMessage(payload []byte) {
	m.entity.SetData(payload)
	m.signalFirstTransmission()
}

// BlockAtConnect arms a one-shot wait: the next inbound message after this
// call (or the first one already armed) releases WaitForFirstTransmission.
func (m *Consumed) BlockAtConnect() {
	m.firstMu.Lock()
	defer m.firstMu.Unlock()
	if m.firstArmed {
		return
	}
	m.firstArmed = true
	m.firstCh = make(chan struct{})
	m.firstClosed = false
}

func (m *Consumed) signalFirstTransmission() {
	m.firstMu.Lock()
	defer m.firstMu.Unlock()
	if m.firstArmed && !m.firstClosed {
		close(m.firstCh)
		m.firstClosed = true
	}
}

// WaitForFirstTransmission blocks until the armed first inbound message
// arrives or timeout elapses, per spec.md §4.D and scenario S5.
func (m *Consumed) WaitForFirstTransmission(timeout time.Duration) error {
	m.firstMu.Lock()
	if !m.firstArmed {
		m.firstArmed = true
		m.firstCh = make(chan struct{})
	}
	ch := m.firstCh
	m.firstMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ErrTimeout
	}
}

// Provided is the runtime for a Provided Data or Event member
// (spec.md §4.E): a pub-sub publisher that republishes Entity's bytes on
// every on-update or on-change callback, selected by TxTrigger at
// construction time.
type Provided struct {
	fullPath  string
	kind      Kind
	entity    *valueentity.ValueEntity
	txTrigger valueentity.Mode

	mu        sync.Mutex
	connected bool
	pub       transport.Publisher
	cbHandle  valueentity.CallbackHandle
}

// NewProvided returns an unconnected Provided Data/Event runtime.
func NewProvided(fullPath string, kind Kind, entity *valueentity.ValueEntity, trigger valueentity.Mode) *Provided {
	return &Provided{fullPath: fullPath, kind: kind, entity: entity, txTrigger: trigger}
}

func (m *Provided) Path() string                     { return m.fullPath }
func (m *Provided) Kind() Kind                        { return m.kind }
func (m *Provided) Direction() Direction              { return DirProvided }
func (m *Provided) Entity() *valueentity.ValueEntity  { return m.entity }

func (m *Provided) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Connect creates the publisher and registers the trigger-selected
// callback that republishes Entity's bytes.
func (m *Provided) Connect(mw transport.Middleware, labels path.Labels) error {
	pub, err := mw.NewPublisher(labels)
	if err != nil {
		return err
	}
	h := m.entity.RegisterCallback(func(data []byte) {
		_ = pub.Publish(context.Background(), data)
	}, m.txTrigger)

	m.mu.Lock()
	m.pub = pub
	m.cbHandle = h
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *Provided) Disconnect() error {
	m.mu.Lock()
	pub := m.pub
	h := m.cbHandle
	m.pub = nil
	m.connected = false
	m.mu.Unlock()

	m.entity.UnregisterCallback(h)
	if pub != nil {
		return pub.Close()
	}
	return nil
}

// Trigger re-commits the current Entity bytes through SetData — used for
// unit-typed Provided Events, which carry no payload of their own and are
// "triggered" by serializing an empty value (spec.md §4.E). With the
// OnUpdate trigger this publishes; with OnChange nothing is published,
// since the bytes do not change.
func (m *Provided) Trigger() {
	m.entity.SetData(m.entity.CopyData())
}
