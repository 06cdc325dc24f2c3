// Package kafkapubsub implements transport.Publisher/transport.Subscriber
// on top of franz-go (SPEC_FULL.md "Consumed/Provided Data/Event — pub-sub
// transport binding"). It does not implement RPCClient/RPCServer: Method
// members bind to transport/grpcrpc instead.
package kafkapubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/distcla/cla/internal/path"
	"github.com/distcla/cla/internal/transport"
)

// virtualNetworkHeader carries the mandatory virtualNetwork matching label
// (spec.md §4.I) as a Kafka record header, since Kafka topics are flat and
// can't themselves encode it without colliding identical paths on
// different virtual networks.
const virtualNetworkHeader = "virtualNetwork"

var errNotSupported = errors.New("kafkapubsub: Method members are not supported, use transport/grpcrpc")

// kafkaTopic maps the three remaining mandatory labels to a single Kafka
// topic string (SPEC_FULL.md "pub-sub transport binding").
func kafkaTopic(labels path.Labels) string {
	return labels.Namespace + "/" + labels.Instance + "/" + labels.Topic
}

// Dial returns a transport.Factory connecting to the given Kafka brokers,
// consuming under a group named after the participant.
func Dial(brokers []string) transport.Factory {
	return func(_ context.Context, participantName string) (transport.Middleware, error) {
		client, err := kgo.NewClient(
			kgo.SeedBrokers(brokers...),
			kgo.ConsumerGroup(participantName),
			kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		)
		if err != nil {
			return nil, fmt.Errorf("kafkapubsub: new client: %w", err)
		}
		return &Middleware{client: client, handlers: make(map[string][]topicHandler)}, nil
	}
}

type topicHandler struct {
	virtualNetwork string
	handler        transport.SubscribeHandler
}

// Middleware is the kafkapubsub Participant (spec.md §4.H).
type Middleware struct {
	client *kgo.Client

	mu       sync.Mutex
	handlers map[string][]topicHandler

	pollOnce sync.Once
	pollStop context.CancelFunc
}

func (m *Middleware) NewPublisher(labels path.Labels) (transport.Publisher, error) {
	return &publisher{client: m.client, topic: kafkaTopic(labels), virtualNetwork: labels.VirtualNetwork}, nil
}

type publisher struct {
	client         *kgo.Client
	topic          string
	virtualNetwork string
}

func (p *publisher) Publish(ctx context.Context, payload []byte) error {
	rec := &kgo.Record{
		Topic: p.topic,
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: virtualNetworkHeader, Value: []byte(p.virtualNetwork)},
		},
	}
	return p.client.ProduceSync(ctx, rec).FirstErr()
}

func (p *publisher) Close() error { return nil }

func (m *Middleware) NewSubscriber(labels path.Labels, handler transport.SubscribeHandler) (transport.Subscriber, error) {
	topic := kafkaTopic(labels)

	m.mu.Lock()
	m.handlers[topic] = append(m.handlers[topic], topicHandler{virtualNetwork: labels.VirtualNetwork, handler: handler})
	idx := len(m.handlers[topic]) - 1
	m.mu.Unlock()

	m.client.AddConsumeTopics(topic)
	m.ensurePolling()

	return &subscriber{mw: m, topic: topic, idx: idx}, nil
}

// ensurePolling starts the single background fetch loop lazily, on the
// first subscription — a Middleware with no Consumed Data/Event members
// never polls at all.
func (m *Middleware) ensurePolling() {
	m.pollOnce.Do(func() {
		var ctx context.Context
		ctx, m.pollStop = context.WithCancel(context.Background())
		go m.pollLoop(ctx)
	})
}

func (m *Middleware) pollLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		fetches := m.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return
		}
		fetches.EachRecord(m.dispatch)
	}
}

func (m *Middleware) dispatch(rec *kgo.Record) {
	var vnet string
	for _, h := range rec.Headers {
		if h.Key == virtualNetworkHeader {
			vnet = string(h.Value)
		}
	}

	m.mu.Lock()
	handlers := append([]topicHandler(nil), m.handlers[rec.Topic]...)
	m.mu.Unlock()

	for _, th := range handlers {
		if th.handler == nil || th.virtualNetwork != vnet {
			continue
		}
		th.handler(rec.Value)
	}
}

type subscriber struct {
	mw    *Middleware
	topic string
	idx   int
}

func (s *subscriber) Close() error {
	s.mw.mu.Lock()
	defer s.mw.mu.Unlock()
	handlers := s.mw.handlers[s.topic]
	if s.idx >= 0 && s.idx < len(handlers) {
		handlers[s.idx].handler = nil // tombstone, keep indices stable
	}
	return nil
}

func (m *Middleware) NewRPCClient(path.Labels) (transport.RPCClient, error) {
	return nil, errNotSupported
}

func (m *Middleware) NewRPCServer(path.Labels) (transport.RPCServer, error) {
	return nil, errNotSupported
}

func (m *Middleware) Close() error {
	if m.pollStop != nil {
		m.pollStop()
	}
	m.client.Close()
	return nil
}
