package kafkapubsub

import (
	"testing"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/distcla/cla/internal/path"
)

func TestKafkaTopicMapping(t *testing.T) {
	labels, err := path.DeriveLabels("Vehicle::ECU.Speed")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := kafkaTopic(labels), "Vehicle/ECU/Speed"; got != want {
		t.Fatalf("kafkaTopic = %q, want %q", got, want)
	}
}

func TestDispatchFiltersByVirtualNetwork(t *testing.T) {
	var got []byte
	m := &Middleware{handlers: map[string][]topicHandler{
		"N/I/Speed": {
			{virtualNetwork: "Default", handler: func(p []byte) { got = p }},
			{virtualNetwork: "Other", handler: func(p []byte) { t.Fatal("wrong virtual network dispatched") }},
		},
	}}

	m.dispatch(&kgo.Record{
		Topic: "N/I/Speed",
		Value: []byte{9, 9},
		Headers: []kgo.RecordHeader{
			{Key: virtualNetworkHeader, Value: []byte("Default")},
		},
	})

	if string(got) != string([]byte{9, 9}) {
		t.Fatalf("dispatched payload = %v, want [9 9]", got)
	}
}

func TestDispatchSkipsTombstonedHandler(t *testing.T) {
	m := &Middleware{handlers: map[string][]topicHandler{
		"N/I/Speed": {
			{virtualNetwork: "Default", handler: nil},
		},
	}}

	m.dispatch(&kgo.Record{
		Topic: "N/I/Speed",
		Headers: []kgo.RecordHeader{
			{Key: virtualNetworkHeader, Value: []byte("Default")},
		},
	})
}
