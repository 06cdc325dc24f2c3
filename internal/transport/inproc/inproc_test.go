package inproc_test

import (
	"context"
	"testing"

	"github.com/distcla/cla/internal/path"
	"github.com/distcla/cla/internal/transport"
	"github.com/distcla/cla/internal/transport/inproc"
)

func labelsFor(t *testing.T, full string) path.Labels {
	t.Helper()
	l, err := path.DeriveLabels(full)
	if err != nil {
		t.Fatalf("DeriveLabels(%q): %v", full, err)
	}
	return l
}

func TestPubSubLoopback(t *testing.T) {
	broker := inproc.NewBroker()
	factory := inproc.Dial(broker)
	mw, err := factory(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}

	labels := labelsFor(t, "N::I.Data")
	var got []byte
	sub, err := mw.NewSubscriber(labels, func(payload []byte) { got = payload })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	pub, err := mw.NewPublisher(labels)
	if err != nil {
		t.Fatal(err)
	}
	if err := pub.Publish(context.Background(), []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got = %v, want [1 2 3]", got)
	}
}

func TestRPCLoopback(t *testing.T) {
	broker := inproc.NewBroker()
	factory := inproc.Dial(broker)
	mw, _ := factory(context.Background(), "p1")

	labels := labelsFor(t, "N::I.Method")
	srv, err := mw.NewRPCServer(labels)
	if err != nil {
		t.Fatal(err)
	}
	srv.SetRequestHandler(func(req []byte) ([]byte, bool) {
		return append([]byte{0xFF}, req...), true
	})

	cli, err := mw.NewRPCClient(labels)
	if err != nil {
		t.Fatal(err)
	}
	var gotHandle uint64
	var gotPayload []byte
	cli.SetResponseHandler(func(h uint64, payload []byte, transportErr error) {
		gotHandle = h
		gotPayload = payload
	})

	res := cli.Call(context.Background(), 42, []byte{1})
	if res != transport.Success {
		t.Fatalf("Call result = %v, want Success", res)
	}
	if gotHandle != 42 {
		t.Fatalf("handle = %d, want 42", gotHandle)
	}
	if len(gotPayload) != 2 || gotPayload[0] != 0xFF || gotPayload[1] != 1 {
		t.Fatalf("payload = %v, want [0xFF 1]", gotPayload)
	}
}

func TestRPCNotConnectedWithoutServer(t *testing.T) {
	broker := inproc.NewBroker()
	factory := inproc.Dial(broker)
	mw, _ := factory(context.Background(), "p1")

	labels := labelsFor(t, "N::I.Method")
	cli, _ := mw.NewRPCClient(labels)
	if res := cli.Call(context.Background(), 1, nil); res != transport.NotConnected {
		t.Fatalf("Call result = %v, want NotConnected", res)
	}
}

func TestRPCServerUnreachableFlag(t *testing.T) {
	broker := inproc.NewBroker()
	factory := inproc.Dial(broker)
	mw, _ := factory(context.Background(), "p1")

	labels := labelsFor(t, "N::I.Method")
	srv, _ := mw.NewRPCServer(labels)
	srv.SetRequestHandler(func(req []byte) ([]byte, bool) { return req, true })

	broker.SetUnreachable(labels.CanonicalName, true)
	cli, _ := mw.NewRPCClient(labels)
	if res := cli.Call(context.Background(), 1, nil); res != transport.ServerNotReachable {
		t.Fatalf("Call result = %v, want ServerNotReachable", res)
	}

	broker.SetUnreachable(labels.CanonicalName, false)
	if res := cli.Call(context.Background(), 1, nil); res != transport.Success {
		t.Fatalf("Call result after recovery = %v, want Success", res)
	}
}
