package member_test

import (
	"context"
	"testing"

	"github.com/distcla/cla/internal/callctx"
	"github.com/distcla/cla/internal/member"
	"github.com/distcla/cla/internal/transport/inproc"
)

func TestProvidedMethodEchoesWrittenOutput(t *testing.T) {
	broker := inproc.NewBroker()
	factory := inproc.Dial(broker)
	providerMW, _ := factory(context.Background(), "provider")
	consumerMW, _ := factory(context.Background(), "consumer")

	labels := labelsFor(t, "N::I.Add")
	pm := member.NewProvidedMethod("N::I.Add")
	pm.SetHandler(func(cc *callctx.ProviderCallContext) {
		cc.WriteOutput(append([]byte{0xEE}, cc.InputParameters.CopyData()...))
	})
	if err := pm.Connect(providerMW, labels); err != nil {
		t.Fatal(err)
	}

	cli, _ := consumerMW.NewRPCClient(labels)
	var got []byte
	cli.SetResponseHandler(func(_ uint64, payload []byte, _ error) { got = payload })
	cli.Call(context.Background(), 1, []byte{7})

	if len(got) != 2 || got[0] != 0xEE || got[1] != 7 {
		t.Fatalf("got = %v, want [0xEE 7]", got)
	}
}

func TestProvidedMethodEmptyOutputWhenUnwritten(t *testing.T) {
	broker := inproc.NewBroker()
	factory := inproc.Dial(broker)
	providerMW, _ := factory(context.Background(), "provider")
	consumerMW, _ := factory(context.Background(), "consumer")

	labels := labelsFor(t, "N::I.Ping")
	pm := member.NewProvidedMethod("N::I.Ping")
	pm.SetHandler(func(*callctx.ProviderCallContext) {})
	if err := pm.Connect(providerMW, labels); err != nil {
		t.Fatal(err)
	}

	cli, _ := consumerMW.NewRPCClient(labels)
	called := false
	var got []byte
	cli.SetResponseHandler(func(_ uint64, payload []byte, _ error) { called = true; got = payload })
	cli.Call(context.Background(), 1, []byte{1, 2, 3})

	if !called {
		t.Fatal("response handler never invoked")
	}
	if len(got) != 0 {
		t.Fatalf("got = %v, want empty", got)
	}
}

func TestProvidedMethodDropsSilentlyWhenDisconnectedDuringHandler(t *testing.T) {
	broker := inproc.NewBroker()
	factory := inproc.Dial(broker)
	providerMW, _ := factory(context.Background(), "provider")
	consumerMW, _ := factory(context.Background(), "consumer")

	labels := labelsFor(t, "N::I.Add")
	pm := member.NewProvidedMethod("N::I.Add")
	pm.SetHandler(func(cc *callctx.ProviderCallContext) {
		cc.WriteOutput([]byte{1})
		_ = pm.Disconnect()
	})
	if err := pm.Connect(providerMW, labels); err != nil {
		t.Fatal(err)
	}

	cli, _ := consumerMW.NewRPCClient(labels)
	called := false
	cli.SetResponseHandler(func(_ uint64, _ []byte, _ error) { called = true })
	cli.Call(context.Background(), 1, nil)

	if called {
		t.Fatal("response handler invoked after provider disconnected mid-request")
	}
}
