package cla

import (
	"context"
	"testing"

	"github.com/distcla/cla/internal/path"
	"github.com/distcla/cla/internal/transport/inproc"
)

func resetDefault(t *testing.T) {
	t.Helper()
	defaultMu.Lock()
	defaultSvc = nil
	defaultMu.Unlock()
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultSvc = nil
		defaultMu.Unlock()
	})
}

func TestFacadeConnectUsesProcessWideService(t *testing.T) {
	resetDefault(t)
	broker := inproc.NewBroker()

	do, err := GetDo("N::I")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := do.GetConsumedData("Speed"); err != nil {
		t.Fatal(err)
	}

	if err := Connect(context.Background(), inproc.Dial(broker)); err != nil {
		t.Fatal(err)
	}
	defer Disconnect()

	if !Default().Connected() {
		t.Fatal("Default().Connected() = false after Connect")
	}
}

func TestFacadeConnectWithParticipantBorrows(t *testing.T) {
	resetDefault(t)
	broker := inproc.NewBroker()
	factory := inproc.Dial(broker)
	mw, err := factory(context.Background(), "borrowed")
	if err != nil {
		t.Fatal(err)
	}

	if err := ConnectWithParticipant(context.Background(), mw); err != nil {
		t.Fatal(err)
	}
	if err := Disconnect(); err != nil {
		t.Fatal(err)
	}
	// A borrowed Participant must survive Disconnect untouched.
	labels, err := path.DeriveLabels("N::I.X")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mw.NewPublisher(labels); err != nil {
		t.Fatal(err)
	}
}
