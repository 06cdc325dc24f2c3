package cla_test

import (
	"errors"
	"testing"

	"github.com/distcla/cla/cla"
	"github.com/distcla/cla/internal/valueentity"
)

func TestGetConsumedDataIsIdempotent(t *testing.T) {
	svc := cla.NewService(cla.Config{})
	do, err := svc.Registry().GetDo("N::I")
	if err != nil {
		t.Fatal(err)
	}

	a, err := do.GetConsumedData("Speed")
	if err != nil {
		t.Fatal(err)
	}
	b, err := do.GetConsumedData("Speed")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("GetConsumedData returned different instances for the same path")
	}
}

func TestGetMemberTypeConflictFails(t *testing.T) {
	svc := cla.NewService(cla.Config{})
	do, err := svc.Registry().GetDo("N::I")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := do.GetConsumedData("X"); err != nil {
		t.Fatal(err)
	}

	_, err = do.GetConsumedEvent("X")
	var ae *cla.AdapterError
	if !errors.As(err, &ae) || ae.Kind != cla.KindInvalidUsage {
		t.Fatalf("type-conflicting GetConsumedEvent() = %v, want InvalidUsage", err)
	}

	_, err = do.GetProvidedData("X", valueentity.OnUpdate)
	if !errors.As(err, &ae) || ae.Kind != cla.KindInvalidUsage {
		t.Fatalf("direction-conflicting GetProvidedData() = %v, want InvalidUsage", err)
	}
}

func TestDOPathJoinsParentAndRelative(t *testing.T) {
	svc := cla.NewService(cla.Config{})
	do, err := svc.Registry().GetDo("N::I")
	if err != nil {
		t.Fatal(err)
	}
	m, err := do.GetConsumedData("Speed")
	if err != nil {
		t.Fatal(err)
	}
	if m.Path() != "N::I.Speed" {
		t.Fatalf("Path() = %q, want N::I.Speed", m.Path())
	}
}
