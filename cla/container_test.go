package cla_test

import (
	"errors"
	"testing"

	"github.com/distcla/cla/cla"
)

func TestContainerGetDoIsIdempotent(t *testing.T) {
	svc := cla.NewService(cla.Config{})
	c, err := svc.Registry().GetDoInstContainer("N::Fleet")
	if err != nil {
		t.Fatal(err)
	}

	a, err := c.GetDo(0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.GetDo(0)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("GetDo(0) returned different instances")
	}
	if a.Path() != "N::Fleet[0]" {
		t.Fatalf("Path() = %q, want N::Fleet[0]", a.Path())
	}
}

func TestContainerElementKindFixedAtFirstAccess(t *testing.T) {
	svc := cla.NewService(cla.Config{})
	c, err := svc.Registry().GetDoInstContainer("N::Fleet")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetDo(0); err != nil {
		t.Fatal(err)
	}

	_, err = c.GetContainer(0)
	var ae *cla.AdapterError
	if !errors.As(err, &ae) || ae.Kind != cla.KindInvalidUsage {
		t.Fatalf("GetContainer(0) over DO element = %v, want InvalidUsage", err)
	}
}

func TestNestedContainer(t *testing.T) {
	svc := cla.NewService(cla.Config{})
	c, err := svc.Registry().GetDoInstContainer("N::Fleet")
	if err != nil {
		t.Fatal(err)
	}
	nested, err := c.GetContainer(0)
	if err != nil {
		t.Fatal(err)
	}
	do, err := nested.GetDo(3)
	if err != nil {
		t.Fatal(err)
	}
	if do.Path() != "N::Fleet[0][3]" {
		t.Fatalf("Path() = %q, want N::Fleet[0][3]", do.Path())
	}
}
