package path_test

import (
	"testing"

	"github.com/distcla/cla/internal/path"
)

func TestParseAndRecompose(t *testing.T) {
	cases := []string{
		"Vehicle::ECU.EngineSpeed",
		"Vehicle::ECU::Powertrain.Field.Get",
		"NoNamespace.Member",
		"A::B.M1.M2.M3",
	}
	for _, full := range cases {
		m, err := path.Parse(full)
		if err != nil {
			t.Fatalf("Parse(%q): %v", full, err)
		}
		if got := m.Recompose(); got != full {
			t.Errorf("Recompose(Parse(%q)) = %q, want %q", full, got, full)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{"", "NoDot", "::Instance.", "::.Member"}
	for _, full := range cases {
		if _, err := path.Parse(full); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", full)
		}
	}
}

func TestDeriveLabels(t *testing.T) {
	l, err := path.DeriveLabels("Vehicle::ECU.Field.Get")
	if err != nil {
		t.Fatalf("DeriveLabels: %v", err)
	}
	if l.Namespace != "Vehicle" {
		t.Errorf("Namespace = %q, want %q", l.Namespace, "Vehicle")
	}
	if l.Instance != "ECU" {
		t.Errorf("Instance = %q, want %q", l.Instance, "ECU")
	}
	if l.Topic != "Field.Get" {
		t.Errorf("Topic = %q, want %q", l.Topic, "Field.Get")
	}
	if l.VirtualNetwork != path.VirtualNetwork {
		t.Errorf("VirtualNetwork = %q, want %q", l.VirtualNetwork, path.VirtualNetwork)
	}
	if l.CanonicalName != "Vehicle::ECU.Field.Get" {
		t.Errorf("CanonicalName = %q", l.CanonicalName)
	}
}

func TestSuffix(t *testing.T) {
	if got := path.Suffix("N::I.Field", "Get"); got != "N::I.Field.Get" {
		t.Errorf("Suffix = %q", got)
	}
}

func TestMultiLevelNamespace(t *testing.T) {
	m, err := path.Parse("Vehicle::ECU::Powertrain.Field.Get")
	if err != nil {
		t.Fatal(err)
	}
	if m.Namespace != "Vehicle::ECU" {
		t.Errorf("Namespace = %q, want %q", m.Namespace, "Vehicle::ECU")
	}
	if m.Instance != "Powertrain" {
		t.Errorf("Instance = %q, want %q", m.Instance, "Powertrain")
	}
}
