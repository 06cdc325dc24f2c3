// Package path parses distributed-object member paths and derives the
// mandatory matching labels the transport middleware uses to route
// publishers/subscribers and RPC clients/servers to the right peers.
package path

import (
	"fmt"
	"strings"
)

// VirtualNetwork is fixed per spec — every member lives on the same
// virtual network unless a future spec revision parameterizes it.
const VirtualNetwork = "Default"

// Member is a parsed "Namespace::Instance.Member[.Sub]" path.
//
// Namespace may itself contain "::" (e.g. "Vehicle::ECU::Powertrain"), in
// which case everything up to the last "::" is the namespace and the
// segment between the last "::" and the first "." is the instance.
type Member struct {
	Full      string // original, unparsed path
	Namespace string // "" if the path has no "::" at all
	Instance  string
	Segments  []string // dot-separated member segments, e.g. ["M1", "M2"]
}

// Parse splits a full member path into namespace/instance/segments.
// Returns an error if the path is empty or has no instance segment.
func Parse(full string) (Member, error) {
	if full == "" {
		return Member{}, fmt.Errorf("path: empty path")
	}

	nsInstance, rest, ok := strings.Cut(full, ".")
	if !ok {
		return Member{}, fmt.Errorf("path %q: missing member segment after instance", full)
	}
	if rest == "" {
		return Member{}, fmt.Errorf("path %q: empty member segment", full)
	}

	namespace := ""
	instance := nsInstance
	if i := strings.LastIndex(nsInstance, "::"); i >= 0 {
		namespace = nsInstance[:i]
		instance = nsInstance[i+2:]
	}
	if instance == "" {
		return Member{}, fmt.Errorf("path %q: empty instance segment", full)
	}

	return Member{
		Full:      full,
		Namespace: namespace,
		Instance:  instance,
		Segments:  strings.Split(rest, "."),
	}, nil
}

// Topic is the final member-segment group, e.g. "M1.M2" for the path
// "N1::N2.M1.M2".
func (m Member) Topic() string {
	return strings.Join(m.Segments, ".")
}

// Recompose re-joins namespace/instance/topic back into the original path.
// Used to verify the round-trip invariant (spec.md §8 invariant 7).
func (m Member) Recompose() string {
	var b strings.Builder
	if m.Namespace != "" {
		b.WriteString(m.Namespace)
		b.WriteString("::")
	}
	b.WriteString(m.Instance)
	b.WriteByte('.')
	b.WriteString(m.Topic())
	return b.String()
}

// Labels are the mandatory matching labels registered on both sides of a
// pub-sub or RPC pairing (spec.md §4.I). Only peers agreeing on all four
// labels are matched by the transport middleware.
type Labels struct {
	Topic          string
	Namespace      string
	Instance       string
	VirtualNetwork string
	CanonicalName  string
}

// DeriveLabels computes the mandatory matching labels for a member path.
func DeriveLabels(full string) (Labels, error) {
	m, err := Parse(full)
	if err != nil {
		return Labels{}, err
	}
	return Labels{
		Topic:          m.Topic(),
		Namespace:      m.Namespace,
		Instance:       m.Instance,
		VirtualNetwork: VirtualNetwork,
		CanonicalName:  m.Full,
	}, nil
}

// Suffix appends a sub-path segment, e.g. Suffix("N::I.Field", "Get") ->
// "N::I.Field.Get". Used to derive a Field's Get/Set/Notification paths.
func Suffix(full, segment string) string {
	return full + "." + segment
}
