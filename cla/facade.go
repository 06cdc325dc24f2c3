// Package cla is the external façade of the Communication and Lookup
// Adapter: a tree of distributed objects kept in sync with a peer
// simulation process over a pluggable transport.Middleware.
//
// Most hosts only need the package-level functions below, backed by a
// process-wide lazily-initialized Service (spec.md §9 "global singleton
// entry points... model as a process-wide lazily-initialized service").
// Tests and multi-instance hosts should use NewService directly instead.
package cla

import (
	"context"
	"sync"

	"github.com/distcla/cla/internal/transport"
)

var (
	defaultMu  sync.Mutex
	defaultSvc *Service
)

func defaultService(cfg Config) *Service {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSvc == nil {
		defaultSvc = NewService(cfg)
		return defaultSvc
	}
	// An existing Service (e.g. created by GetDo before Connect) picks up the
	// factory, name and participant passed to a Connect* call.
	s := defaultSvc
	s.mu.Lock()
	if !s.connected {
		if cfg.Factory != nil {
			s.factory = cfg.Factory
		}
		if cfg.ParticipantName != "" {
			s.name = cfg.ParticipantName
		}
		if cfg.Participant != nil {
			s.mw, s.mwOwned = cfg.Participant, false
		}
	}
	s.mu.Unlock()
	return s
}

// Default returns the process-wide Service, constructing it with a bare
// Config on first use.
func Default() *Service {
	return defaultService(Config{})
}

// Connect connects the process-wide Service, dialing a Participant through
// factory under the default name ("SilAdapter").
func Connect(ctx context.Context, factory transport.Factory) error {
	return defaultService(Config{Factory: factory}).Connect(ctx)
}

// ConnectNamed connects the process-wide Service under an explicit
// participant name.
func ConnectNamed(ctx context.Context, name string, factory transport.Factory) error {
	return defaultService(Config{ParticipantName: name, Factory: factory}).Connect(ctx)
}

// ConnectWithParticipant connects the process-wide Service using an
// already-dialed Middleware, which Disconnect will not close (spec.md §6
// "the participant form borrows").
func ConnectWithParticipant(ctx context.Context, mw transport.Middleware) error {
	return defaultService(Config{Participant: mw}).Connect(ctx)
}

// Disconnect disconnects the process-wide Service.
func Disconnect() error {
	return Default().Disconnect()
}

// GetDo returns (creating if absent) the DO at path on the process-wide
// Service.
func GetDo(path string) (*DO, error) {
	return Default().Registry().GetDo(path)
}

// GetDoInstContainer returns (creating if absent) the InstanceContainer at
// path on the process-wide Service.
func GetDoInstContainer(path string) (*InstanceContainer, error) {
	return Default().Registry().GetDoInstContainer(path)
}
