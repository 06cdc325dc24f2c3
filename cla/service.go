package cla

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/distcla/cla/cla/logx"
	"github.com/distcla/cla/internal/telemetry"
	"github.com/distcla/cla/internal/transport"
	"github.com/distcla/cla/internal/worker"
)

// connectRetryInterval is the fixed delay between Participant creation
// attempts (spec.md §4.H).
const connectRetryInterval = 2 * time.Second

// connectWarnAttempt is the attempt count at which a retrying Connect logs
// a warning rather than staying silent (spec.md §4.H).
const connectWarnAttempt = 5

// connectParallelism bounds how many DOs connect their members
// concurrently (SPEC_FULL.md §4.H): member connects are independent,
// I/O-bound label registrations, so fanning them out is safe; the bound
// keeps a large DO tree from opening an unbounded burst of endpoints at
// once.
const connectParallelism = 8

// Config gathers everything a host may override when constructing a
// Service (spec.md §6, SPEC_FULL.md §3 "Config").
type Config struct {
	// ParticipantName defaults to "SilAdapter" if empty (spec.md §6).
	ParticipantName string

	// Factory dials a transport.Middleware "Participant". Required unless
	// Participant is supplied directly (the "borrows" form of Connect).
	Factory transport.Factory

	// Participant, if non-nil, is borrowed rather than owned: Connect uses
	// it directly and Disconnect never closes it.
	Participant transport.Middleware

	Logger    logx.Logger
	Telemetry *telemetry.Telemetry
}

// Service is the top-level adapter object (spec.md §4.H "ClaService"): it
// owns the DORegistry and the WorkerThreadService, and drives the
// Participant lifecycle.
type Service struct {
	name    string
	factory transport.Factory
	logger  logx.Logger
	tel     *telemetry.Telemetry

	mu        sync.Mutex
	connected bool
	mwOwned   bool
	mw        transport.Middleware

	registry *DORegistry
	worker   *worker.Service
}

// NewService constructs a disconnected Service. Use this factory form in
// tests (spec.md §9 "testing uses the factory form"); production code may
// prefer the package-level singleton facade.
func NewService(cfg Config) *Service {
	name := cfg.ParticipantName
	if name == "" {
		name = "SilAdapter"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logx.Default()
	}

	s := &Service{
		name:    name,
		factory: cfg.Factory,
		logger:  logger,
		tel:     cfg.Telemetry,
		worker:  worker.New(),
	}
	s.registry = newDORegistry(s)
	if cfg.Participant != nil {
		s.mw = cfg.Participant
		s.mwOwned = false
	}
	return s
}

// Connected reports whether the service is currently connected.
func (s *Service) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Registry returns the DORegistry members are registered against.
func (s *Service) Registry() *DORegistry { return s.registry }

// Connect creates (or borrows) a Participant and connects every registered
// member (spec.md §4.H). Fails with InvalidState if already connected.
func (s *Service) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return newErr(KindInvalidState, "already connected")
	}
	borrowed := s.mw
	s.mu.Unlock()

	ctx, span := s.tel.StartConnect(ctx, s.name)
	defer span.End()

	mw := borrowed
	if mw == nil {
		dialed, err := s.dialWithRetry(ctx)
		if err != nil {
			return err
		}
		mw = dialed
		s.mu.Lock()
		s.mw = mw
		s.mwOwned = true
		s.mu.Unlock()
	}
	s.tel.RecordConnectSuccess(ctx)

	if err := s.connectAllDOs(ctx, mw); err != nil {
		return err
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	s.logger.Info("cla: connected", "participant", s.name)
	return nil
}

func (s *Service) connectAllDOs(ctx context.Context, mw transport.Middleware) error {
	dos := s.registry.allDOs()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(connectParallelism)
	for _, do := range dos {
		do := do
		g.Go(func() error { return do.connectAll(mw) })
	}
	if err := g.Wait(); err != nil {
		return wrapErr(KindTransport, err, "connecting registered members")
	}
	return nil
}

// dialWithRetry retries s.factory every 2s until it succeeds or ctx is
// done, warning once at attempt 5 and logging an info line when an attempt
// after the first succeeds (spec.md §4.H).
func (s *Service) dialWithRetry(ctx context.Context) (transport.Middleware, error) {
	if s.factory == nil {
		return nil, newErr(KindConfiguration, "no transport factory configured")
	}

	attempt := 0
	for {
		attempt++
		mw, err := s.factory(ctx, s.name)
		if err == nil {
			if attempt > 1 {
				s.logger.Info("cla: participant created", "participant", s.name, "attempt", attempt)
			}
			return mw, nil
		}

		if attempt == connectWarnAttempt {
			s.logger.Warn("cla: participant still not created", "participant", s.name, "attempt", attempt, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, wrapErr(KindTransport, ctx.Err(), "participant creation canceled")
		case <-time.After(connectRetryInterval):
		}
	}
}

// Disconnect reverses Connect in strict LIFO order: disconnect every
// member, drop the Participant (if owned), stop the worker thread
// (spec.md §4.H, invariant 5).
func (s *Service) Disconnect() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return newErr(KindInvalidState, "not connected")
	}
	mw := s.mw
	owned := s.mwOwned
	s.connected = false
	s.mu.Unlock()

	ctx, span := s.tel.StartDisconnect(context.Background(), s.name)
	defer span.End()
	_ = ctx

	for _, do := range s.registry.allDOs() {
		if err := do.disconnectAll(); err != nil {
			return err
		}
	}

	if owned && mw != nil {
		if err := mw.Close(); err != nil {
			return wrapErr(KindTransport, err, "closing participant")
		}
	}
	s.mu.Lock()
	s.mw = nil
	s.mwOwned = false
	s.mu.Unlock()

	s.worker.Stop()
	s.logger.Info("cla: disconnected", "participant", s.name)
	return nil
}

// Stats is an introspection snapshot for host-side dashboards
// (SPEC_FULL.md §6), complementing §8's testable properties with a
// live counter view.
type Stats struct {
	DOsRegistered    int
	MembersTotal     int
	MembersConnected int
	Connected        bool
}

// Stats returns a point-in-time snapshot of registry and connection state.
func (s *Service) Stats() Stats {
	dos, total, connected := s.registry.stats()
	return Stats{
		DOsRegistered:    dos,
		MembersTotal:     total,
		MembersConnected: connected,
		Connected:        s.Connected(),
	}
}
