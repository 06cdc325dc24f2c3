package cla

import (
	"sync"

	"github.com/distcla/cla/internal/member"
	"github.com/distcla/cla/internal/path"
	"github.com/distcla/cla/internal/transport"
	"github.com/distcla/cla/internal/valueentity"
)

// DO is a distributed object: a path prefix and a mapping from relative
// member path to its bound Member runtime (spec.md §3 "DO"). Members are
// created lazily on first GetConsumed*/GetProvided* call and may only be
// added while the owning Service is disconnected.
type DO struct {
	svc  *Service
	path string

	mu      sync.Mutex
	members map[string]member.Handle
}

func newDO(svc *Service, fullPath string) *DO {
	return &DO{svc: svc, path: fullPath, members: make(map[string]member.Handle)}
}

// Path returns the DO's absolute path.
func (d *DO) Path() string { return d.path }

func memberFullPath(doPath, relPath string) string {
	return doPath + "." + relPath
}

// lookupOrCreate enforces the "one typed role per path" and
// "add only while disconnected" invariants (spec.md §3 "DO", §3 "DORegistry")
// uniformly across every member kind.
func (d *DO) lookupOrCreate(relPath string, kind member.Kind, dir member.Direction, create func(fullPath string) member.Handle) (member.Handle, error) {
	if relPath == "" {
		return nil, newErr(KindInvalidUsage, "member path must not be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if h, ok := d.members[relPath]; ok {
		if h.Kind() != kind || h.Direction() != dir {
			return nil, newErr(KindInvalidUsage,
				"member %q already exists as %s/%s, requested %s/%s",
				relPath, h.Kind(), h.Direction(), kind, dir)
		}
		return h, nil
	}

	if d.svc.Connected() {
		return nil, newErr(KindInvalidState, "cannot add member %q while service is connected", relPath)
	}

	h := create(memberFullPath(d.path, relPath))
	d.members[relPath] = h
	return h, nil
}

// GetConsumedData returns (creating if absent) the Consumed Data member at
// relPath.
func (d *DO) GetConsumedData(relPath string) (*member.Consumed, error) {
	h, err := d.lookupOrCreate(relPath, member.Data, member.DirConsumed, func(full string) member.Handle {
		return member.NewConsumed(full, member.Data, valueentity.New())
	})
	if err != nil {
		return nil, err
	}
	return h.(*member.Consumed), nil
}

// GetConsumedEvent returns (creating if absent) the Consumed Event member
// at relPath.
func (d *DO) GetConsumedEvent(relPath string) (*member.Consumed, error) {
	h, err := d.lookupOrCreate(relPath, member.Event, member.DirConsumed, func(full string) member.Handle {
		return member.NewConsumed(full, member.Event, valueentity.New())
	})
	if err != nil {
		return nil, err
	}
	return h.(*member.Consumed), nil
}

// GetConsumedField returns (creating if absent) the Consumed Field member
// at relPath, backed by Get/Set/Notification sub-members on the shared worker.
func (d *DO) GetConsumedField(relPath string) (*member.ConsumedField, error) {
	h, err := d.lookupOrCreate(relPath, member.Field, member.DirConsumed, func(full string) member.Handle {
		f := member.NewConsumedField(full, d.svc.worker)
		f.SetTelemetry(d.svc.tel)
		return f
	})
	if err != nil {
		return nil, err
	}
	return h.(*member.ConsumedField), nil
}

// GetConsumedMethod returns (creating if absent) the Consumed Method member
// at relPath.
func (d *DO) GetConsumedMethod(relPath string) (*member.ConsumedMethod, error) {
	h, err := d.lookupOrCreate(relPath, member.Method, member.DirConsumed, func(full string) member.Handle {
		m := member.NewConsumedMethod(full, d.svc.worker)
		m.SetTelemetry(d.svc.tel)
		return m
	})
	if err != nil {
		return nil, err
	}
	return h.(*member.ConsumedMethod), nil
}

// GetProvidedData returns (creating if absent) the Provided Data member at
// relPath, publishing on trigger.
func (d *DO) GetProvidedData(relPath string, trigger valueentity.Mode) (*member.Provided, error) {
	h, err := d.lookupOrCreate(relPath, member.Data, member.DirProvided, func(full string) member.Handle {
		return member.NewProvided(full, member.Data, valueentity.New(), trigger)
	})
	if err != nil {
		return nil, err
	}
	return h.(*member.Provided), nil
}

// GetProvidedEvent returns (creating if absent) the Provided Event member
// at relPath, publishing on trigger.
func (d *DO) GetProvidedEvent(relPath string, trigger valueentity.Mode) (*member.Provided, error) {
	h, err := d.lookupOrCreate(relPath, member.Event, member.DirProvided, func(full string) member.Handle {
		return member.NewProvided(full, member.Event, valueentity.New(), trigger)
	})
	if err != nil {
		return nil, err
	}
	return h.(*member.Provided), nil
}

// GetProvidedField returns (creating if absent) the Provided Field member
// at relPath, with its default Get/Set handlers installed.
func (d *DO) GetProvidedField(relPath string) (*member.ProvidedField, error) {
	h, err := d.lookupOrCreate(relPath, member.Field, member.DirProvided, func(full string) member.Handle {
		return member.NewProvidedField(full)
	})
	if err != nil {
		return nil, err
	}
	return h.(*member.ProvidedField), nil
}

// GetProvidedMethod returns (creating if absent) the Provided Method member
// at relPath.
func (d *DO) GetProvidedMethod(relPath string) (*member.ProvidedMethod, error) {
	h, err := d.lookupOrCreate(relPath, member.Method, member.DirProvided, func(full string) member.Handle {
		return member.NewProvidedMethod(full)
	})
	if err != nil {
		return nil, err
	}
	return h.(*member.ProvidedMethod), nil
}

// connectAll binds every member currently registered on this DO to mw. The
// Connect signature differs per member kind (a single Labels value for
// plain members, a labelsFor resolver for Field's three sub-paths), so
// this dispatches by concrete type rather than through member.Handle.
func (d *DO) connectAll(mw transport.Middleware) error {
	d.mu.Lock()
	members := make([]member.Handle, 0, len(d.members))
	for _, h := range d.members {
		members = append(members, h)
	}
	d.mu.Unlock()

	for _, h := range members {
		if err := connectOne(h, mw); err != nil {
			return err
		}
	}
	return nil
}

func connectOne(h member.Handle, mw transport.Middleware) error {
	switch v := h.(type) {
	case *member.Consumed:
		labels, err := path.DeriveLabels(v.Path())
		if err != nil {
			return err
		}
		return v.Connect(mw, labels)
	case *member.Provided:
		labels, err := path.DeriveLabels(v.Path())
		if err != nil {
			return err
		}
		return v.Connect(mw, labels)
	case *member.ConsumedMethod:
		labels, err := path.DeriveLabels(v.Path())
		if err != nil {
			return err
		}
		return v.Connect(mw, labels)
	case *member.ProvidedMethod:
		labels, err := path.DeriveLabels(v.Path())
		if err != nil {
			return err
		}
		return v.Connect(mw, labels)
	case *member.ConsumedField:
		return v.Connect(mw, path.DeriveLabels)
	case *member.ProvidedField:
		return v.Connect(mw, path.DeriveLabels)
	default:
		return newErr(KindInvalidState, "unknown member type for %q", h.Path())
	}
}

type disconnector interface {
	Disconnect() error
}

// disconnectAll disconnects every member currently registered on this DO.
func (d *DO) disconnectAll() error {
	d.mu.Lock()
	members := make([]member.Handle, 0, len(d.members))
	for _, h := range d.members {
		members = append(members, h)
	}
	d.mu.Unlock()

	for _, h := range members {
		if dc, ok := h.(disconnector); ok {
			if err := dc.Disconnect(); err != nil {
				return err
			}
		}
	}
	return nil
}

// memberCounts reports total and connected members for Service.Stats.
func (d *DO) memberCounts() (total, connected int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range d.members {
		total++
		if h.Connected() {
			connected++
		}
	}
	return total, connected
}
