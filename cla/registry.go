package cla

import "sync"

// DORegistry maps absolute path to DO, and absolute path to
// InstanceContainer, as two disjoint namespaces (spec.md §3 "DORegistry").
// Entries may only be added while the owning Service is disconnected.
type DORegistry struct {
	svc *Service

	mu         sync.Mutex
	dos        map[string]*DO
	containers map[string]*InstanceContainer
}

func newDORegistry(svc *Service) *DORegistry {
	return &DORegistry{
		svc:        svc,
		dos:        make(map[string]*DO),
		containers: make(map[string]*InstanceContainer),
	}
}

// GetDo returns (creating if absent) the DO at path.
func (r *DORegistry) GetDo(path string) (*DO, error) {
	if path == "" {
		return nil, newErr(KindInvalidUsage, "path must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.containers[path]; ok {
		return nil, newErr(KindInvalidUsage, "path %q is already bound as an instance container", path)
	}
	if do, ok := r.dos[path]; ok {
		return do, nil
	}
	if r.svc.Connected() {
		return nil, newErr(KindInvalidState, "cannot add DO %q while service is connected", path)
	}

	do := newDO(r.svc, path)
	r.dos[path] = do
	return do, nil
}

// GetDoInstContainer returns (creating if absent) the InstanceContainer at
// path.
func (r *DORegistry) GetDoInstContainer(path string) (*InstanceContainer, error) {
	if path == "" {
		return nil, newErr(KindInvalidUsage, "path must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.dos[path]; ok {
		return nil, newErr(KindInvalidUsage, "path %q is already bound as a DO", path)
	}
	if c, ok := r.containers[path]; ok {
		return c, nil
	}
	if r.svc.Connected() {
		return nil, newErr(KindInvalidState, "cannot add instance container %q while service is connected", path)
	}

	c := newInstanceContainer(r.svc, path)
	r.containers[path] = c
	return c, nil
}

// allDOs returns every DO directly registered plus every DO reachable
// through a registered InstanceContainer.
func (r *DORegistry) allDOs() []*DO {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*DO, 0, len(r.dos))
	for _, do := range r.dos {
		out = append(out, do)
	}
	for _, c := range r.containers {
		out = append(out, c.allDOs()...)
	}
	return out
}

// Stats snapshots registry-wide counts for Service.Stats.
func (r *DORegistry) stats() (dos, membersTotal, membersConnected int) {
	for _, do := range r.allDOs() {
		dos++
		total, connected := do.memberCounts()
		membersTotal += total
		membersConnected += connected
	}
	return dos, membersTotal, membersConnected
}
