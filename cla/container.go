package cla

import (
	"fmt"
	"sync"
)

// InstanceContainer is a sparse, index-addressed vector of elements, each
// either a DO or a nested InstanceContainer (spec.md §3 "InstanceContainer").
// An element's kind is fixed at first access: once GetDo(i) or
// GetContainer(i) has been called for index i, the other call on the same
// index fails.
type InstanceContainer struct {
	svc  *Service
	path string

	mu    sync.Mutex
	elems map[int]*containerElem
}

type containerElem struct {
	do        *DO
	container *InstanceContainer
}

func newInstanceContainer(svc *Service, path string) *InstanceContainer {
	return &InstanceContainer{svc: svc, path: path, elems: make(map[int]*containerElem)}
}

func elemPath(basePath string, index int) string {
	return fmt.Sprintf("%s[%d]", basePath, index)
}

// GetDo returns (creating if absent) the DO at index.
func (c *InstanceContainer) GetDo(index int) (*DO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.elems[index]
	if !ok {
		do := newDO(c.svc, elemPath(c.path, index))
		c.elems[index] = &containerElem{do: do}
		return do, nil
	}
	if e.do == nil {
		return nil, newErr(KindInvalidUsage, "element %d of %q is already bound as a container", index, c.path)
	}
	return e.do, nil
}

// GetContainer returns (creating if absent) the nested container at index.
func (c *InstanceContainer) GetContainer(index int) (*InstanceContainer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.elems[index]
	if !ok {
		nested := newInstanceContainer(c.svc, elemPath(c.path, index))
		c.elems[index] = &containerElem{container: nested}
		return nested, nil
	}
	if e.container == nil {
		return nil, newErr(KindInvalidUsage, "element %d of %q is already bound as a DO", index, c.path)
	}
	return e.container, nil
}

// allDOs recursively collects every DO reachable from this container, for
// Service.Connect/Disconnect fan-out.
func (c *InstanceContainer) allDOs() []*DO {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*DO
	for _, e := range c.elems {
		switch {
		case e.do != nil:
			out = append(out, e.do)
		case e.container != nil:
			out = append(out, e.container.allDOs()...)
		}
	}
	return out
}
