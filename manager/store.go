package manager

import (
	"sync"

	"attendance-ledger/ledger"
)

// store is the id-indexed registry for one tier. It keeps insertion order
// and a parent id -> child ids index for cascades.
type store struct {
	mu       sync.RWMutex
	chains   map[string]*ledger.Entity
	order    []string
	children map[string][]string
}

func newStore() *store {
	return &store{
		chains:   make(map[string]*ledger.Entity),
		children: make(map[string][]string),
	}
}

func (s *store) put(e *ledger.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chains[e.ID()]; ok {
		return
	}
	s.chains[e.ID()] = e
	s.order = append(s.order, e.ID())
	if p := e.ParentID(); p != "" {
		s.children[p] = append(s.children[p], e.ID())
	}
}

func (s *store) get(id string) (*ledger.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.chains[id]
	return e, ok
}

func (s *store) all() []*ledger.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ledger.Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.chains[id])
	}
	return out
}

// childrenOf returns the chains whose parent is parentID, in creation order.
func (s *store) childrenOf(parentID string) []*ledger.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.children[parentID]
	out := make([]*ledger.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.chains[id])
	}
	return out
}

func (s *store) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chains)
}
