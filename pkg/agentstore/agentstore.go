// Package agentstore implements a monotonic-id allocator plus an
// insertion-ordered set of active agents, with a YAML-shaped persistence
// format.
package agentstore

import (
	"sync"

	"github.com/quenio/agerun-go/pkg/agent"
	"github.com/quenio/agerun-go/pkg/method"
	"github.com/quenio/agerun-go/pkg/value"
)

// AgentStore tracks every active Agent by id, in insertion order.
type AgentStore struct {
	mu     sync.RWMutex
	nextID int64
	order  []int64
	byID   map[int64]*agent.Agent
}

// New returns an empty AgentStore whose first allocated id is 1.
func New() *AgentStore {
	return &AgentStore{nextID: 1, byID: make(map[int64]*agent.Agent)}
}

// Create allocates the next id, constructs an Agent bound to m (borrowed)
// and ctx (borrowed, nullable), registers it, and returns it. The caller
// is responsible for queuing the initial wake message before the agent
// becomes visible to other callers.
func (s *AgentStore) Create(m *method.Method, ctx *value.Value) *agent.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	a := agent.New(id, m, ctx)
	s.byID[id] = a
	s.order = append(s.order, id)
	return a
}

// Get returns the active agent with the given id, if any.
func (s *AgentStore) Get(id int64) (*agent.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether id names a currently tracked agent.
func (s *AgentStore) Exists(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Destroy deactivates and untracks the agent with id, discarding its
// drained queue contents. It reports whether id was tracked.
func (s *AgentStore) Destroy(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return false
	}
	a.Deactivate()
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns every tracked agent in insertion order (used for the
// message loop's fairness scan and for persistence).
func (s *AgentStore) All() []*agent.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*agent.Agent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Count returns the number of tracked agents.
func (s *AgentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
