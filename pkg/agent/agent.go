// Package agent implements a single agent: identity, a borrowed method
// reference, owned memory, a borrowed nullable context, and a FIFO
// message queue.
package agent

import (
	"sync"

	"github.com/quenio/agerun-go/pkg/method"
	"github.com/quenio/agerun-go/pkg/value"
)

// Agent is accessed cooperatively by a single-threaded message loop; the
// mutex is defense-in-depth rather than a concurrency requirement.
type Agent struct {
	mu sync.RWMutex

	id      int64
	method  *method.Method // borrowed: the methodology catalog owns it
	memory  *value.Value   // owned Map
	context *value.Value   // borrowed, nullable
	queue   []*value.Value // owned FIFO of owned messages
	active  bool
}

// New constructs an Agent with id, bound to m (borrowed) and ctx
// (borrowed, may be nil). memory starts as a fresh owned empty Map.
func New(id int64, m *method.Method, ctx *value.Value) *Agent {
	return &Agent{
		id:      id,
		method:  m,
		memory:  value.NewMap(),
		context: ctx,
		active:  true,
	}
}

// Restore reconstructs an Agent from persisted state: a known id, a
// re-resolved method binding, and a previously saved memory Map, used by
// pkg/agentstore when loading a snapshot back from disk.
func Restore(id int64, m *method.Method, memory *value.Value) *Agent {
	return &Agent{id: id, method: m, memory: memory, active: true}
}

// ID returns the agent's identity.
func (a *Agent) ID() int64 { return a.id }

// Method returns the agent's borrowed method reference. It remains valid
// and usable even if the method is later deprecated from the catalog —
// Go's garbage collector keeps it reachable as long as the agent holds it.
func (a *Agent) Method() *method.Method {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.method
}

// Memory returns the agent's owned memory Map (borrowed out for the
// duration of one instruction evaluation).
func (a *Agent) Memory() *value.Value {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.memory
}

// Context returns the agent's borrowed context, or nil if none was
// supplied at spawn time.
func (a *Agent) Context() *value.Value {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.context
}

// Active reports whether the agent has not yet been destroyed.
func (a *Agent) Active() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

// Enqueue appends an owned message to the agent's FIFO queue.
func (a *Agent) Enqueue(msg *value.Value) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, msg)
}

// HasMessages reports whether the queue is non-empty.
func (a *Agent) HasMessages() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.queue) > 0
}

// Dequeue pops and returns the oldest queued message, preserving FIFO
// order.
func (a *Agent) Dequeue() (*value.Value, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) == 0 {
		return nil, false
	}
	msg := a.queue[0]
	a.queue = a.queue[1:]
	return msg, true
}

// Deactivate marks the agent destroyed and drains its queue, discarding
// every pending message.
func (a *Agent) Deactivate() []*value.Value {
	a.mu.Lock()
	defer a.mu.Unlock()
	drained := a.queue
	a.queue = nil
	a.active = false
	return drained
}
