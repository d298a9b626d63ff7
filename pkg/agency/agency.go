// Package agency implements a facade composing an owned Methodology and
// an owned AgentStore, with a borrowed Log, exposing the
// create/destroy/send/inspect surface the instruction evaluators and the
// interpreter depend on. It structurally satisfies pkg/instr.Runtime
// (Go's implicit interfaces let it do so without pkg/instr importing this
// package, avoiding a cycle).
package agency

import (
	"log/slog"

	"github.com/quenio/agerun-go/pkg/agent"
	"github.com/quenio/agerun-go/pkg/agentstore"
	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/method"
	"github.com/quenio/agerun-go/pkg/methodology"
	"github.com/quenio/agerun-go/pkg/value"
)

// wakeMessage is the string queued on a newly spawned agent before it
// becomes visible to other senders.
const wakeMessage = "__wake__"

// Agency owns its methodology and agent registry; its creation implies
// creating both, and its destruction cascades.
type Agency struct {
	methods *methodology.Methodology
	agents  *agentstore.AgentStore
	log     *agerunlog.Log // borrowed
}

// New constructs an Agency with a fresh methodology and agent registry,
// borrowing log for diagnostics.
func New(log *agerunlog.Log) *Agency {
	return &Agency{
		methods: methodology.New(),
		agents:  agentstore.New(),
		log:     log,
	}
}

// NewWithState constructs an Agency from already-loaded subsystems (used
// after restoring from disk via pkg/methodology and pkg/agentstore's
// LoadFromFile).
func NewWithState(methods *methodology.Methodology, agents *agentstore.AgentStore, log *agerunlog.Log) *Agency {
	return &Agency{methods: methods, agents: agents, log: log}
}

// Methodology exposes the owned catalog (for persistence callers).
func (a *Agency) Methodology() *methodology.Methodology { return a.methods }

// AgentStore exposes the owned registry (for persistence callers).
func (a *Agency) AgentStore() *agentstore.AgentStore { return a.agents }

// SaveMethods persists the methodology catalog to path.
func (a *Agency) SaveMethods(path string) error {
	return a.methods.SaveToFile(path)
}

// LoadMethods replaces the owned methodology catalog with the one loaded
// from path; a missing or corrupt file yields an empty catalog rather
// than failing.
func (a *Agency) LoadMethods(path string) error {
	loaded, err := methodology.LoadFromFile(path, a.log)
	if err != nil {
		return err
	}
	a.methods = loaded
	return nil
}

// SaveAgents persists the agent population to path.
func (a *Agency) SaveAgents(path string) error {
	return a.agents.SaveToFile(path)
}

// LoadAgents replaces the owned agent registry with the one loaded from
// path, re-resolving each agent's method binding against the current
// methodology.
func (a *Agency) LoadAgents(path string) error {
	loaded, err := agentstore.LoadFromFile(path, a.methods, a.log)
	if err != nil {
		return err
	}
	a.agents = loaded
	return nil
}

// CreateAgent resolves methodName@versionSpec, spawns an agent bound to
// the resolved method and ctx (borrowed), queues its initial wake
// message, and returns its id, or 0 if the method cannot be resolved.
func (a *Agency) CreateAgent(methodName, versionSpec string, ctx *value.Value) int64 {
	m, ok := a.methods.Resolve(methodName, versionSpec)
	if !ok {
		if a.log != nil {
			a.log.Error(agerunlog.UnknownMethod, "create_agent: method not found",
				slog.String("name", methodName), slog.String("version_spec", versionSpec))
		}
		return 0
	}
	created := a.agents.Create(m, ctx)
	created.Enqueue(value.NewString(wakeMessage))
	return created.ID()
}

// Spawn implements pkg/instr.Runtime.
func (a *Agency) Spawn(methodName, versionSpec string, ctx *value.Value) int64 {
	return a.CreateAgent(methodName, versionSpec, ctx)
}

// DestroyAgent deactivates and untracks id, discarding any queued
// messages. It reports whether id was tracked.
func (a *Agency) DestroyAgent(id int64) bool {
	return a.agents.Destroy(id)
}

// Send enqueues an owned msg onto the target agent's queue. id == 0 is a
// sink: the message is simply discarded and Send reports true. A
// non-existent target reports false (UnknownAgent) without aborting the
// calling instruction.
func (a *Agency) Send(id int64, msg *value.Value) bool {
	if id == 0 {
		msg.DestroyIfOwned(nil)
		return true
	}
	target, ok := a.agents.Get(id)
	if !ok {
		if a.log != nil {
			a.log.Error(agerunlog.UnknownAgent, "send: target agent not found", slog.Int64("id", id))
		}
		return false
	}
	target.Enqueue(msg)
	return true
}

// Compile implements pkg/instr.Runtime: constructs and registers a new
// Method. It fails with VersionConflict if (name, version) already
// exists.
func (a *Agency) Compile(name, source, version string) bool {
	m, err := method.New(name, version, source, a.log)
	if err != nil {
		if a.log != nil {
			a.log.Error(agerunlog.ParseError, "compile: invalid method identity", slog.String("error", err.Error()))
		}
		return false
	}
	if err := a.methods.Register(m); err != nil {
		if a.log != nil {
			a.log.Error(agerunlog.VersionConflict, "compile: version conflict",
				slog.String("name", name), slog.String("version", version))
		}
		return false
	}
	return true
}

// Deprecate implements pkg/instr.Runtime: unregisters (name, version).
// Agents already holding that method as a borrowed reference continue to
// run against it — Go's garbage collector keeps the method reachable, so
// no manual refcounting is needed here.
func (a *Agency) Deprecate(name, version string) bool {
	ok := a.methods.Unregister(name, version)
	if !ok && a.log != nil {
		a.log.Error(agerunlog.UnknownMethod, "deprecate: no such version registered",
			slog.String("name", name), slog.String("version", version))
	}
	return ok
}

// GetMemory returns the memory Map of the agent with id, or nil if no
// such agent is tracked.
func (a *Agency) GetMemory(id int64) (*value.Value, bool) {
	ag, ok := a.agents.Get(id)
	if !ok {
		return nil, false
	}
	return ag.Memory(), true
}

// GetContext returns the borrowed context Map of the agent with id, or
// nil if the agent was spawned without one.
func (a *Agency) GetContext(id int64) (*value.Value, bool) {
	ag, ok := a.agents.Get(id)
	if !ok {
		return nil, false
	}
	return ag.Context(), true
}

// GetMethod returns the method bound to the agent with id.
func (a *Agency) GetMethod(id int64) (*method.Method, bool) {
	ag, ok := a.agents.Get(id)
	if !ok {
		return nil, false
	}
	return ag.Method(), true
}

// AgentHasMessages reports whether the agent with id has a pending
// message.
func (a *Agency) AgentHasMessages(id int64) bool {
	ag, ok := a.agents.Get(id)
	return ok && ag.HasMessages()
}

// DequeueMessage pops the oldest pending message for the agent with id.
func (a *Agency) DequeueMessage(id int64) (*value.Value, bool) {
	ag, ok := a.agents.Get(id)
	if !ok {
		return nil, false
	}
	return ag.Dequeue()
}

// Agents returns every tracked agent in insertion order — the iteration
// order the message loop's fairness scan relies on.
func (a *Agency) Agents() []*agent.Agent {
	return a.agents.All()
}
