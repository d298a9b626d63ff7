// Package system implements the top-level composition root: it owns a
// Log, an Agency (optionally supplied externally, in which case it is
// borrowed), and an Interpreter, and runs the message loop.
package system

import (
	"github.com/quenio/agerun-go/pkg/agency"
	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/interp"
	"github.com/quenio/agerun-go/pkg/value"
)

// System is the process-level composition root. Single per process in
// idiomatic use but not enforced.
type System struct {
	log         *agerunlog.Log
	agency      *agency.Agency
	agencyOwned bool
	interpreter *interp.Interpreter
}

// Option configures a System at construction time.
type Option func(*System)

// WithAgency supplies an externally constructed Agency — e.g. one
// restored from disk — which System then borrows rather than owns.
func WithAgency(a *agency.Agency) Option {
	return func(s *System) {
		s.agency = a
		s.agencyOwned = false
	}
}

// New constructs a System. Without WithAgency, System creates and owns a
// fresh Agency.
func New(log *agerunlog.Log, opts ...Option) *System {
	s := &System{log: log}
	for _, opt := range opts {
		opt(s)
	}
	if s.agency == nil {
		s.agency = agency.New(log)
		s.agencyOwned = true
	}
	s.interpreter = interp.New(log)
	return s
}

// Agency exposes the composed Agency.
func (s *System) Agency() *agency.Agency { return s.agency }

// Log exposes the composed Log.
func (s *System) Log() *agerunlog.Log { return s.log }

// Init optionally bootstraps the system by spawning one agent from
// methodName@versionSpec, returning 0 if it cannot be spawned. If
// methodName is empty, Init is a no-op that returns 0 without error — a
// host that manages its own population is free to skip bootstrap.
func (s *System) Init(methodName, versionSpec string) int64 {
	if methodName == "" {
		return 0
	}
	return s.agency.CreateAgent(methodName, versionSpec, nil)
}

// ProcessNextMessage finds the first agent (in insertion order) with a
// pending message, dequeues it, executes it, and reports whether any
// work was done.
func (s *System) ProcessNextMessage() bool {
	for _, a := range s.agency.Agents() {
		if !a.HasMessages() {
			continue
		}
		msg, ok := a.Dequeue()
		if !ok {
			continue
		}
		s.interpreter.Execute(s.agency, a.ID(), msg)
		return true
	}
	return false
}

// ProcessAllMessages drains every agent's queue in fairness order until
// no agent has pending work, returning the number of messages processed.
func (s *System) ProcessAllMessages() int {
	count := 0
	for s.ProcessNextMessage() {
		count++
	}
	return count
}

// Close releases nothing and always returns nil: neither an owned nor a
// borrowed Agency holds resources that need explicit release. It lets
// callers shut a System down the same way whichever Option was used.
func (s *System) Close() error {
	return nil
}

// SendTo is a convenience wrapper for host code that wants to inject a
// message into the population without going through Compile/Spawn first
// (e.g. feeding an externally constructed Value to an existing agent).
func (s *System) SendTo(agentID int64, msg *value.Value) bool {
	return s.agency.Send(agentID, msg)
}
