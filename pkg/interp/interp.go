// Package interp runs one method invocation for one (agent, message)
// pair, walking the method's parsed instructions and dispatching each to
// pkg/instr's evaluators against a frame built from the agent's memory,
// context, and the incoming message.
package interp

import (
	"log/slog"

	"github.com/quenio/agerun-go/pkg/agency"
	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/expr"
	"github.com/quenio/agerun-go/pkg/instr"
	"github.com/quenio/agerun-go/pkg/value"
)

// Interpreter runs methods against an Agency's agents (borrowed).
type Interpreter struct {
	log *agerunlog.Log // borrowed
}

// New constructs an Interpreter borrowing log.
func New(log *agerunlog.Log) *Interpreter {
	return &Interpreter{log: log}
}

// Execute runs agentID's bound method once against msg (owned; callers
// relinquish msg to the interpreter whether or not execution succeeds).
// It returns false if agentID is unknown, if the bound method has no
// parsed AST, or if any instruction in the method fails — the method
// stops at the first failing instruction. agentID itself serves as the
// ownership holder identity for values this invocation produces.
func (i *Interpreter) Execute(ag *agency.Agency, agentID int64, msg *value.Value) bool {
	m, ok := ag.GetMethod(agentID)
	if !ok {
		if i.log != nil {
			i.log.Error(agerunlog.UnknownAgent, "execute: agent not found", slog.Int64("agent_id", agentID))
		}
		return false
	}
	if m.AST == nil {
		if i.log != nil {
			i.log.Error(agerunlog.ParseError, "execute: method has no runnable AST",
				slog.String("name", m.Name), slog.String("version", m.Version))
		}
		return false
	}
	memory, ok := ag.GetMemory(agentID)
	if !ok {
		return false
	}
	ctx, _ := ag.GetContext(agentID)

	frame := &expr.Frame{Memory: memory, Context: ctx, Message: msg}

	for n := 1; ; n++ {
		inst, ok := m.AST.At(n)
		if !ok {
			return true
		}
		if !instr.EvalInstruction(inst, frame, ag, agentID, i.log) {
			return false
		}
	}
}
