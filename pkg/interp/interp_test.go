package interp

import (
	"testing"

	"github.com/quenio/agerun-go/pkg/agency"
	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCounterIncrementsMemory(t *testing.T) {
	ag := agency.New(agerunlog.NewDiscard())
	require.True(t, ag.Compile("ctr", "memory.n := memory.n + 1", "1.0.0"))
	id := ag.CreateAgent("ctr", "1.0.0", nil)
	ag.DequeueMessage(id) // drain __wake__

	interp := New(agerunlog.NewDiscard())
	for i := 0; i < 3; i++ {
		require.True(t, interp.Execute(ag, id, value.NewMap()), "iteration %d", i)
	}

	mem, _ := ag.GetMemory(id)
	n, ok := value.MapGet(mem, "n")
	require.True(t, ok)
	assert.Equal(t, int64(3), n.Integer())
}

func TestExecuteEchoSendsBackToSender(t *testing.T) {
	ag := agency.New(agerunlog.NewDiscard())
	require.True(t, ag.Compile("echo", "send(message.sender, message.text)", "1.0.0"))
	require.True(t, ag.Compile("catcher", "memory.got := message.text", "1.0.0"))

	echoID := ag.CreateAgent("echo", "1.0.0", nil)
	catcherID := ag.CreateAgent("catcher", "1.0.0", nil)
	ag.DequeueMessage(echoID)
	ag.DequeueMessage(catcherID)

	interp := New(agerunlog.NewDiscard())

	msg := value.NewMap()
	value.MapSet(msg, "sender", value.NewInteger(catcherID))
	value.MapSet(msg, "text", value.NewString("hi"))
	require.True(t, interp.Execute(ag, echoID, msg))

	require.True(t, ag.AgentHasMessages(catcherID))
	received, ok := ag.DequeueMessage(catcherID)
	require.True(t, ok)
	require.True(t, interp.Execute(ag, catcherID, received))

	mem, _ := ag.GetMemory(catcherID)
	got, ok := value.MapGet(mem, "got")
	require.True(t, ok)
	assert.Equal(t, "hi", got.Str())
}

func TestExecuteUnknownAgentFails(t *testing.T) {
	ag := agency.New(agerunlog.NewDiscard())
	interp := New(agerunlog.NewDiscard())
	assert.False(t, interp.Execute(ag, 999, value.NewMap()))
}

func TestExecuteStopsAtFirstFailingInstruction(t *testing.T) {
	ag := agency.New(agerunlog.NewDiscard())
	require.True(t, ag.Compile("bad", "memory.x := 1 / 0\nmemory.y := 2", "1.0.0"))
	id := ag.CreateAgent("bad", "1.0.0", nil)
	ag.DequeueMessage(id)

	interp := New(agerunlog.NewDiscard())
	assert.False(t, interp.Execute(ag, id, value.NewMap()), "expected division by zero to abort the method")

	mem, _ := ag.GetMemory(id)
	_, ok := value.MapGet(mem, "y")
	assert.False(t, ok, "expected memory.y to never be set")
}
