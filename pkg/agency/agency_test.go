package agency

import (
	"path/filepath"
	"testing"

	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileThenSpawnQueuesWake(t *testing.T) {
	a := New(agerunlog.NewDiscard())
	require.True(t, a.Compile("echo", "send(message.sender, message.text)", "1.0.0"))

	id := a.CreateAgent("echo", "1.0.0", nil)
	require.NotZero(t, id)
	require.True(t, a.AgentHasMessages(id))

	msg, ok := a.DequeueMessage(id)
	require.True(t, ok)
	assert.Equal(t, "__wake__", msg.Str())
}

func TestSpawnUnknownMethodReturnsZero(t *testing.T) {
	a := New(agerunlog.NewDiscard())
	assert.Zero(t, a.CreateAgent("missing", "1.0.0", nil))
}

func TestSendToZeroIsNoOp(t *testing.T) {
	a := New(agerunlog.NewDiscard())
	assert.True(t, a.Send(0, value.NewString("discarded")))
}

func TestSendToUnknownAgentFails(t *testing.T) {
	a := New(agerunlog.NewDiscard())
	assert.False(t, a.Send(999, value.NewString("x")))
}

func TestCompileDuplicateVersionConflicts(t *testing.T) {
	a := New(agerunlog.NewDiscard())
	require.True(t, a.Compile("m", "memory.x := 1", "1.0.0"))
	assert.False(t, a.Compile("m", "memory.x := 2", "1.0.0"))
}

func TestDeprecateLeavesRunningAgentsAlive(t *testing.T) {
	a := New(agerunlog.NewDiscard())
	require.True(t, a.Compile("m", "memory.x := 1", "1.0.0"))

	id1 := a.CreateAgent("m", "1.0.0", nil)
	id2 := a.CreateAgent("m", "1.0.0", nil)

	require.True(t, a.Deprecate("m", "1.0.0"))
	_, ok := a.Methodology().Resolve("m", "1.0.0")
	assert.False(t, ok)

	m1, ok1 := a.GetMethod(id1)
	m2, ok2 := a.GetMethod(id2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.NotNil(t, m1)
	assert.NotNil(t, m2)
}

func TestSaveLoadMethodsAndAgentsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	methodsPath := filepath.Join(dir, "methodology.catalog")
	agentsPath := filepath.Join(dir, "agents.yaml")

	a := New(agerunlog.NewDiscard())
	require.True(t, a.Compile("ctr", "memory.n := memory.n + 1", "1.0.0"))
	id := a.CreateAgent("ctr", "1.0.0", nil)
	mem, _ := a.GetMemory(id)
	value.MapSet(mem, "n", value.NewInteger(7))

	require.NoError(t, a.SaveMethods(methodsPath))
	require.NoError(t, a.SaveAgents(agentsPath))

	restored := New(agerunlog.NewDiscard())
	require.NoError(t, restored.LoadMethods(methodsPath))
	require.NoError(t, restored.LoadAgents(agentsPath))

	restoredMem, ok := restored.GetMemory(id)
	require.True(t, ok)
	n, ok := value.MapGet(restoredMem, "n")
	require.True(t, ok)
	assert.Equal(t, int64(7), n.Integer())
}
