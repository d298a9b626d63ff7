package system

import (
	"testing"

	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// INTEGRATION TESTS
// End-to-end scenarios driving Compile/Spawn/Send through the full message
// loop, exercising agency, interp, method, and value together.
// ============================================================================

func TestScenarioEcho(t *testing.T) {
	sys := New(agerunlog.NewDiscard())
	require.True(t, sys.Agency().Compile("echo", "send(message.sender, message.text)", "1.0.0"))
	e := sys.Agency().CreateAgent("echo", "1.0.0", nil)

	msg := value.NewMap()
	value.MapSet(msg, "sender", value.NewInteger(0))
	value.MapSet(msg, "text", value.NewString("hi"))
	require.True(t, sys.SendTo(e, msg))

	n := sys.ProcessAllMessages()
	assert.Equal(t, 2, n, "expected __wake__ and the sent message to both be processed")
}

func TestScenarioCounter(t *testing.T) {
	sys := New(agerunlog.NewDiscard())
	require.True(t, sys.Agency().Compile("ctr", "memory.n := memory.n + 1", "1.0.0"))
	c := sys.Agency().CreateAgent("ctr", "1.0.0", nil)

	for i := 0; i < 3; i++ {
		sys.SendTo(c, value.NewMap())
	}
	sys.ProcessAllMessages()

	mem, ok := sys.Agency().GetMemory(c)
	require.True(t, ok)
	n, ok := value.MapGet(mem, "n")
	require.True(t, ok)
	assert.Equal(t, int64(3), n.Integer())
}

func TestScenarioParseBuildRoundTrip(t *testing.T) {
	sys := New(agerunlog.NewDiscard())
	source := `memory.p := parse("{k}={v}", message.text)
memory.out := build("{k} is {v}", memory.p)`
	require.True(t, sys.Agency().Compile("fmt", source, "1.0.0"))
	f := sys.Agency().CreateAgent("fmt", "1.0.0", nil)

	msg := value.NewMap()
	value.MapSet(msg, "text", value.NewString("age=42"))
	sys.SendTo(f, msg)
	sys.ProcessAllMessages()

	mem, _ := sys.Agency().GetMemory(f)
	p, ok := value.MapGet(mem, "p")
	require.True(t, ok, "expected memory.p to be set")
	k, _ := value.MapGet(p, "k")
	v, _ := value.MapGet(p, "v")
	assert.Equal(t, "age", k.Str())
	assert.Equal(t, int64(42), v.Integer())

	out, ok := value.MapGet(mem, "out")
	require.True(t, ok)
	assert.Equal(t, "age is 42", out.Str())
}

func TestScenarioIfBranches(t *testing.T) {
	sys := New(agerunlog.NewDiscard())
	require.True(t, sys.Agency().Compile("br", `memory.r := if(memory.x = 1, "one", "other")`, "1.0.0"))
	b := sys.Agency().CreateAgent("br", "1.0.0", nil)
	sys.ProcessAllMessages() // drain __wake__

	mem, _ := sys.Agency().GetMemory(b)
	value.MapSet(mem, "x", value.NewInteger(1))
	sys.SendTo(b, value.NewMap())
	sys.ProcessAllMessages()

	r, ok := value.MapGet(mem, "r")
	require.True(t, ok)
	assert.Equal(t, "one", r.Str())

	value.MapDelete(mem, "x")
	value.MapSet(mem, "x", value.NewInteger(2))
	sys.SendTo(b, value.NewMap())
	sys.ProcessAllMessages()

	r, ok = value.MapGet(mem, "r")
	require.True(t, ok)
	assert.Equal(t, "other", r.Str())
}

func TestScenarioSpawnAndSend(t *testing.T) {
	sys := New(agerunlog.NewDiscard())
	require.True(t, sys.Agency().Compile("echo", "send(message.sender, message.text)", "1.0.0"))
	require.True(t, sys.Agency().Compile("parent", `memory.child := spawn("echo", "1.0.0", context)
send(memory.child, message)`, "1.0.0"))

	ctx := value.NewMap()
	p := sys.Agency().CreateAgent("parent", "1.0.0", ctx)

	msg := value.NewMap()
	value.MapSet(msg, "sender", value.NewInteger(0))
	value.MapSet(msg, "text", value.NewString("ping"))
	sys.SendTo(p, msg)
	sys.ProcessAllMessages()

	mem, _ := sys.Agency().GetMemory(p)
	child, ok := value.MapGet(mem, "child")
	require.True(t, ok)
	assert.Greater(t, child.Integer(), int64(0))
}

func TestScenarioDeprecateLeavesRunningAgentsAlive(t *testing.T) {
	sys := New(agerunlog.NewDiscard())
	require.True(t, sys.Agency().Compile("m", "memory.x := memory.x + 1", "1.0.0"))
	a1 := sys.Agency().CreateAgent("m", "1.0.0", nil)
	a2 := sys.Agency().CreateAgent("m", "1.0.0", nil)
	sys.ProcessAllMessages() // drain wakes

	require.True(t, sys.Agency().Deprecate("m", "1.0.0"))
	_, ok := sys.Agency().Methodology().Resolve("m", "1.0.0")
	assert.False(t, ok, "expected resolve to fail post-deprecate")

	sys.SendTo(a1, value.NewMap())
	sys.SendTo(a2, value.NewMap())
	n := sys.ProcessAllMessages()
	assert.Equal(t, 2, n, "expected both deprecated-but-running agents to process")
}

func TestInitBootstrapsAgent(t *testing.T) {
	sys := New(agerunlog.NewDiscard())
	require.True(t, sys.Agency().Compile("boot", "memory.started := 1", "1.0.0"))
	id := sys.Init("boot", "1.0.0")
	assert.NotZero(t, id)
}

func TestInitUnknownMethodReturnsZero(t *testing.T) {
	sys := New(agerunlog.NewDiscard())
	assert.Zero(t, sys.Init("missing", "1.0.0"))
}
