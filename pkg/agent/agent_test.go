package agent

import (
	"testing"

	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/method"
	"github.com/quenio/agerun-go/pkg/value"
)

func mustMethod(t *testing.T) *method.Method {
	t.Helper()
	m, err := method.New("echo", "1.0.0", "send(message.sender, message.text)", agerunlog.NewDiscard())
	if err != nil {
		t.Fatalf("method.New: %v", err)
	}
	return m
}

func TestNewAgentStartsActiveWithEmptyQueue(t *testing.T) {
	a := New(1, mustMethod(t), nil)
	if a.ID() != 1 {
		t.Fatalf("ID: got %d", a.ID())
	}
	if !a.Active() {
		t.Fatalf("expected new agent to be active")
	}
	if a.HasMessages() {
		t.Fatalf("expected empty queue")
	}
}

func TestEnqueueDequeuePreservesFIFOOrder(t *testing.T) {
	a := New(1, mustMethod(t), nil)

	a.Enqueue(value.NewString("m1"))
	a.Enqueue(value.NewString("m2"))
	a.Enqueue(value.NewString("m3"))

	for _, want := range []string{"m1", "m2", "m3"} {
		msg, ok := a.Dequeue()
		if !ok {
			t.Fatalf("expected a message")
		}
		if got := msg.Str(); got != want {
			t.Fatalf("FIFO order broken: got %q, want %q", got, want)
		}
	}
	if _, ok := a.Dequeue(); ok {
		t.Fatalf("expected empty queue after draining")
	}
}

func TestDeactivateDrainsAndDisablesQueue(t *testing.T) {
	a := New(1, mustMethod(t), nil)
	a.Enqueue(value.NewString("pending"))

	drained := a.Deactivate()
	if len(drained) != 1 {
		t.Fatalf("expected 1 drained message, got %d", len(drained))
	}
	if a.Active() {
		t.Fatalf("expected agent inactive after Deactivate")
	}
	if a.HasMessages() {
		t.Fatalf("expected queue empty after Deactivate")
	}
}

func TestMemoryStartsAsEmptyMap(t *testing.T) {
	a := New(1, mustMethod(t), nil)
	if a.Memory().Kind() != value.KindMap {
		t.Fatalf("expected memory to be a Map, got %s", a.Memory().Kind())
	}
	if len(value.MapKeys(a.Memory())) != 0 {
		t.Fatalf("expected fresh memory to be empty")
	}
}
