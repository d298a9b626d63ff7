package agentstore

import (
	"testing"

	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/method"
)

func mustMethod(t *testing.T, name, version string) *method.Method {
	t.Helper()
	m, err := method.New(name, version, "memory.x := 1", agerunlog.NewDiscard())
	if err != nil {
		t.Fatalf("method.New: %v", err)
	}
	return m
}

func TestCreateAllocatesMonotonicIDsStartingAt1(t *testing.T) {
	s := New()
	m := mustMethod(t, "echo", "1.0.0")

	a1 := s.Create(m, nil)
	a2 := s.Create(m, nil)
	if a1.ID() != 1 || a2.ID() != 2 {
		t.Fatalf("expected ids 1,2; got %d,%d", a1.ID(), a2.ID())
	}
}

func TestDestroyUntracksAgent(t *testing.T) {
	s := New()
	m := mustMethod(t, "echo", "1.0.0")
	a := s.Create(m, nil)

	if !s.Destroy(a.ID()) {
		t.Fatalf("expected Destroy to report removal")
	}
	if s.Exists(a.ID()) {
		t.Fatalf("expected agent untracked after Destroy")
	}
	if s.Destroy(a.ID()) {
		t.Fatalf("expected second Destroy to report no-op")
	}
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	s := New()
	m := mustMethod(t, "echo", "1.0.0")
	a1 := s.Create(m, nil)
	a2 := s.Create(m, nil)
	a3 := s.Create(m, nil)
	s.Destroy(a2.ID())

	all := s.All()
	if len(all) != 2 || all[0].ID() != a1.ID() || all[1].ID() != a3.ID() {
		t.Fatalf("unexpected order: %v", all)
	}
}
