package method

import "testing"

func TestNewValidMethod(t *testing.T) {
	m, err := New("echo", "1.0.0", "send(message.sender, message.text)", agerunlogDiscard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !m.Runnable() {
		t.Fatalf("expected a runnable method")
	}
}

func TestNewWithBadSourceStillRegisters(t *testing.T) {
	m, err := New("broken", "1.0.0", "this is not valid(", agerunlogDiscard())
	if err != nil {
		t.Fatalf("New should not fail on a bad source: %v", err)
	}
	if m.Runnable() {
		t.Fatalf("expected a non-runnable method (nil AST)")
	}
}

func TestNewRejectsEmptyName(t *testing.T) {
	if _, err := New("", "1.0.0", "memory.x := 1", agerunlogDiscard()); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestNewRejectsPartialVersion(t *testing.T) {
	if _, err := New("m", "1.0", "memory.x := 1", agerunlogDiscard()); err == nil {
		t.Fatalf("expected error for partial version")
	}
}
