package methodology

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/quenio/agerun-go/pkg/agerunlog"
)

func TestWriteToThenReadFromRoundTrips(t *testing.T) {
	r := New()
	r.Register(mustMethod(t, "echo", "1.0.0", "send(message.sender, message.text)"))
	r.Register(mustMethod(t, "echo", "1.1.0", "send(message.sender, message.text)"))
	r.Register(mustMethod(t, "ctr", "1.0.0", "memory.n := memory.n + 1"))

	var buf bytes.Buffer
	if err := r.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	loaded, err := ReadFrom(&buf, agerunlog.NewDiscard())
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if loaded.Count() != 3 {
		t.Fatalf("expected 3 entries, got %d", loaded.Count())
	}
	m, ok := loaded.GetExact("echo", "1.1.0")
	if !ok || m.Source != "send(message.sender, message.text)" {
		t.Fatalf("round trip lost echo@1.1.0: %v %v", m, ok)
	}
}

func TestWriteToRejectsMultilineSource(t *testing.T) {
	r := New()
	m := mustMethod(t, "bad", "1.0.0", "memory.x := 1")
	m.Source = "memory.x := 1\nmemory.y := 2"
	r.Register(m)

	var buf bytes.Buffer
	if err := r.WriteTo(&buf); err == nil {
		t.Fatalf("expected error for multiline source")
	}
}

func TestSaveLoadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "methodology.catalog")

	r := New()
	r.Register(mustMethod(t, "echo", "1.0.0", "send(message.sender, message.text)"))
	if err := r.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded, err := LoadFromFile(path, agerunlog.NewDiscard())
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if _, ok := loaded.GetExact("echo", "1.0.0"); !ok {
		t.Fatalf("expected echo@1.0.0 after reload")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != secureFileMode {
		t.Fatalf("expected mode %o, got %o", secureFileMode, info.Mode().Perm())
	}
}

func TestSaveCreatesBackupOfPreviousVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "methodology.catalog")

	r1 := New()
	r1.Register(mustMethod(t, "echo", "1.0.0", "memory.x := 1"))
	if err := r1.SaveToFile(path); err != nil {
		t.Fatalf("first SaveToFile: %v", err)
	}

	r2 := New()
	r2.Register(mustMethod(t, "echo", "2.0.0", "memory.x := 2"))
	if err := r2.SaveToFile(path); err != nil {
		t.Fatalf("second SaveToFile: %v", err)
	}

	backup, err := LoadFromFile(path+".bak", agerunlog.NewDiscard())
	if err != nil {
		t.Fatalf("load backup: %v", err)
	}
	if _, ok := backup.GetExact("echo", "1.0.0"); !ok {
		t.Fatalf("expected backup to contain the pre-overwrite catalog")
	}
}

func TestLoadFromMissingFileIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	reg, err := LoadFromFile(filepath.Join(dir, "absent.catalog"), agerunlog.NewDiscard())
	if err != nil {
		t.Fatalf("LoadFromFile on missing file: %v", err)
	}
	if reg.Count() != 0 {
		t.Fatalf("expected empty catalog, got %d entries", reg.Count())
	}
}

func TestLoadFromCorruptFileQuarantinesAndReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "methodology.catalog")
	if err := os.WriteFile(path, []byte("not-a-number\n"), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	reg, err := LoadFromFile(path, agerunlog.NewDiscard())
	if err != nil {
		t.Fatalf("LoadFromFile on corrupt file: %v", err)
	}
	if reg.Count() != 0 {
		t.Fatalf("expected empty catalog after quarantine, got %d entries", reg.Count())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected corrupt file moved aside, stat err = %v", err)
	}

	matches, _ := filepath.Glob(path + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("expected exactly one quarantined file, got %v", matches)
	}
}
