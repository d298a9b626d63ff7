package methodology

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/method"
)

// secureFileMode is owner-read-write-only, applied to the catalog file on
// successful replace.
const secureFileMode = 0o600

// WriteTo serializes r in a line-oriented text format:
//
//	<N>
//	for each method name:
//	  <name> <V>
//	  for each version, in insertion order:
//	    <version>
//	    <source>
//
// Source text containing a newline cannot be represented in this
// single-line-per-source format and is rejected.
func (r *Methodology) WriteTo(w io.Writer) error {
	grouped := r.AllMethods()
	names := r.Names()

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d\n", len(names)); err != nil {
		return err
	}
	for _, name := range names {
		versions := grouped[name]
		if _, err := fmt.Fprintf(bw, "%s %d\n", name, len(versions)); err != nil {
			return err
		}
		for _, m := range versions {
			if strings.Contains(m.Source, "\n") {
				return fmt.Errorf("methodology: source of %s@%s contains a newline, cannot persist in single-line format", m.Name, m.Version)
			}
			if _, err := fmt.Fprintf(bw, "%s\n%s\n", m.Version, m.Source); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// ReadFrom parses the WriteTo format into a fresh Methodology. A source
// that fails to parse is tolerated per method.New (registered with a nil
// AST); a structurally malformed file is a hard error.
func ReadFrom(r io.Reader, log *agerunlog.Log) (*Methodology, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	readLine := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	header, ok := readLine()
	if !ok {
		return nil, fmt.Errorf("methodology: empty catalog file")
	}
	n, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("methodology: invalid method-name count %q", header)
	}

	reg := New()
	for i := 0; i < n; i++ {
		nameLine, ok := readLine()
		if !ok {
			return nil, fmt.Errorf("methodology: truncated file, expected name line %d", i+1)
		}
		parts := strings.SplitN(nameLine, " ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("methodology: malformed name line %q", nameLine)
		}
		name := parts[0]
		versionCount, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || versionCount < 0 {
			return nil, fmt.Errorf("methodology: invalid version count on line %q", nameLine)
		}
		for j := 0; j < versionCount; j++ {
			version, ok := readLine()
			if !ok {
				return nil, fmt.Errorf("methodology: truncated file, expected version for %s", name)
			}
			source, ok := readLine()
			if !ok {
				return nil, fmt.Errorf("methodology: truncated file, expected source for %s@%s", name, version)
			}
			m, err := method.New(name, version, source, log)
			if err != nil {
				return nil, fmt.Errorf("methodology: %s@%s: %w", name, version, err)
			}
			if err := reg.Register(m); err != nil {
				return nil, fmt.Errorf("methodology: %w", err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("methodology: %w", err)
	}
	return reg, nil
}

// SaveToFile atomically writes the catalog to path: any existing file is
// first copied to path+".bak" under a uuid-disambiguated temp name so a
// concurrent backup never clobbers a partially written one, then the new
// content is written to a temp file and renamed into place, with
// owner-only permissions applied on success.
func (r *Methodology) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("methodology: create dir: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := backupFile(path); err != nil {
			return fmt.Errorf("methodology: backup: %w", err)
		}
	}

	tmp := filepath.Join(dir, ".methodology-"+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, secureFileMode)
	if err != nil {
		return fmt.Errorf("methodology: create temp file: %w", err)
	}
	if err := r.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("methodology: write: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("methodology: close temp file: %w", err)
	}
	if err := os.Chmod(tmp, secureFileMode); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("methodology: chmod: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("methodology: rename: %w", err)
	}
	return nil
}

// backupFile copies the existing catalog at path to path+".bak" via a
// uuid-named temp file plus rename, so the .bak itself is never observed
// half-written.
func backupFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, ".methodology-bak-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, secureFileMode); err != nil {
		return err
	}
	return os.Rename(tmp, path+".bak")
}

// LoadFromFile loads the catalog at path. A missing file yields an empty,
// fresh catalog (not an error). A structurally corrupt file is backed up
// to a uuid-disambiguated ".corrupt" path and replaced in memory by an
// empty catalog.
func LoadFromFile(path string, log *agerunlog.Log) (*Methodology, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("methodology: open: %w", err)
	}
	defer f.Close()

	reg, err := ReadFrom(f, log)
	if err != nil {
		if log != nil {
			log.RecordError(agerunlog.New(agerunlog.PersistenceError, err, "path", path), "corrupt methodology catalog, replacing with empty catalog")
		}
		if backupErr := quarantineCorrupt(path); backupErr != nil && log != nil {
			log.RecordError(agerunlog.New(agerunlog.PersistenceError, backupErr, "path", path), "failed to quarantine corrupt catalog")
		}
		return New(), nil
	}
	return reg, nil
}

func quarantineCorrupt(path string) error {
	dest := path + ".corrupt-" + uuid.NewString()
	return os.Rename(path, dest)
}
