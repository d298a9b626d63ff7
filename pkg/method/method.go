// Package method implements a named, versioned, immutable instruction
// sequence an agent runs once per message.
package method

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/instr"
	"github.com/quenio/agerun-go/pkg/semver"
)

// Method is immutable once constructed. AST is nil if Source failed to
// parse — the method is still a valid catalog entry that registers
// successfully but fails on execution, which matters for catalogs loaded
// from disk with corrupt sources.
type Method struct {
	Name    string
	Version string
	Source  string
	AST     *instr.MethodAst // nil if Source failed to parse
}

// New constructs a Method. It fails only on structural problems with the
// method's own identity (empty name, non-semver version) — a source parse
// failure is recorded to log (as AssignTargetForbidden for a non-memory.
// assignment or result target, ParseError otherwise) and leaves AST nil
// rather than failing construction.
func New(name, version, source string, log *agerunlog.Log) (*Method, error) {
	if name == "" {
		return nil, fmt.Errorf("method: name must not be empty")
	}
	if !semver.IsFullVersion(version) {
		return nil, fmt.Errorf("method: version %q must be a full major.minor.patch", version)
	}
	if _, err := semver.Parse(version); err != nil {
		return nil, fmt.Errorf("method: %w", err)
	}

	m := &Method{Name: name, Version: version, Source: source}
	ast, err := instr.Parse(source)
	if err != nil {
		if log != nil {
			kind := agerunlog.ParseError
			var rerr *agerunlog.RuntimeError
			if errors.As(err, &rerr) {
				kind = rerr.Kind
			}
			log.Error(kind, "method source failed to parse",
				slog.String("name", name), slog.String("version", version), slog.String("error", err.Error()))
		}
		return m, nil
	}
	m.AST = ast
	return m, nil
}

// Runnable reports whether the method has a parsed AST and can therefore
// be executed.
func (m *Method) Runnable() bool { return m.AST != nil }
