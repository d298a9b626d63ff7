// Package instr implements the instruction language: AST, line-oriented
// parser, and per-kind evaluators. One instruction per source line; '#'
// starts a line comment; blank lines are skipped.
package instr

import "github.com/quenio/agerun-go/pkg/expr"

// FnKind is one of the closed set of instruction kinds, encoded as a sum
// type with one variant per kind.
type FnKind int

const (
	FnSend FnKind = iota
	FnIf
	FnParse
	FnBuild
	FnCompile
	FnSpawn
	FnDeprecate
)

func (k FnKind) String() string {
	switch k {
	case FnSend:
		return "send"
	case FnIf:
		return "if"
	case FnParse:
		return "parse"
	case FnBuild:
		return "build"
	case FnCompile:
		return "compile"
	case FnSpawn:
		return "spawn"
	case FnDeprecate:
		return "deprecate"
	default:
		return "unknown"
	}
}

// arity is the required argument count per function.
var arity = map[FnKind]int{
	FnSend:      2,
	FnIf:        3,
	FnParse:     2,
	FnBuild:     2,
	FnCompile:   3,
	FnSpawn:     3,
	FnDeprecate: 2,
}

// fnByName maps the recognized source-level function names to their kind.
var fnByName = map[string]FnKind{
	"send":      FnSend,
	"if":        FnIf,
	"parse":     FnParse,
	"build":     FnBuild,
	"compile":   FnCompile,
	"spawn":     FnSpawn,
	"deprecate": FnDeprecate,
}

// InstructionKind distinguishes the two instruction shapes.
type InstructionKind int

const (
	InstrAssignment InstructionKind = iota
	InstrFunctionCall
)

// Instruction is a single parsed line: either an Assignment or a
// FunctionCall.
type Instruction struct {
	Kind InstructionKind
	Line int // 1-based source line number, for error reporting

	// Assignment fields.
	Path     []string // dotted memory path, e.g. ["count"] for memory.count
	ExprText string
	ExprAST  *expr.Expr

	// FunctionCall fields.
	FnKind     FnKind
	FnName     string
	ArgsText   []string
	ArgASTs    []*expr.Expr
	ResultPath []string // nil if no "path :=" prefix was present
}

// MethodAst is an ordered sequence of instructions. Indexing via At is
// one-based; Instructions is the plain 0-based backing slice for range
// loops.
type MethodAst struct {
	Instructions []Instruction
}

// At returns the n-th instruction, 1-based. ok is false if n is out of
// range.
func (m *MethodAst) At(n int) (Instruction, bool) {
	if n < 1 || n > len(m.Instructions) {
		return Instruction{}, false
	}
	return m.Instructions[n-1], true
}

// Len returns the number of instructions.
func (m *MethodAst) Len() int { return len(m.Instructions) }
