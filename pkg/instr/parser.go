package instr

import (
	"fmt"
	"strings"

	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/expr"
)

// Parse parses a complete method source into a MethodAst. Comments ('#' to
// end of line, outside string literals) and blank lines are stripped
// before each remaining line is parsed as exactly one instruction. Any
// malformed line fails the whole parse — the caller (pkg/method) is
// responsible for the rule that a Method with a failed parse still
// registers, just with a nil AST.
func Parse(source string) (*MethodAst, error) {
	var instructions []Instruction
	for i, rawLine := range strings.Split(source, "\n") {
		lineNo := i + 1
		line := stripComment(rawLine)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		inst, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("instr: line %d: %w", lineNo, err)
		}
		inst.Line = lineNo
		instructions = append(instructions, inst)
	}
	return &MethodAst{Instructions: instructions}, nil
}

// stripComment removes a trailing '#'-to-end-of-line comment, respecting
// double-quoted string literals so a '#' inside a string is not treated as
// a comment marker.
func stripComment(line string) string {
	inString := false
	escaped := false
	for i, r := range line {
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '#':
			return line[:i]
		}
	}
	return line
}

// findTopLevelAssign finds the index of a top-level ":=" token: not inside
// a string literal and not inside parentheses (so an expression containing
// "(memory.x := 1)"-shaped nonsense, which is not valid anyway, never
// confuses argument parsing downstream).
func findTopLevelAssign(line string) int {
	depth := 0
	inString := false
	escaped := false
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
		case ':':
			if depth == 0 && i+1 < len(runes) && runes[i+1] == '=' {
				return i
			}
		}
	}
	return -1
}

func parseLine(line string) (Instruction, error) {
	assignIdx := findTopLevelAssign(line)

	var pathText, rhs string
	hasPath := assignIdx >= 0
	if hasPath {
		pathText = strings.TrimSpace(line[:assignIdx])
		rhs = strings.TrimSpace(line[assignIdx+2:])
	} else {
		rhs = strings.TrimSpace(line)
	}

	if name, argsInner, ok := splitCall(rhs); ok {
		kind, known := fnByName[name]
		if !known {
			return Instruction{}, fmt.Errorf("unknown function %q", name)
		}
		argsText := splitArgs(argsInner)
		want := arity[kind]
		if len(argsText) != want {
			return Instruction{}, fmt.Errorf("%s() expects %d argument(s), got %d", name, want, len(argsText))
		}
		argASTs := make([]*expr.Expr, len(argsText))
		for i, a := range argsText {
			e, err := expr.Parse(strings.TrimSpace(a))
			if err != nil {
				return Instruction{}, fmt.Errorf("%s() argument %d: %w", name, i+1, err)
			}
			argASTs[i] = e
		}

		var resultPath []string
		if hasPath {
			resultPath = splitPath(pathText)
			if len(resultPath) == 0 || resultPath[0] != "memory" {
				return Instruction{}, &agerunlog.RuntimeError{
					Kind: agerunlog.AssignTargetForbidden,
					Err:  fmt.Errorf("result path must start with memory."),
				}
			}
			resultPath = resultPath[1:]
		}

		return Instruction{
			Kind:       InstrFunctionCall,
			FnKind:     kind,
			FnName:     name,
			ArgsText:   argsText,
			ArgASTs:    argASTs,
			ResultPath: resultPath,
		}, nil
	}

	if !hasPath {
		return Instruction{}, fmt.Errorf("expected an assignment or a function call")
	}

	segs := splitPath(pathText)
	if len(segs) == 0 || segs[0] != "memory" {
		return Instruction{}, &agerunlog.RuntimeError{
			Kind: agerunlog.AssignTargetForbidden,
			Err:  fmt.Errorf("assignment target must start with memory."),
		}
	}
	e, err := expr.Parse(rhs)
	if err != nil {
		return Instruction{}, fmt.Errorf("assignment expression: %w", err)
	}
	return Instruction{
		Kind:     InstrAssignment,
		Path:     segs[1:],
		ExprText: rhs,
		ExprAST:  e,
	}, nil
}

func splitPath(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

// splitCall checks whether s is exactly "name(...)" — an identifier
// immediately followed by a parenthesized argument list that closes at the
// end of the string — and if so returns the name and the inner text.
func splitCall(s string) (name string, inner string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", "", false
	}
	candidate := s[:open]
	for _, r := range candidate {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return "", "", false
		}
	}
	// Verify the final ')' actually closes the opening '(' (i.e. parens
	// are balanced across the whole remainder), not just textually present.
	depth := 0
	inString := false
	escaped := false
	runes := []rune(s)
	for i := open; i < len(runes); i++ {
		r := runes[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(runes)-1 {
				return "", "", false
			}
		}
	}
	if depth != 0 {
		return "", "", false
	}
	return candidate, s[open+1 : len(s)-1], true
}

// splitArgs tokenizes on commas at paren-depth 0, respecting quoted string
// literals.
func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var args []string
	depth := 0
	inString := false
	escaped := false
	start := 0
	runes := []rune(s)
	for i, r := range runes {
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch r {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, string(runes[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, string(runes[start:]))
	return args
}
