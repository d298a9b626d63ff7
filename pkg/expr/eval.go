package expr

import (
	"fmt"

	"github.com/quenio/agerun-go/pkg/value"
)

// Frame bundles the (memory, context, message) triple an expression
// evaluates against. Memory is mutable; Context and Message are borrowed
// and read-only from the expression evaluator's point of view.
type Frame struct {
	Memory  *value.Value // *Map, owned by the agent
	Context *value.Value // *Map or nil, borrowed
	Message *value.Value // borrowed
}

// Result is an evaluator's return: either a Borrowed reference into the
// frame (a bare path) or a freshly allocated Computed value (anything
// else). Callers use value.ClaimOrCopy uniformly regardless of which this
// is.
type Result struct {
	Value    *value.Value
	Borrowed bool
}

// ErrPathUnresolved is wrapped by the error returned when a path accessor
// descends into a missing key or a non-Map node.
var ErrPathUnresolved = fmt.Errorf("path unresolved")

// ErrTypeMismatch is wrapped by arithmetic/comparison type errors.
var ErrTypeMismatch = fmt.Errorf("type mismatch")

// ErrDivisionByZero is returned by '/' with a zero divisor.
var ErrDivisionByZero = fmt.Errorf("division by zero")

// Eval evaluates e against frame.
func Eval(e *Expr, frame *Frame) (Result, error) {
	switch e.Kind {
	case KindIntLit:
		return Result{Value: value.NewInteger(e.IntVal)}, nil
	case KindDoubleLit:
		return Result{Value: value.NewDouble(e.DoubleVal)}, nil
	case KindStringLit:
		return Result{Value: value.NewString(e.StringVal)}, nil
	case KindPath:
		return evalPath(e, frame)
	case KindBinaryOp:
		return evalBinary(e, frame)
	default:
		return Result{}, fmt.Errorf("expr: unknown node kind %v", e.Kind)
	}
}

func evalPath(e *Expr, frame *Frame) (Result, error) {
	var root *value.Value
	switch e.Root {
	case RootMemory:
		root = frame.Memory
	case RootContext:
		root = frame.Context
	case RootMessage:
		root = frame.Message
	}
	if root == nil {
		return Result{}, fmt.Errorf("%w: root is nil", ErrPathUnresolved)
	}

	cur := root
	for _, k := range e.PathKeys {
		if cur.Kind() != value.KindMap {
			return Result{}, fmt.Errorf("%w: %q is not a map", ErrPathUnresolved, k)
		}
		next, ok := value.MapGet(cur, k)
		if !ok {
			return Result{}, fmt.Errorf("%w: key %q not found", ErrPathUnresolved, k)
		}
		cur = next
	}
	return Result{Value: cur, Borrowed: true}, nil
}

func evalBinary(e *Expr, frame *Frame) (Result, error) {
	left, err := Eval(e.Left, frame)
	if err != nil {
		return Result{}, err
	}
	right, err := Eval(e.Right, frame)
	if err != nil {
		return Result{}, err
	}
	lv, rv := left.Value, right.Value

	switch e.Op {
	case OpEq:
		return Result{Value: value.NewInteger(boolToInt(equalValues(lv, rv)))}, nil
	case OpAdd:
		if lv.Kind() == value.KindString || rv.Kind() == value.KindString {
			return Result{Value: value.NewString(value.CanonicalString(lv) + value.CanonicalString(rv))}, nil
		}
		return numericOp(lv, rv, e.Op)
	case OpSub, OpMul, OpDiv:
		return numericOp(lv, rv, e.Op)
	default:
		return Result{}, fmt.Errorf("expr: unknown operator %v", e.Op)
	}
}

func isNumeric(v *value.Value) bool {
	return v.Kind() == value.KindInteger || v.Kind() == value.KindDouble
}

func asDouble(v *value.Value) float64 {
	if v.Kind() == value.KindDouble {
		return v.Double()
	}
	return float64(v.Integer())
}

func numericOp(lv, rv *value.Value, op Op) (Result, error) {
	if !isNumeric(lv) || !isNumeric(rv) {
		return Result{}, fmt.Errorf("%w: arithmetic requires numeric operands, got %v and %v", ErrTypeMismatch, lv.Kind(), rv.Kind())
	}
	double := lv.Kind() == value.KindDouble || rv.Kind() == value.KindDouble

	if op == OpDiv {
		if double {
			if asDouble(rv) == 0 {
				return Result{}, ErrDivisionByZero
			}
			return Result{Value: value.NewDouble(asDouble(lv) / asDouble(rv))}, nil
		}
		if rv.Integer() == 0 {
			return Result{}, ErrDivisionByZero
		}
		return Result{Value: value.NewInteger(lv.Integer() / rv.Integer())}, nil
	}

	if double {
		a, b := asDouble(lv), asDouble(rv)
		var r float64
		switch op {
		case OpAdd:
			r = a + b
		case OpSub:
			r = a - b
		case OpMul:
			r = a * b
		}
		return Result{Value: value.NewDouble(r)}, nil
	}

	a, b := lv.Integer(), rv.Integer()
	var r int64
	switch op {
	case OpAdd:
		r = a + b
	case OpSub:
		r = a - b
	case OpMul:
		r = a * b
	}
	return Result{Value: value.NewInteger(r)}, nil
}

// equalValues implements '=' semantics: string vs string compares
// bytewise, number vs number compares numerically with promotion,
// otherwise (mismatched kinds, or either side a List/Map) the comparison
// is false.
func equalValues(lv, rv *value.Value) bool {
	if lv.Kind() == value.KindString && rv.Kind() == value.KindString {
		return lv.Str() == rv.Str()
	}
	if isNumeric(lv) && isNumeric(rv) {
		if lv.Kind() == value.KindInteger && rv.Kind() == value.KindInteger {
			return lv.Integer() == rv.Integer()
		}
		return asDouble(lv) == asDouble(rv)
	}
	return false
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
