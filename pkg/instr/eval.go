package instr

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/quenio/agerun-go/pkg/agerunlog"
	"github.com/quenio/agerun-go/pkg/expr"
	"github.com/quenio/agerun-go/pkg/value"
)

// Runtime is the side-effecting surface an instruction evaluator needs
// from the agency. Defined here rather than imported from pkg/agency so
// pkg/agency can implement it structurally without a circular
// dependency; pkg/interp wires a concrete *agency.Agency in.
type Runtime interface {
	// Send enqueues msg (already unowned) on the target agent's queue. It
	// returns false if the target id does not name a live agent; that
	// failure is recorded as UnknownAgent but does not abort the
	// instruction — the instruction still succeeds, with result 0.
	Send(targetID int64, msg *value.Value) bool

	// Spawn creates a new agent running methodName@versionSpec with ctx
	// borrowed by the new agent. It returns 0 if the method cannot be
	// resolved.
	Spawn(methodName, versionSpec string, ctx *value.Value) int64

	// Compile registers a new method version. It returns false on a
	// VersionConflict (name+version already registered).
	Compile(name, source, version string) bool

	// Deprecate unregisters a (name, version). It returns false if no such
	// version was registered.
	Deprecate(name, version string) bool
}

// EvalInstruction executes a single instruction against frame, using rt
// for side effects and holder as the transient ownership identity for
// values this evaluator produces before they're handed to memory or to
// rt. It returns false (after logging one structured error) on any
// failure that should abort the method; the interpreter stops at the
// first false.
func EvalInstruction(inst Instruction, frame *expr.Frame, rt Runtime, holder value.Holder, log *agerunlog.Log) bool {
	switch inst.Kind {
	case InstrAssignment:
		return evalAssignment(inst, frame, holder, log)
	case InstrFunctionCall:
		return evalFunctionCall(inst, frame, rt, holder, log)
	default:
		return false
	}
}

func evalAssignment(inst Instruction, frame *expr.Frame, holder value.Holder, log *agerunlog.Log) bool {
	res, err := expr.Eval(inst.ExprAST, frame)
	if err != nil {
		logEvalError(log, err, inst)
		return false
	}
	if err := storeAtPath(frame.Memory, inst.Path, res.Value, holder); err != nil {
		log.Error(kindOf(err), err.Error(), attr("line", inst.Line))
		return false
	}
	return true
}

func evalFunctionCall(inst Instruction, frame *expr.Frame, rt Runtime, holder value.Holder, log *agerunlog.Log) bool {
	switch inst.FnKind {
	case FnSend:
		return evalSend(inst, frame, rt, holder, log)
	case FnIf:
		return evalIf(inst, frame, holder, log)
	case FnParse:
		return evalParse(inst, frame, holder, log)
	case FnBuild:
		return evalBuild(inst, frame, holder, log)
	case FnCompile:
		return evalCompile(inst, frame, rt, holder, log)
	case FnSpawn:
		return evalSpawn(inst, frame, rt, holder, log)
	case FnDeprecate:
		return evalDeprecate(inst, frame, rt, holder, log)
	default:
		return false
	}
}

// --- send -------------------------------------------------------------

func evalSend(inst Instruction, frame *expr.Frame, rt Runtime, holder value.Holder, log *agerunlog.Log) bool {
	idRes, err := expr.Eval(inst.ArgASTs[0], frame)
	if err != nil {
		logEvalError(log, err, inst)
		return false
	}
	if idRes.Value.Kind() != value.KindInteger {
		log.Error(agerunlog.TypeMismatch, "send() target id must be an integer", attr("line", inst.Line))
		return false
	}
	targetID := idRes.Value.Integer()

	msgRes, err := expr.Eval(inst.ArgASTs[1], frame)
	if err != nil {
		logEvalError(log, err, inst)
		return false
	}

	if targetID == 0 {
		msgRes.Value.DestroyIfOwned(holder)
		return storeResult(frame, inst.ResultPath, value.NewInteger(1), holder, log, inst.Line)
	}

	prepared, err := prepareForStorage(msgRes.Value, holder)
	if err != nil {
		log.Error(agerunlog.ContainerCopy, err.Error(), attr("line", inst.Line))
		return false
	}
	delivered := rt.Send(targetID, prepared)
	result := int64(0)
	if delivered {
		result = 1
	} else {
		log.Error(agerunlog.UnknownAgent, "send: unknown agent", attr("line", inst.Line), attr("target_id", targetID))
	}
	return storeResult(frame, inst.ResultPath, value.NewInteger(result), holder, log, inst.Line)
}

// --- if -----------------------------------------------------------------

func evalIf(inst Instruction, frame *expr.Frame, holder value.Holder, log *agerunlog.Log) bool {
	condRes, err := expr.Eval(inst.ArgASTs[0], frame)
	if err != nil {
		logEvalError(log, err, inst)
		return false
	}
	branch := inst.ArgASTs[2]
	if value.Truthy(condRes.Value) {
		branch = inst.ArgASTs[1]
	}
	chosen, err := expr.Eval(branch, frame)
	if err != nil {
		logEvalError(log, err, inst)
		return false
	}
	return storeResult(frame, inst.ResultPath, chosen.Value, holder, log, inst.Line)
}

// --- parse / build --------------------------------------------------------

func evalParse(inst Instruction, frame *expr.Frame, holder value.Holder, log *agerunlog.Log) bool {
	tmplRes, err := expr.Eval(inst.ArgASTs[0], frame)
	if err != nil {
		logEvalError(log, err, inst)
		return false
	}
	inputRes, err := expr.Eval(inst.ArgASTs[1], frame)
	if err != nil {
		logEvalError(log, err, inst)
		return false
	}
	result := parseTemplate(value.CanonicalString(tmplRes.Value), value.CanonicalString(inputRes.Value))
	return storeResult(frame, inst.ResultPath, result, holder, log, inst.Line)
}

// parseTemplate walks template and input in lockstep: each {ident}
// consumes characters up to the next literal delimiter from the template
// (or to end-of-input if none follows); a delimiter mismatch anywhere
// produces an empty Map.
func parseTemplate(template, input string) *value.Value {
	out := value.NewMap()
	ti, ii := 0, 0
	for ti < len(template) {
		if template[ti] == '{' {
			end := strings.IndexByte(template[ti:], '}')
			if end < 0 {
				return value.NewMap() // malformed template: no closing brace
			}
			name := template[ti+1 : ti+end]
			ti += end + 1

			var delim string
			if ti < len(template) {
				next := strings.IndexByte(template[ti:], '{')
				if next < 0 {
					delim = template[ti:]
				} else {
					delim = template[ti : ti+next]
				}
			}

			var raw string
			if delim == "" {
				raw = input[ii:]
				ii = len(input)
			} else {
				idx := strings.Index(input[ii:], delim)
				if idx < 0 {
					return value.NewMap()
				}
				raw = input[ii : ii+idx]
				ii += idx
			}
			_ = value.MapSet(out, name, inferScalar(raw))
			continue
		}
		// Literal run: must match input exactly.
		lit := template[ti]
		if ii >= len(input) || input[ii] != lit {
			return value.NewMap()
		}
		ti++
		ii++
	}
	return out
}

func inferScalar(raw string) *value.Value {
	if raw == "" {
		return value.NewString(raw)
	}
	if isAllDigits(raw) {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return value.NewInteger(i)
		}
	}
	if strings.Contains(raw, ".") {
		if d, err := strconv.ParseFloat(raw, 64); err == nil {
			return value.NewDouble(d)
		}
	}
	return value.NewString(raw)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' {
		start = 1
	}
	if start == len(s) {
		return false
	}
	for _, r := range s[start:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func evalBuild(inst Instruction, frame *expr.Frame, holder value.Holder, log *agerunlog.Log) bool {
	tmplRes, err := expr.Eval(inst.ArgASTs[0], frame)
	if err != nil {
		logEvalError(log, err, inst)
		return false
	}
	valuesRes, err := expr.Eval(inst.ArgASTs[1], frame)
	if err != nil {
		logEvalError(log, err, inst)
		return false
	}
	built := buildTemplate(value.CanonicalString(tmplRes.Value), valuesRes.Value)
	return storeResult(frame, inst.ResultPath, built, holder, log, inst.Line)
}

// buildTemplate copies literal text, substituting each {ident} with the
// canonical string form of values[ident] (empty string if missing).
func buildTemplate(template string, values *value.Value) *value.Value {
	var b strings.Builder
	i := 0
	for i < len(template) {
		if template[i] == '{' {
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				b.WriteByte(template[i])
				i++
				continue
			}
			name := template[i+1 : i+end]
			i += end + 1
			if values != nil && values.Kind() == value.KindMap {
				if v, ok := value.MapGet(values, name); ok {
					b.WriteString(value.CanonicalString(v))
				}
			}
			continue
		}
		b.WriteByte(template[i])
		i++
	}
	return value.NewString(b.String())
}

// --- compile / spawn / deprecate ------------------------------------------

func evalCompile(inst Instruction, frame *expr.Frame, rt Runtime, holder value.Holder, log *agerunlog.Log) bool {
	name, err := evalStringArg(inst, frame, 0, log)
	if err != nil {
		return false
	}
	source, err := evalStringArg(inst, frame, 1, log)
	if err != nil {
		return false
	}
	version, err := evalStringArg(inst, frame, 2, log)
	if err != nil {
		return false
	}
	ok := rt.Compile(name, source, version)
	result := int64(0)
	if ok {
		result = 1
	} else {
		log.Error(agerunlog.VersionConflict, "compile: method already registered", attr("line", inst.Line), attr("name", name), attr("version", version))
	}
	return storeResult(frame, inst.ResultPath, value.NewInteger(result), holder, log, inst.Line)
}

func evalSpawn(inst Instruction, frame *expr.Frame, rt Runtime, holder value.Holder, log *agerunlog.Log) bool {
	name, err := evalStringArg(inst, frame, 0, log)
	if err != nil {
		return false
	}
	version, err := evalStringArg(inst, frame, 1, log)
	if err != nil {
		return false
	}
	var ctx *value.Value
	if arg := inst.ArgASTs[2]; arg.Kind == expr.KindPath && arg.Root == expr.RootContext && len(arg.PathKeys) == 0 {
		// A bare "context" hands the caller's own context to the child; it
		// is nil for an agent that was spawned without one.
		ctx = frame.Context
	} else {
		ctxRes, err := expr.Eval(arg, frame)
		if err != nil {
			logEvalError(log, err, inst)
			return false
		}
		ctx = ctxRes.Value
	}
	id := rt.Spawn(name, version, ctx)
	if id == 0 {
		log.Error(agerunlog.UnknownMethod, "spawn: unknown method", attr("line", inst.Line), attr("name", name), attr("version", version))
	}
	return storeResult(frame, inst.ResultPath, value.NewInteger(id), holder, log, inst.Line)
}

func evalDeprecate(inst Instruction, frame *expr.Frame, rt Runtime, holder value.Holder, log *agerunlog.Log) bool {
	name, err := evalStringArg(inst, frame, 0, log)
	if err != nil {
		return false
	}
	version, err := evalStringArg(inst, frame, 1, log)
	if err != nil {
		return false
	}
	ok := rt.Deprecate(name, version)
	result := int64(0)
	if ok {
		result = 1
	}
	return storeResult(frame, inst.ResultPath, value.NewInteger(result), holder, log, inst.Line)
}

// --- helpers --------------------------------------------------------------

func evalStringArg(inst Instruction, frame *expr.Frame, idx int, log *agerunlog.Log) (string, error) {
	res, err := expr.Eval(inst.ArgASTs[idx], frame)
	if err != nil {
		logEvalError(log, err, inst)
		return "", err
	}
	return value.CanonicalString(res.Value), nil
}

func storeResult(frame *expr.Frame, path []string, v *value.Value, holder value.Holder, log *agerunlog.Log, line int) bool {
	if path == nil {
		return true
	}
	if err := storeAtPath(frame.Memory, path, v, holder); err != nil {
		log.Error(kindOf(err), err.Error(), attr("line", line))
		return false
	}
	return true
}

// storeAtPath navigates into memory following path, auto-creating
// intermediate Maps, and assigns v at the leaf via the claim-or-copy
// idiom. It fails if any intermediate node exists and is not a Map.
func storeAtPath(memory *value.Value, path []string, v *value.Value, holder value.Holder) error {
	if len(path) == 0 {
		return &agerunlog.RuntimeError{Kind: agerunlog.AssignTargetForbidden, Err: errString("empty memory path")}
	}
	cur := memory
	for _, key := range path[:len(path)-1] {
		existing, ok := value.MapGet(cur, key)
		if !ok {
			next := value.NewMap()
			if err := value.MapSet(cur, key, next); err != nil {
				return &agerunlog.RuntimeError{Kind: agerunlog.TypeMismatch, Err: err}
			}
			cur = next
			continue
		}
		if existing.Kind() != value.KindMap {
			return &agerunlog.RuntimeError{Kind: agerunlog.TypeMismatch, Err: errString("cannot overwrite non-map intermediate with a map")}
		}
		cur = existing
	}

	leaf := path[len(path)-1]
	prepared, err := prepareForStorage(v, holder)
	if err != nil {
		return &agerunlog.RuntimeError{Kind: agerunlog.ContainerCopy, Err: err}
	}
	value.MapDelete(cur, leaf)
	if err := value.MapSet(cur, leaf, prepared); err != nil {
		return &agerunlog.RuntimeError{Kind: agerunlog.TypeMismatch, Err: err}
	}
	return nil
}

// prepareForStorage transiently claims v for holder (or copies it, if it
// was already owned elsewhere), then immediately releases it back to
// unowned so the destination container's own Claim (inside
// MapSet/ListPush) can succeed.
func prepareForStorage(v *value.Value, holder value.Holder) (*value.Value, error) {
	claimed, err := value.ClaimOrCopy(v, holder)
	if err != nil {
		return nil, err
	}
	_ = claimed.Release(holder)
	return claimed, nil
}

func kindOf(err error) agerunlog.ErrorKind {
	if rerr, ok := err.(*agerunlog.RuntimeError); ok {
		return rerr.Kind
	}
	return agerunlog.TypeMismatch
}

func logEvalError(log *agerunlog.Log, err error, inst Instruction) {
	kind := agerunlog.TypeMismatch
	switch {
	case isPathUnresolved(err):
		kind = agerunlog.PathUnresolved
	case isDivisionByZero(err):
		kind = agerunlog.DivisionByZero
	}
	log.Error(kind, err.Error(), attr("line", inst.Line))
}

func isPathUnresolved(err error) bool {
	return strings.Contains(err.Error(), "path unresolved")
}

func isDivisionByZero(err error) bool {
	return strings.Contains(err.Error(), "division by zero")
}

func attr(key string, val any) slog.Attr {
	return slog.Any(key, val)
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

func errString(s string) error { return simpleError(s) }
