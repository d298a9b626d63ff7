// Package value implements AgeRun's universal datum: a tagged union of
// int/double/string/list/map with an ownership token attached to every
// instance. The token stands in for the linear-type discipline the original
// C runtime enforced by hand (see DESIGN.md's pkg/value ledger entry) —
// in this Go port nothing is garbage-collected away early, but the same
// claim/release/double-free rules are checked explicitly so the observable
// semantics of send/spawn/compile (which all transfer ownership) match the
// spec exactly.
package value

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindInteger Kind = iota
	KindDouble
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Holder is an opaque identity that may own a Value: an agent, an
// evaluator, a store. Any comparable value works; callers typically pass a
// string (as the tests do) or an agent id (as pkg/interp does).
type Holder any

// unowned is the sentinel holder meaning "nobody owns this yet."
var unowned Holder = nil

// Value is the universal datum. Exactly one of the typed fields is
// meaningful, selected by Kind. Values are never copied implicitly — use
// ShallowCopy or ClaimOrCopy.
type Value struct {
	kind Kind

	i    int64
	d    float64
	s    string
	list []*Value
	m    map[string]*Value
	keys []string // insertion order for m, not semantically observable

	owner Holder
}

// NewInteger returns a new unowned integer Value.
func NewInteger(i int64) *Value { return &Value{kind: KindInteger, i: i} }

// NewDouble returns a new unowned double Value.
func NewDouble(d float64) *Value { return &Value{kind: KindDouble, d: d} }

// NewString returns a new unowned string Value.
func NewString(s string) *Value { return &Value{kind: KindString, s: s} }

// NewList returns a new unowned, empty list Value.
func NewList() *Value { return &Value{kind: KindList} }

// NewMap returns a new unowned, empty map Value.
func NewMap() *Value { return &Value{kind: KindMap, m: make(map[string]*Value)} }

// Kind reports which variant v holds.
func (v *Value) Kind() Kind { return v.kind }

// IsOwned reports whether v currently has an owner.
func (v *Value) IsOwned() bool { return v.owner != nil }

// Owner returns the current holder, or nil if unowned.
func (v *Value) Owner() Holder { return v.owner }

// Integer returns the integer payload; valid only when Kind() == KindInteger.
func (v *Value) Integer() int64 { return v.i }

// Double returns the double payload; valid only when Kind() == KindDouble.
func (v *Value) Double() float64 { return v.d }

// Str returns the string payload; valid only when Kind() == KindString.
func (v *Value) Str() string { return v.s }

// Claim marks v as owned by h. It fails if v already has an owner.
func (v *Value) Claim(h Holder) error {
	if v.owner != nil {
		return fmt.Errorf("value: cannot claim: already owned")
	}
	v.owner = h
	return nil
}

// Release returns v to the unowned state. It fails if v is not owned by h.
func (v *Value) Release(h Holder) error {
	if v.owner != h {
		return fmt.Errorf("value: cannot release: not owned by holder")
	}
	v.owner = unowned
	return nil
}

// DestroyIfOwned is a no-op unless v is unowned or owned by h, in which
// case it clears the owner. It never fails: destruction of a value some
// other holder still owns is simply skipped, matching the original's
// "no-op otherwise" rule.
func (v *Value) DestroyIfOwned(h Holder) {
	if v.owner == unowned || v.owner == h {
		v.owner = unowned
	}
}

// ErrContainerCopy is returned by ShallowCopy for List/Map variants, which
// have no deep-copy operation.
var ErrContainerCopy = fmt.Errorf("value: cannot shallow-copy a container (List/Map)")

// ShallowCopy returns a new unowned Value equal to v for scalar variants.
// It fails with ErrContainerCopy for List and Map.
func ShallowCopy(v *Value) (*Value, error) {
	switch v.kind {
	case KindInteger:
		return NewInteger(v.i), nil
	case KindDouble:
		return NewDouble(v.d), nil
	case KindString:
		return NewString(v.s), nil
	default:
		return nil, ErrContainerCopy
	}
}

// ClaimOrCopy is the standard idiom for an evaluator that receives a Value
// it did not produce and wants to keep it: claim it if unowned, otherwise
// shallow-copy it. It fails (propagating ErrContainerCopy) only when v is
// already owned and is a container.
func ClaimOrCopy(v *Value, h Holder) (*Value, error) {
	if v.owner == unowned {
		if err := v.Claim(h); err != nil {
			return nil, err
		}
		return v, nil
	}
	cp, err := ShallowCopy(v)
	if err != nil {
		return nil, err
	}
	if err := cp.Claim(h); err != nil {
		return nil, err
	}
	return cp, nil
}

// MapSet inserts key->val into map m. It requires val to be unowned and,
// on success, transfers val's ownership to the container: val is claimed
// with m itself as the holder. The container as a whole carries one
// ownership token; inserting does not touch m's own owner, it is the
// caller's responsibility that m itself is already claimed by whoever
// owns it.
func MapSet(m *Value, key string, val *Value) error {
	if m.kind != KindMap {
		return fmt.Errorf("value: MapSet: not a map")
	}
	if val.IsOwned() {
		return fmt.Errorf("value: MapSet: value must be unowned")
	}
	if err := val.Claim(m); err != nil {
		return err
	}
	if _, exists := m.m[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.m[key] = val
	return nil
}

// MapGet returns a borrowed reference to the value at key, or (nil, false)
// if absent. The returned Value must not be stored past the current call.
func MapGet(m *Value, key string) (*Value, bool) {
	if m.kind != KindMap {
		return nil, false
	}
	v, ok := m.m[key]
	return v, ok
}

// MapKeys returns the map's keys in insertion order. Insertion order is an
// implementation convenience for deterministic iteration/persistence; it is
// not part of any observable map-equality semantics.
func MapKeys(m *Value) []string {
	if m.kind != KindMap {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// MapDelete removes key from m, if present, releasing ownership of the
// removed value back to unowned.
func MapDelete(m *Value, key string) {
	if m.kind != KindMap {
		return
	}
	if old, ok := m.m[key]; ok {
		old.owner = unowned
		delete(m.m, key)
		for i, k := range m.keys {
			if k == key {
				m.keys = append(m.keys[:i], m.keys[i+1:]...)
				break
			}
		}
	}
}

// ListPush appends val to list l, transferring ownership the same way
// MapSet does.
func ListPush(l *Value, val *Value) error {
	if l.kind != KindList {
		return fmt.Errorf("value: ListPush: not a list")
	}
	if val.IsOwned() {
		return fmt.Errorf("value: ListPush: value must be unowned")
	}
	if err := val.Claim(l); err != nil {
		return err
	}
	l.list = append(l.list, val)
	return nil
}

// ListGet returns a borrowed reference to the element at index i.
func ListGet(l *Value, i int) (*Value, bool) {
	if l.kind != KindList || i < 0 || i >= len(l.list) {
		return nil, false
	}
	return l.list[i], true
}

// ListLen returns the number of elements in list l.
func ListLen(l *Value) int {
	if l.kind != KindList {
		return 0
	}
	return len(l.list)
}

// CanonicalString renders v the way build()/string-concatenation coercion
// does: integers and doubles become their canonical decimal text,
// strings pass through unchanged, containers render empty (there is no
// canonical text form for a List/Map per the method language).
func CanonicalString(v *Value) string {
	if v == nil {
		return ""
	}
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.d, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// Truthy implements the method language's truthiness rule for if():
// non-zero integer, non-zero double or non-empty string is true; everything
// else (zero, empty string, List, Map, nil) is false.
func Truthy(v *Value) bool {
	if v == nil {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i != 0
	case KindString:
		return v.s != ""
	case KindDouble:
		return v.d != 0
	default:
		return false
	}
}
