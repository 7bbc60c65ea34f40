package core

import (
	"strings"
)

// A Visibility controls how far a property or dependency propagates along
// the graph's edges.
type Visibility uint8

const (
	// Exported properties apply to the owning target and flow on to anything
	// depending on it, transitively.
	Exported Visibility = iota
	// Internal properties apply only to the owning target and never propagate.
	Internal
	// Interface properties apply only to dependents of the owning target,
	// never to the target itself.
	Interface
)

// String implements the fmt.Stringer interface.
func (v Visibility) String() string {
	switch v {
	case Exported:
		return "exported"
	case Internal:
		return "internal"
	case Interface:
		return "interface"
	}
	return "unknown"
}

// ExpressionMarker introduces a conditional expression within a raw value.
const ExpressionMarker = "$<"

// A Value is a single raw property value: either a literal string or text
// containing one or more unevaluated $<...> expressions. Values are carried
// through propagation untouched and only expanded against a specific
// evaluation context when a resolved view is produced.
type Value string

// IsExpression returns true if the value contains conditional expression text.
func (v Value) IsExpression() bool {
	return strings.Contains(string(v), ExpressionMarker)
}

// String implements the fmt.Stringer interface.
func (v Value) String() string {
	return string(v)
}

type taggedValue struct {
	value Value
	vis   Visibility
}

// A PropertyStore holds a target's declared properties: per key, an ordered
// list of raw values each tagged with a visibility tier. Values only ever
// accumulate; there is no removal, so declaration is order-independent apart
// from append order within a key.
type PropertyStore struct {
	keys    []string
	entries map[string][]taggedValue
}

// NewPropertyStore creates an empty property store.
func NewPropertyStore() *PropertyStore {
	return &PropertyStore{entries: map[string][]taggedValue{}}
}

// Set appends values for a key at the given visibility, creating the key if
// it doesn't exist yet.
func (s *PropertyStore) Set(key string, vis Visibility, values ...Value) {
	if _, present := s.entries[key]; !present {
		s.keys = append(s.keys, key)
	}
	for _, v := range values {
		s.entries[key] = append(s.entries[key], taggedValue{value: v, vis: vis})
	}
}

// Keys returns all property keys in first-set order.
func (s *PropertyStore) Keys() []string {
	return s.keys
}

// All returns every value declared for a key regardless of visibility,
// in declaration order.
func (s *PropertyStore) All(key string) []Value {
	return s.filter(key, func(Visibility) bool { return true })
}

// Local returns the values used when building the owning target itself,
// i.e. everything except interface-visibility values, in declaration order.
func (s *PropertyStore) Local(key string) []Value {
	return s.filter(key, func(vis Visibility) bool { return vis != Interface })
}

// Exported returns only the exported-visibility values for a key.
func (s *PropertyStore) Exported(key string) []Value {
	return s.filter(key, func(vis Visibility) bool { return vis == Exported })
}

// Interface returns what the owning target hands to its consumers: the
// union of exported and interface visibility values, in declaration order.
func (s *PropertyStore) Interface(key string) []Value {
	return s.filter(key, func(vis Visibility) bool { return vis != Internal })
}

func (s *PropertyStore) filter(key string, keep func(Visibility) bool) []Value {
	var ret []Value
	for _, tv := range s.entries[key] {
		if keep(tv.vis) {
			ret = append(ret, tv.value)
		}
	}
	return ret
}
