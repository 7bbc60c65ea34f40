package plan

import (
	"github.com/crane-build/crane/src/core"
)

// A ResolvedView is the final property snapshot for one target under one
// evaluation context: expressions expanded, duplicates removed keeping the
// first occurrence, local values ahead of inherited ones. Views are
// immutable once produced and shared between callers; values that expand to
// the empty string are omitted.
type ResolvedView struct {
	// Target is the name of the target this view describes.
	Target string
	// Kind of the target.
	Kind core.TargetKind
	// Context is the ID of the evaluation context the view was resolved for.
	Context string

	localKeys    []string
	local        map[string][]string
	exportedKeys []string
	exported     map[string][]string
}

// Keys returns the property keys with at least one local-use value, in
// resolution order.
func (v *ResolvedView) Keys() []string {
	return v.localKeys
}

// Values returns the local-use values for a key: what the target itself is
// built with.
func (v *ResolvedView) Values(key string) []string {
	return v.local[key]
}

// ExportedKeys returns the property keys with at least one exported value,
// in resolution order.
func (v *ResolvedView) ExportedKeys() []string {
	return v.exportedKeys
}

// Exported returns the values the target hands on to its dependents for a key.
func (v *ResolvedView) Exported(key string) []string {
	return v.exported[key]
}
