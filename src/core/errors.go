package core

import (
	"fmt"
	"strings"
)

// A StructuralErrorKind classifies the ways a graph can be structurally unusable.
type StructuralErrorKind int

const (
	// CycleError indicates the dependency edges form a cycle.
	CycleError StructuralErrorKind = iota
	// DuplicateTargetError indicates two targets were declared with the same name.
	DuplicateTargetError
	// UnknownTargetError indicates an edge references a target that was never declared.
	UnknownTargetError
	// FrozenError indicates an attempted mutation after the graph was frozen.
	FrozenError
	// DuplicateContextError indicates two evaluation contexts share a name.
	DuplicateContextError
)

// A StructuralError describes a defect in the shape of the graph itself.
// These are always fatal; property propagation is undefined on a broken graph.
type StructuralError struct {
	Kind StructuralErrorKind
	// Cycle holds the names of the targets forming the cycle, in encounter
	// order, when Kind is CycleError.
	Cycle []string
	msg   string
}

// Error implements the builtin error interface.
func (e *StructuralError) Error() string {
	return e.msg
}

func cycleError(cycle []string) *StructuralError {
	return &StructuralError{
		Kind:  CycleError,
		Cycle: cycle,
		msg: fmt.Sprintf("Dependency cycle found:\n%s\nSorry, but you'll have to refactor your targets to avoid this cycle.",
			strings.Join(append(cycle[:len(cycle):len(cycle)], cycle[0]), "\n -> ")),
	}
}

func duplicateTargetError(name string) *StructuralError {
	return &StructuralError{
		Kind: DuplicateTargetError,
		msg:  fmt.Sprintf("Attempted to re-add existing target %s to the graph", name),
	}
}

func unknownTargetError(from, to string) *StructuralError {
	return &StructuralError{
		Kind: UnknownTargetError,
		msg:  fmt.Sprintf("Target %s depends on %s, which is not declared in the graph", from, to),
	}
}

func frozenError(op string) *StructuralError {
	return &StructuralError{
		Kind: FrozenError,
		msg:  fmt.Sprintf("Cannot %s: the graph has been frozen for resolution", op),
	}
}

// DuplicateContext returns the structural error for two contexts sharing a name.
func DuplicateContext(name string) *StructuralError {
	return &StructuralError{
		Kind: DuplicateContextError,
		msg:  fmt.Sprintf("Duplicate evaluation context %s in a single plan", name),
	}
}
