package expr

import (
	"fmt"
)

// A SyntaxError describes an unparseable expression. It is fatal for the
// property entry owning the expression; the position is a byte offset into
// the raw value text.
type SyntaxError struct {
	Pos     int
	Message string
}

// Error implements the builtin error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Message)
}

// A DepthError indicates expression nesting beyond the configured maximum.
// It is fatal for the owning property entry; the limit exists to keep
// pathological auto-generated expressions from exhausting the stack.
type DepthError struct {
	Pos   int
	Limit int
}

// Error implements the builtin error interface.
func (e *DepthError) Error() string {
	return fmt.Sprintf("expression at offset %d is nested more than %d levels deep", e.Pos, e.Limit)
}

// A ReferenceError records an expression referring to something the
// evaluation context doesn't know about. It is recoverable: the reference
// evaluates to false or the empty string and the error is recorded as a
// diagnostic rather than aborting evaluation.
type ReferenceError struct {
	Pos  int
	Kind string
	Name string
}

// Error implements the builtin error interface.
func (e *ReferenceError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("no %s available at offset %d", e.Kind, e.Pos)
	}
	return fmt.Sprintf("unknown %s %q at offset %d", e.Kind, e.Name, e.Pos)
}

// Diagnostics collects the recoverable reference errors hit while
// evaluating expressions. A nil *Diagnostics is valid and discards them.
type Diagnostics struct {
	refs []*ReferenceError
}

func (d *Diagnostics) record(err *ReferenceError) {
	if d != nil {
		d.refs = append(d.refs, err)
	}
}

// Errors returns the recorded reference errors in the order they were hit.
func (d *Diagnostics) Errors() []*ReferenceError {
	if d == nil {
		return nil
	}
	return d.refs
}
