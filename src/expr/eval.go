package expr

import (
	"strings"
)

// DefaultMaxDepth is the default bound on expression nesting during evaluation.
const DefaultMaxDepth = 64

// An Evaluator expands parsed expressions against one evaluation context.
// It is side-effect-free apart from recording recoverable diagnostics.
type Evaluator struct {
	Context Context
	// MaxDepth bounds call nesting; DefaultMaxDepth applies when zero.
	MaxDepth int
	// Diags records recoverable reference errors. May be nil to discard them.
	Diags *Diagnostics
}

// String evaluates an expression in string position: literal chunks pass
// through, boolean calls render as "1"/"0", and the results concatenate.
func (e *Evaluator) String(x *Expr) (string, error) {
	return e.evalString(x, 0)
}

// Bool evaluates an expression in boolean position. An expression that is a
// single call evaluates directly; anything else is evaluated as a string and
// coerced with the $<BOOL:...> rule.
func (e *Evaluator) Bool(x *Expr) (bool, error) {
	return e.evalBool(x, 0)
}

func (e *Evaluator) maxDepth() int {
	if e.MaxDepth > 0 {
		return e.MaxDepth
	}
	return DefaultMaxDepth
}

func (e *Evaluator) evalString(x *Expr, depth int) (string, error) {
	var b strings.Builder
	for _, n := range x.nodes {
		switch n := n.(type) {
		case *literal:
			b.WriteString(n.text)
		case *call:
			s, err := e.callString(n, depth)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

func (e *Evaluator) evalBool(x *Expr, depth int) (bool, error) {
	if len(x.nodes) == 1 {
		if c, ok := x.nodes[0].(*call); ok {
			return e.callBool(c, depth)
		}
	}
	s, err := e.evalString(x, depth)
	if err != nil {
		return false, err
	}
	return truthy(s), nil
}

// callString evaluates a single call in string position.
func (e *Evaluator) callString(c *call, depth int) (string, error) {
	if depth >= e.maxDepth() {
		return "", &DepthError{Pos: c.position, Limit: e.maxDepth()}
	}
	switch c.name {
	case "IF":
		cond, err := e.evalBool(c.args[0], depth+1)
		if err != nil {
			return "", err
		}
		if cond {
			return e.evalString(c.args[1], depth+1)
		}
		return e.evalString(c.args[2], depth+1)
	case "UPPER_CASE":
		s, err := e.evalString(c.args[0], depth+1)
		if err != nil {
			return "", err
		}
		return strings.ToUpper(s), nil
	case "LOWER_CASE":
		s, err := e.evalString(c.args[0], depth+1)
		if err != nil {
			return "", err
		}
		return strings.ToLower(s), nil
	case "TARGET_PROPERTY":
		key, err := e.evalString(c.args[0], depth+1)
		if err != nil {
			return "", err
		}
		if e.Context.Property == nil {
			e.Diags.record(&ReferenceError{Pos: c.position, Kind: "target property lookup"})
			return "", nil
		}
		value, ok := e.Context.Property(key, c.position)
		if !ok {
			return "", nil // unset properties are simply empty
		}
		return value, nil
	default:
		// A boolean call in string position renders as "1" or "0".
		b, err := e.callBool(c, depth)
		if err != nil {
			return "", err
		}
		if b {
			return "1", nil
		}
		return "0", nil
	}
}

// callBool evaluates a single call in boolean position.
func (e *Evaluator) callBool(c *call, depth int) (bool, error) {
	if depth >= e.maxDepth() {
		return false, &DepthError{Pos: c.position, Limit: e.maxDepth()}
	}
	switch c.name {
	case "CONFIG":
		return e.equalsArg(c, e.Context.Config, depth)
	case "PLATFORM":
		return e.equalsArg(c, e.Context.Platform, depth)
	case "COMPILER":
		return e.equalsArg(c, e.Context.Compiler, depth)
	case "FEATURE":
		name, err := e.evalString(c.args[0], depth+1)
		if err != nil {
			return false, err
		}
		value, present := e.Context.Features[name]
		if !present {
			// Recoverable: unknown flags read as false rather than aborting
			// the whole resolution.
			e.Diags.record(&ReferenceError{Pos: c.position, Kind: "feature flag", Name: name})
			return false, nil
		}
		return value, nil
	case "BOOL":
		s, err := e.evalString(c.args[0], depth+1)
		if err != nil {
			return false, err
		}
		return truthy(s), nil
	case "NOT":
		b, err := e.evalBool(c.args[0], depth+1)
		if err != nil {
			return false, err
		}
		return !b, nil
	case "AND":
		for _, arg := range c.args {
			b, err := e.evalBool(arg, depth+1)
			if err != nil {
				return false, err
			}
			if !b {
				return false, nil
			}
		}
		return true, nil
	case "OR":
		for _, arg := range c.args {
			b, err := e.evalBool(arg, depth+1)
			if err != nil {
				return false, err
			}
			if b {
				return true, nil
			}
		}
		return false, nil
	default:
		// A string call in boolean position goes through the BOOL coercion.
		s, err := e.callString(c, depth)
		if err != nil {
			return false, err
		}
		return truthy(s), nil
	}
}

func (e *Evaluator) equalsArg(c *call, against string, depth int) (bool, error) {
	s, err := e.evalString(c.args[0], depth+1)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(s, against), nil
}

// truthy implements the $<BOOL:...> coercion.
func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "", "0", "false", "off", "no":
		return false
	}
	return true
}
