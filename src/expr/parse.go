// Package expr implements the conditional expression language embedded in
// raw property values: literal text with nestable $<NAME:args> calls, e.g.
//
//	inc/$<IF:$<CONFIG:Debug>,debug,release>
//
// Boolean atoms test facts from an evaluation context (configuration,
// compiler, platform, feature flags); combinators are AND, OR and NOT;
// IF selects between two string payloads; UPPER_CASE/LOWER_CASE transform
// them; TARGET_PROPERTY reads back into the requesting target's resolved
// properties. Parsing is context-free; evaluation happens once per
// (value, context) pair.
package expr

import (
	"fmt"
	"strings"
)

// An Expr is one parsed raw property value: a sequence of literal chunks
// and expression calls that concatenate when evaluated.
type Expr struct {
	// Text is the raw text the expression was parsed from.
	Text  string
	nodes []node
}

// String implements the fmt.Stringer interface.
func (e *Expr) String() string {
	return e.Text
}

// IsLiteral returns true if the value contains no expression calls at all.
func (e *Expr) IsLiteral() bool {
	for _, n := range e.nodes {
		if _, ok := n.(*call); ok {
			return false
		}
	}
	return true
}

type node interface {
	pos() int
}

type literal struct {
	text     string
	position int
}

func (l *literal) pos() int { return l.position }

type call struct {
	name     string
	args     []*Expr
	position int
}

func (c *call) pos() int { return c.position }

// arity of each known function; max of -1 means variadic.
var functions = map[string]struct{ min, max int }{
	"CONFIG":          {1, 1},
	"PLATFORM":        {1, 1},
	"COMPILER":        {1, 1},
	"FEATURE":         {1, 1},
	"BOOL":            {1, 1},
	"NOT":             {1, 1},
	"AND":             {1, -1},
	"OR":              {1, -1},
	"IF":              {3, 3},
	"UPPER_CASE":      {1, 1},
	"LOWER_CASE":      {1, 1},
	"TARGET_PROPERTY": {1, 1},
}

// Parse parses a raw property value into an Expr, bounding call nesting at
// DefaultMaxDepth. Text without any $< marker parses to a single literal.
func Parse(text string) (*Expr, error) {
	return ParseDepth(text, 0)
}

// ParseDepth is Parse with an explicit bound on $<...> nesting; zero means
// DefaultMaxDepth. The bound keeps pathological auto-generated expressions
// from exhausting the stack before evaluation ever sees them.
func ParseDepth(text string, maxDepth int) (expr *Expr, err error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	// The parser functions signal unhappiness by panicking; we recover any
	// such failure here and convert it to an error.
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case *SyntaxError:
				err = e
			case *DepthError:
				err = e
			default:
				panic(r)
			}
		}
	}()
	p := &parser{input: text, maxDepth: maxDepth}
	expr = p.parseSequence("")
	return expr, nil
}

type parser struct {
	input    string
	i        int
	depth    int
	maxDepth int
}

func (p *parser) fail(pos int, message string, args ...interface{}) {
	panic(&SyntaxError{Pos: pos, Message: fmt.Sprintf(message, args...)})
}

// parseSequence parses literal text and calls until end of input or until
// one of the stop characters appears at this nesting level. The stop
// character is not consumed.
func (p *parser) parseSequence(stops string) *Expr {
	start := p.i
	expr := &Expr{}
	lit := p.i // start of the current literal chunk
	flush := func(end int) {
		if end > lit {
			expr.nodes = append(expr.nodes, &literal{text: p.input[lit:end], position: lit})
		}
	}
	for p.i < len(p.input) {
		c := p.input[p.i]
		if strings.IndexByte(stops, c) >= 0 {
			break
		}
		if c == '$' && p.i+1 < len(p.input) && p.input[p.i+1] == '<' {
			flush(p.i)
			expr.nodes = append(expr.nodes, p.parseCall())
			lit = p.i
			continue
		}
		p.i++
	}
	flush(p.i)
	expr.Text = p.input[start:p.i]
	return expr
}

// parseCall parses one $<NAME:args> form, with p.i on the '$'.
func (p *parser) parseCall() *call {
	start := p.i
	p.depth++
	if p.depth > p.maxDepth {
		panic(&DepthError{Pos: start, Limit: p.maxDepth})
	}
	p.i += 2 // consume "$<"
	name := p.ident()
	if name == "" {
		p.fail(p.i, "expected expression name after '$<'")
	}
	arity, known := functions[name]
	if !known {
		p.fail(start, "unknown expression $<%s>", name)
	}
	var args []*Expr
	if p.i < len(p.input) && p.input[p.i] == ':' {
		p.i++
		for {
			args = append(args, p.parseSequence(",>"))
			if p.i < len(p.input) && p.input[p.i] == ',' {
				p.i++
				continue
			}
			break
		}
	}
	if p.i >= len(p.input) || p.input[p.i] != '>' {
		p.fail(start, "unterminated $<%s expression, expected '>'", name)
	}
	p.i++
	if len(args) < arity.min || (arity.max >= 0 && len(args) > arity.max) {
		if arity.min == arity.max {
			p.fail(start, "$<%s> takes %d argument(s), got %d", name, arity.min, len(args))
		}
		p.fail(start, "$<%s> takes at least %d argument(s), got %d", name, arity.min, len(args))
	}
	p.depth--
	return &call{name: name, args: args, position: start}
}

// ident reads an expression name: upper-case letters, digits and underscores.
func (p *parser) ident() string {
	start := p.i
	for p.i < len(p.input) {
		c := p.input[p.i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			p.i++
			continue
		}
		break
	}
	return p.input[start:p.i]
}
