// Package plan turns a frozen target graph into resolved build plans: one
// deduplicated, ordered, expression-expanded property snapshot per
// (target, evaluation context) pair.
package plan

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"

	"github.com/crane-build/crane/src/cmap"
	"github.com/crane-build/crane/src/core"
	"github.com/crane-build/crane/src/expr"
)

var log = logging.MustGetLogger("plan")

// Options controls resolution policy.
type Options struct {
	// MaxExpressionDepth bounds nesting of $<...> calls during both parsing
	// and evaluation; expr.DefaultMaxDepth applies when zero.
	MaxExpressionDepth int
	// BestEffort keeps resolving when an individual property value's
	// expression fails to parse or evaluate: the value is dropped from the
	// affected views and the failure is recorded, scoped to its target and
	// key, retrievable via Errors(). Without it the first such failure
	// aborts the run.
	BestEffort bool
}

// DefaultOptions returns the default resolution options.
func DefaultOptions() Options {
	return Options{MaxExpressionDepth: expr.DefaultMaxDepth}
}

// A ViewKey identifies one resolved view: a (target, context) pair.
type ViewKey struct {
	Target  string
	Context string
}

// A PropertyError scopes an expression failure to the target and property
// key it was hit on.
type PropertyError struct {
	Target string
	Key    string
	Err    error
}

// Error implements the builtin error interface.
func (e *PropertyError) Error() string {
	return fmt.Sprintf("target %s, property %s: %s", e.Target, e.Key, e.Err)
}

// Unwrap returns the underlying expression error.
func (e *PropertyError) Unwrap() error {
	return e.Err
}

// A Diagnostic records a recoverable problem hit while expanding an
// expression, with enough context to present an actionable message.
type Diagnostic struct {
	// Target and Key identify the property entry being expanded.
	Target string
	Key    string
	// Pos is a byte offset into the expression text, where known.
	Pos     int
	Message string
}

// A Plan is the resolved form of a target graph, ready to produce views for
// any number of evaluation contexts. The underlying graph and property
// stores are frozen and shared read-only, so one Plan may be used from many
// goroutines; the view cache is the only mutable state and inserts entries
// atomically.
type Plan struct {
	graph    *core.Graph
	opts     Options
	resolved map[*core.Target]*resolvedProps
	// Cache of parsed expressions by raw value; filled once at construction
	// so a value propagated to many targets is parsed exactly once.
	parsed map[core.Value]*expr.Expr
	views  *cmap.Map[ViewKey, *viewResult]

	mu     sync.Mutex
	diags  []Diagnostic
	scoped []error // fatal-but-scoped errors collected in best-effort mode
}

type viewResult struct {
	view *ResolvedView
	err  error
}

// New freezes the graph, validates it and propagates all properties,
// returning a Plan that can generate views. Structural problems (cycles,
// unknown dependencies) are always fatal here; expression parse errors (bad
// syntax, nesting beyond Options.MaxExpressionDepth) are fatal unless
// Options.BestEffort is set, in which case the offending values are dropped
// and recorded.
func New(g *core.Graph, opts Options) (*Plan, error) {
	if err := g.Freeze(); err != nil {
		return nil, err
	}
	p := &Plan{
		graph:    g,
		opts:     opts,
		resolved: propagate(g),
		parsed:   map[core.Value]*expr.Expr{},
		views:    cmap.New[ViewKey, *viewResult](cmap.DefaultShardCount, hashViewKey),
	}
	// Parse every declared expression up front, attributed to the target
	// that declared it. Parsing is context-free so this happens exactly once
	// per distinct raw value.
	for _, target := range g.AllTargets() {
		props := target.Properties()
		for _, key := range props.Keys() {
			for _, value := range props.All(key) {
				if !value.IsExpression() {
					continue
				}
				if _, done := p.parsed[value]; done {
					continue
				}
				parsed, err := expr.ParseDepth(string(value), opts.MaxExpressionDepth)
				if err != nil {
					perr := &PropertyError{Target: target.Name, Key: key, Err: err}
					if !opts.BestEffort {
						return nil, perr
					}
					p.scoped = append(p.scoped, perr)
					p.parsed[value] = nil // poisoned; dropped from views
					continue
				}
				p.parsed[value] = parsed
			}
		}
	}
	return p, nil
}

func hashViewKey(k ViewKey) uint32 {
	return cmap.XXHashes(k.Target, k.Context)
}

// Generate produces one resolved view per (target, context) pair for the
// given contexts, with targets in topological order within each context.
// Contexts resolve in parallel; views are cached, so requesting the same
// pair again returns the identical object. Context names must be unique.
func (p *Plan) Generate(contexts ...expr.Context) (map[ViewKey]*ResolvedView, error) {
	names := make(map[string]bool, len(contexts))
	for _, ctx := range contexts {
		if names[ctx.ID()] {
			return nil, core.DuplicateContext(ctx.ID())
		}
		names[ctx.ID()] = true
	}
	var g errgroup.Group
	for _, ctx := range contexts {
		ctx := ctx
		g.Go(func() error {
			for _, target := range p.graph.TopoSorted() {
				if _, err := p.view(target, ctx); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	views := make(map[ViewKey]*ResolvedView, len(contexts)*p.graph.Len())
	for _, ctx := range contexts {
		for _, target := range p.graph.TopoSorted() {
			key := ViewKey{Target: target.Name, Context: ctx.ID()}
			if result, present := p.views.Get(key); present {
				views[key] = result.view
			}
		}
	}
	log.Debug("Generated %d resolved views across %d contexts", len(views), len(contexts))
	return views, nil
}

// View returns the resolved view for a single (target, context) pair,
// computing and caching it if needed.
func (p *Plan) View(name string, ctx expr.Context) (*ResolvedView, error) {
	target := p.graph.Target(name)
	if target == nil {
		return nil, fmt.Errorf("target %s not found in build graph", name)
	}
	return p.view(target, ctx)
}

// Diagnostics returns the recoverable diagnostics recorded so far. Each view
// records its diagnostics only the first time it is computed.
func (p *Plan) Diagnostics() []Diagnostic {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Diagnostic{}, p.diags...)
}

// Errors returns the fatal-but-scoped expression errors collected in
// best-effort mode, aggregated, or nil if there were none.
func (p *Plan) Errors() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return (&multierror.Error{Errors: append([]error{}, p.scoped...)}).ErrorOrNil()
}

// Graph returns the plan's underlying frozen graph.
func (p *Plan) Graph() *core.Graph {
	return p.graph
}

func (p *Plan) view(target *core.Target, ctx expr.Context) (*ResolvedView, error) {
	key := ViewKey{Target: target.Name, Context: ctx.ID()}
	result := p.views.GetOrSet(key, func() *viewResult {
		return p.buildView(target, ctx)
	})
	return result.view, result.err
}

// buildView expands one target's raw property state against one context.
func (p *Plan) buildView(target *core.Target, ctx expr.Context) *viewResult {
	r := p.resolved[target]
	view := &ResolvedView{
		Target:   target.Name,
		Kind:     target.Kind,
		Context:  ctx.ID(),
		local:    map[string][]string{},
		exported: map[string][]string{},
	}

	var firstErr error
	memo := map[string][]string{}
	inProgress := map[string]bool{}
	keyStack := []string{}

	var evalKey func(key string) []string
	// $<TARGET_PROPERTY:k> reads back into this same view's local-use
	// values; keys are computed on demand and memoized, with the in-progress
	// set breaking self-referential chains.
	bound := ctx.WithProperty(func(key string, pos int) (string, bool) {
		if inProgress[key] {
			p.diag(target.Name, keyStack[len(keyStack)-1], &expr.ReferenceError{
				Pos: pos, Kind: "self-referential property", Name: key,
			})
			return "", true
		}
		return strings.Join(evalKey(key), ";"), true
	})

	// A raw value can sit in both buckets (exported visibility does); expand
	// it once per view so its diagnostics don't double up.
	type valResult struct {
		s  string
		ok bool
	}
	valMemo := map[core.Value]valResult{}
	evalValues := func(key string, raw []core.Value) []string {
		var out []string
		seen := map[string]struct{}{}
		for _, value := range raw {
			res, done := valMemo[value]
			if !done {
				res.s, res.ok = p.evalValue(value, bound, target, key, &firstErr)
				valMemo[value] = res
			}
			s, ok := res.s, res.ok
			if !ok || s == "" {
				continue // values that expand to nothing contribute nothing
			}
			if _, dup := seen[s]; dup {
				continue // first occurrence wins
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
		return out
	}

	evalKey = func(key string) []string {
		if values, done := memo[key]; done {
			return values
		}
		inProgress[key] = true
		keyStack = append(keyStack, key)
		defer func() {
			delete(inProgress, key)
			keyStack = keyStack[:len(keyStack)-1]
		}()
		values := evalValues(key, r.localUse.get(key))
		memo[key] = values
		return values
	}

	for _, key := range r.localUse.keys {
		if values := evalKey(key); len(values) > 0 {
			view.localKeys = append(view.localKeys, key)
			view.local[key] = values
		}
	}
	for _, key := range r.exported.keys {
		if values := evalValues(key, r.exported.get(key)); len(values) > 0 {
			view.exportedKeys = append(view.exportedKeys, key)
			view.exported[key] = values
		}
	}
	if firstErr != nil {
		return &viewResult{err: firstErr}
	}
	return &viewResult{view: view}
}

// evalValue expands a single raw value, returning false if it should be
// dropped (poisoned at parse time, or failed in best-effort mode).
func (p *Plan) evalValue(value core.Value, ctx expr.Context, target *core.Target, key string, firstErr *error) (string, bool) {
	if !value.IsExpression() {
		return string(value), true
	}
	parsed := p.parsed[value]
	if parsed == nil {
		return "", false // failed to parse; already recorded
	}
	diags := &expr.Diagnostics{}
	ev := &expr.Evaluator{Context: ctx, MaxDepth: p.opts.MaxExpressionDepth, Diags: diags}
	s, err := ev.String(parsed)
	for _, ref := range diags.Errors() {
		p.diag(target.Name, key, ref)
	}
	if err != nil {
		perr := &PropertyError{Target: target.Name, Key: key, Err: err}
		if p.opts.BestEffort {
			p.mu.Lock()
			p.scoped = append(p.scoped, perr)
			p.mu.Unlock()
			return "", false
		}
		if *firstErr == nil {
			*firstErr = perr
		}
		return "", false
	}
	return s, true
}

func (p *Plan) diag(target, key string, ref *expr.ReferenceError) {
	p.mu.Lock()
	p.diags = append(p.diags, Diagnostic{
		Target:  target,
		Key:     key,
		Pos:     ref.Pos,
		Message: ref.Error(),
	})
	p.mu.Unlock()
}
