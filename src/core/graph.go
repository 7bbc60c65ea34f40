// Representation of the build graph.
// The graph of build targets forms a DAG which is declared target by target
// and then frozen, validated and ordered in a single transition.

package core

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("core")

// A Graph contains all the declared targets and maintains their dependency
// relationships. It is mutable during the declaration phase and becomes
// permanently read-only once Freeze is called, after which resolution over
// it is deterministic and safe to run concurrently.
type Graph struct {
	// Map of all currently known targets by name.
	targets map[string]*Target
	// Targets in declaration order; used to break topological ordering ties
	// deterministically.
	order []*Target
	// Targets in dependency order, populated by Freeze.
	sorted []*Target

	frozen     atomic.Bool
	freezeOnce sync.Once
	freezeErr  error
}

// NewGraph constructs and returns a new empty Graph.
func NewGraph() *Graph {
	return &Graph{targets: map[string]*Target{}}
}

// AddTarget adds a new target to the graph.
// Re-adding a name that already exists is a structural error.
func (g *Graph) AddTarget(name string, kind TargetKind) (*Target, error) {
	if g.Frozen() {
		return nil, frozenError("add target " + name)
	}
	if _, present := g.targets[name]; present {
		return nil, duplicateTargetError(name)
	}
	target := &Target{
		Name:       name,
		Kind:       kind,
		graph:      g,
		properties: NewPropertyStore(),
	}
	g.targets[name] = target
	g.order = append(g.order, target)
	return target, nil
}

// Target retrieves a target from the graph by name, or nil if it isn't known.
func (g *Graph) Target(name string) *Target {
	return g.targets[name]
}

// AllTargets returns all the targets in the graph in declaration order.
func (g *Graph) AllTargets() []*Target {
	return g.order
}

// Len returns the number of targets in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Frozen returns true once the graph has been frozen for resolution.
func (g *Graph) Frozen() bool {
	return g.frozen.Load()
}

// Freeze transitions the graph to its read-only resolved state: dependency
// names are bound to targets, acyclicity is validated and the topological
// order is fixed. It is idempotent; repeated calls return the same result.
func (g *Graph) Freeze() error {
	g.freezeOnce.Do(func() {
		g.frozen.Store(true)
		log.Debug("Freezing build graph with %d targets...", len(g.order))
		g.freezeErr = g.freeze()
	})
	return g.freezeErr
}

func (g *Graph) freeze() error {
	// Bind all declared dependency names first so cycle detection has real
	// edges to walk. All unknown references are reported, not just the first.
	var errs *multierror.Error
	for _, target := range g.order {
		for i, dep := range target.dependencies {
			to := g.targets[dep.declared]
			if to == nil {
				errs = multierror.Append(errs, unknownTargetError(target.Name, dep.declared))
				continue
			}
			target.dependencies[i].target = to
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	sorted, err := g.sortTargets()
	if err != nil {
		return err
	}
	g.sorted = sorted
	return nil
}

// TopoSorted returns the graph's targets in dependency order (dependencies
// always before dependents), with ties broken by declaration order.
// It returns nil until the graph has been successfully frozen.
func (g *Graph) TopoSorted() []*Target {
	return g.sorted
}
