// Property propagation over the frozen graph.
// Targets are processed in dependency order, so by the time a target is
// reached everything it depends on already has its effective property sets.

package plan

import (
	"github.com/crane-build/crane/src/core"
)

// A propSet accumulates raw property values per key, deduplicating by value
// content while preserving first-seen order. Dedup by content is what makes
// diamond dependencies well-behaved: a value reachable along several paths
// appears exactly once.
type propSet struct {
	keys   []string
	values map[string][]core.Value
	seen   map[string]map[core.Value]struct{}
}

func newPropSet() *propSet {
	return &propSet{
		values: map[string][]core.Value{},
		seen:   map[string]map[core.Value]struct{}{},
	}
}

func (s *propSet) add(key string, values ...core.Value) {
	if len(values) == 0 {
		return
	}
	seen, present := s.seen[key]
	if !present {
		seen = map[core.Value]struct{}{}
		s.seen[key] = seen
		s.keys = append(s.keys, key)
	}
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		s.values[key] = append(s.values[key], v)
	}
}

// merge adds everything in from, preserving its key and value order.
func (s *propSet) merge(from *propSet) {
	for _, key := range from.keys {
		s.add(key, from.values[key]...)
	}
}

func (s *propSet) get(key string) []core.Value {
	return s.values[key]
}

// resolvedProps is one target's effective raw property state after
// propagation: what the target itself is built with, and what it hands on
// to its dependents. Values stay raw here; expressions are only expanded
// when a view is produced for a concrete context.
type resolvedProps struct {
	localUse *propSet
	exported *propSet
}

// propagate computes the effective property sets for every target in the
// graph. The graph must already be frozen.
func propagate(g *core.Graph) map[*core.Target]*resolvedProps {
	resolved := make(map[*core.Target]*resolvedProps, g.Len())
	for _, target := range g.TopoSorted() {
		r := &resolvedProps{localUse: newPropSet(), exported: newPropSet()}
		// A target's own values always come before anything inherited.
		props := target.Properties()
		for _, key := range props.Keys() {
			r.localUse.add(key, props.Local(key)...)
			r.exported.add(key, props.Interface(key)...)
		}
		for _, dep := range target.Dependencies() {
			d := resolved[dep.Target]
			switch dep.Visibility {
			case core.Exported:
				// Inherited and re-exported: this is what makes usage
				// requirements transitive.
				r.localUse.merge(d.exported)
				r.exported.merge(d.exported)
			case core.Internal:
				// Used to build this target only; propagation stops here.
				r.localUse.merge(d.exported)
			case core.Interface:
				// Forwarded to dependents without being consumed here.
				r.exported.merge(d.exported)
			}
		}
		resolved[target] = r
	}
	log.Debug("Propagated properties across %d targets", g.Len())
	return resolved
}
