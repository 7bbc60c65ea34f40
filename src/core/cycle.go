package core

import (
	"golang.org/x/exp/slices"
)

// sortTargets walks the dependency graph depth-first, building a list of
// targets such that dependencies of a target always appear before it.
// Targets are visited in declaration order so that ordering ties between
// independent subgraphs break the same way on every run.
// Any back-edge found during the walk is a dependency cycle, which is fatal;
// the returned error names the full cycle path in encounter order, since
// cycles in large graphs are otherwise opaque.
func (g *Graph) sortTargets() ([]*Target, error) {
	visited := make(map[*Target]bool, len(g.order))  // targets that were already checked
	checking := make(map[*Target]bool, len(g.order)) // targets on the current walk, i.e. gray
	sorted := make([]*Target, 0, len(g.order))
	stack := []*Target{} // current walk, parallel to checking
	var cycle []string

	var check func(target *Target) bool
	check = func(target *Target) bool {
		visited[target] = true
		checking[target] = true
		stack = append(stack, target)
		for _, dep := range target.dependencies {
			if checking[dep.target] {
				// Back-edge; everything from the dependency's position on
				// the stack to here forms the cycle.
				i := slices.Index(stack, dep.target)
				for _, t := range stack[i:] {
					cycle = append(cycle, t.Name)
				}
				return true
			}
			if !visited[dep.target] && check(dep.target) {
				return true
			}
		}
		checking[target] = false
		stack = stack[:len(stack)-1]
		sorted = append(sorted, target)
		return false
	}

	for _, target := range g.order {
		if !visited[target] {
			if check(target) {
				return nil, cycleError(cycle)
			}
		}
	}
	return sorted, nil
}
