package plan

import (
	"encoding/json"

	"github.com/crane-build/crane/src/expr"
)

// JSONPlan is the serializable projection of a generated plan, intended for
// external tools that turn it into build commands or project files.
type JSONPlan struct {
	Targets []JSONTarget `json:"targets"`
}

// JSONTarget is one (target, context) entry of a JSONPlan. Entries appear in
// topological order within each context, so a consumer can process them
// front to back.
type JSONTarget struct {
	Name       string              `json:"name"`
	Kind       string              `json:"kind"`
	Context    string              `json:"context"`
	Deps       []string            `json:"deps,omitempty"`
	Properties map[string][]string `json:"properties,omitempty" note:"local-use values the target is built with"`
	Exported   map[string][]string `json:"exported,omitempty" note:"values handed on to dependents"`
}

// JSON generates views for the given contexts and renders the whole plan as
// indented JSON, contexts in the order given and targets in topological
// order within each.
func (p *Plan) JSON(contexts ...expr.Context) ([]byte, error) {
	views, err := p.Generate(contexts...)
	if err != nil {
		return nil, err
	}
	out := JSONPlan{Targets: make([]JSONTarget, 0, len(views))}
	for _, ctx := range contexts {
		for _, target := range p.graph.TopoSorted() {
			view := views[ViewKey{Target: target.Name, Context: ctx.ID()}]
			if view == nil {
				continue
			}
			jt := JSONTarget{
				Name:       view.Target,
				Kind:       view.Kind.String(),
				Context:    view.Context,
				Properties: map[string][]string{},
				Exported:   map[string][]string{},
			}
			for _, dep := range target.Dependencies() {
				jt.Deps = append(jt.Deps, dep.Target.Name)
			}
			for _, key := range view.Keys() {
				jt.Properties[key] = view.Values(key)
			}
			for _, key := range view.ExportedKeys() {
				jt.Exported[key] = view.Exported(key)
			}
			out.Targets = append(out.Targets, jt)
		}
	}
	return json.MarshalIndent(out, "", "    ")
}
