// Representation of a build target and everything declared about it:
// its name, kind, properties and dependency links.

package core

// A TargetKind describes what sort of artifact a target produces, if any.
type TargetKind int

const (
	// Executable targets produce a runnable binary.
	Executable TargetKind = iota
	// StaticLibrary targets produce an archive linked into consumers.
	StaticLibrary
	// SharedLibrary targets produce a dynamically linked library.
	SharedLibrary
	// ObjectLibrary targets produce bare object files without archiving them.
	ObjectLibrary
	// InterfaceOnly targets own no compiled artifact; they exist purely to
	// carry propagated properties to their consumers.
	InterfaceOnly
)

// String implements the fmt.Stringer interface.
func (k TargetKind) String() string {
	switch k {
	case Executable:
		return "executable"
	case StaticLibrary:
		return "static-library"
	case SharedLibrary:
		return "shared-library"
	case ObjectLibrary:
		return "object-library"
	case InterfaceOnly:
		return "interface-only"
	}
	return "unknown"
}

// A Target is a single node in the build graph. Its identity is fixed at
// creation; its properties and dependency links are mutable until the owning
// graph is frozen.
type Target struct {
	// Name uniquely identifies this target within its graph.
	Name string
	// Kind of artifact this target produces.
	Kind TargetKind

	graph      *Graph
	properties *PropertyStore
	// Declared dependencies, in declaration order. The target pointers are
	// filled in when the graph is frozen.
	dependencies []depInfo
}

type depInfo struct {
	declared string  // the name as originally declared
	target   *Target // resolved when the graph freezes
	vis      Visibility
}

// A Dependency is a resolved dependency link to another target.
type Dependency struct {
	Target     *Target
	Visibility Visibility
}

// SetProperty appends raw values for a property key at the given visibility.
// It returns an error if the graph has already been frozen.
func (t *Target) SetProperty(key string, vis Visibility, values ...string) error {
	if t.graph.Frozen() {
		return frozenError("set property " + key + " on " + t.Name)
	}
	vals := make([]Value, len(values))
	for i, v := range values {
		vals[i] = Value(v)
	}
	t.properties.Set(key, vis, vals...)
	return nil
}

// Properties returns the target's declared property store.
func (t *Target) Properties() *PropertyStore {
	return t.properties
}

// AddDependency declares a dependency link on another target by name, tagged
// with a visibility tier. The name is resolved when the graph freezes;
// referencing an unknown target surfaces as a structural error then.
func (t *Target) AddDependency(name string, vis Visibility) error {
	if t.graph.Frozen() {
		return frozenError("add dependency " + name + " to " + t.Name)
	}
	t.dependencies = append(t.dependencies, depInfo{declared: name, vis: vis})
	return nil
}

// Dependencies returns the target's resolved dependency links in declaration
// order. Before the graph is frozen the Target fields may be nil.
func (t *Target) Dependencies() []Dependency {
	deps := make([]Dependency, len(t.dependencies))
	for i, d := range t.dependencies {
		deps[i] = Dependency{Target: d.target, Visibility: d.vis}
	}
	return deps
}

// String implements the fmt.Stringer interface.
func (t *Target) String() string {
	return t.Name
}
