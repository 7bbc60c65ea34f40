package expr

// A Context is the immutable set of external facts conditional expressions
// are evaluated against. One context exists per (plan, configuration) pair;
// there is deliberately no ambient global state, so resolving the same graph
// for several contexts concurrently is safe.
type Context struct {
	// Name uniquely identifies this context within a plan. If empty, the
	// configuration name is used.
	Name string
	// Config is the active configuration name, e.g. "Debug" or "Release".
	Config string
	// Compiler identifies the active compiler, e.g. "gcc" or "msvc".
	Compiler string
	// Platform identifies the target platform, e.g. "linux" or "windows".
	Platform string
	// Features maps arbitrary boolean feature flags by name. Referencing a
	// flag that isn't present is a recoverable reference diagnostic.
	Features map[string]bool
	// Property looks up the requesting target's already-resolved values for
	// a key under this same context, joined by semicolons. It is bound per
	// target while a resolved view is being produced; nil means no target is
	// in scope. pos is the byte offset of the requesting $<TARGET_PROPERTY>
	// call, so the callback can attribute diagnostics to it.
	Property func(key string, pos int) (string, bool)
}

// ID returns the context's unique identifier within a plan.
func (c Context) ID() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Config
}

// WithProperty returns a copy of the context with the given same-target
// property lookup bound.
func (c Context) WithProperty(lookup func(key string, pos int) (string, bool)) Context {
	c.Property = lookup
	return c
}
