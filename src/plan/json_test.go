package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crane-build/crane/src/core"
)

func TestJSONPlan(t *testing.T) {
	g := core.NewGraph()
	lib := makeTarget(t, g, "lib", core.StaticLibrary)
	app := makeTarget(t, g, "app", core.Executable)
	require.NoError(t, lib.SetProperty("include-path", core.Exported, "inc/lib"))
	require.NoError(t, app.SetProperty("preprocessor-define", core.Internal, "$<IF:$<CONFIG:Debug>,DEBUG,NDEBUG>"))
	require.NoError(t, app.AddDependency("lib", core.Exported))

	p := makePlan(t, g)
	b, err := p.JSON(debugCtx, releaseCtx)
	require.NoError(t, err)

	out := JSONPlan{}
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out.Targets, 4)
	// Topological order within each context: lib before app.
	assert.Equal(t, "lib", out.Targets[0].Name)
	assert.Equal(t, "app", out.Targets[1].Name)
	assert.Equal(t, "Debug", out.Targets[0].Context)
	assert.Equal(t, "Release", out.Targets[2].Context)
	assert.Equal(t, "static-library", out.Targets[0].Kind)
	assert.Equal(t, []string{"lib"}, out.Targets[1].Deps)
	assert.Equal(t, []string{"DEBUG"}, out.Targets[1].Properties["preprocessor-define"])
	assert.Equal(t, []string{"NDEBUG"}, out.Targets[3].Properties["preprocessor-define"])
	assert.Equal(t, []string{"inc/lib"}, out.Targets[1].Properties["include-path"])
}

func TestJSONPlanDeterministic(t *testing.T) {
	build := func() []byte {
		g := core.NewGraph()
		lib := makeTarget(t, g, "lib", core.StaticLibrary)
		app := makeTarget(t, g, "app", core.Executable)
		require.NoError(t, lib.SetProperty("include-path", core.Exported, "inc"))
		require.NoError(t, app.AddDependency("lib", core.Exported))
		p := makePlan(t, g)
		b, err := p.JSON(debugCtx, releaseCtx)
		require.NoError(t, err)
		return b
	}
	// Byte-identical output across independent resolutions of the same input.
	assert.Equal(t, build(), build())
}
