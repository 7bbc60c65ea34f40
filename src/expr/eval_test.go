package expr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var debugCtx = Context{
	Name:     "dbg",
	Config:   "Debug",
	Compiler: "gcc",
	Platform: "linux",
	Features: map[string]bool{"asserts": true, "lto": false},
}

func evalString(t *testing.T, text string, ctx Context) string {
	t.Helper()
	x, err := Parse(text)
	require.NoError(t, err)
	e := &Evaluator{Context: ctx}
	s, err := e.String(x)
	require.NoError(t, err)
	return s
}

func evalBool(t *testing.T, text string, ctx Context) bool {
	t.Helper()
	x, err := Parse(text)
	require.NoError(t, err)
	e := &Evaluator{Context: ctx}
	b, err := e.Bool(x)
	require.NoError(t, err)
	return b
}

func TestConfigAtom(t *testing.T) {
	assert.True(t, evalBool(t, "$<CONFIG:Debug>", debugCtx))
	assert.True(t, evalBool(t, "$<CONFIG:debug>", debugCtx)) // case-insensitive
	assert.False(t, evalBool(t, "$<CONFIG:Release>", debugCtx))
	assert.True(t, evalBool(t, "$<PLATFORM:linux>", debugCtx))
	assert.True(t, evalBool(t, "$<COMPILER:gcc>", debugCtx))
	assert.False(t, evalBool(t, "$<COMPILER:msvc>", debugCtx))
}

func TestIfSelectsByContext(t *testing.T) {
	const text = "$<IF:$<CONFIG:Debug>,D,R>"
	assert.Equal(t, "D", evalString(t, text, debugCtx))
	release := debugCtx
	release.Config = "Release"
	assert.Equal(t, "R", evalString(t, text, release))
}

func TestLogicalCombinators(t *testing.T) {
	assert.True(t, evalBool(t, "$<AND:$<CONFIG:Debug>,$<PLATFORM:linux>>", debugCtx))
	assert.False(t, evalBool(t, "$<AND:$<CONFIG:Debug>,$<PLATFORM:windows>>", debugCtx))
	assert.True(t, evalBool(t, "$<OR:$<CONFIG:Release>,$<COMPILER:gcc>>", debugCtx))
	assert.False(t, evalBool(t, "$<NOT:$<CONFIG:Debug>>", debugCtx))
	assert.True(t, evalBool(t, "$<AND:1,1,1>", debugCtx))
}

func TestShortCircuitSkipsUnknownReferences(t *testing.T) {
	// The unknown feature after the false arm must never be evaluated.
	x, err := Parse("$<AND:$<CONFIG:Release>,$<FEATURE:nonexistent>>")
	require.NoError(t, err)
	d := &Diagnostics{}
	e := &Evaluator{Context: debugCtx, Diags: d}
	b, err := e.Bool(x)
	require.NoError(t, err)
	assert.False(t, b)
	assert.Empty(t, d.Errors())
}

func TestFeatureFlags(t *testing.T) {
	assert.True(t, evalBool(t, "$<FEATURE:asserts>", debugCtx))
	assert.False(t, evalBool(t, "$<FEATURE:lto>", debugCtx))
}

func TestUnknownFeatureIsRecoverable(t *testing.T) {
	x, err := Parse("$<FEATURE:telemetry>")
	require.NoError(t, err)
	d := &Diagnostics{}
	e := &Evaluator{Context: debugCtx, Diags: d}
	b, err := e.Bool(x)
	require.NoError(t, err) // recoverable, not an error
	assert.False(t, b)
	refs := d.Errors()
	require.Len(t, refs, 1)
	assert.Equal(t, "telemetry", refs[0].Name)
	assert.Equal(t, 0, refs[0].Pos)
}

func TestNilDiagnosticsAreDiscarded(t *testing.T) {
	x, err := Parse("$<FEATURE:telemetry>")
	require.NoError(t, err)
	e := &Evaluator{Context: debugCtx}
	b, err := e.Bool(x)
	require.NoError(t, err)
	assert.False(t, b)
}

func TestBoolCoercion(t *testing.T) {
	for _, falsy := range []string{"", "0", "false", "FALSE", "off", "no"} {
		assert.False(t, evalBool(t, "$<BOOL:"+falsy+">", debugCtx), "%q should be false", falsy)
	}
	for _, truthy := range []string{"1", "true", "on", "yes", "anything"} {
		assert.True(t, evalBool(t, "$<BOOL:"+truthy+">", debugCtx), "%q should be true", truthy)
	}
}

func TestCaseTransforms(t *testing.T) {
	assert.Equal(t, "DEBUG", evalString(t, "$<UPPER_CASE:$<IF:$<CONFIG:Debug>,debug,release>>", debugCtx))
	assert.Equal(t, "gcc", evalString(t, "$<LOWER_CASE:GCC>", debugCtx))
}

func TestBoolInStringPositionRenders(t *testing.T) {
	assert.Equal(t, "x1y", evalString(t, "x$<CONFIG:Debug>y", debugCtx))
	assert.Equal(t, "x0y", evalString(t, "x$<CONFIG:Release>y", debugCtx))
}

func TestStringInBoolPosition(t *testing.T) {
	assert.True(t, evalBool(t, "$<LOWER_CASE:TRUE>", debugCtx))
	assert.False(t, evalBool(t, "$<IF:$<CONFIG:Debug>,0,1>", debugCtx))
}

func TestTargetPropertyLookup(t *testing.T) {
	ctx := debugCtx.WithProperty(func(key string, pos int) (string, bool) {
		if key == "output-name" {
			return "libcore", true
		}
		return "", false
	})
	assert.Equal(t, "libcore.so", evalString(t, "$<TARGET_PROPERTY:output-name>.so", ctx))
	// Unset properties read as empty without complaint.
	assert.Equal(t, ".so", evalString(t, "$<TARGET_PROPERTY:version>.so", ctx))
}

func TestTargetPropertyReportsCallPosition(t *testing.T) {
	var got int
	ctx := debugCtx.WithProperty(func(key string, pos int) (string, bool) {
		got = pos
		return "core", true
	})
	assert.Equal(t, "lib-core", evalString(t, "lib-$<TARGET_PROPERTY:output-name>", ctx))
	assert.Equal(t, 4, got)
}

func TestTargetPropertyWithoutTargetInScope(t *testing.T) {
	x, err := Parse("$<TARGET_PROPERTY:anything>")
	require.NoError(t, err)
	d := &Diagnostics{}
	e := &Evaluator{Context: debugCtx, Diags: d}
	s, err := e.String(x)
	require.NoError(t, err)
	assert.Equal(t, "", s)
	assert.Len(t, d.Errors(), 1)
}

func TestDepthLimit(t *testing.T) {
	nested := func(n int) string {
		return strings.Repeat("$<NOT:", n) + "1" + strings.Repeat(">", n)
	}
	x, err := Parse(nested(5))
	require.NoError(t, err)
	e := &Evaluator{Context: debugCtx, MaxDepth: 4}
	_, err = e.Bool(x)
	require.Error(t, err)
	derr := &DepthError{}
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 4, derr.Limit)

	// One level under the limit is fine.
	x, err = Parse(nested(4))
	require.NoError(t, err)
	b, err := e.Bool(x)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestDefaultMaxDepth(t *testing.T) {
	e := &Evaluator{Context: debugCtx}
	assert.Equal(t, DefaultMaxDepth, e.maxDepth())
}
