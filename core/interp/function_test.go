package interp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFunctionDef(t *testing.T) {
	defs := []string{
		"function greet {",
		"function greet",
		"greet() {",
		"greet () {",
		"function greet [name: string] -> int {",
		"greet() [a, b?] {",
	}
	for _, line := range defs {
		assert.True(t, isFunctionDef(line), line)
	}

	notDefs := []string{
		"echo hi",
		"case $x in",
		"functional style",
		"for ((i=0;i<3;i++))",
	}
	for _, line := range notDefs {
		assert.False(t, isFunctionDef(line), line)
	}
}

func TestParseFunctionKeywordForm(t *testing.T) {
	lines := []string{
		"function greet {",
		"echo hello",
		"echo world",
		"}",
	}
	fn, end, err := ParseFunction(lines, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, end)
	assert.Equal(t, "greet", fn.Name)
	assert.Equal(t, []string{"echo hello", "echo world"}, fn.Body)
}

func TestParseFunctionParenFormBraceOnNextLine(t *testing.T) {
	lines := []string{
		"greet()",
		"{",
		"echo hello",
		"}",
	}
	fn, end, err := ParseFunction(lines, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, end)
	assert.Equal(t, "greet", fn.Name)
	assert.Equal(t, []string{"echo hello"}, fn.Body)
}

func TestParseFunctionInlineBody(t *testing.T) {
	fn, end, err := ParseFunction([]string{"greet() { echo hello; }"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, end)
	assert.Equal(t, []string{"echo hello;"}, fn.Body)
}

func TestParseFunctionNestedBraces(t *testing.T) {
	lines := []string{
		"outer() {",
		"wrap() { inner; }",
		"}",
	}
	fn, end, err := ParseFunction(lines, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, end)
	assert.Equal(t, []string{"wrap() { inner; }"}, fn.Body)
}

func TestParseFunctionMissingBrace(t *testing.T) {
	_, _, err := ParseFunction([]string{"function broken {", "echo x"}, 0)
	assert.ErrorIs(t, err, ErrInvalidFunc)

	_, _, err = ParseFunction([]string{"broken()", "echo x"}, 0)
	assert.ErrorIs(t, err, ErrInvalidFunc)
}

func TestParseFunctionTypedParams(t *testing.T) {
	lines := []string{
		"function deploy [target: string, count = 1, tag?, --loud(-l), ...extras] -> int {",
		"run",
		"}",
	}
	fn, _, err := ParseFunction(lines, 0)
	require.NoError(t, err)
	assert.Equal(t, "int", fn.ReturnType)
	require.Len(t, fn.TypedParams, 5)

	assert.Equal(t, "target", fn.TypedParams[0].Name)
	assert.Equal(t, "string", fn.TypedParams[0].TypeHint)

	assert.Equal(t, "count", fn.TypedParams[1].Name)
	assert.Equal(t, "1", fn.TypedParams[1].DefaultValue)

	assert.Equal(t, "tag", fn.TypedParams[2].Name)
	assert.True(t, fn.TypedParams[2].IsOptional)

	assert.Equal(t, "loud", fn.TypedParams[3].Name)
	assert.True(t, fn.TypedParams[3].IsFlag)
	assert.Equal(t, "l", fn.TypedParams[3].ShortFlag)
	assert.Equal(t, "bool", fn.TypedParams[3].TypeHint)

	assert.Equal(t, "extras", fn.TypedParams[4].Name)
	assert.True(t, fn.TypedParams[4].IsRest)
}

func TestExecuteFunctionUndefined(t *testing.T) {
	sh := newTestShell("")
	code, err := sh.eng.CallFunction("nope", nil)
	assert.Equal(t, 127, code)
	assert.ErrorIs(t, err, ErrFunctionNotFound)
}

func TestExecuteFunctionPositionals(t *testing.T) {
	sh := newTestShell("")
	var name, first, second string
	var count int
	sh.runner.onRun = func(line string) (int, error) {
		if line == "probe" {
			funcs := sh.eng.Functions()
			name, _ = funcs.GetPositionalParam(0)
			first, _ = funcs.GetPositionalParam(1)
			second, _ = funcs.GetPositionalParam(2)
			count, _ = funcs.PositionalCount()
		}
		return 0, nil
	}

	_, err := sh.eng.Execute("function greet {\nprobe\n}")
	require.NoError(t, err)
	code, err := sh.eng.CallFunction("greet", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "greet", name)
	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
	assert.Equal(t, 2, count)

	_, ok := sh.eng.Functions().GetPositionalParam(3)
	assert.False(t, ok, "out of range lookups fail after the call")
}

func TestExecuteFunctionReturnStopsBody(t *testing.T) {
	sh := newTestShell("")
	sh.runner.onRun = func(line string) (int, error) {
		if line == "return 5" {
			require.NoError(t, sh.eng.Functions().RequestReturn(5))
		}
		return 0, nil
	}

	_, err := sh.eng.Execute("function bail {\nreturn 5\nnever\n}")
	require.NoError(t, err)
	code, err := sh.eng.CallFunction("bail", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, code)
	assert.NotContains(t, sh.runner.runs, "never")
}

func TestExecuteFunctionReturnInsideLoop(t *testing.T) {
	sh := newTestShell("")
	sh.runner.onRun = func(line string) (int, error) {
		if line == "return 7" {
			require.NoError(t, sh.eng.Functions().RequestReturn(7))
		}
		return 0, nil
	}

	script := `function find {
for i in 1 2 3
do
return 7
done
after
}`
	_, err := sh.eng.Execute(script)
	require.NoError(t, err)
	code, err := sh.eng.CallFunction("find", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, code, "return unwinds through the loop")
	assert.Equal(t, 1, countRuns(sh.runner, "return 7"))
	assert.NotContains(t, sh.runner.runs, "after")
}

func TestExecuteFunctionLastExitCode(t *testing.T) {
	sh := newTestShell("")
	sh.runner.codes["fail"] = 4
	_, err := sh.eng.Execute("function f {\nfail\n}")
	require.NoError(t, err)
	code, err := sh.eng.CallFunction("f", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, code)
}

func TestFunctionLocalsScoped(t *testing.T) {
	sh := newTestShell("")
	sh.env.Setenv("x", "global")
	sh.runner.onRun = func(line string) (int, error) {
		if line == "mark" {
			require.NoError(t, sh.eng.Functions().SetLocal("x", "inner"))
			got, ok := sh.eng.Functions().GetLocal("x")
			assert.True(t, ok)
			assert.Equal(t, "inner", got)
		}
		return 0, nil
	}

	_, err := sh.eng.Execute("function f {\nmark\n}")
	require.NoError(t, err)
	_, err = sh.eng.CallFunction("f", nil)
	require.NoError(t, err)

	assert.Equal(t, "global", sh.env.Getenv("x"), "locals never leak into the environment")
	_, ok := sh.eng.Functions().GetLocal("x")
	assert.False(t, ok, "no frame remains after the call")
}

func TestFuncnameTracksCallStack(t *testing.T) {
	sh := newTestShell("")
	var seen []string
	sh.runner.onRun = func(line string) (int, error) {
		switch line {
		case "peek":
			seen = append(seen, sh.env.Getenv("FUNCNAME"))
		case "inner":
			return sh.eng.CallFunction("inner", nil)
		}
		return 0, nil
	}

	_, err := sh.eng.Execute("function inner {\npeek\n}\nfunction outer {\npeek\ninner\npeek\n}")
	require.NoError(t, err)
	_, err = sh.eng.CallFunction("outer", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"outer", "inner", "outer"}, seen)
	_, ok := sh.env.LookupEnv("FUNCNAME")
	assert.False(t, ok, "FUNCNAME is unset once the stack drains")
}

func TestRecursionBoundedByCallDepth(t *testing.T) {
	sh := newTestShell("")
	maxDepth := 0
	overflowed := false
	sh.runner.onRun = func(line string) (int, error) {
		if line != "recur" {
			return 0, nil
		}
		if d := sh.eng.Functions().Depth(); d > maxDepth {
			maxDepth = d
		}
		code, err := sh.eng.CallFunction("recur", nil)
		if errors.Is(err, ErrCallStackOverflow) {
			overflowed = true
			return code, nil
		}
		return code, err
	}

	_, err := sh.eng.Execute("function recur {\nrecur\n}")
	require.NoError(t, err)
	_, err = sh.eng.CallFunction("recur", nil)
	require.NoError(t, err)

	assert.True(t, overflowed, "unbounded recursion must hit the stack limit")
	assert.Equal(t, sh.eng.Limits().MaxCallDepth, maxDepth)
	assert.Equal(t, 0, sh.eng.Functions().Depth())
}

func TestTypedParamBinding(t *testing.T) {
	sh := newTestShell("")
	var name, greeting, loud, extras string
	sh.runner.onRun = func(line string) (int, error) {
		if line == "probe" {
			funcs := sh.eng.Functions()
			name, _ = funcs.GetLocal("name")
			greeting, _ = funcs.GetLocal("greeting")
			loud, _ = funcs.GetLocal("loud")
			extras, _ = funcs.GetLocal("extras")
		}
		return 0, nil
	}

	_, err := sh.eng.Execute("function greet [name, greeting = hello, --loud(-l), ...extras] {\nprobe\n}")
	require.NoError(t, err)

	_, err = sh.eng.CallFunction("greet", []string{"world", "--loud"})
	require.NoError(t, err)
	assert.Equal(t, "world", name)
	assert.Equal(t, "hello", greeting, "missing parameter takes its default")
	assert.Equal(t, "1", loud)
	assert.Equal(t, "", extras)

	_, err = sh.eng.CallFunction("greet", []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, "b", greeting, "a supplied argument beats the default")
	assert.Equal(t, "c d", extras)
}

func TestTypedFlagConsumesValue(t *testing.T) {
	sh := newTestShell("")
	var level string
	sh.runner.onRun = func(line string) (int, error) {
		if line == "probe" {
			level, _ = sh.eng.Functions().GetLocal("level")
		}
		return 0, nil
	}

	_, err := sh.eng.Execute("function log [--level: string, ...rest] {\nprobe\n}")
	require.NoError(t, err)
	_, err = sh.eng.CallFunction("log", []string{"--level", "debug", "msg"})
	require.NoError(t, err)
	assert.Equal(t, "debug", level)
}

func TestValidateTypedArgs(t *testing.T) {
	sh := newTestShell("")
	_, err := sh.eng.Execute("function f [a, b?, --v] {\nbody\n}")
	require.NoError(t, err)

	fn, ok := sh.eng.Functions().Lookup("f")
	require.True(t, ok)

	msg := sh.eng.Functions().ValidateTypedArgs(fn, nil)
	assert.Equal(t, "f: requires 1 argument(s), got 0", msg)

	assert.Empty(t, sh.eng.Functions().ValidateTypedArgs(fn, []string{"x"}))
	assert.Empty(t, sh.eng.Functions().ValidateTypedArgs(fn, []string{"--v", "x"}))
}

func TestExecuteFunctionArityFailure(t *testing.T) {
	sh := newTestShell("")
	_, err := sh.eng.Execute("function need [a] {\nbody\n}")
	require.NoError(t, err)

	code, err := sh.eng.CallFunction("need", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, code)
	assert.Contains(t, sh.stderr.String(), "need: requires 1 argument(s), got 0")
	assert.NotContains(t, sh.runner.runs, "body")
}

func TestShiftPositionals(t *testing.T) {
	sh := newTestShell("")
	var before, after int
	var first string
	sh.runner.onRun = func(line string) (int, error) {
		if line == "probe" {
			funcs := sh.eng.Functions()
			before, _ = funcs.PositionalCount()
			assert.True(t, funcs.ShiftPositionals(1))
			after, _ = funcs.PositionalCount()
			first, _ = funcs.GetPositionalParam(1)
		}
		return 0, nil
	}

	_, err := sh.eng.Execute("function f {\nprobe\n}")
	require.NoError(t, err)
	_, err = sh.eng.CallFunction("f", []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, 3, before)
	assert.Equal(t, 2, after)
	assert.Equal(t, "b", first)
}

func TestRequestReturnWithoutFrame(t *testing.T) {
	sh := newTestShell("")
	assert.ErrorIs(t, sh.eng.Functions().RequestReturn(0), ErrNoActiveFrame)
}

func TestRedefinitionReplaces(t *testing.T) {
	sh := newTestShell("")
	_, err := sh.eng.Execute("function f {\nold\n}\nfunction f {\nnew\n}")
	require.NoError(t, err)
	_, err = sh.eng.CallFunction("f", nil)
	require.NoError(t, err)
	assert.Contains(t, sh.runner.runs, "new")
	assert.NotContains(t, sh.runner.runs, "old")
}
