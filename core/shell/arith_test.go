package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalArith(t *testing.T) {
	cases := []struct {
		expr     string
		expected int64
	}{
		{"1 + 2", 3},
		{"2 * 3 + 4", 10},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 3", 3},
		{"10 % 3", 1},
		{"-5 + 2", -3},
		{"1 < 2", 1},
		{"2 <= 1", 0},
		{"3 == 3", 1},
		{"3 != 3", 0},
		{"1 && 0", 0},
		{"1 || 0", 1},
		{"!0", 1},
		{"!7", 0},
		{"1 << 4", 16},
		{"32 >> 2", 8},
		{"+7", 7},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			actual, err := EvalArith(NewEnv(), tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestEvalArithVariables(t *testing.T) {
	env := NewEnv()
	env.Setenv("x", "10")

	got, err := EvalArith(env, "x * 2")
	require.NoError(t, err)
	assert.Equal(t, int64(20), got)

	// $name reads the same variable.
	got, err = EvalArith(env, "$x + 1")
	require.NoError(t, err)
	assert.Equal(t, int64(11), got)

	// Unset variables read as zero.
	got, err = EvalArith(env, "missing + 4")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got)
}

func TestEvalArithAssignment(t *testing.T) {
	env := NewEnv()

	got, err := EvalArith(env, "i = 5")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
	assert.Equal(t, "5", env.Getenv("i"))

	got, err = EvalArith(env, "i += 3")
	require.NoError(t, err)
	assert.Equal(t, int64(8), got)

	got, err = EvalArith(env, "i *= 2")
	require.NoError(t, err)
	assert.Equal(t, int64(16), got)
	assert.Equal(t, "16", env.Getenv("i"))
}

func TestEvalArithIncrement(t *testing.T) {
	env := NewEnv()
	env.Setenv("i", "5")

	got, err := EvalArith(env, "i++")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got, "post-increment yields the old value")
	assert.Equal(t, "6", env.Getenv("i"))

	got, err = EvalArith(env, "++i")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got, "pre-increment yields the new value")

	got, err = EvalArith(env, "i--")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
	assert.Equal(t, "6", env.Getenv("i"))
}

func TestEvalArithErrors(t *testing.T) {
	env := NewEnv()
	for _, expr := range []string{
		"1 / 0",
		"5 % 0",
		"(1 + 2",
		"1 +",
		"@",
		"1 2",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := EvalArith(env, expr)
			assert.Error(t, err)
		})
	}
}
