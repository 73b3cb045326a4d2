package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func canon(script string) []string {
	lines, _ := normalizeLines(splitRaw(script))
	return lines
}

func splitRaw(script string) []string {
	var out []string
	start := 0
	for i := 0; i < len(script); i++ {
		if script[i] == '\n' {
			out = append(out, script[start:i])
			start = i + 1
		}
	}
	return append(out, script[start:])
}

func TestSplitStatements(t *testing.T) {
	cases := []struct {
		line string
		want []string
	}{
		{`echo hi`, []string{"echo hi"}},
		{`echo a; echo b`, []string{"echo a", "echo b"}},
		{`for i in 1 2 3; do echo $i; done`, []string{"for i in 1 2 3", "do", "echo $i", "done"}},
		{`if true; then echo y; fi`, []string{"if true", "then", "echo y", "fi"}},
		{`while [ $i -lt 3 ]; do i=up; done`, []string{"while [ $i -lt 3 ]", "do", "i=up", "done"}},
		{`echo 'a;b'`, []string{"echo 'a;b'"}},
		{`for ((i=0;i<3;i++)); do echo $i; done`, []string{"for ((i=0;i<3;i++))", "do", "echo $i", "done"}},
		{`a) echo a ;; b) echo b ;;`, []string{"a) echo a", ";;", "b) echo b", ";;"}},
		{`x) echo x ;;& y) echo y ;&`, []string{"x) echo x", ";;&", "y) echo y", ";&"}},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			assert.Equal(t, tc.want, splitStatements(tc.line))
		})
	}
}

func TestParseIf(t *testing.T) {
	lines := canon(`if test -f a
then
echo has-a
elif test -f b
then
echo has-b
echo second
elif test -f c
then
echo has-c
else
echo none
fi`)
	p := NewControlFlowParser(Limits{})
	st, end, err := p.ParseIf(lines, 0)
	require.NoError(t, err)
	assert.Equal(t, len(lines)-1, end)
	assert.Equal(t, "test -f a", st.Condition)
	assert.Equal(t, []string{"echo has-a"}, st.ThenBody)
	require.Len(t, st.ElifClauses, 2)
	assert.Equal(t, "test -f b", st.ElifClauses[0].Condition)
	assert.Equal(t, []string{"echo has-b", "echo second"}, st.ElifClauses[0].Body)
	assert.Equal(t, []string{"echo has-c"}, st.ElifClauses[1].Body)
	assert.Equal(t, []string{"echo none"}, st.ElseBody)
}

func TestParseIfNested(t *testing.T) {
	lines := canon(`if outer
then
if inner; then echo deep; fi
echo after
fi`)
	p := NewControlFlowParser(Limits{})
	st, _, err := p.ParseIf(lines, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"if inner", "then", "echo deep", "fi", "echo after"}, st.ThenBody)
}

func TestParseIfErrors(t *testing.T) {
	p := NewControlFlowParser(Limits{})

	_, _, err := p.ParseIf([]string{"if", "then", "fi"}, 0)
	assert.ErrorIs(t, err, ErrInvalidIf)

	_, _, err = p.ParseIf(canon("if true\nthen\necho x"), 0)
	assert.ErrorIs(t, err, ErrInvalidIf)

	tight := NewControlFlowParser(Limits{MaxElifClauses: 1})
	_, _, err = tight.ParseIf(canon("if a\nthen\nelif b\nthen\nelif c\nthen\nfi"), 0)
	assert.ErrorIs(t, err, ErrTooManyElifClauses)
}

func TestParseWhile(t *testing.T) {
	lines := canon(`while [ $n -lt 5 ]
do
echo $n
done`)
	p := NewControlFlowParser(Limits{})
	loop, end, err := p.ParseWhile(lines, 0, false)
	require.NoError(t, err)
	assert.Equal(t, len(lines)-1, end)
	assert.Equal(t, "[ $n -lt 5 ]", loop.Condition)
	assert.Equal(t, []string{"echo $n"}, loop.Body)
	assert.False(t, loop.IsUntil)
}

func TestParseUntil(t *testing.T) {
	p := NewControlFlowParser(Limits{})
	loop, _, err := p.ParseWhile(canon("until done-yet\ndo\necho tick\ndone"), 0, true)
	require.NoError(t, err)
	assert.True(t, loop.IsUntil)
	assert.Equal(t, "done-yet", loop.Condition)
}

func TestParseWhileNestedLoops(t *testing.T) {
	lines := canon(`while outer
do
for i in a b
do
echo $i
done
done`)
	p := NewControlFlowParser(Limits{})
	loop, end, err := p.ParseWhile(lines, 0, false)
	require.NoError(t, err)
	assert.Equal(t, len(lines)-1, end)
	assert.Equal(t, []string{"for i in a b", "do", "echo $i", "done"}, loop.Body)
}

func TestParseFor(t *testing.T) {
	p := NewControlFlowParser(Limits{})
	loop, _, err := p.ParseFor(canon("for f in one two ${list[@]}\ndo\necho $f\ndone"), 0)
	require.NoError(t, err)
	assert.Equal(t, "f", loop.Variable)
	assert.Equal(t, []string{"one", "two", "${list[@]}"}, loop.Items)

	_, _, err = p.ParseFor(canon("for f one two\ndo\ndone"), 0)
	assert.ErrorIs(t, err, ErrInvalidFor)
}

func TestParseCStyleFor(t *testing.T) {
	p := NewControlFlowParser(Limits{})
	loop, _, err := p.ParseCStyleFor(canon("for ((i=0;i<3;i++))\ndo\necho $i\ndone"), 0)
	require.NoError(t, err)
	assert.Equal(t, "i=0", loop.Init)
	assert.Equal(t, "i<3", loop.Condition)
	assert.Equal(t, "i++", loop.Update)
	assert.Equal(t, []string{"echo $i"}, loop.Body)
}

func TestParseCStyleForEmptyClauses(t *testing.T) {
	p := NewControlFlowParser(Limits{})
	loop, _, err := p.ParseCStyleFor(canon("for ((;;))\ndo\nbreak\ndone"), 0)
	require.NoError(t, err)
	assert.Empty(t, loop.Init)
	assert.Empty(t, loop.Condition)
	assert.Empty(t, loop.Update)

	_, _, err = p.ParseCStyleFor(canon("for ((i=0;i<3))\ndo\ndone"), 0)
	assert.ErrorIs(t, err, ErrInvalidFor)
}

func TestParseSelect(t *testing.T) {
	p := NewControlFlowParser(Limits{})
	menu, _, err := p.ParseSelect(canon("select opt in alpha beta\ndo\necho $opt\ndone"), 0)
	require.NoError(t, err)
	assert.Equal(t, "opt", menu.Variable)
	assert.Equal(t, []string{"alpha", "beta"}, menu.Items)
	assert.Equal(t, "#? ", menu.Prompt)
}

func TestParseCase(t *testing.T) {
	lines := canon(`case $x in
a|b)
echo ab
;;
c*)
echo cprefix
;&
*)
echo default
;;
esac`)
	p := NewControlFlowParser(Limits{})
	st, end, err := p.ParseCase(lines, 0)
	require.NoError(t, err)
	assert.Equal(t, len(lines)-1, end)
	assert.Equal(t, "$x", st.Value)
	require.Len(t, st.Cases, 3)
	assert.Equal(t, []string{"a", "b"}, st.Cases[0].Patterns)
	assert.Equal(t, TermNormal, st.Cases[0].Terminator)
	assert.Equal(t, TermFallthrough, st.Cases[1].Terminator)
	assert.Equal(t, []string{"echo default"}, st.Cases[2].Body)
}

func TestParseCaseInline(t *testing.T) {
	p := NewControlFlowParser(Limits{})
	st, _, err := p.ParseCase(canon("case $x in a) echo a ;; esac"), 0)
	require.NoError(t, err)
	require.Len(t, st.Cases, 1)
	assert.Equal(t, []string{"a"}, st.Cases[0].Patterns)
	assert.Equal(t, []string{"echo a"}, st.Cases[0].Body)
}

func TestParseCaseImplicitFinalTerminator(t *testing.T) {
	p := NewControlFlowParser(Limits{})
	st, _, err := p.ParseCase(canon("case $x in\na)\necho a\nesac"), 0)
	require.NoError(t, err)
	require.Len(t, st.Cases, 1)
	assert.Equal(t, TermNormal, st.Cases[0].Terminator)
}

func TestDetectTerminatorLongestFirst(t *testing.T) {
	term, rest, ok := detectTerminator("echo x ;;&")
	require.True(t, ok)
	assert.Equal(t, TermContinueTesting, term)
	assert.Equal(t, "echo x", rest)

	term, _, ok = detectTerminator(";&")
	require.True(t, ok)
	assert.Equal(t, TermFallthrough, term)

	term, _, ok = detectTerminator("echo y;;")
	require.True(t, ok)
	assert.Equal(t, TermNormal, term)

	_, _, ok = detectTerminator("echo plain")
	assert.False(t, ok)
}

func TestBodyCapacity(t *testing.T) {
	p := NewControlFlowParser(Limits{MaxBodyLines: 2})
	_, _, err := p.ParseWhile(canon("while true\ndo\necho 1\necho 2\necho 3\ndone"), 0, false)
	assert.ErrorIs(t, err, ErrTooManyBodyLines)
}

func TestHeredocIntro(t *testing.T) {
	delim, strip, ok := heredocIntro("cat <<EOF")
	require.True(t, ok)
	assert.Equal(t, "EOF", delim)
	assert.False(t, strip)

	delim, strip, ok = heredocIntro("cat <<-END")
	require.True(t, ok)
	assert.Equal(t, "END", delim)
	assert.True(t, strip)

	_, _, ok = heredocIntro("grep x <<<word")
	assert.False(t, ok)
}

func TestParseLoopJump(t *testing.T) {
	kw, level, ok := parseLoopJump("break")
	require.True(t, ok)
	assert.Equal(t, "break", kw)
	assert.Equal(t, 1, level)

	_, level, ok = parseLoopJump("continue 3")
	require.True(t, ok)
	assert.Equal(t, 3, level)

	_, level, ok = parseLoopJump("break 0")
	require.True(t, ok)
	assert.Equal(t, 1, level)

	_, _, ok = parseLoopJump("breakfast now")
	assert.False(t, ok)
}
