package shell

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type goldenScriptSuite map[string]string

func (gss goldenScriptSuite) Run(t *testing.T) {
	t.Helper()

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	for tn, script := range gss {
		t.Run(tn, func(t *testing.T) {
			f := newFixture("")
			path := "/" + tn + ".sh"
			require.NoError(t, afero.WriteFile(f.fs, path, []byte(script), 0644))
			require.NoError(t, f.fs.Chtimes(path, time.Now(), time.Now()))

			result := f.Scripts().Execute(path, nil)
			assert.Equal(t, 0, result.ExitCode, result.ErrorMessage)

			g.Assert(t, tn, f.stdout.Bytes())
		})
	}
}

func TestScriptGolden(t *testing.T) {
	goldenScriptSuite{
		"loops": `for i in 1 2 3
do
echo item $i
done
n=0
while [ $n -lt 2 ]
do
echo n=$n
((n++))
done
for ((j=0; j<2; j++))
do
echo j=$j
done`,

		"functions": `function greet [name, greeting = hello] {
echo $greeting $name
}
greet world
greet den hi
function add [a, b] {
return $(( a + b ))
}
add 2 3
echo sum exit $?`,

		"case": `for word in apple banana cherry
do
case $word in
a*) echo $word starts-a ;;
b*) echo $word starts-b ;&
c*) echo $word matched-c ;;
*) echo $word other ;;
esac
done`,
	}.Run(t)
}
