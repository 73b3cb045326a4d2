package shell

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"
	"github.com/spf13/afero"

	"github.com/denshell/den/core/interp"
)

// builtinFunc runs a builtin with its arguments, argv[0] excluded.
type builtinFunc func(s *Shell, args []string) int

// builtins maps command names to their implementations. Lookup happens
// after functions, so a user function can shadow any of these. Populated
// in init because builtinBuiltin refers back to the map.
var builtins map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		"echo":    builtinEcho,
		"cd":      builtinCd,
		"pwd":     builtinPwd,
		"exit":    builtinExit,
		"true":    func(*Shell, []string) int { return 0 },
		"false":   func(*Shell, []string) int { return 1 },
		":":       func(*Shell, []string) int { return 0 },
		"test":    builtinTest,
		"[":       builtinBracketTest,
		"read":    builtinRead,
		"export":  builtinExport,
		"declare": builtinExport,
		"unset":   builtinUnset,
		"shift":   builtinShift,
		"local":   builtinLocal,
		"return":  builtinReturn,
		"source":  builtinSource,
		".":       builtinSource,
		"let":     builtinLet,
		"set":     builtinSet,
		"builtin": builtinBuiltin,
	}
}

// Builtins lists the names of every builtin command, sorted.
func Builtins() []string {
	var names []string
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SimpleCommand wraps getopt flag parsing and help output for builtins.
type SimpleCommand struct {
	// Use holds a one line usage string.
	Use string
	// Short holds a one line description of the command.
	Short string

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (c *SimpleCommand) Flags() *getopt.Set {
	if c.flags == nil {
		c.flags = getopt.New()
	}
	return c.flags
}

// PrintHelp writes help for the command to the given writer.
func (c *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, c.Use)
	fmt.Fprintln(w, c.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	c.Flags().PrintOptions(w)
}

// Run parses argv and, on success, calls the callback.
func (c *SimpleCommand) Run(s *Shell, argv []string, callback func() int) int {
	opts := c.Flags()
	showHelp := opts.BoolLong("help", 0, "show this help and exit")

	if err := opts.Getopt(argv, nil); err != nil {
		fmt.Fprintf(s.stderr, "error: %s\n\n", err)
		c.PrintHelp(s.stdout)
		return 1
	}
	if *showHelp {
		c.PrintHelp(s.stdout)
		return 0
	}
	return callback()
}

var (
	unescapeOctal   = regexp.MustCompile(`\\0[0-8][0-8]?[0-8]?`)
	unescapeHex     = regexp.MustCompile(`\\x[0-9a-fA-F][0-9a-fA-F]?`)
	unescapeReplace = strings.NewReplacer(
		`\n`, "\n", // newline
		`\r`, "\r", // carriage return
		`\t`, "\t", // horizontal tab
		`\\`, `\`, // backslash literal
		`\b`, "\b", // backspace
		`\a`, "\a", // alert
		`\f`, "\f", // form feed
		`\v`, "\v", // vertical tab
	)
)

func unescape(s string) string {
	s = unescapeReplace.Replace(s)
	s = unescapeOctal.ReplaceAllStringFunc(s, func(arg string) string {
		out, err := strconv.ParseInt(arg[2:], 8, 8)
		if err != nil {
			return arg
		}
		return string(rune(out))
	})
	s = unescapeHex.ReplaceAllStringFunc(s, func(arg string) string {
		out, err := strconv.ParseInt(arg[2:], 16, 8)
		if err != nil {
			return arg
		}
		return string(rune(out))
	})
	return s
}

func builtinEcho(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "echo [-n] [-e] [ARG] ...",
		Short: "Display a line of text.",
	}
	opt := cmd.Flags()
	noNewline := opt.Bool('n', "do not output the trailing newline")
	escaped := opt.Bool('e', "interpret backslash escapes")

	return cmd.Run(s, append([]string{"echo"}, args...), func() int {
		for i, arg := range opt.Args() {
			if i > 0 {
				fmt.Fprint(s.stdout, " ")
			}
			if *escaped {
				arg = unescape(arg)
			}
			fmt.Fprint(s.stdout, arg)
		}
		if !*noNewline {
			fmt.Fprintln(s.stdout)
		}
		return 0
	})
}

func builtinCd(s *Shell, args []string) int {
	switch len(args) {
	case 0:
		args = []string{s.env.Getenv(EnvHome)}
		fallthrough
	case 1:
		if err := s.Chdir(args[0]); err != nil {
			fmt.Fprintf(s.stderr, "cd: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintln(s.stderr, "cd: too many arguments")
		return 1
	}
}

func builtinPwd(s *Shell, args []string) int {
	fmt.Fprintln(s.stdout, s.cwd)
	return 0
}

func builtinExit(s *Shell, args []string) int {
	code := s.lastExit
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			code = n
		}
	}
	s.exitRequested = true
	s.exitCode = code
	return code
}

func builtinBracketTest(s *Shell, args []string) int {
	if len(args) == 0 || args[len(args)-1] != "]" {
		fmt.Fprintln(s.stderr, "[: missing ]")
		return 2
	}
	return builtinTest(s, args[:len(args)-1])
}

func builtinTest(s *Shell, args []string) int {
	ok, err := s.evalTest(args)
	if err != nil {
		fmt.Fprintf(s.stderr, "test: %v\n", err)
		return 2
	}
	if ok {
		return 0
	}
	return 1
}

// evalTest implements the classic test expressions: string and integer
// comparisons, -z/-n, and -e/-f/-d file checks against the shell's
// filesystem.
func (s *Shell) evalTest(args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		op, arg := args[0], args[1]
		switch op {
		case "-z":
			return arg == "", nil
		case "-n":
			return arg != "", nil
		case "-e":
			ok, _ := afero.Exists(s.fs, arg)
			return ok, nil
		case "-f":
			info, err := s.fs.Stat(arg)
			return err == nil && !info.IsDir(), nil
		case "-d":
			ok, _ := afero.DirExists(s.fs, arg)
			return ok, nil
		case "!":
			return arg == "", nil
		}
		return false, fmt.Errorf("unknown operator %s", op)
	case 3:
		if args[0] == "!" {
			ok, err := s.evalTest(args[1:])
			return !ok, err
		}
		left, op, right := args[0], args[1], args[2]
		switch op {
		case "=", "==":
			return left == right, nil
		case "!=":
			return left != right, nil
		}
		a, errA := strconv.Atoi(left)
		b, errB := strconv.Atoi(right)
		if errA != nil || errB != nil {
			return false, fmt.Errorf("integer expression expected: %s %s %s", left, op, right)
		}
		switch op {
		case "-eq":
			return a == b, nil
		case "-ne":
			return a != b, nil
		case "-lt":
			return a < b, nil
		case "-le":
			return a <= b, nil
		case "-gt":
			return a > b, nil
		case "-ge":
			return a >= b, nil
		}
		return false, fmt.Errorf("unknown operator %s", op)
	default:
		if args[0] == "!" {
			ok, err := s.evalTest(args[1:])
			return !ok, err
		}
		return false, fmt.Errorf("too many arguments")
	}
}

func builtinRead(s *Shell, args []string) int {
	cmd := &SimpleCommand{
		Use:   "read [-p PROMPT] [NAME]",
		Short: "Read a line from standard input into a variable.",
	}
	opt := cmd.Flags()
	prompt := opt.String('p', "", "print PROMPT before reading")

	return cmd.Run(s, append([]string{"read"}, args...), func() int {
		if *prompt != "" {
			fmt.Fprint(s.stderr, *prompt)
		}
		line, err := s.readLine()
		if err != nil && line == "" {
			return 1
		}
		name := "REPLY"
		if rest := opt.Args(); len(rest) > 0 {
			name = rest[0]
		}
		s.env.Setenv(name, strings.TrimRight(line, "\n"))
		return 0
	})
}

func (s *Shell) readLine() (string, error) {
	return s.stdinBuf.ReadString('\n')
}

func builtinExport(s *Shell, args []string) int {
	for _, arg := range args {
		if m := assignRegex.FindStringSubmatch(arg); m != nil {
			s.env.Setenv(m[1], stripQuotes(m[3]))
		}
		// Bare names are already visible; nothing to mark.
	}
	return 0
}

func builtinUnset(s *Shell, args []string) int {
	for _, arg := range args {
		s.env.Unsetenv(arg)
	}
	return 0
}

func builtinShift(s *Shell, args []string) int {
	n := 1
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 0 {
			fmt.Fprintf(s.stderr, "shift: %s: invalid count\n", args[0])
			return 1
		}
		n = parsed
	}
	if _, inFunc := s.engine.Functions().CurrentFunction(); inFunc {
		if !s.engine.Functions().ShiftPositionals(n) {
			return 1
		}
		return 0
	}
	if !s.engine.ShiftScriptParams(n) {
		return 1
	}
	return 0
}

func builtinLocal(s *Shell, args []string) int {
	for _, arg := range args {
		name, value := arg, ""
		if m := assignRegex.FindStringSubmatch(arg); m != nil {
			name, value = m[1], stripQuotes(m[3])
		}
		if err := s.engine.Functions().SetLocal(name, value); err != nil {
			fmt.Fprintln(s.stderr, "local: can only be used in a function")
			return 1
		}
	}
	return 0
}

func builtinReturn(s *Shell, args []string) int {
	code := s.lastExit
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			code = n
		}
	}
	if err := s.engine.Functions().RequestReturn(code); err != nil {
		fmt.Fprintln(s.stderr, "return: can only be used in a function")
		return 1
	}
	return code
}

func builtinSource(s *Shell, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(s.stderr, "source: filename argument required")
		return 2
	}
	result := s.scripts.Execute(args[0], args[1:])
	if result.ErrorMessage != "" {
		fmt.Fprintf(s.stderr, "source: %s\n", result.ErrorMessage)
	}
	return result.ExitCode
}

func builtinLet(s *Shell, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(s.stderr, "let: expression expected")
		return 1
	}
	var last int64
	for _, arg := range args {
		value, err := s.evalArith(arg)
		if err != nil {
			fmt.Fprintf(s.stderr, "let: %v\n", err)
			return 1
		}
		last = value
	}
	if last != 0 {
		return 0
	}
	return 1
}

func builtinSet(s *Shell, args []string) int {
	for _, arg := range args {
		switch arg {
		case "-e":
			s.errExit = true
		case "+e":
			s.errExit = false
		default:
			fmt.Fprintf(s.stderr, "set: unsupported option %s\n", arg)
			return 2
		}
	}
	return 0
}

// builtinBuiltin runs its argument as a builtin even when a function
// shadows the name.
func builtinBuiltin(s *Shell, args []string) int {
	if len(args) == 0 {
		return 0
	}
	fn, ok := builtins[args[0]]
	if !ok {
		fmt.Fprintf(s.stderr, "builtin: %s: not a shell builtin\n", args[0])
		return 1
	}
	return fn(s, args[1:])
}

var _ interp.CommandRunner = (*Shell)(nil)
var _ interp.Environ = (*Env)(nil)
var _ interp.Expander = (*Shell)(nil)
