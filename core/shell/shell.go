package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/anmitsu/go-shlex"
	"github.com/spf13/afero"

	"github.com/denshell/den/core/interp"
)

const (
	EnvHome     = "HOME"
	EnvPWD      = "PWD"
	EnvPath     = "PATH"
	EnvPrompt   = "PS1"
	EnvHostname = "HOSTNAME"
	EnvUser     = "USER"

	DefaultPrompt = `\u@\h:\w\$ `
)

var (
	assignRegex      = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(\+?)=(.*)$`)
	indexAssignRegex = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\[([^\]]+)\]=(.*)$`)
	heredocOpRegex   = regexp.MustCompile(`\s*<<-?\s*["']?[A-Za-z_][A-Za-z0-9_]*["']?`)
)

// Options configures a new Shell. Zero values fall back to the OS
// filesystem and standard streams.
type Options struct {
	FS     afero.Fs
	Env    *Env
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// NoExec disables running external binaries; unknown commands then
	// always report 127.
	NoExec bool

	// ErrExit starts the shell with errexit enabled, as if by set -e.
	ErrExit bool

	Limits interp.Limits
}

// Shell owns the environment, dispatches command lines and hosts the
// scripting engine. It implements the engine's CommandRunner, so control
// flow conditions and bodies route back through Run.
type Shell struct {
	fs       afero.Fs
	env      *Env
	stdin    io.Reader
	stdinBuf *bufio.Reader
	stdout   io.Writer
	stderr   io.Writer
	noExec   bool

	engine  *interp.Engine
	scripts *interp.ScriptManager

	cwd      string
	lastExit int
	errExit  bool

	exitRequested bool
	exitCode      int
	stopFlag      int32
}

func NewShell(opts Options) *Shell {
	s := &Shell{
		fs:      opts.FS,
		env:     opts.Env,
		stdin:   opts.Stdin,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		noExec:  opts.NoExec,
		errExit: opts.ErrExit,
		cwd:     "/",
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
		if wd, err := os.Getwd(); err == nil {
			s.cwd = wd
		}
	}
	if s.env == nil {
		s.env = NewEnv()
	}
	if s.stdin == nil {
		s.stdin = os.Stdin
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	// One buffered reader serves both the read builtin and the engine's
	// select menus; two would steal buffered-ahead input from each other.
	s.stdinBuf = bufio.NewReader(s.stdin)

	s.engine = interp.NewEngine(interp.Options{
		Runner:   s,
		Env:      s.env,
		Expander: s,
		ErrExit:  func() bool { return s.errExit },
		Stopped:  s.Stopped,
		Stdin:    s.stdinBuf,
		Stdout:   s.stdout,
		Stderr:   s.stderr,
		Limits:   opts.Limits,
	})
	s.scripts = interp.NewScriptManager(s.fs, s.engine)
	return s
}

// Engine exposes the scripting engine, e.g. for the REPL's Execute calls.
func (s *Shell) Engine() *interp.Engine { return s.engine }

// Scripts exposes the script manager.
func (s *Shell) Scripts() *interp.ScriptManager { return s.scripts }

// Env exposes the variable store.
func (s *Shell) Env() *Env { return s.env }

// LastExit reports the exit code of the most recent command, i.e. $?.
func (s *Shell) LastExit() int { return s.lastExit }

// Getwd reports the shell's working directory.
func (s *Shell) Getwd() string { return s.cwd }

// Stop flags the shell to halt between commands. Safe to call from a
// signal handler goroutine.
func (s *Shell) Stop() { atomic.StoreInt32(&s.stopFlag, 1) }

// ResetStop clears the stop flag, e.g. when the REPL resumes after ^C.
func (s *Shell) ResetStop() { atomic.StoreInt32(&s.stopFlag, 0) }

// Stopped reports whether Stop was called.
func (s *Shell) Stopped() bool { return atomic.LoadInt32(&s.stopFlag) != 0 }

// ExitRequested reports whether the exit builtin ran, and its code.
func (s *Shell) ExitRequested() (int, bool) { return s.exitCode, s.exitRequested }

// Init seeds login-like environment defaults.
func (s *Shell) Init(username string) {
	homedir := "/root"
	if username != "root" {
		homedir = "/home/" + username
	}
	s.env.Setenv(EnvHome, homedir)
	s.env.Setenv(EnvPath, "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin")
	if host, err := os.Hostname(); err == nil {
		s.env.Setenv(EnvHostname, host)
	}
	s.env.Setenv(EnvPrompt, DefaultPrompt)
	s.env.Setenv(EnvUser, username)
	s.env.Setenv(EnvPWD, s.cwd)
}

// Prompt renders PS1 with \u, \h, \w and \$ substituted.
func (s *Shell) Prompt() string {
	prompt := s.env.Getenv(EnvPrompt)
	if prompt == "" {
		prompt = DefaultPrompt
	}
	prompt = strings.ReplaceAll(prompt, `\u`, s.env.Getenv(EnvUser))
	prompt = strings.ReplaceAll(prompt, `\h`, s.env.Getenv(EnvHostname))

	pwd := s.cwd
	home := s.env.Getenv(EnvHome)
	if home != "" && strings.HasPrefix(pwd, home) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}
	prompt = strings.ReplaceAll(prompt, `\w`, pwd)

	marker := "$"
	if s.env.Getenv(EnvUser) == "root" {
		marker = "#"
	}
	return strings.ReplaceAll(prompt, `\$`, marker)
}

// RunCommand dispatches one command line: arithmetic commands,
// assignments, functions, builtins, then external binaries. It implements
// the engine's CommandRunner.
func (s *Shell) RunCommand(line string) (int, error) {
	if s.Stopped() {
		return 130, interp.ErrStopped
	}

	line, heredoc := splitHeredoc(line)
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return s.lastExit, nil
	}

	// (( expr )) arithmetic command: exit 0 iff the value is nonzero.
	if strings.HasPrefix(line, "((") && strings.HasSuffix(line, "))") {
		return s.runArithCommand(line[2 : len(line)-2])
	}

	if code, ok, err := s.runAssignment(line); ok {
		return s.finish(code, err)
	}

	// Expand before tokenizing so substitutions containing spaces stay
	// intact, then let shlex handle quoting and word splits.
	expanded, err := s.Expand(line)
	if err != nil {
		fmt.Fprintf(s.stderr, "den: %v\n", err)
		return s.finish(1, nil)
	}
	tokens, err := shlex.Split(markEmptyWords(expanded), true)
	if err != nil {
		fmt.Fprintf(s.stderr, "den: syntax error: %v\n", err)
		return s.finish(2, nil)
	}
	for i, tok := range tokens {
		tokens[i] = strings.ReplaceAll(tok, emptyWordMark, "")
	}
	if len(tokens) == 0 {
		return s.lastExit, nil
	}

	name, args := tokens[0], tokens[1:]

	if _, ok := s.engine.Functions().Lookup(name); ok {
		code, err := s.engine.CallFunction(name, args)
		if errors.Is(err, interp.ErrCallStackOverflow) || errors.Is(err, interp.ErrTooManyPositionals) {
			fmt.Fprintf(s.stderr, "den: %v\n", err)
			return s.finish(code, nil)
		}
		return s.finish(code, err)
	}

	if builtin, ok := builtins[name]; ok {
		code := builtin(s, args)
		if s.exitRequested {
			return s.finish(code, interp.ErrExitRequested)
		}
		return s.finish(code, nil)
	}

	return s.finish(s.runExternal(name, args, heredoc))
}

// finish records $? and passes the result through.
func (s *Shell) finish(code int, err error) (int, error) {
	s.lastExit = code
	return code, err
}

// evalArith evaluates an expression with function locals shadowing the
// environment; assignments update an existing local in place.
func (s *Shell) evalArith(expr string) (int64, error) {
	get := func(name string) string { return s.resolveVar(name) }
	set := func(name, value string) {
		if _, ok := s.engine.Functions().GetLocal(name); ok {
			_ = s.engine.Functions().SetLocal(name, value)
			return
		}
		s.env.Setenv(name, value)
	}
	return evalArithScoped(get, set, expr)
}

func (s *Shell) runArithCommand(expr string) (int, error) {
	value, err := s.evalArith(strings.TrimSpace(expr))
	if err != nil {
		fmt.Fprintf(s.stderr, "den: %v\n", err)
		return s.finish(1, nil)
	}
	if value != 0 {
		return s.finish(0, nil)
	}
	return s.finish(1, nil)
}

// runAssignment handles name=value, name+=value, name=(a b c) and
// name[i]=value statements. Reports ok=false when line is not an
// assignment.
func (s *Shell) runAssignment(line string) (code int, ok bool, err error) {
	if m := indexAssignRegex.FindStringSubmatch(line); m != nil {
		name, subscript, raw := m[1], m[2], m[3]
		if hasTopLevelSpace(raw) {
			return 0, false, nil
		}
		value, err := s.Expand(stripQuotes(raw))
		if err != nil {
			return 1, true, nil
		}
		key, err := s.Expand(subscript)
		if err != nil {
			return 1, true, nil
		}
		if idx, convErr := strconv.Atoi(key); convErr == nil {
			s.env.SetArrayElement(name, idx, value)
		} else {
			s.env.SetAssocElement(name, key, value)
		}
		return 0, true, nil
	}

	m := assignRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, false, nil
	}
	name, appendOp, raw := m[1], m[2] == "+", m[3]

	// Array literal: name=(a b c), items expanded and word-split.
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		var values []string
		items, err := shlex.Split(strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")"), true)
		if err != nil {
			fmt.Fprintf(s.stderr, "den: syntax error: %v\n", err)
			return 2, true, nil
		}
		for _, item := range items {
			expanded, err := s.Expand(item)
			if err != nil {
				return 1, true, nil
			}
			values = append(values, expanded)
		}
		if appendOp {
			prev, _ := s.env.GetArray(name)
			values = append(prev, values...)
		}
		s.env.SetArray(name, values)
		return 0, true, nil
	}

	// A bare word with spaces is a command, not an assignment value;
	// spaces inside quotes or substitutions are part of the value.
	if hasTopLevelSpace(raw) {
		return 0, false, nil
	}

	value, expErr := s.Expand(stripQuotes(raw))
	if expErr != nil {
		return 1, true, nil
	}
	if appendOp {
		value = s.env.Getenv(name) + value
	}
	s.env.Setenv(name, value)
	return 0, true, nil
}

// runExternal executes a binary with the shell's environment. Heredoc
// text, when present, becomes the process's stdin.
func (s *Shell) runExternal(name string, args []string, heredoc string) (int, error) {
	if s.noExec {
		fmt.Fprintf(s.stderr, "den: %s: command not found\n", name)
		return 127, nil
	}

	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Fprintf(s.stderr, "den: %s: command not found\n", name)
		return 127, nil
	}

	cmd := exec.Command(path, args...)
	cmd.Env = s.env.Environ()
	cmd.Dir = s.cwd
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	if heredoc != "" {
		cmd.Stdin = strings.NewReader(heredoc)
	} else {
		cmd.Stdin = s.stdin
	}

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		fmt.Fprintf(s.stderr, "den: %s: %v\n", name, err)
		return 126, nil
	}
	return 0, nil
}

// Capture runs a command line with stdout redirected into a buffer, for
// $(...) substitution. Trailing newlines are trimmed like sh does.
func (s *Shell) Capture(line string) (string, int, error) {
	var buf strings.Builder
	prev := s.stdout
	s.stdout = &buf
	defer func() { s.stdout = prev }()

	code, err := s.RunCommand(line)
	return strings.TrimRight(buf.String(), "\n"), code, err
}

// Chdir changes the working directory after checking it exists.
func (s *Shell) Chdir(dir string) error {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.cwd, dir)
	}
	dir = filepath.Clean(dir)
	ok, err := afero.DirExists(s.fs, dir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: No such file or directory", dir)
	}
	s.cwd = dir
	s.env.Setenv(EnvPWD, dir)
	return nil
}

// splitHeredoc separates a heredoc block dispatched as a single unit into
// the command line and its input text.
func splitHeredoc(line string) (cmd, input string) {
	nl := strings.IndexByte(line, '\n')
	if nl < 0 {
		return line, ""
	}
	cmd = heredocOpRegex.ReplaceAllString(line[:nl], "")
	rest := strings.Split(line[nl+1:], "\n")
	if len(rest) > 0 {
		// Drop the delimiter line.
		rest = rest[:len(rest)-1]
	}
	if len(rest) == 0 {
		return cmd, ""
	}
	return cmd, strings.Join(rest, "\n") + "\n"
}

// emptyWordMark stands in for a quoted empty word so the tokenizer cannot
// drop it. NUL never appears in command input.
const emptyWordMark = "\x00"

// markEmptyWords replaces every '' and "" pair sitting outside the other
// quote type with emptyWordMark. Without the marker shlex silently deletes
// quoted empty arguments, e.g. in [ -n '' ].
func markEmptyWords(line string) string {
	var b strings.Builder
	inSingle, inDouble := false, false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && !inSingle && i+1 < len(line):
			b.WriteByte(c)
			i++
			b.WriteByte(line[i])
		case c == '\'' && !inDouble:
			if !inSingle && i+1 < len(line) && line[i+1] == '\'' {
				b.WriteString(emptyWordMark)
				i++
				continue
			}
			inSingle = !inSingle
			b.WriteByte(c)
		case c == '"' && !inSingle:
			if !inDouble && i+1 < len(line) && line[i+1] == '"' {
				b.WriteString(emptyWordMark)
				i++
				continue
			}
			inDouble = !inDouble
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// hasTopLevelSpace reports whether s contains whitespace outside quotes,
// parens and braces.
func hasTopLevelSpace(s string) bool {
	inSingle, inDouble := false, false
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inSingle:
			inSingle = c != '\''
		case inDouble:
			inDouble = c != '"'
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '(' || c == '{':
			depth++
		case c == ')' || c == '}':
			if depth > 0 {
				depth--
			}
		case (c == ' ' || c == '\t') && depth == 0:
			return true
		}
	}
	return false
}

func isQuoted(s string) bool {
	return len(s) >= 2 &&
		((s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"'))
}

func stripQuotes(s string) string {
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}
