// Package interp implements Den Shell's scripting engine: parsing and
// execution of control flow constructs, function definitions with a bounded
// call stack, and cached script loading. The engine is single threaded and
// synchronous; every condition and body line is routed through the host
// shell's command dispatcher.
package interp

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// CommandRunner dispatches one command line to the host shell: builtins,
// functions, external processes and pipelines all route through it. The
// returned code is the command's exit code.
type CommandRunner interface {
	RunCommand(line string) (int, error)
}

// Environ is the shared variable store mutated in place for loop-variable
// and REPLY bindings.
type Environ interface {
	Getenv(key string) string
	LookupEnv(key string) (string, bool)
	Setenv(key, value string)
	Unsetenv(key string)
}

// Expander performs variable, array and command substitution on an
// expression string.
type Expander interface {
	Expand(text string) (string, error)
}

// Options configures a new Engine. Runner, Env and Expander are required.
type Options struct {
	Runner   CommandRunner
	Env      Environ
	Expander Expander

	// ErrExit reports the shell-wide errexit flag. The engine reads it,
	// never mutates it.
	ErrExit func() bool
	// Stopped reports the externally set stop flag, checked between
	// executed lines and loop iterations.
	Stopped func() bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Limits Limits
}

// Engine ties the control flow parser and executor to a host shell.
type Engine struct {
	runner   CommandRunner
	env      Environ
	expander Expander
	errExit  func() bool
	stopped  func() bool

	stdin  *bufio.Reader
	stdout io.Writer
	stderr io.Writer

	limits Limits
	parser *ControlFlowParser
	exec   *ControlFlowExecutor
	funcs  *FunctionManager

	scriptParams []string
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		runner:   opts.Runner,
		env:      opts.Env,
		expander: opts.Expander,
		errExit:  opts.ErrExit,
		stopped:  opts.Stopped,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
		limits:   opts.Limits.withDefaults(),
	}
	if e.errExit == nil {
		e.errExit = func() bool { return false }
	}
	if e.stopped == nil {
		e.stopped = func() bool { return false }
	}
	if opts.Stdin == nil {
		opts.Stdin = strings.NewReader("")
	}
	// Reuse the caller's buffered reader so the host shell and the engine
	// never buffer ahead of each other on the same stream.
	if br, ok := opts.Stdin.(*bufio.Reader); ok {
		e.stdin = br
	} else {
		e.stdin = bufio.NewReader(opts.Stdin)
	}
	if e.stdout == nil {
		e.stdout = os.Stdout
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}
	e.parser = NewControlFlowParser(e.limits)
	e.exec = &ControlFlowExecutor{eng: e}
	e.funcs = newFunctionManager(e)
	return e
}

// Functions exposes the engine's function manager.
func (e *Engine) Functions() *FunctionManager { return e.funcs }

// Limits returns the engine's active bounds.
func (e *Engine) Limits() Limits { return e.limits }

// SetScriptParams binds $0..$n for a script run, returning the previous
// binding so callers can restore it.
func (e *Engine) SetScriptParams(params []string) (prev []string) {
	prev = e.scriptParams
	e.scriptParams = params
	return prev
}

// ScriptParam returns the script-scope positional parameter i, used when no
// function frame is active.
func (e *Engine) ScriptParam(i int) (string, bool) {
	if i < 0 || i >= len(e.scriptParams) {
		return "", false
	}
	return e.scriptParams[i], true
}

// ScriptParamCount counts script-scope positional parameters, excluding $0.
func (e *Engine) ScriptParamCount() int {
	if len(e.scriptParams) == 0 {
		return 0
	}
	return len(e.scriptParams) - 1
}

// ShiftScriptParams drops the first n positional parameters, keeping $0.
func (e *Engine) ShiftScriptParams(n int) bool {
	if n < 0 || n > len(e.scriptParams)-1 {
		return false
	}
	e.scriptParams = append(e.scriptParams[:1:1], e.scriptParams[1+n:]...)
	return true
}

// Execute normalizes and runs a block of shell text, e.g. one REPL
// submission. Break and continue signals that escape the block are
// discarded; a return signal yields its code.
func (e *Engine) Execute(text string) (int, error) {
	lines, _ := normalizeLines(strings.Split(text, "\n"))
	code, sig, err := e.executeLines(lines)
	if err != nil {
		return code, err
	}
	if sig.kind == sigReturn {
		return sig.code, nil
	}
	return code, nil
}

// CallFunction invokes a defined function with the given arguments.
func (e *Engine) CallFunction(name string, args []string) (int, error) {
	return e.funcs.ExecuteFunction(name, args)
}

func (e *Engine) expand(text string) string {
	if e.expander == nil {
		return text
	}
	out, err := e.expander.Expand(text)
	if err != nil {
		return text
	}
	return out
}

// executeLines is the engine's inner dispatch loop. It runs canonical
// statements in order, recognizing loop jumps, function definitions,
// control flow headers and heredocs; everything else goes to the command
// runner. The body aborts early when errexit is set and the last command
// failed, or when a return is pending on the current call frame.
func (e *Engine) executeLines(lines []string) (int, flowSignal, error) {
	exit := 0
	for i := 0; i < len(lines); i++ {
		if e.stopped() {
			return exit, noSignal(), ErrStopped
		}
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if kw, level, ok := parseLoopJump(line); ok {
			if kw == "break" {
				return exit, breakSignal(level), nil
			}
			return exit, continueSignal(level), nil
		}

		if isFunctionDef(line) {
			fn, end, err := ParseFunction(lines, i)
			if err != nil {
				return 1, noSignal(), err
			}
			e.funcs.DefineFunction(fn)
			i = end
			continue
		}

		if kw := controlKeyword(line); kw != "" {
			code, end, sig, err := e.runControl(kw, lines, i)
			exit = code
			if err != nil {
				return exit, noSignal(), err
			}
			if sig.kind != sigNone {
				return exit, sig, nil
			}
			i = end
			if e.errExit() && exit != 0 {
				return exit, noSignal(), nil
			}
			continue
		}

		if delim, strip, ok := heredocIntro(line); ok {
			block, end, err := collectHeredoc(lines, i, delim, strip)
			if err != nil {
				return 1, noSignal(), err
			}
			i = end
			code, err := e.runner.RunCommand(block)
			exit = code
			if err != nil {
				return exit, noSignal(), err
			}
		} else {
			code, err := e.runner.RunCommand(line)
			exit = code
			switch {
			case errors.Is(err, ErrExitRequested), errors.Is(err, ErrStopped):
				return exit, noSignal(), err
			case err != nil && exit == 0:
				// Failure to start a command counts as a plain failure.
				exit = 1
			}
		}

		if code, ok := e.funcs.pendingReturn(); ok {
			return code, returnSignal(code), nil
		}
		if e.errExit() && exit != 0 {
			return exit, noSignal(), nil
		}
	}
	return exit, noSignal(), nil
}

// runControl parses the construct headed at lines[i] and executes it,
// returning its exit code and the index of its terminating keyword.
func (e *Engine) runControl(kw string, lines []string, i int) (code, end int, sig flowSignal, err error) {
	switch kw {
	case "if":
		st, stEnd, perr := e.parser.ParseIf(lines, i)
		if perr != nil {
			return 1, 0, noSignal(), perr
		}
		code, sig, err = e.exec.ExecuteIf(st)
		end = stEnd
	case "while", "until":
		st, stEnd, perr := e.parser.ParseWhile(lines, i, kw == "until")
		if perr != nil {
			return 1, 0, noSignal(), perr
		}
		code, sig, err = e.exec.ExecuteWhile(st)
		end = stEnd
	case "for":
		st, stEnd, perr := e.parser.ParseFor(lines, i)
		if perr != nil {
			return 1, 0, noSignal(), perr
		}
		code, sig, err = e.exec.ExecuteFor(st)
		end = stEnd
	case "cfor":
		st, stEnd, perr := e.parser.ParseCStyleFor(lines, i)
		if perr != nil {
			return 1, 0, noSignal(), perr
		}
		code, sig, err = e.exec.ExecuteCStyleFor(st)
		end = stEnd
	case "select":
		st, stEnd, perr := e.parser.ParseSelect(lines, i)
		if perr != nil {
			return 1, 0, noSignal(), perr
		}
		code, sig, err = e.exec.ExecuteSelect(st)
		end = stEnd
	case "case":
		st, stEnd, perr := e.parser.ParseCase(lines, i)
		if perr != nil {
			return 1, 0, noSignal(), perr
		}
		code, sig, err = e.exec.ExecuteCase(st)
		end = stEnd
	}
	return code, end, sig, err
}
