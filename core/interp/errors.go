package interp

import "errors"

// Syntax errors, reported per construct.
var (
	ErrInvalidIf     = errors.New("invalid if statement")
	ErrInvalidWhile  = errors.New("invalid while loop")
	ErrInvalidFor    = errors.New("invalid for loop")
	ErrInvalidSelect = errors.New("invalid select menu")
	ErrInvalidCase   = errors.New("invalid case statement")
	ErrInvalidFunc   = errors.New("invalid function definition")
)

// Capacity errors. Collections grow dynamically but every one of them
// carries a configurable hard cap; hitting the cap is always an explicit
// error, never silent truncation.
var (
	ErrTooManyBodyLines   = errors.New("too many body lines")
	ErrTooManyItems       = errors.New("too many loop items")
	ErrTooManyElifClauses = errors.New("too many elif clauses")
	ErrTooManyCaseClauses = errors.New("too many case clauses")
	ErrTooManyPatterns    = errors.New("too many case patterns")
	ErrTooManyPositionals = errors.New("too many positional parameters")
	ErrCallStackOverflow  = errors.New("call stack overflow")
	ErrScriptTooLarge     = errors.New("script file too large")
	ErrTooManyLines       = errors.New("too many script lines")
)

// Runtime errors.
var (
	ErrFunctionNotFound = errors.New("function not found")
	ErrNoActiveFrame    = errors.New("no active function call")
	ErrUnbalanced       = errors.New("unbalanced script")

	// ErrExitRequested is returned through RunCommand when the host's exit
	// builtin fired; it unwinds every construct without running more lines.
	ErrExitRequested = errors.New("exit requested")

	// ErrStopped is returned when the externally set stop flag is observed
	// between executed lines or loop iterations.
	ErrStopped = errors.New("execution stopped")
)
