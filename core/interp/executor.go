package interp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ControlFlowExecutor walks statement nodes, evaluating conditions by
// running commands through the host dispatcher and propagating break,
// continue and return signals between nested constructs.
type ControlFlowExecutor struct {
	eng *Engine
}

// evaluateCondition runs cmd and reports whether it exited 0. A failure to
// even start the command counts as false.
func (x *ControlFlowExecutor) evaluateCondition(cmd string) (bool, error) {
	code, err := x.eng.runner.RunCommand(cmd)
	if err != nil {
		if isFatal(err) {
			return false, err
		}
		return false, nil
	}
	return code == 0, nil
}

func isFatal(err error) bool {
	return errors.Is(err, ErrExitRequested) || errors.Is(err, ErrStopped)
}

// ExecuteIf tests the main condition, then each elif in order, then falls
// back to the else body; with no matching branch the result is 0.
func (x *ControlFlowExecutor) ExecuteIf(st *IfStatement) (int, flowSignal, error) {
	ok, err := x.evaluateCondition(st.Condition)
	if err != nil {
		return 1, noSignal(), err
	}
	if ok {
		return x.eng.executeLines(st.ThenBody)
	}
	for i := range st.ElifClauses {
		clause := &st.ElifClauses[i]
		ok, err := x.evaluateCondition(clause.Condition)
		if err != nil {
			return 1, noSignal(), err
		}
		if ok {
			return x.eng.executeLines(clause.Body)
		}
	}
	if st.ElseBody != nil {
		return x.eng.executeLines(st.ElseBody)
	}
	return 0, noSignal(), nil
}

// ExecuteWhile loops while the condition holds, or until it holds for
// until loops. After each body run pending break, pending continue and
// errexit are checked in that order.
func (x *ControlFlowExecutor) ExecuteWhile(loop *WhileLoop) (int, flowSignal, error) {
	exit := 0
	for {
		if x.eng.stopped() {
			return exit, noSignal(), ErrStopped
		}
		ok, err := x.evaluateCondition(loop.Condition)
		if err != nil {
			return exit, noSignal(), err
		}
		if loop.IsUntil {
			ok = !ok
		}
		if !ok {
			return exit, noSignal(), nil
		}

		code, sig, err := x.eng.executeLines(loop.Body)
		exit = code
		if err != nil {
			return exit, noSignal(), err
		}
		if stop, resume, out := sig.unwind(); stop {
			return exit, out, nil
		} else if resume {
			continue
		}
		if x.eng.errExit() && exit != 0 {
			return exit, noSignal(), nil
		}
	}
}

// expandItems resolves a for/select item list at execution time. Items
// referencing an array subscript expand and word-split into multiple
// iterations; anything else expands to a single value.
func (x *ControlFlowExecutor) expandItems(items []string) ([]string, error) {
	var out []string
	for _, item := range items {
		if isArrayExpansion(item) {
			expanded := x.eng.expand(item)
			for _, field := range strings.Fields(expanded) {
				if len(out) >= x.eng.limits.MaxItems {
					return nil, ErrTooManyItems
				}
				out = append(out, field)
			}
			continue
		}
		if len(out) >= x.eng.limits.MaxItems {
			return nil, ErrTooManyItems
		}
		out = append(out, x.eng.expand(item))
	}
	return out, nil
}

// isArrayExpansion reports whether an item textually references a whole
// array, e.g. ${name[@]} or ${name[*]}.
func isArrayExpansion(item string) bool {
	return strings.HasPrefix(item, "${") &&
		(strings.Contains(item, "[@]}") || strings.Contains(item, "[*]}"))
}

// ExecuteFor binds the loop variable in the shared environment for each
// item and runs the body.
func (x *ControlFlowExecutor) ExecuteFor(loop *ForLoop) (int, flowSignal, error) {
	values, err := x.expandItems(loop.Items)
	if err != nil {
		return 1, noSignal(), err
	}
	exit := 0
	for _, value := range values {
		if x.eng.stopped() {
			return exit, noSignal(), ErrStopped
		}
		x.eng.env.Setenv(loop.Variable, value)

		code, sig, err := x.eng.executeLines(loop.Body)
		exit = code
		if err != nil {
			return exit, noSignal(), err
		}
		if stop, resume, out := sig.unwind(); stop {
			return exit, out, nil
		} else if resume {
			continue
		}
		if x.eng.errExit() && exit != 0 {
			return exit, noSignal(), nil
		}
	}
	return exit, noSignal(), nil
}

// ExecuteCStyleFor runs init once, then loops: test condition (empty means
// true), run body, then run update. A continue still runs the update; a
// break skips it.
func (x *ControlFlowExecutor) ExecuteCStyleFor(loop *CStyleForLoop) (int, flowSignal, error) {
	runClause := func(clause string) error {
		if clause == "" {
			return nil
		}
		_, err := x.eng.runner.RunCommand("((" + clause + "))")
		if isFatal(err) {
			return err
		}
		return nil
	}

	if err := runClause(loop.Init); err != nil {
		return 1, noSignal(), err
	}
	exit := 0
	for {
		if x.eng.stopped() {
			return exit, noSignal(), ErrStopped
		}
		if loop.Condition != "" {
			ok, err := x.evaluateCondition("((" + loop.Condition + "))")
			if err != nil {
				return exit, noSignal(), err
			}
			if !ok {
				return exit, noSignal(), nil
			}
		}

		code, sig, err := x.eng.executeLines(loop.Body)
		exit = code
		if err != nil {
			return exit, noSignal(), err
		}
		if stop, resume, out := sig.unwind(); stop {
			// A break, or a signal still unwinding, skips the update.
			return exit, out, nil
		} else if resume {
			if err := runClause(loop.Update); err != nil {
				return exit, noSignal(), err
			}
			continue
		}
		if x.eng.errExit() && exit != 0 {
			return exit, noSignal(), nil
		}
		if err := runClause(loop.Update); err != nil {
			return exit, noSignal(), err
		}
	}
}

// ExecuteSelect prints the numbered menu once, then prompts for 1-based
// choices, binding the chosen item and REPLY before each body run. EOF on
// input ends the menu.
func (x *ControlFlowExecutor) ExecuteSelect(menu *SelectMenu) (int, flowSignal, error) {
	items, err := x.expandItems(menu.Items)
	if err != nil {
		return 1, noSignal(), err
	}
	for i, item := range items {
		fmt.Fprintf(x.eng.stderr, "%d) %s\n", i+1, item)
	}

	prompt := menu.Prompt
	if ps3 := x.eng.env.Getenv("PS3"); ps3 != "" {
		prompt = ps3
	}

	exit := 0
	for {
		if x.eng.stopped() {
			return exit, noSignal(), ErrStopped
		}
		fmt.Fprint(x.eng.stderr, prompt)
		line, err := x.eng.stdin.ReadString('\n')
		if line == "" && err != nil {
			return exit, noSignal(), nil // EOF ends the menu
		}
		choice := strings.TrimSpace(line)
		if choice == "" {
			continue
		}

		n, convErr := strconv.Atoi(choice)
		if convErr != nil || n < 1 || n > len(items) {
			fmt.Fprintf(x.eng.stderr, "invalid selection: %s\n", choice)
			continue
		}
		x.eng.env.Setenv(menu.Variable, items[n-1])
		x.eng.env.Setenv("REPLY", choice)

		code, sig, bodyErr := x.eng.executeLines(menu.Body)
		exit = code
		if bodyErr != nil {
			return exit, noSignal(), bodyErr
		}
		if stop, _, out := sig.unwind(); stop {
			return exit, out, nil
		}
		if x.eng.errExit() && exit != 0 {
			return exit, noSignal(), nil
		}
	}
}

// ExecuteCase expands the scrutinee once and walks the clauses in order. A
// clause runs when a pattern matches or the previous clause fell through
// with ";&"; after running, ";;" stops, ";&" forces the next clause, and
// ";;&" resumes normal pattern testing.
func (x *ControlFlowExecutor) ExecuteCase(st *CaseStatement) (int, flowSignal, error) {
	value := x.eng.expand(st.Value)
	exit := 0
	forced := false
	for i := range st.Cases {
		clause := &st.Cases[i]
		run := forced
		forced = false
		if !run {
			for _, pat := range clause.Patterns {
				if matchCasePattern(x.eng.expand(pat), value) {
					run = true
					break
				}
			}
		}
		if !run {
			continue
		}

		code, sig, err := x.eng.executeLines(clause.Body)
		exit = code
		if err != nil {
			return exit, noSignal(), err
		}
		if sig.kind != sigNone {
			return exit, sig, nil
		}

		switch clause.Terminator {
		case TermNormal:
			return exit, noSignal(), nil
		case TermFallthrough:
			forced = true
		case TermContinueTesting:
			// Keep pattern-testing subsequent clauses.
		}
		if x.eng.errExit() && exit != 0 {
			return exit, noSignal(), nil
		}
	}
	return exit, noSignal(), nil
}

// matchCasePattern supports exact equality plus bare, leading and trailing
// "*". No other glob syntax.
func matchCasePattern(pattern, value string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(value, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(value, strings.TrimPrefix(pattern, "*"))
	default:
		return pattern == value
	}
}
