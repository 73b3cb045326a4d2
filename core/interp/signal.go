package interp

// Break and continue are modeled as explicit control signals returned up
// the executor call chain rather than counters mutated on the side. A
// signal carries the number of enclosing loop levels it still needs to
// unwind; each loop decrements it and either absorbs the signal (level
// reaches zero) or forwards it to the next enclosing loop.
type signalKind int

const (
	sigNone signalKind = iota
	sigBreak
	sigContinue
	sigReturn
)

type flowSignal struct {
	kind  signalKind
	level int // pending loop levels for break/continue
	code  int // exit code carried by return
}

func noSignal() flowSignal { return flowSignal{} }

func breakSignal(level int) flowSignal {
	if level < 1 {
		level = 1
	}
	return flowSignal{kind: sigBreak, level: level}
}

func continueSignal(level int) flowSignal {
	if level < 1 {
		level = 1
	}
	return flowSignal{kind: sigContinue, level: level}
}

func returnSignal(code int) flowSignal {
	return flowSignal{kind: sigReturn, code: code}
}

// unwind consumes one loop level from a break or continue signal.
// stop reports that this loop must terminate, resume that this loop should
// run its next iteration; if neither, out must be forwarded upward as-is.
func (s flowSignal) unwind() (stop, resume bool, out flowSignal) {
	switch s.kind {
	case sigBreak:
		s.level--
		if s.level <= 0 {
			return true, false, noSignal()
		}
		return true, false, s
	case sigContinue:
		s.level--
		if s.level <= 0 {
			return false, true, noSignal()
		}
		return true, false, s
	case sigReturn:
		return true, false, s
	}
	return false, false, noSignal()
}
