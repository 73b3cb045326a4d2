package shell

import (
	"fmt"
	"strconv"
	"strings"
)

// EvalArith evaluates a shell arithmetic expression against env: integer
// math, comparisons, logical operators, assignments and pre/post
// increment. Unset variables read as 0, matching $(( )) semantics.
func EvalArith(env *Env, expr string) (int64, error) {
	return evalArithScoped(env.Getenv, env.Setenv, expr)
}

// evalArithScoped evaluates with caller-supplied variable access, letting
// the shell route reads and writes through function locals.
func evalArithScoped(get func(string) string, set func(string, string), expr string) (int64, error) {
	toks, err := arithLex(expr)
	if err != nil {
		return 0, err
	}
	p := &arithParser{get: get, set: set, toks: toks}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.toks) {
		return 0, fmt.Errorf("arithmetic: unexpected %q", p.toks[p.pos].text)
	}
	return value, nil
}

type arithToken struct {
	text  string
	isNum bool
	isVar bool
}

var arithOps = []string{
	"<<=", ">>=", "<<", ">>",
	"++", "--", "+=", "-=", "*=", "/=", "%=",
	"&&", "||", "==", "!=", "<=", ">=",
	"+", "-", "*", "/", "%", "(", ")", "<", ">", "=", "!",
}

func arithLex(expr string) ([]arithToken, error) {
	var toks []arithToken
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(expr) && expr[j] >= '0' && expr[j] <= '9' {
				j++
			}
			toks = append(toks, arithToken{text: expr[i:j], isNum: true})
			i = j
		case isVarByte(c):
			j := i
			for j < len(expr) && (isVarByte(expr[j]) || (expr[j] >= '0' && expr[j] <= '9')) {
				j++
			}
			toks = append(toks, arithToken{text: expr[i:j], isVar: true})
			i = j
		case c == '$':
			// $name inside arithmetic reads the same variable.
			i++
		default:
			matched := false
			for _, op := range arithOps {
				if strings.HasPrefix(expr[i:], op) {
					toks = append(toks, arithToken{text: op})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("arithmetic: bad character %q", c)
			}
		}
	}
	return toks, nil
}

func isVarByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

type arithParser struct {
	get  func(string) string
	set  func(string, string)
	toks []arithToken
	pos  int
}

func (p *arithParser) peek() (arithToken, bool) {
	if p.pos >= len(p.toks) {
		return arithToken{}, false
	}
	return p.toks[p.pos], true
}

func (p *arithParser) accept(text string) bool {
	if tok, ok := p.peek(); ok && !tok.isNum && !tok.isVar && tok.text == text {
		p.pos++
		return true
	}
	return false
}

func (p *arithParser) read(name string) int64 {
	n, _ := strconv.ParseInt(p.get(name), 10, 64)
	return n
}

func (p *arithParser) write(name string, value int64) {
	p.set(name, strconv.FormatInt(value, 10))
}

// parseExpr handles assignment, the lowest-precedence form. Assignment
// targets must be bare variable names.
func (p *arithParser) parseExpr() (int64, error) {
	if tok, ok := p.peek(); ok && tok.isVar && p.pos+1 < len(p.toks) {
		op := p.toks[p.pos+1].text
		switch op {
		case "=", "+=", "-=", "*=", "/=", "%=", "<<=", ">>=":
			p.pos += 2
			rhs, err := p.parseExpr()
			if err != nil {
				return 0, err
			}
			value := rhs
			cur := p.read(tok.text)
			switch op {
			case "+=":
				value = cur + rhs
			case "-=":
				value = cur - rhs
			case "*=":
				value = cur * rhs
			case "/=":
				if rhs == 0 {
					return 0, fmt.Errorf("arithmetic: division by zero")
				}
				value = cur / rhs
			case "%=":
				if rhs == 0 {
					return 0, fmt.Errorf("arithmetic: division by zero")
				}
				value = cur % rhs
			case "<<=":
				value = cur << uint(rhs)
			case ">>=":
				value = cur >> uint(rhs)
			}
			p.write(tok.text, value)
			return value, nil
		}
	}
	return p.parseOr()
}

func (p *arithParser) parseOr() (int64, error) {
	left, err := p.parseAnd()
	if err != nil {
		return 0, err
	}
	for p.accept("||") {
		right, err := p.parseAnd()
		if err != nil {
			return 0, err
		}
		left = boolVal(left != 0 || right != 0)
	}
	return left, nil
}

func (p *arithParser) parseAnd() (int64, error) {
	left, err := p.parseEquality()
	if err != nil {
		return 0, err
	}
	for p.accept("&&") {
		right, err := p.parseEquality()
		if err != nil {
			return 0, err
		}
		left = boolVal(left != 0 && right != 0)
	}
	return left, nil
}

func (p *arithParser) parseEquality() (int64, error) {
	left, err := p.parseComparison()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.accept("=="):
			right, err := p.parseComparison()
			if err != nil {
				return 0, err
			}
			left = boolVal(left == right)
		case p.accept("!="):
			right, err := p.parseComparison()
			if err != nil {
				return 0, err
			}
			left = boolVal(left != right)
		default:
			return left, nil
		}
	}
}

func (p *arithParser) parseComparison() (int64, error) {
	left, err := p.parseShift()
	if err != nil {
		return 0, err
	}
	for {
		var cmp func(a, b int64) bool
		switch {
		case p.accept("<="):
			cmp = func(a, b int64) bool { return a <= b }
		case p.accept(">="):
			cmp = func(a, b int64) bool { return a >= b }
		case p.accept("<"):
			cmp = func(a, b int64) bool { return a < b }
		case p.accept(">"):
			cmp = func(a, b int64) bool { return a > b }
		default:
			return left, nil
		}
		right, err := p.parseShift()
		if err != nil {
			return 0, err
		}
		left = boolVal(cmp(left, right))
	}
}

func (p *arithParser) parseShift() (int64, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.accept("<<"):
			right, err := p.parseAdditive()
			if err != nil {
				return 0, err
			}
			left <<= uint(right)
		case p.accept(">>"):
			right, err := p.parseAdditive()
			if err != nil {
				return 0, err
			}
			left >>= uint(right)
		default:
			return left, nil
		}
	}
}

func (p *arithParser) parseAdditive() (int64, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.accept("+"):
			right, err := p.parseMultiplicative()
			if err != nil {
				return 0, err
			}
			left += right
		case p.accept("-"):
			right, err := p.parseMultiplicative()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *arithParser) parseMultiplicative() (int64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.accept("*"):
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.accept("/"):
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("arithmetic: division by zero")
			}
			left /= right
		case p.accept("%"):
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("arithmetic: division by zero")
			}
			left %= right
		default:
			return left, nil
		}
	}
}

func (p *arithParser) parseUnary() (int64, error) {
	switch {
	case p.accept("!"):
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return boolVal(value == 0), nil
	case p.accept("-"):
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	case p.accept("+"):
		return p.parseUnary()
	case p.accept("++"), p.accept("--"):
		// Pre-increment and pre-decrement need a variable operand.
		op := p.toks[p.pos-1].text
		tok, ok := p.peek()
		if !ok || !tok.isVar {
			return 0, fmt.Errorf("arithmetic: %s needs a variable", op)
		}
		p.pos++
		value := p.read(tok.text)
		if op == "++" {
			value++
		} else {
			value--
		}
		p.write(tok.text, value)
		return value, nil
	}
	return p.parsePostfix()
}

func (p *arithParser) parsePostfix() (int64, error) {
	tok, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("arithmetic: unexpected end of expression")
	}

	switch {
	case tok.isNum:
		p.pos++
		return strconv.ParseInt(tok.text, 10, 64)
	case tok.isVar:
		p.pos++
		value := p.read(tok.text)
		// Post-increment and post-decrement yield the old value.
		switch {
		case p.accept("++"):
			p.write(tok.text, value+1)
		case p.accept("--"):
			p.write(tok.text, value-1)
		}
		return value, nil
	case tok.text == "(":
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if !p.accept(")") {
			return 0, fmt.Errorf("arithmetic: missing )")
		}
		return value, nil
	}
	return 0, fmt.Errorf("arithmetic: unexpected %q", tok.text)
}

func boolVal(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
