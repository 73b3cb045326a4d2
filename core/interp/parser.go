package interp

import (
	"fmt"
	"regexp"
	"strings"
)

// ControlFlowParser turns canonical script lines into statement nodes.
// Every Parse method scans forward from start and returns the node plus the
// index of the construct's terminating keyword line.
type ControlFlowParser struct {
	limits Limits
}

func NewControlFlowParser(limits Limits) *ControlFlowParser {
	return &ControlFlowParser{limits: limits.withDefaults()}
}

func (p *ControlFlowParser) appendBody(body []string, line string) ([]string, error) {
	if len(body) >= p.limits.MaxBodyLines {
		return nil, ErrTooManyBodyLines
	}
	return append(body, line), nil
}

func isLoopHeaderLine(line string) bool {
	switch controlKeyword(line) {
	case "while", "until", "for", "cfor", "select":
		return true
	}
	return false
}

// ParseIf parses if/elif/else/fi. Elif bodies are collected per clause,
// symmetric with then and else handling.
func (p *ControlFlowParser) ParseIf(lines []string, start int) (*IfStatement, int, error) {
	cond := strings.TrimSpace(strings.TrimPrefix(lines[start], "if"))
	if cond == "" || cond == lines[start] {
		return nil, 0, fmt.Errorf("%w: missing condition", ErrInvalidIf)
	}
	st := &IfStatement{Condition: cond}

	const (
		inThen = iota
		inElif
		inElse
	)
	section := inThen
	depth := 1

	appendTo := func(line string) error {
		var err error
		switch section {
		case inThen:
			st.ThenBody, err = p.appendBody(st.ThenBody, line)
		case inElif:
			clause := &st.ElifClauses[len(st.ElifClauses)-1]
			clause.Body, err = p.appendBody(clause.Body, line)
		case inElse:
			st.ElseBody, err = p.appendBody(st.ElseBody, line)
		}
		return err
	}

	for i := start + 1; i < len(lines); i++ {
		line := lines[i]
		switch {
		case line == "fi":
			depth--
			if depth == 0 {
				return st, i, nil
			}
			if err := appendTo(line); err != nil {
				return nil, 0, err
			}
		case controlKeyword(line) == "if":
			depth++
			if err := appendTo(line); err != nil {
				return nil, 0, err
			}
		case depth == 1 && line == "then":
			// Section marker for the main condition or the latest elif.
		case depth == 1 && line == "else":
			section = inElse
		case depth == 1 && (line == "elif" || strings.HasPrefix(line, "elif ")):
			elifCond := strings.TrimSpace(strings.TrimPrefix(line, "elif"))
			if elifCond == "" {
				return nil, 0, fmt.Errorf("%w: elif missing condition", ErrInvalidIf)
			}
			if len(st.ElifClauses) >= p.limits.MaxElifClauses {
				return nil, 0, ErrTooManyElifClauses
			}
			st.ElifClauses = append(st.ElifClauses, ElifClause{Condition: elifCond})
			section = inElif
		default:
			if err := appendTo(line); err != nil {
				return nil, 0, err
			}
		}
	}
	return nil, 0, fmt.Errorf("%w: missing fi", ErrInvalidIf)
}

// collectLoopBody gathers body lines between the optional do marker and the
// matching done, tracking nested loop depth.
func (p *ControlFlowParser) collectLoopBody(lines []string, idx int, sentinel error) (body []string, end int, err error) {
	depth := 1
	sawDo := false
	for i := idx; i < len(lines); i++ {
		line := lines[i]
		switch {
		case line == "do" && depth == 1 && !sawDo:
			sawDo = true
		case line == "done":
			depth--
			if depth == 0 {
				return body, i, nil
			}
			if body, err = p.appendBody(body, line); err != nil {
				return nil, 0, err
			}
		case isLoopHeaderLine(line):
			depth++
			if body, err = p.appendBody(body, line); err != nil {
				return nil, 0, err
			}
		default:
			if body, err = p.appendBody(body, line); err != nil {
				return nil, 0, err
			}
		}
	}
	return nil, 0, fmt.Errorf("%w: missing done", sentinel)
}

// ParseWhile parses while and until loops; until is the same construct
// with an inverted condition.
func (p *ControlFlowParser) ParseWhile(lines []string, start int, isUntil bool) (*WhileLoop, int, error) {
	kw := "while"
	if isUntil {
		kw = "until"
	}
	cond := strings.TrimSpace(strings.TrimPrefix(lines[start], kw))
	if cond == "" || cond == lines[start] {
		return nil, 0, fmt.Errorf("%w: missing condition", ErrInvalidWhile)
	}
	body, end, err := p.collectLoopBody(lines, start+1, ErrInvalidWhile)
	if err != nil {
		return nil, 0, err
	}
	return &WhileLoop{Condition: cond, Body: body, IsUntil: isUntil}, end, nil
}

var nameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseFor parses "for VAR in ITEM...". Items are whitespace tokens;
// array-expansion items are resolved when the loop runs, not here.
func (p *ControlFlowParser) ParseFor(lines []string, start int) (*ForLoop, int, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(lines[start], "for"))
	variable, tail := firstWord(rest)
	if !nameRegexp.MatchString(variable) {
		return nil, 0, fmt.Errorf("%w: bad loop variable %q", ErrInvalidFor, variable)
	}
	inWord, itemText := firstWord(tail)
	if inWord != "in" {
		return nil, 0, fmt.Errorf("%w: missing in", ErrInvalidFor)
	}
	items := strings.Fields(itemText)
	if len(items) > p.limits.MaxItems {
		return nil, 0, ErrTooManyItems
	}
	body, end, err := p.collectLoopBody(lines, start+1, ErrInvalidFor)
	if err != nil {
		return nil, 0, err
	}
	return &ForLoop{Variable: variable, Items: items, Body: body}, end, nil
}

// ParseCStyleFor parses "for ((init; cond; update))". Each clause may be
// empty. The header may span multiple lines.
func (p *ControlFlowParser) ParseCStyleFor(lines []string, start int) (*CStyleForLoop, int, error) {
	header := lines[start]
	open := strings.Index(header, "((")
	if open < 0 {
		return nil, 0, fmt.Errorf("%w: missing ((", ErrInvalidFor)
	}
	i := start
	for !strings.Contains(header, "))") {
		i++
		if i >= len(lines) {
			return nil, 0, fmt.Errorf("%w: unmatched ((", ErrInvalidFor)
		}
		header += " " + lines[i]
	}
	inner := header[open+2:]
	closeIdx := strings.LastIndex(inner, "))")
	inner = inner[:closeIdx]

	parts := strings.Split(inner, ";")
	if len(parts) != 3 {
		return nil, 0, fmt.Errorf("%w: want three clauses, got %d", ErrInvalidFor, len(parts))
	}
	loop := &CStyleForLoop{
		Init:      strings.TrimSpace(parts[0]),
		Condition: strings.TrimSpace(parts[1]),
		Update:    strings.TrimSpace(parts[2]),
	}
	body, end, err := p.collectLoopBody(lines, i+1, ErrInvalidFor)
	if err != nil {
		return nil, 0, err
	}
	loop.Body = body
	return loop, end, nil
}

// ParseSelect parses "select VAR in ITEM...".
func (p *ControlFlowParser) ParseSelect(lines []string, start int) (*SelectMenu, int, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(lines[start], "select"))
	variable, tail := firstWord(rest)
	if !nameRegexp.MatchString(variable) {
		return nil, 0, fmt.Errorf("%w: bad menu variable %q", ErrInvalidSelect, variable)
	}
	inWord, itemText := firstWord(tail)
	if inWord != "in" {
		return nil, 0, fmt.Errorf("%w: missing in", ErrInvalidSelect)
	}
	items := strings.Fields(itemText)
	if len(items) > p.limits.MaxItems {
		return nil, 0, ErrTooManyItems
	}
	body, end, err := p.collectLoopBody(lines, start+1, ErrInvalidSelect)
	if err != nil {
		return nil, 0, err
	}
	return &SelectMenu{Variable: variable, Items: items, Body: body, Prompt: DefaultSelectPrompt}, end, nil
}

var caseHeaderRegexp = regexp.MustCompile(`^case\s+(.+?)\s+in(?:\s+(.*))?$`)

// ParseCase parses a case statement. Pattern lines take the form
// "pat1|pat2) body" with the clause terminated by ";;", ";&" or ";;&".
// The final clause may rely on esac as an implicit normal terminator.
func (p *ControlFlowParser) ParseCase(lines []string, start int) (*CaseStatement, int, error) {
	m := caseHeaderRegexp.FindStringSubmatch(lines[start])
	if m == nil {
		return nil, 0, fmt.Errorf("%w: want case VALUE in", ErrInvalidCase)
	}
	st := &CaseStatement{Value: m[1]}

	// A clause may start on the header line itself.
	pending := []string{}
	if rem := strings.TrimSpace(m[2]); rem != "" {
		pending = append(pending, rem)
	}

	var clause *CaseClause
	nestedCase := 0

	closeClause := func(term CaseTerminator) error {
		if clause == nil {
			return fmt.Errorf("%w: terminator without pattern", ErrInvalidCase)
		}
		if len(st.Cases) >= p.limits.MaxCaseClauses {
			return ErrTooManyCaseClauses
		}
		clause.Terminator = term
		st.Cases = append(st.Cases, *clause)
		clause = nil
		return nil
	}

	i := start
	for {
		var line string
		if len(pending) > 0 {
			line = pending[0]
			pending = pending[1:]
		} else {
			i++
			if i >= len(lines) {
				return nil, 0, fmt.Errorf("%w: missing esac", ErrInvalidCase)
			}
			line = lines[i]
		}
		if line == "" {
			continue
		}

		if nestedCase > 0 {
			// Inside a nested case statement: pass everything through.
			switch controlKeyword(line) {
			case "case":
				nestedCase++
			}
			if line == "esac" {
				nestedCase--
			}
			var err error
			if clause.Body, err = p.appendBody(clause.Body, line); err != nil {
				return nil, 0, err
			}
			continue
		}

		if line == "esac" {
			if clause != nil {
				if err := closeClause(TermNormal); err != nil {
					return nil, 0, err
				}
			}
			return st, i, nil
		}

		if clause == nil {
			// Expect a pattern line.
			patterns, remainder, err := p.parsePatternLine(line)
			if err != nil {
				return nil, 0, err
			}
			clause = &CaseClause{Patterns: patterns}
			if remainder != "" {
				pending = append([]string{remainder}, pending...)
			}
			continue
		}

		// Body mode.
		if term, rest, ok := detectTerminator(line); ok {
			if rest != "" {
				var err error
				if clause.Body, err = p.appendBody(clause.Body, rest); err != nil {
					return nil, 0, err
				}
			}
			if err := closeClause(term); err != nil {
				return nil, 0, err
			}
			continue
		}
		if controlKeyword(line) == "case" {
			nestedCase++
		}
		var err error
		if clause.Body, err = p.appendBody(clause.Body, line); err != nil {
			return nil, 0, err
		}
	}
}

// parsePatternLine splits "pat1|pat2) trailing body" into its patterns and
// whatever body text shares the line.
func (p *ControlFlowParser) parsePatternLine(line string) (patterns []string, remainder string, err error) {
	idx := indexUnquoted(line, ')')
	if idx < 0 {
		return nil, "", fmt.Errorf("%w: expected pattern terminated by ), got %q", ErrInvalidCase, line)
	}
	patText := strings.TrimSpace(line[:idx])
	patText = strings.TrimPrefix(patText, "(")
	for _, pat := range strings.Split(patText, "|") {
		pat = strings.TrimSpace(pat)
		if pat == "" {
			continue
		}
		if len(patterns) >= p.limits.MaxPatterns {
			return nil, "", ErrTooManyPatterns
		}
		patterns = append(patterns, pat)
	}
	if len(patterns) == 0 {
		return nil, "", fmt.Errorf("%w: empty pattern list", ErrInvalidCase)
	}
	return patterns, strings.TrimSpace(line[idx+1:]), nil
}

// detectTerminator checks a line's trailing case terminator. Candidates are
// tested longest-first so ";;&" is never misread as ";;" followed by "&".
func detectTerminator(line string) (term CaseTerminator, rest string, ok bool) {
	for _, cand := range []struct {
		text string
		term CaseTerminator
	}{
		{";;&", TermContinueTesting},
		{";&", TermFallthrough},
		{";;", TermNormal},
	} {
		if strings.HasSuffix(line, cand.text) {
			rest = strings.TrimSpace(strings.TrimSuffix(line, cand.text))
			return cand.term, rest, true
		}
	}
	return 0, "", false
}

// indexUnquoted finds the first unquoted occurrence of c.
func indexUnquoted(s string, c byte) int {
	inSingle, inDouble := false, false
	for i := 0; i < len(s); i++ {
		switch {
		case inSingle:
			inSingle = s[i] != '\''
		case inDouble:
			inDouble = s[i] != '"'
		case s[i] == '\'':
			inSingle = true
		case s[i] == '"':
			inDouble = true
		case s[i] == c:
			return i
		}
	}
	return -1
}
