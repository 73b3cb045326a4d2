package shell

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Expand performs parameter, array, command and arithmetic substitution on
// text, implementing the engine's Expander interface. Single-quoted
// regions pass through untouched and a backslash escapes "$".
func (s *Shell) Expand(text string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\\' && i+1 < len(text) && text[i+1] == '$':
			out.WriteByte('$')
			i += 2
		case c == '\'':
			end := strings.IndexByte(text[i+1:], '\'')
			if end < 0 {
				out.WriteString(text[i:])
				return out.String(), nil
			}
			out.WriteString(text[i : i+end+2])
			i += end + 2
		case c == '$':
			consumed, value, err := s.expandDollar(text[i:])
			if err != nil {
				return "", err
			}
			if consumed == 0 {
				out.WriteByte(c)
				i++
				continue
			}
			out.WriteString(value)
			i += consumed
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), nil
}

// expandDollar resolves the substitution starting at text[0] == '$',
// returning how many bytes it consumed.
func (s *Shell) expandDollar(text string) (consumed int, value string, err error) {
	if len(text) < 2 {
		return 0, "", nil
	}

	switch {
	case strings.HasPrefix(text, "$(("):
		inner, total, ok := matchedRegion(text[1:], "((", "))")
		if !ok {
			return 0, "", fmt.Errorf("unterminated $(( in %q", text)
		}
		n, err := s.evalArith(inner)
		if err != nil {
			return 0, "", err
		}
		return total + 1, strconv.FormatInt(n, 10), nil

	case strings.HasPrefix(text, "$("):
		inner, total, ok := matchedRegion(text[1:], "(", ")")
		if !ok {
			return 0, "", fmt.Errorf("unterminated $( in %q", text)
		}
		captured, _, err := s.Capture(inner)
		if err != nil {
			return 0, "", err
		}
		return total + 1, captured, nil

	case strings.HasPrefix(text, "${"):
		inner, total, ok := matchedRegion(text[1:], "{", "}")
		if !ok {
			return 0, "", fmt.Errorf("unterminated ${ in %q", text)
		}
		value, err := s.expandBraced(inner)
		if err != nil {
			return 0, "", err
		}
		return total + 1, value, nil
	}

	rest := text[1:]
	switch rest[0] {
	case '?':
		return 2, strconv.Itoa(s.lastExit), nil
	case '$':
		return 2, strconv.Itoa(os.Getpid()), nil
	case '#':
		return 2, strconv.Itoa(s.positionalCount()), nil
	case '@', '*':
		return 2, strings.Join(s.positionals(), " "), nil
	}
	if rest[0] >= '0' && rest[0] <= '9' {
		return 2, s.positional(int(rest[0] - '0')), nil
	}

	name := leadingName(rest)
	if name == "" {
		return 0, "", nil
	}
	return len(name) + 1, s.resolveVar(name), nil
}

// expandBraced handles the ${...} forms: plain names, ${#name} length,
// subscripts and ${name:-default}.
func (s *Shell) expandBraced(inner string) (string, error) {
	if inner == "" {
		return "", nil
	}

	if strings.HasPrefix(inner, "#") {
		target := inner[1:]
		if name, sub, ok := splitSubscript(target); ok && (sub == "@" || sub == "*") {
			values, _ := s.env.GetArray(name)
			return strconv.Itoa(len(values)), nil
		}
		return strconv.Itoa(len(s.resolveVar(target))), nil
	}

	if idx := strings.Index(inner, ":-"); idx >= 0 {
		name := inner[:idx]
		if value := s.resolveVar(name); value != "" {
			return value, nil
		}
		return s.Expand(inner[idx+2:])
	}

	if name, sub, ok := splitSubscript(inner); ok {
		switch sub {
		case "@", "*":
			values, _ := s.env.GetArray(name)
			return strings.Join(values, " "), nil
		default:
			key, err := s.Expand(sub)
			if err != nil {
				return "", err
			}
			if idx, convErr := strconv.Atoi(key); convErr == nil {
				value, _ := s.env.ArrayElement(name, idx)
				return value, nil
			}
			value, _ := s.env.AssocElement(name, key)
			return value, nil
		}
	}

	return s.resolveVar(inner), nil
}

// resolveVar reads a scalar: function locals shadow the environment, and
// bare digits reach positional parameters.
func (s *Shell) resolveVar(name string) string {
	if n, err := strconv.Atoi(name); err == nil {
		return s.positional(n)
	}
	if value, ok := s.engine.Functions().GetLocal(name); ok {
		return value
	}
	return s.env.Getenv(name)
}

// positional resolves $n against the active function frame, falling back
// to script parameters.
func (s *Shell) positional(n int) string {
	if _, inFunc := s.engine.Functions().CurrentFunction(); inFunc {
		value, _ := s.engine.Functions().GetPositionalParam(n)
		return value
	}
	if value, ok := s.engine.ScriptParam(n); ok {
		return value
	}
	return ""
}

func (s *Shell) positionalCount() int {
	if count, ok := s.engine.Functions().PositionalCount(); ok {
		return count
	}
	return s.engine.ScriptParamCount()
}

func (s *Shell) positionals() []string {
	count := s.positionalCount()
	out := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, s.positional(i))
	}
	return out
}

// matchedRegion returns the text between open and close, tracking nested
// parens or braces, plus the total width including the delimiters.
func matchedRegion(text, open, close string) (inner string, total int, ok bool) {
	if !strings.HasPrefix(text, open) {
		return "", 0, false
	}
	depth := 0
	for i := len(open); i < len(text); i++ {
		switch text[i] {
		case open[0]:
			depth++
		case close[0]:
			if depth > 0 {
				depth--
				continue
			}
			if strings.HasPrefix(text[i:], close) {
				return text[len(open):i], i + len(close), true
			}
		}
	}
	return "", 0, false
}

func leadingName(s string) string {
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(i > 0 && c >= '0' && c <= '9') {
			i++
			continue
		}
		break
	}
	return s[:i]
}

// splitSubscript splits "name[sub]" into its parts.
func splitSubscript(s string) (name, sub string, ok bool) {
	open := strings.IndexByte(s, '[')
	if open <= 0 || !strings.HasSuffix(s, "]") {
		return "", "", false
	}
	return s[:open], s[open+1 : len(s)-1], true
}
