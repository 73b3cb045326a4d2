package interp

import "fmt"

// ValidateScript checks a script's quotes, braces and parens in a single
// left-to-right scan before anything runs. The scan is case-aware: a ")"
// inside a case...esac region is a pattern terminator and must not count
// against paren depth. "${...}" regions are skipped wholesale so their
// contents never disturb the counters, and "#" starts a comment only
// outside quotes and outside brace nesting so "${#var}" is not misread.
func ValidateScript(content string) error {
	inSingle, inDouble := false, false
	braceDepth, parenDepth, caseDepth := 0, 0, 0

	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case c == '\\' && !inSingle:
			i++ // skip the escaped byte
		case inDouble:
			switch c {
			case '"':
				inDouble = false
			case '$':
				if skipped := skipDollarBrace(content, i); skipped > 0 {
					i += skipped
					continue
				}
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '$':
			if skipped := skipDollarBrace(content, i); skipped > 0 {
				i += skipped
				continue
			}
		case c == '#' && braceDepth == 0:
			for i < len(content) && content[i] != '\n' {
				i++
			}
			continue
		case c == '{':
			braceDepth++
		case c == '}':
			braceDepth--
			if braceDepth < 0 {
				return fmt.Errorf("%w: unmatched }", ErrUnbalanced)
			}
		case c == '(':
			parenDepth++
		case c == ')':
			switch {
			case parenDepth > 0:
				parenDepth--
			case caseDepth > 0:
				// Case pattern terminator, not a grouping paren.
			default:
				return fmt.Errorf("%w: unmatched )", ErrUnbalanced)
			}
		default:
			if word, n := wordAt(content, i); n > 0 {
				switch word {
				case "case":
					caseDepth++
				case "esac":
					if caseDepth > 0 {
						caseDepth--
					}
				}
				i += n
				continue
			}
		}
		i++
	}

	switch {
	case inSingle:
		return fmt.Errorf("%w: unmatched single quote", ErrUnbalanced)
	case inDouble:
		return fmt.Errorf("%w: unmatched double quote", ErrUnbalanced)
	case braceDepth != 0:
		return fmt.Errorf("%w: unmatched {", ErrUnbalanced)
	case parenDepth != 0:
		return fmt.Errorf("%w: unmatched (", ErrUnbalanced)
	}
	return nil
}

// skipDollarBrace returns the length of a "${...}" region starting at i,
// tracking nested braces inside it, or 0 when content[i] does not open one.
func skipDollarBrace(content string, i int) int {
	if i+1 >= len(content) || content[i] != '$' || content[i+1] != '{' {
		return 0
	}
	depth := 0
	for j := i + 1; j < len(content); j++ {
		switch content[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j - i + 1
			}
		}
	}
	// Unterminated; let the outer scan flag the brace imbalance.
	return 0
}

// wordAt returns the identifier starting at i when i sits on a word
// boundary, along with its length.
func wordAt(content string, i int) (string, int) {
	if i > 0 && isWordByte(content[i-1]) {
		return "", 0
	}
	j := i
	for j < len(content) && isWordByte(content[j]) {
		j++
	}
	if j == i {
		return "", 0
	}
	return content[i:j], j - i
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
