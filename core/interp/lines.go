package interp

import (
	"fmt"
	"strings"
)

// Scripts are processed line by line, but shell syntax lets several
// statements share a line ("for i in 1 2 3; do echo $i; done"). Before
// dispatch every raw line is normalized into canonical statements: one
// statement per line, with the do/then/else markers and case terminators
// standing alone. Heredoc blocks pass through verbatim.

// splitStatements splits one raw line on top-level semicolons, keeping
// quoted text, arithmetic parens and ${...} regions intact. Case
// terminators are checked longest-first so ";;&" is never misread as ";;"
// followed by "&".
func splitStatements(line string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	inSingle, inDouble := false, false
	parenDepth, braceDepth := 0, 0
	atWordStart := true

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '(':
			parenDepth++
		case c == ')':
			if parenDepth > 0 {
				parenDepth--
			}
		case c == '{':
			braceDepth++
		case c == '}':
			if braceDepth > 0 {
				braceDepth--
			}
		case c == '#' && atWordStart && parenDepth == 0 && braceDepth == 0:
			// Comment through end of line.
			cur.WriteString(line[i:])
			i = len(line)
			flush()
			return out
		case c == ';' && parenDepth == 0 && braceDepth == 0:
			// Longest terminator first: ";;&" then ";;" then ";&" then ";".
			switch {
			case strings.HasPrefix(line[i:], ";;&"):
				flush()
				out = append(out, ";;&")
				i += 2
			case strings.HasPrefix(line[i:], ";;"):
				flush()
				out = append(out, ";;")
				i++
			case strings.HasPrefix(line[i:], ";&"):
				flush()
				out = append(out, ";&")
				i++
			default:
				flush()
			}
			atWordStart = true
			continue
		}
		atWordStart = c == ' ' || c == '\t'
		cur.WriteByte(c)
	}
	flush()

	// Peel leading section markers glued to a statement ("then echo hi").
	var peeled []string
	for _, seg := range out {
		for {
			word, rest := firstWord(seg)
			if rest == "" || (word != "then" && word != "do" && word != "else") {
				break
			}
			peeled = append(peeled, word)
			seg = rest
		}
		peeled = append(peeled, seg)
	}
	return peeled
}

func firstWord(s string) (word, rest string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// normalizeLines converts raw script lines into canonical statements with a
// parallel slice of 1-based source line numbers.
func normalizeLines(raw []string) (lines []string, nums []int) {
	for i := 0; i < len(raw); i++ {
		trimmed := strings.TrimSpace(raw[i])
		if delim, strip, ok := heredocIntro(trimmed); ok {
			// Copy the block verbatim; the dispatcher reassembles it.
			lines = append(lines, trimmed)
			nums = append(nums, i+1)
			for i++; i < len(raw); i++ {
				lines = append(lines, raw[i])
				nums = append(nums, i+1)
				body := raw[i]
				if strip {
					body = strings.TrimLeft(body, "\t")
				}
				if body == delim {
					break
				}
			}
			continue
		}
		for _, seg := range splitStatements(raw[i]) {
			lines = append(lines, seg)
			nums = append(nums, i+1)
		}
	}
	return lines, nums
}

// heredocIntro reports whether a statement introduces a heredoc and returns
// the delimiter. "<<<" here-strings are not heredocs.
func heredocIntro(line string) (delim string, strip, ok bool) {
	for i := 0; i+1 < len(line); i++ {
		if line[i] != '<' || line[i+1] != '<' {
			continue
		}
		if i > 0 && line[i-1] == '<' {
			continue
		}
		rest := line[i+2:]
		if strings.HasPrefix(rest, "<") {
			i += 2 // skip the here-string operator
			continue
		}
		if strings.HasPrefix(rest, "-") {
			strip = true
			rest = rest[1:]
		}
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return "", false, false
		}
		delim, _ = firstWord(rest)
		delim = strings.Trim(delim, `"'`)
		return delim, strip, delim != ""
	}
	return "", false, false
}

// collectHeredoc gathers the heredoc starting at lines[start] through its
// delimiter line into one combined string to execute as a single unit.
func collectHeredoc(lines []string, start int, delim string, strip bool) (string, int, error) {
	var b strings.Builder
	b.WriteString(lines[start])
	for i := start + 1; i < len(lines); i++ {
		b.WriteByte('\n')
		b.WriteString(lines[i])
		body := lines[i]
		if strip {
			body = strings.TrimLeft(body, "\t")
		}
		if body == delim {
			return b.String(), i, nil
		}
	}
	return "", 0, fmt.Errorf("%w: heredoc delimited by %q never ends", ErrUnbalanced, delim)
}

// controlKeyword classifies a canonical statement as a control flow
// construct header, or returns "".
func controlKeyword(line string) string {
	word, _ := firstWord(line)
	switch word {
	case "if", "while", "until", "select", "case":
		return word
	case "for":
		if strings.HasPrefix(line, "for ((") || strings.HasPrefix(line, "for((") {
			return "cfor"
		}
		return "for"
	}
	return ""
}

// parseLoopJump recognizes literal "break [N]" and "continue [N]"
// statements. N defaults to 1 and 0 is treated as 1.
func parseLoopJump(line string) (kw string, level int, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields) > 2 {
		return "", 0, false
	}
	if fields[0] != "break" && fields[0] != "continue" {
		return "", 0, false
	}
	level = 1
	if len(fields) == 2 {
		n := 0
		for _, c := range fields[1] {
			if c < '0' || c > '9' {
				return "", 0, false
			}
			n = n*10 + int(c-'0')
		}
		if n > 0 {
			level = n
		}
	}
	return fields[0], level, true
}
