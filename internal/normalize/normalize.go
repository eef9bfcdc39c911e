// Package normalize rewrites "${ expr }" interpolation markers so that a
// generic pretty-printer treats each one as an opaque unit.
//
// The scanner is a single left-to-right pass over three states. Outside an
// interpolation, text is copied verbatim. Inside one, braces are counted and
// quoted literals are skipped so that braces or quotes inside strings do not
// end the expression early. A marker that never closes is passed through
// untouched from the point where it started.
package normalize

import "strings"

type scanState int

const (
	stateOutside scanState = iota
	stateExpr
	stateQuoted
)

const whitespace = " \t\r\n\f\v"

// Normalize strips the whitespace just inside every well-formed "${...}"
// marker. It never fails; malformed input degrades to a verbatim copy of
// the unterminated tail.
func Normalize(text string) string {
	var out strings.Builder
	out.Grow(len(text))

	var (
		state     = stateOutside
		markerEnd int // index just past "${"
		exprStart int // first non-blank byte of the expression
		depth     int
		quote     byte
	)

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch state {
		case stateOutside:
			if c == '$' && i+1 < len(text) && text[i+1] == '{' {
				out.WriteString("${")
				markerEnd = i + 2
				exprStart = skipSpace(text, markerEnd)
				depth = 1
				state = stateExpr
				i = exprStart - 1
				continue
			}
			out.WriteByte(c)

		case stateExpr:
			switch c {
			case '"', '\'', '`':
				quote = c
				state = stateQuoted
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					out.WriteString(strings.TrimRight(text[exprStart:i], whitespace))
					out.WriteByte('}')
					state = stateOutside
				}
			}

		case stateQuoted:
			if c == quote && !isEscaped(text, i) {
				state = stateExpr
			}
		}
	}

	if state != stateOutside {
		out.WriteString(text[markerEnd:])
	}
	return out.String()
}

func skipSpace(text string, i int) int {
	for i < len(text) && strings.IndexByte(whitespace, text[i]) >= 0 {
		i++
	}
	return i
}

// isEscaped reports whether the byte at i is preceded by an odd number of
// consecutive backslashes.
func isEscaped(text string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
