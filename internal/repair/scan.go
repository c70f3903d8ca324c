package repair

import "strconv"

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// isTokenByte reports whether c can be part of a bare number or literal.
func isTokenByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '+' || c == '.' || c == '_'
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$'
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '-'
}

// nextSignificant returns the index of the first non-whitespace byte at or
// after i, or -1.
func nextSignificant(s string, i int) int {
	for ; i < len(s); i++ {
		if !isSpace(s[i]) {
			return i
		}
	}
	return -1
}

// nextSignificantByte is nextSignificant returning the byte itself, or 0.
func nextSignificantByte(s string, i int) byte {
	if j := nextSignificant(s, i); j >= 0 {
		return s[j]
	}
	return 0
}

func closerFor(opener byte) byte {
	if opener == '[' {
		return ']'
	}
	return '}'
}

func isCompleteScalar(word string) bool {
	switch word {
	case "true", "false", "null":
		return true
	}
	_, err := strconv.ParseFloat(word, 64)
	return err == nil
}

type frame struct {
	closer    byte
	expectKey bool
}

// structure is the result of a string-aware walk over possibly truncated JSON.
type structure struct {
	// stack holds the containers still open at the end of the text.
	stack []frame
	// inString is true when the text ends inside a string literal.
	inString bool
	// stringStart is the index of the opening quote of the unterminated string.
	stringStart int
	// lastSafe is the index just past the last complete value or opener; the
	// text can be cut there and closed without losing a complete pair.
	lastSafe int
	// stray holds indexes of closers met with no open container.
	stray []int
}

func (st *structure) top() *frame {
	if len(st.stack) == 0 {
		return nil
	}
	return &st.stack[len(st.stack)-1]
}

func (st *structure) inKeyPosition() bool {
	f := st.top()
	return f != nil && f.closer == '}' && f.expectKey
}

func analyze(s string) structure {
	var st structure
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				st.inString = false
				if !st.inKeyPosition() {
					st.lastSafe = i + 1
				}
			}
			continue
		}

		switch c {
		case '"':
			st.inString = true
			st.stringStart = i
		case '{', '[':
			st.stack = append(st.stack, frame{closer: closerFor(c), expectKey: c == '{'})
			st.lastSafe = i + 1
		case '}', ']':
			n := len(st.stack)
			switch {
			case n == 0:
				st.stray = append(st.stray, i)
			case st.stack[n-1].closer == c:
				st.stack = st.stack[:n-1]
				st.lastSafe = i + 1
			}
		case ',':
			if f := st.top(); f != nil && f.closer == '}' {
				f.expectKey = true
			}
		case ':':
			if f := st.top(); f != nil && f.closer == '}' {
				f.expectKey = false
			}
		default:
			if !isTokenByte(c) {
				continue
			}
			j := i
			for j < len(s) && isTokenByte(s[j]) {
				j++
			}
			if isCompleteScalar(s[i:j]) && !st.inKeyPosition() {
				st.lastSafe = j
			}
			i = j - 1
		}
	}
	return st
}

// closersOutsideStrings returns the indexes of every '}' and ']' that is not
// inside a string literal.
func closersOutsideStrings(s string) []int {
	var out []int
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '}', ']':
			out = append(out, i)
		}
	}
	return out
}
