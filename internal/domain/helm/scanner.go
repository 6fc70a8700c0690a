package helm

// segment is a slice of the input together with its byte offset.
type segment struct {
	text   string
	offset int
}

func closerOf(c byte) byte {
	switch c {
	case '{':
		return '}'
	case '[':
		return ']'
	case '(':
		return ')'
	}
	return 0
}

// splitTop splits s at every sep that is not nested inside {}, [], () or a
// quoted annotation. Mismatched delimiters are reported with their offset.
func splitTop(s string, sep byte, base int, section string) ([]segment, error) {
	var (
		out   []segment
		stack []byte
		quote bool
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote {
			if c == '"' {
				quote = false
			}
			continue
		}
		switch {
		case c == '"':
			quote = true
		case c == '{' || c == '[' || c == '(':
			stack = append(stack, closerOf(c))
		case c == '}' || c == ']' || c == ')':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return nil, newParseError(section, string(c), base+i, "unbalanced '%c'", c)
			}
			stack = stack[:len(stack)-1]
		case c == sep && len(stack) == 0:
			out = append(out, segment{text: s[start:i], offset: base + start})
			start = i + 1
		}
	}
	if quote {
		return nil, newParseError(section, "\"", base+len(s), "unterminated annotation")
	}
	if len(stack) > 0 {
		return nil, newParseError(section, string(stack[len(stack)-1]), base+len(s), "missing '%c'", stack[len(stack)-1])
	}
	return append(out, segment{text: s[start:], offset: base + start}), nil
}

// matching returns the index of the delimiter closing s[open], honoring
// nesting and quotes, or -1.
func matching(s string, open int) int {
	var stack []byte
	quote := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote {
			if c == '"' {
				quote = false
			}
			continue
		}
		switch {
		case c == '"':
			quote = true
		case c == '{' || c == '[' || c == '(':
			stack = append(stack, closerOf(c))
		case c == '}' || c == ']' || c == ')':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// containsTop reports whether any of seps occurs in s outside nesting.
func containsTop(s string, seps string) bool {
	depth := 0
	quote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote {
			if c == '"' {
				quote = false
			}
			continue
		}
		switch c {
		case '"':
			quote = true
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		default:
			if depth == 0 {
				for j := 0; j < len(seps); j++ {
					if c == seps[j] {
						return true
					}
				}
			}
		}
	}
	return false
}

// trailingAnnotation splits a trailing "..." annotation off s.
func trailingAnnotation(s string) (body, annotation string, ok bool) {
	if len(s) < 2 || s[len(s)-1] != '"' {
		return s, "", false
	}
	// the opening quote is the last quote before the closing one that is
	// outside any nesting
	depth := 0
	quote := false
	open := -1
	for i := 0; i < len(s)-1; i++ {
		c := s[i]
		if quote {
			if c == '"' {
				quote = false
			}
			continue
		}
		switch c {
		case '"':
			open = -1
			if depth == 0 {
				open = i
			}
			quote = true
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		}
	}
	if !quote || open < 0 {
		return s, "", false
	}
	return s[:open], s[open+1 : len(s)-1], true
}
