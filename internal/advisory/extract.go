package advisory

// ExtractJSON returns the first balanced JSON object embedded in free text.
//
// Reasoning services wrap their JSON in prose, markdown fences, or both.
// The scan finds the first '{' and walks to its matching '}', tracking
// string literals and escape sequences so braces inside strings do not
// unbalance the count.
//
// Returns ErrNoJSON when the text holds no '{' or the object never closes.
// The result is the raw candidate substring; whether it decodes, and into
// what, is the caller's problem.
func ExtractJSON(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if start == -1 {
			if ch == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if escaped {
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}

	return "", ErrNoJSON
}
