package nlq

import "strings"

// ExtractSQL pulls a single SQL statement out of a completion-service
// reply. The service is instructed to answer with bare SQL, but in
// practice replies arrive wrapped in markdown fences, prefixed with
// "SQL:" or embedded in prose. Returns ErrNoQueryProduced when no
// statement can be located.
func ExtractSQL(text string) (string, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", ErrNoQueryProduced
	}

	s = stripMarkdownFences(s)
	s = stripLabelPrefix(s)

	// The reply may still contain prose around the statement; cut from
	// the first SELECT or WITH keyword.
	if idx := firstKeywordIndex(s); idx > 0 {
		s = s[idx:]
	} else if idx < 0 {
		return "", ErrNoQueryProduced
	}

	// One statement only. Anything after the first semicolon is dropped.
	if idx := strings.Index(s, ";"); idx >= 0 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrNoQueryProduced
	}
	return s, nil
}

func stripMarkdownFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	// Prefer the content of the first fenced block.
	start := strings.Index(s, "```")
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop a language tag like "sql" on the fence line.
		tag := strings.TrimSpace(rest[:nl])
		if len(tag) <= 10 && !strings.ContainsAny(tag, " \t") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func stripLabelPrefix(s string) string {
	for _, prefix := range []string{"SQL:", "sql:", "Запрос:", "Ответ:"} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(s[len(prefix):])
		}
	}
	return s
}

// firstKeywordIndex finds the first SELECT or WITH token boundary.
// Returns -1 when neither occurs.
func firstKeywordIndex(s string) int {
	upper := strings.ToUpper(s)
	best := -1
	for _, kw := range []string{"SELECT", "WITH"} {
		from := 0
		for {
			idx := strings.Index(upper[from:], kw)
			if idx < 0 {
				break
			}
			idx += from
			if isTokenBoundary(upper, idx, len(kw)) {
				if best < 0 || idx < best {
					best = idx
				}
				break
			}
			from = idx + len(kw)
		}
	}
	return best
}

func isTokenBoundary(s string, idx, length int) bool {
	if idx > 0 && isIdentByte(s[idx-1]) {
		return false
	}
	if end := idx + length; end < len(s) && isIdentByte(s[end]) {
		return false
	}
	return true
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
