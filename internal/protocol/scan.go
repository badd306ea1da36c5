package protocol

import "strings"

const personNone = "NONE"

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func skipSpace(line string, p int) int {
	for p < len(line) && isSpace(line[p]) {
		p++
	}
	return p
}

// ExtractString returns the quoted value of key. A backslash takes the following byte
// literally; no other unescaping is done.
func ExtractString(line, key string) (string, bool) {
	pattern := `"` + key + `"`
	p := strings.Index(line, pattern)
	if p < 0 {
		return "", false
	}
	p = skipSpace(line, p+len(pattern))
	if p >= len(line) || line[p] != ':' {
		return "", false
	}
	p = skipSpace(line, p+1)
	if p >= len(line) || line[p] != '"' {
		return "", false
	}

	var out strings.Builder
	escaped := false
	for i := p + 1; i < len(line); i++ {
		c := line[i]
		if escaped {
			out.WriteByte(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			return out.String(), true
		default:
			out.WriteByte(c)
		}
	}
	return "", false
}

// OKTrue reports whether the first "ok" member is the literal true.
func OKTrue(line string) bool {
	p := strings.Index(line, `"ok"`)
	if p < 0 {
		return false
	}
	colon := strings.IndexByte(line[p:], ':')
	if colon < 0 {
		return false
	}
	p = skipSpace(line, p+colon+1)
	return strings.HasPrefix(line[p:], "true")
}

// HasErrorField reports any occurrence of "error", wherever it sits in the line.
func HasErrorField(line string) bool {
	return strings.Contains(line, `"error"`)
}

// ObjectsNonEmpty reports whether the "objects" array has a first element.
func ObjectsNonEmpty(line string) bool {
	p := strings.Index(line, `"objects"`)
	if p < 0 {
		return false
	}
	colon := strings.IndexByte(line[p:], ':')
	if colon < 0 {
		return false
	}
	p += colon
	open := strings.IndexByte(line[p:], '[')
	if open < 0 {
		return false
	}
	for i := p + open + 1; i < len(line); i++ {
		switch line[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case ']':
			return false
		default:
			return true
		}
	}
	return false
}

func IsDetectionHit(line string) bool {
	if person, ok := ExtractString(line, "person"); ok && person != "" && person != personNone {
		return true
	}
	return ObjectsNonEmpty(line)
}
