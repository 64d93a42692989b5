package engine

import "strings"

// kwPrefix marks a keyword after preprocessing.
const kwPrefix = "__kw_"

// preprocessSource rewrites the script syntax zygomys does not read. A
// :keyword becomes the string "__kw_keyword", ; comments become // comments
// and a hyphen inside an identifier becomes an underscore, so range-end
// reads as range_end rather than a subtraction. String literals pass
// through untouched.
func preprocessSource(src string) string {
	var out strings.Builder
	out.Grow(len(src) + len(src)/4)
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"' || c == '`':
			j := skipString(src, i)
			out.WriteString(src[i:j])
			i = j
		case c == ';':
			j := i
			for j < len(src) && src[j] == ';' {
				j++
			}
			end := len(src)
			if k := strings.IndexByte(src[j:], '\n'); k >= 0 {
				end = j + k
			}
			out.WriteString("//")
			out.WriteString(src[j:end])
			i = end
		case c == ':' && i+1 < len(src) && src[i+1] == '=':
			out.WriteString(":=")
			i += 2
		case c == ':' && i+1 < len(src) && isLetter(src[i+1]):
			j := i + 1
			for j < len(src) && isKeywordChar(src[j]) {
				j++
			}
			out.WriteString(`"` + kwPrefix + src[i+1:j] + `"`)
			i = j
		case c == '-' && i > 0 && i+1 < len(src) && isIdentChar(src[i-1]) && isLetter(src[i+1]):
			out.WriteByte('_')
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// skipString returns the index just past the string literal opening at i.
// Backquoted strings have no escapes.
func skipString(src string, i int) int {
	q := src[i]
	j := i + 1
	for j < len(src) && src[j] != q {
		if q == '"' && src[j] == '\\' && j+1 < len(src) {
			j += 2
			continue
		}
		j++
	}
	if j < len(src) {
		j++
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKeywordChar(c byte) bool {
	return isIdentChar(c) || c == '-'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
