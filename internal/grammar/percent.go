package grammar

const upperHex = "0123456789ABCDEF"

// Component selects the character set kept verbatim by Escape.
type Component int

const (
	// ComponentPath keeps pchar and "/".
	ComponentPath Component = iota
	// ComponentQuery keeps pchar, "/" and "?". Fragments share this set.
	ComponentQuery
	// ComponentUserInfo keeps unreserved, sub-delims and ":".
	ComponentUserInfo
)

func isUnreserved(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

func isSubDelim(c byte) bool {
	switch c {
	case '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=':
		return true
	}
	return false
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func shouldKeep(c byte, comp Component) bool {
	if isUnreserved(c) || isSubDelim(c) || c == ':' {
		return true
	}
	switch comp {
	case ComponentPath:
		return c == '@' || c == '/'
	case ComponentQuery:
		return c == '@' || c == '/' || c == '?'
	}
	return false
}

// Escape normalizes the percent-encoding of s for the given component.
// Existing "%XX" triples are kept as-is; a "%" not followed by two hex digits
// and every byte outside the component's allowed set is percent-encoded.
func Escape(s string, comp Component) string {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' {
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				continue
			}
			n++
			continue
		}
		if !shouldKeep(c, comp) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			buf = append(buf, c)
			continue
		}
		if c != '%' && shouldKeep(c, comp) {
			buf = append(buf, c)
			continue
		}
		buf = append(buf, '%', upperHex[c>>4], upperHex[c&15])
	}
	return string(buf)
}
