package grammar

import "strings"

// Reference holds the five top-level components of a URI reference, split per
// RFC 3986 Appendix B. The Has* flags distinguish an absent component from an
// empty one ("http://h?" has an empty but present query).
type Reference struct {
	Scheme       string
	Authority    string
	Path         string
	Query        string
	Fragment     string
	HasAuthority bool
	HasQuery     bool
	HasFragment  bool
}

// SplitReference decomposes s without validating any component. A scheme that
// does not satisfy the scheme grammar is left in the path, which keeps the
// split lenient for inputs such as "a b:c".
func SplitReference(s string) Reference {
	var ref Reference

	if i := strings.IndexByte(s, '#'); i >= 0 {
		ref.Fragment = s[i+1:]
		ref.HasFragment = true
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		ref.Query = s[i+1:]
		ref.HasQuery = true
		s = s[:i]
	}
	if i := strings.IndexAny(s, ":/"); i > 0 && s[i] == ':' && IsScheme(s[:i]) {
		ref.Scheme = s[:i]
		s = s[i+1:]
	}
	if strings.HasPrefix(s, "//") {
		s = s[2:]
		end := strings.IndexByte(s, '/')
		if end < 0 {
			end = len(s)
		}
		ref.Authority = s[:end]
		ref.HasAuthority = true
		s = s[end:]
	}
	ref.Path = s
	return ref
}

// SplitAuthority splits "userinfo@host:port". An IPv6 literal keeps its
// brackets in host. hasPort is true when a ':' delimiter follows the host,
// even if port is empty.
func SplitAuthority(authority string) (userInfo, host, port string, hasPort bool) {
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		userInfo = authority[:i]
		authority = authority[i+1:]
	}
	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return userInfo, authority, "", false
		}
		host = authority[:end+1]
		rest := authority[end+1:]
		if strings.HasPrefix(rest, ":") {
			return userInfo, host, rest[1:], true
		}
		return userInfo, host, "", false
	}
	if i := strings.LastIndexByte(authority, ':'); i >= 0 {
		return userInfo, authority[:i], authority[i+1:], true
	}
	return userInfo, authority, "", false
}

// IsScheme reports whether s matches ALPHA *( ALPHA / DIGIT / "+" / "-" / "." ).
func IsScheme(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// IsPort parses a decimal port in the range 1-65535.
func IsPort(s string) (int, bool) {
	if s == "" || len(s) > 5 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n < 1 || n > 65535 {
		return 0, false
	}
	return n, true
}

// IsHost reports whether s can stand as a URI host: no delimiters of other
// components, no whitespace and no control bytes. Empty is a valid (absent) host.
func IsHost(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= ' ' || c == 0x7f {
			return false
		}
		switch c {
		case '/', '?', '#', '@':
			return false
		}
	}
	return true
}
