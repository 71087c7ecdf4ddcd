// Package grammar implements the byte-level HTTP and URI grammar checks used by
// the message model. It performs no allocation on the validation paths.
package grammar

import (
	"golang.org/x/net/http/httpguts"
)

// IsToken reports whether s is a non-empty RFC 9110 token
// (1*tchar). Header names and request methods share this grammar.
func IsToken(s string) bool {
	return httpguts.ValidHeaderFieldName(s)
}

// HasWhitespace reports whether s contains SP, HTAB, CR, LF, VT or FF.
func HasWhitespace(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n', '\v', '\f':
			return true
		}
	}
	return false
}

// IsProtocolVersion reports whether s matches 1*DIGIT [ "." 1*DIGIT ].
func IsProtocolVersion(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	dot := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot && digits > 0:
			dot = true
			digits = 0
		default:
			return false
		}
	}
	return digits > 0
}

// EqualFold is a fast ASCII case-insensitive string comparison.
func EqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// LowerASCII lower-cases the ASCII letters of s, leaving other bytes untouched.
func LowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'A' && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

// UpperASCII upper-cases the ASCII letters of s, leaving other bytes untouched.
func UpperASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'a' && c <= 'z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'a' && b[j] <= 'z' {
					b[j] -= 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

// TrimOWS trims optional whitespace (SP and HTAB) from both ends of s.
func TrimOWS(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}
