package message

import (
	"strconv"
	"strings"

	"github.com/shapestone/shape-message/internal/grammar"
	"golang.org/x/net/http/httpguts"
)

var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
	"ws":    80,
	"wss":   443,
	"ftp":   21,
}

// Uri is an immutable URI reference. Scheme and host are stored lower-cased;
// path, query and fragment are stored with normalized percent-encoding.
type Uri struct {
	scheme   string
	userInfo string
	host     string
	port     int
	path     string
	query    string
	fragment string
}

// NewUri returns the empty URI.
func NewUri() *Uri { return &Uri{} }

// ParseUri parses s into a Uri. Only the authority is checked strictly: an
// invalid host or port is an error matching ErrInvalidUri. Everything else is
// decomposed on a best-effort basis.
func ParseUri(s string) (*Uri, error) {
	ref := grammar.SplitReference(s)

	u := &Uri{
		scheme:   grammar.LowerASCII(ref.Scheme),
		path:     grammar.Escape(ref.Path, grammar.ComponentPath),
		query:    grammar.Escape(ref.Query, grammar.ComponentQuery),
		fragment: grammar.Escape(ref.Fragment, grammar.ComponentQuery),
	}

	if ref.HasAuthority {
		userInfo, host, port, hasPort := grammar.SplitAuthority(ref.Authority)
		if !grammar.IsHost(host) {
			return nil, newError("parse uri", ErrInvalidUri, "invalid host %q", host)
		}
		if hasPort && port != "" {
			n, ok := grammar.IsPort(port)
			if !ok {
				return nil, newError("parse uri", ErrInvalidUri, "invalid port %q", port)
			}
			u.port = n
		}
		u.userInfo = grammar.Escape(userInfo, grammar.ComponentUserInfo)
		u.host = grammar.LowerASCII(host)
	}

	return u, nil
}

// Scheme returns the lower-cased scheme, or "".
func (u *Uri) Scheme() string { return u.scheme }

// UserInfo returns "user[:password]", or "".
func (u *Uri) UserInfo() string { return u.userInfo }

// Host returns the lower-cased host, or "".
func (u *Uri) Host() string { return u.host }

// Port returns the port, or 0 when it is unset or the default for the scheme.
func (u *Uri) Port() int {
	if u.port == 0 || defaultPorts[u.scheme] == u.port {
		return 0
	}
	return u.port
}

// Path returns the path.
func (u *Uri) Path() string { return u.path }

// Query returns the query without the leading "?".
func (u *Uri) Query() string { return u.query }

// Fragment returns the fragment without the leading "#".
func (u *Uri) Fragment() string { return u.fragment }

// Authority returns "[user-info@]host[:port]", or "" when there is no host.
func (u *Uri) Authority() string {
	if u.host == "" {
		return ""
	}
	var b strings.Builder
	if u.userInfo != "" {
		b.WriteString(u.userInfo)
		b.WriteByte('@')
	}
	b.WriteString(u.host)
	if p := u.Port(); p != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

// String returns the canonical form of the URI.
func (u *Uri) String() string {
	var b strings.Builder
	if u.scheme != "" {
		b.WriteString(u.scheme)
		b.WriteByte(':')
	}

	authority := u.Authority()
	if authority != "" {
		b.WriteString("//")
		b.WriteString(authority)
	}

	path := u.path
	switch {
	case authority != "" && path != "" && path[0] != '/':
		path = "/" + path
	case authority == "" && strings.HasPrefix(path, "//"):
		path = "/" + strings.TrimLeft(path, "/")
	}
	b.WriteString(path)

	if u.query != "" {
		b.WriteByte('?')
		b.WriteString(u.query)
	}
	if u.fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.fragment)
	}
	return b.String()
}

// Equal reports whether both URIs have the same canonical form.
func (u *Uri) Equal(other *Uri) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.String() == other.String()
}

// WithScheme returns a copy with the scheme replaced. A trailing ":" or "://"
// is ignored; "" removes the scheme.
func (u *Uri) WithScheme(scheme string) (*Uri, error) {
	scheme = strings.TrimSuffix(strings.TrimSuffix(scheme, "//"), ":")
	if scheme != "" && !grammar.IsScheme(scheme) {
		return nil, newError("with scheme", ErrInvalidUri, "invalid scheme %q", scheme)
	}
	c := *u
	c.scheme = grammar.LowerASCII(scheme)
	return &c, nil
}

// WithUserInfo returns a copy with the user info replaced. The password is
// appended after ":" when non-empty.
func (u *Uri) WithUserInfo(user, password string) *Uri {
	info := grammar.Escape(user, grammar.ComponentUserInfo)
	if info != "" && password != "" {
		info += ":" + grammar.Escape(password, grammar.ComponentUserInfo)
	}
	c := *u
	c.userInfo = info
	return &c
}

// WithHost returns a copy with the host replaced; "" removes it.
func (u *Uri) WithHost(host string) (*Uri, error) {
	if !grammar.IsHost(host) {
		return nil, newError("with host", ErrInvalidUri, "invalid host %q", host)
	}
	c := *u
	c.host = grammar.LowerASCII(host)
	return &c, nil
}

// WithPort returns a copy with the port replaced; 0 removes it.
func (u *Uri) WithPort(port int) (*Uri, error) {
	if port < 0 || port > 65535 {
		return nil, newError("with port", ErrInvalidUri, "port %d out of range 1-65535", port)
	}
	c := *u
	c.port = port
	return &c, nil
}

// WithPath returns a copy with the path replaced. The path may not contain a
// query or fragment delimiter.
func (u *Uri) WithPath(path string) (*Uri, error) {
	if strings.ContainsAny(path, "?#") {
		return nil, newError("with path", ErrInvalidUri, "path %q contains a query or fragment", path)
	}
	c := *u
	c.path = grammar.Escape(path, grammar.ComponentPath)
	return &c, nil
}

// WithQuery returns a copy with the query replaced. A leading "?" is ignored.
func (u *Uri) WithQuery(query string) (*Uri, error) {
	query = strings.TrimPrefix(query, "?")
	if strings.Contains(query, "#") {
		return nil, newError("with query", ErrInvalidUri, "query %q contains a fragment", query)
	}
	c := *u
	c.query = grammar.Escape(query, grammar.ComponentQuery)
	return &c, nil
}

// WithFragment returns a copy with the fragment replaced. A leading "#" is
// ignored.
func (u *Uri) WithFragment(fragment string) *Uri {
	c := *u
	c.fragment = grammar.Escape(strings.TrimPrefix(fragment, "#"), grammar.ComponentQuery)
	return &c
}

// hostHeader returns the Host header value for u: the host with its
// non-default port, IDN labels converted to punycode.
func (u *Uri) hostHeader() string {
	hp := u.host
	if p := u.Port(); p != 0 {
		hp += ":" + strconv.Itoa(p)
	}
	if ascii, err := httpguts.PunycodeHostPort(hp); err == nil {
		return ascii
	}
	return hp
}
