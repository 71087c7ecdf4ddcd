package message

import (
	"github.com/shapestone/shape-message/internal/grammar"
)

// requestBase holds the state shared by Request and ServerRequest.
type requestBase struct {
	message
	method string
	uri    *Uri
	target string
}

// Uri returns the request URI. It is never nil.
func (r *requestBase) Uri() *Uri { return r.uri }

// RequestTarget returns the explicit request-target if one was set, otherwise
// the origin-form derived from the URI: path (or "/") plus "?query".
func (r *requestBase) RequestTarget() string {
	if r.target != "" {
		return r.target
	}
	if r.uri.Path() == "" && r.uri.Query() == "" {
		return "/"
	}
	target := r.uri.Path()
	if target == "" {
		target = "/"
	}
	if q := r.uri.Query(); q != "" {
		target += "?" + q
	}
	return target
}

func (r requestBase) withRequestTarget(target string) (requestBase, error) {
	if target == "" || grammar.HasWhitespace(target) {
		return r, newError("with request target", ErrInvalidArgument, "invalid request target %q", target)
	}
	r.target = target
	return r, nil
}

// withUri replaces the URI and keeps the stored Host header in step with it.
func (r requestBase) withUri(uri *Uri, preserveHost bool) (requestBase, error) {
	if uri == nil {
		return r, newError("with uri", ErrInvalidUri, "nil uri")
	}
	r.uri = uri
	if uri.Host() == "" || (preserveHost && r.headers.Has("Host")) {
		return r, nil
	}
	r.headers = r.headers.Without("Host").prepend("Host", uri.hostHeader())
	return r, nil
}

func toUri(uri any) (*Uri, error) {
	switch u := uri.(type) {
	case nil:
		return NewUri(), nil
	case string:
		return ParseUri(u)
	case *Uri:
		if u == nil {
			return NewUri(), nil
		}
		return u, nil
	}
	return nil, newError("new request", ErrInvalidUri, "unsupported uri %T", uri)
}

func validateMethod(op, method string) error {
	if method != "" && !grammar.IsToken(method) {
		return newError(op, ErrInvalidMethod, "invalid method %q", method)
	}
	return nil
}

// Request is an immutable client-side HTTP request.
type Request struct {
	requestBase
}

// NewRequest creates a request. uri is nil, a string or a *Uri; body is nil,
// TempBody, a path, a Stream, or a file or reader to wrap. The method is kept
// as given and may be empty.
func NewRequest(uri any, method string, body any, headers map[string]any) (*Request, error) {
	bag, err := NewHeaderBag(headers)
	if err != nil {
		return nil, err
	}
	return newRequest(uri, method, body, bag)
}

func newRequest(uri any, method string, body any, headers HeaderBag) (*Request, error) {
	u, err := toUri(uri)
	if err != nil {
		return nil, err
	}
	if err := validateMethod("new request", method); err != nil {
		return nil, err
	}
	stream, err := newBodyStream(body, defaultBodyFlag)
	if err != nil {
		return nil, err
	}
	return &Request{requestBase{
		message: newMessage(headers, stream),
		method:  method,
		uri:     u,
	}}, nil
}

// Method returns the method exactly as set.
func (r *Request) Method() string { return r.method }

// Headers returns the stored headers, led by a Host header derived from the
// URI when none is stored and the URI has a host.
func (r *Request) Headers() HeaderBag {
	if r.headers.Has("Host") || r.uri.Host() == "" {
		return r.headers
	}
	return r.headers.prepend("Host", r.uri.hostHeader())
}

// HasHeader reports whether the named header is present, counting the
// derived Host header.
func (r *Request) HasHeader(name string) bool { return r.Headers().Has(name) }

// Header returns the values of the named header, counting the derived Host
// header.
func (r *Request) Header(name string) []string { return r.Headers().Get(name) }

// HeaderLine returns the comma-joined values of the named header, counting the
// derived Host header.
func (r *Request) HeaderLine(name string) string { return r.Headers().Line(name) }

// WithMethod returns a copy with the method replaced. The case is kept.
func (r *Request) WithMethod(method string) (*Request, error) {
	if err := validateMethod("with method", method); err != nil {
		return nil, err
	}
	c := *r
	c.method = method
	return &c, nil
}

// WithRequestTarget returns a copy with an explicit request-target, such as
// "*" or an absolute-form URI. It may not be empty or contain whitespace.
func (r *Request) WithRequestTarget(target string) (*Request, error) {
	b, err := r.requestBase.withRequestTarget(target)
	if err != nil {
		return nil, err
	}
	return &Request{b}, nil
}

// WithUri returns a copy with the URI replaced. Unless preserveHost is set
// and a Host header exists, the Host header is replaced by the new URI's
// host and port when it has a host.
func (r *Request) WithUri(uri *Uri, preserveHost bool) (*Request, error) {
	b, err := r.requestBase.withUri(uri, preserveHost)
	if err != nil {
		return nil, err
	}
	return &Request{b}, nil
}

// WithProtocolVersion returns a copy with the protocol version replaced.
func (r *Request) WithProtocolVersion(version string) (*Request, error) {
	m, err := r.message.withProtocolVersion(version)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithHeader returns a copy in which the named header holds exactly values.
func (r *Request) WithHeader(name string, values ...string) (*Request, error) {
	m, err := r.message.withHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithAddedHeader returns a copy with values appended to the named header.
func (r *Request) WithAddedHeader(name string, values ...string) (*Request, error) {
	m, err := r.message.withAddedHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithoutHeader returns a copy without the named header.
func (r *Request) WithoutHeader(name string) *Request {
	c := *r
	c.message = r.message.withoutHeader(name)
	return &c
}

// WithBody returns a copy with the body replaced. The stream is shared, not
// copied.
func (r *Request) WithBody(body Stream) (*Request, error) {
	m, err := r.message.withBody(body)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}
