package message

import (
	"bytes"
	"io"
	"maps"
	"net/url"
	"os"

	"github.com/shapestone/shape-message/internal/grammar"
)

// ServerRequestOptions carries the inputs of NewServerRequest. Every field is
// optional.
type ServerRequestOptions struct {
	ServerParams    map[string]string
	UploadedFiles   map[string]any
	Uri             any // nil, string or *Uri
	Method          string
	Body            any // nil gives an empty InputStream
	Headers         map[string]any
	Cookies         map[string]string
	Query           url.Values
	ParsedBody      any
	Attributes      map[string]any
	ProtocolVersion string
}

// ServerRequest is an immutable request as seen by the server, with the
// environment the server attached to it. Maps passed in and returned are
// copies.
type ServerRequest struct {
	requestBase
	serverParams  map[string]string
	uploadedFiles map[string]any
	cookies       map[string]string
	query         url.Values
	parsedBody    any
	attributes    map[string]any
}

// NewServerRequest creates a server request. The uploaded file tree is
// validated with ValidateUploadedFiles. A string body is a path opened
// read-only; a reader that cannot seek is wrapped in an InputStream.
func NewServerRequest(opts ServerRequestOptions) (*ServerRequest, error) {
	bag, err := NewHeaderBag(opts.Headers)
	if err != nil {
		return nil, err
	}
	return newServerRequest(opts, bag)
}

func newServerRequest(opts ServerRequestOptions, headers HeaderBag) (*ServerRequest, error) {
	if err := ValidateUploadedFiles(opts.UploadedFiles); err != nil {
		return nil, err
	}
	u, err := toUri(opts.Uri)
	if err != nil {
		return nil, err
	}
	if err := validateMethod("new server request", opts.Method); err != nil {
		return nil, err
	}
	body, err := serverBody(opts.Body)
	if err != nil {
		return nil, err
	}

	m := newMessage(headers, body)
	if opts.ProtocolVersion != "" {
		if m, err = m.withProtocolVersion(opts.ProtocolVersion); err != nil {
			return nil, err
		}
	}

	return &ServerRequest{
		requestBase: requestBase{
			message: m,
			method:  grammar.UpperASCII(opts.Method),
			uri:     u,
		},
		serverParams:  maps.Clone(opts.ServerParams),
		uploadedFiles: maps.Clone(opts.UploadedFiles),
		cookies:       maps.Clone(opts.Cookies),
		query:         cloneValues(opts.Query),
		parsedBody:    opts.ParsedBody,
		attributes:    maps.Clone(opts.Attributes),
	}, nil
}

func serverBody(body any) (Stream, error) {
	switch b := body.(type) {
	case nil:
		return NewInputStream(bytes.NewReader(nil)), nil
	case string:
		if b != TempBody {
			return OpenStream(Filesystem(), b, os.O_RDONLY)
		}
	case Stream:
		return b, nil
	case io.ReadSeeker:
	case io.Reader:
		return NewInputStream(b), nil
	}
	return newBodyStream(body, os.O_RDONLY)
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// Method returns the upper-cased method, or "GET" when none was set.
func (r *ServerRequest) Method() string {
	if r.method == "" {
		return "GET"
	}
	return r.method
}

// ServerParams returns the server parameters.
func (r *ServerRequest) ServerParams() map[string]string { return maps.Clone(r.serverParams) }

// UploadedFiles returns the uploaded file tree. Only the top level is copied.
func (r *ServerRequest) UploadedFiles() map[string]any { return maps.Clone(r.uploadedFiles) }

// CookieParams returns the cookies.
func (r *ServerRequest) CookieParams() map[string]string { return maps.Clone(r.cookies) }

// QueryParams returns the query parameters.
func (r *ServerRequest) QueryParams() url.Values { return cloneValues(r.query) }

// ParsedBody returns the deserialized body, or nil.
func (r *ServerRequest) ParsedBody() any { return r.parsedBody }

// Attributes returns the attributes derived from the request.
func (r *ServerRequest) Attributes() map[string]any { return maps.Clone(r.attributes) }

// Attribute returns the named attribute, or def when it is not set.
func (r *ServerRequest) Attribute(name string, def any) any {
	if v, ok := r.attributes[name]; ok {
		return v
	}
	return def
}

// WithUploadedFiles returns a copy with the uploaded file tree replaced.
func (r *ServerRequest) WithUploadedFiles(files map[string]any) (*ServerRequest, error) {
	if err := ValidateUploadedFiles(files); err != nil {
		return nil, err
	}
	c := *r
	c.uploadedFiles = maps.Clone(files)
	return &c, nil
}

// WithCookieParams returns a copy with the cookies replaced.
func (r *ServerRequest) WithCookieParams(cookies map[string]string) *ServerRequest {
	c := *r
	c.cookies = maps.Clone(cookies)
	return &c
}

// WithQueryParams returns a copy with the query parameters replaced. The URI
// is not changed.
func (r *ServerRequest) WithQueryParams(query url.Values) *ServerRequest {
	c := *r
	c.query = cloneValues(query)
	return &c
}

// WithParsedBody returns a copy with the deserialized body replaced.
func (r *ServerRequest) WithParsedBody(data any) *ServerRequest {
	c := *r
	c.parsedBody = data
	return &c
}

// WithAttribute returns a copy with the named attribute set.
func (r *ServerRequest) WithAttribute(name string, value any) *ServerRequest {
	c := *r
	c.attributes = maps.Clone(r.attributes)
	if c.attributes == nil {
		c.attributes = make(map[string]any, 1)
	}
	c.attributes[name] = value
	return &c
}

// WithoutAttribute returns a copy without the named attribute.
func (r *ServerRequest) WithoutAttribute(name string) *ServerRequest {
	if _, ok := r.attributes[name]; !ok {
		c := *r
		return &c
	}
	c := *r
	c.attributes = maps.Clone(r.attributes)
	delete(c.attributes, name)
	return &c
}

// WithMethod returns a copy with the method replaced. The method is stored
// upper-cased.
func (r *ServerRequest) WithMethod(method string) (*ServerRequest, error) {
	if err := validateMethod("with method", method); err != nil {
		return nil, err
	}
	c := *r
	c.method = grammar.UpperASCII(method)
	return &c, nil
}

// WithRequestTarget returns a copy with an explicit request-target.
func (r *ServerRequest) WithRequestTarget(target string) (*ServerRequest, error) {
	b, err := r.requestBase.withRequestTarget(target)
	if err != nil {
		return nil, err
	}
	c := *r
	c.requestBase = b
	return &c, nil
}

// WithUri returns a copy with the URI replaced, synchronizing the Host header
// like Request.WithUri.
func (r *ServerRequest) WithUri(uri *Uri, preserveHost bool) (*ServerRequest, error) {
	b, err := r.requestBase.withUri(uri, preserveHost)
	if err != nil {
		return nil, err
	}
	c := *r
	c.requestBase = b
	return &c, nil
}

// WithProtocolVersion returns a copy with the protocol version replaced.
func (r *ServerRequest) WithProtocolVersion(version string) (*ServerRequest, error) {
	m, err := r.message.withProtocolVersion(version)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithHeader returns a copy in which the named header holds exactly values.
func (r *ServerRequest) WithHeader(name string, values ...string) (*ServerRequest, error) {
	m, err := r.message.withHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithAddedHeader returns a copy with values appended to the named header.
func (r *ServerRequest) WithAddedHeader(name string, values ...string) (*ServerRequest, error) {
	m, err := r.message.withAddedHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithoutHeader returns a copy without the named header.
func (r *ServerRequest) WithoutHeader(name string) *ServerRequest {
	c := *r
	c.message = r.message.withoutHeader(name)
	return &c
}

// WithBody returns a copy with the body replaced.
func (r *ServerRequest) WithBody(body Stream) (*ServerRequest, error) {
	m, err := r.message.withBody(body)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}
