package message

import (
	"fmt"
	"io"
	"net/url"

	"github.com/shapestone/shape-core/pkg/ast"
	"github.com/shapestone/shape-message/internal/parser"
)

// ConvertOption configures node-to-message conversion.
type ConvertOption func(*convertConfig)

type convertConfig struct {
	tolerant bool
	version  string
}

// TolerantHeaders makes node conversion drop invalid headers, as
// ImportHeaders does, instead of failing.
func TolerantHeaders() ConvertOption {
	return func(c *convertConfig) { c.tolerant = true }
}

// DefaultVersion sets the protocol version used when a node has none.
func DefaultVersion(version string) ConvertOption {
	return func(c *convertConfig) { c.version = version }
}

func newConvertConfig(opts []ConvertOption) convertConfig {
	cfg := convertConfig{version: DefaultProtocolVersion}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// RequestToNode returns an AST snapshot of r. Derived values are captured as
// reported: the Host header includes the one synthesized from the URI.
func RequestToNode(r *Request) ast.SchemaNode {
	return parser.RequestToNode(&parser.RequestFields{
		Type:    parser.TypeRequest,
		Method:  r.Method(),
		Uri:     r.uri.String(),
		Target:  r.target,
		Version: r.version,
		Headers: headerFields(r.Headers()),
		Body:    snapshotBody(r.body),
	})
}

// ServerRequestToNode returns an AST snapshot of r. Uploaded files and the
// parsed body are not part of the snapshot.
func ServerRequestToNode(r *ServerRequest) ast.SchemaNode {
	attrs := make(map[string]any, len(r.attributes))
	for k, v := range r.attributes {
		attrs[k] = v
	}
	return parser.RequestToNode(&parser.RequestFields{
		Type:         parser.TypeServerRequest,
		Method:       r.Method(),
		Uri:          r.uri.String(),
		Target:       r.target,
		Version:      r.version,
		Headers:      headerFields(r.Headers()),
		Body:         snapshotBody(r.body),
		ServerParams: r.ServerParams(),
		Cookies:      r.CookieParams(),
		Query:        map[string][]string(r.QueryParams()),
		Attributes:   attrs,
	})
}

// ResponseToNode returns an AST snapshot of r.
func ResponseToNode(r *Response) ast.SchemaNode {
	return parser.ResponseToNode(&parser.ResponseFields{
		Version:    r.version,
		StatusCode: r.status,
		Reason:     r.reason,
		Headers:    headerFields(r.headers),
		Body:       snapshotBody(r.body),
	})
}

// NodeToInterface converts an AST node to plain Go values.
func NodeToInterface(node ast.SchemaNode) any {
	return parser.NodeToInterface(node)
}

// NodeToMessage builds a *Request, *ServerRequest or *Response from a node,
// chosen by its "type" property.
func NodeToMessage(node ast.SchemaNode, opts ...ConvertOption) (Message, error) {
	msgType, err := parser.MessageType(node)
	if err != nil {
		return nil, newError("convert node", ErrInvalidArgument, "%v", err)
	}
	switch msgType {
	case parser.TypeRequest:
		return NodeToRequest(node, opts...)
	case parser.TypeServerRequest:
		return NodeToServerRequest(node, opts...)
	case parser.TypeResponse:
		return NodeToResponse(node, opts...)
	}
	return nil, newError("convert node", ErrInvalidArgument, "unknown message type %q", msgType)
}

// NodeToRequest builds a request from a node through the validating
// constructors.
func NodeToRequest(node ast.SchemaNode, opts ...ConvertOption) (*Request, error) {
	cfg := newConvertConfig(opts)
	f, err := parser.NodeToRequest(node)
	if err != nil {
		return nil, newError("convert request", ErrInvalidArgument, "%v", err)
	}
	bag, err := cfg.headers(f.Headers)
	if err != nil {
		return nil, err
	}
	body, err := nodeBody(f.Body)
	if err != nil {
		return nil, err
	}

	r, err := newRequest(f.Uri, f.Method, body, bag)
	if err != nil {
		return nil, err
	}
	if r, err = r.WithProtocolVersion(cfg.versionOr(f.Version)); err != nil {
		return nil, err
	}
	if f.Target != "" {
		return r.WithRequestTarget(f.Target)
	}
	return r, nil
}

// NodeToServerRequest builds a server request from a node through the
// validating constructors.
func NodeToServerRequest(node ast.SchemaNode, opts ...ConvertOption) (*ServerRequest, error) {
	cfg := newConvertConfig(opts)
	f, err := parser.NodeToRequest(node)
	if err != nil {
		return nil, newError("convert server request", ErrInvalidArgument, "%v", err)
	}
	bag, err := cfg.headers(f.Headers)
	if err != nil {
		return nil, err
	}
	body, err := nodeBody(f.Body)
	if err != nil {
		return nil, err
	}

	r, err := newServerRequest(ServerRequestOptions{
		ServerParams:    f.ServerParams,
		Uri:             f.Uri,
		Method:          f.Method,
		Body:            body,
		Cookies:         f.Cookies,
		Query:           url.Values(f.Query),
		Attributes:      f.Attributes,
		ProtocolVersion: cfg.versionOr(f.Version),
	}, bag)
	if err != nil {
		return nil, err
	}
	if f.Target != "" {
		return r.WithRequestTarget(f.Target)
	}
	return r, nil
}

// NodeToResponse builds a response from a node through the validating
// constructors.
func NodeToResponse(node ast.SchemaNode, opts ...ConvertOption) (*Response, error) {
	cfg := newConvertConfig(opts)
	f, err := parser.NodeToResponse(node)
	if err != nil {
		return nil, newError("convert response", ErrInvalidArgument, "%v", err)
	}
	bag, err := cfg.headers(f.Headers)
	if err != nil {
		return nil, err
	}
	body, err := nodeBody(f.Body)
	if err != nil {
		return nil, err
	}

	r, err := newResponse(body, f.StatusCode, bag)
	if err != nil {
		return nil, err
	}
	if f.Reason != "" && f.Reason != r.reason {
		if r, err = r.WithStatus(r.status, f.Reason); err != nil {
			return nil, err
		}
	}
	return r.WithProtocolVersion(cfg.versionOr(f.Version))
}

func (c convertConfig) headers(hdrs []parser.Header) (HeaderBag, error) {
	fields := make([]Field, len(hdrs))
	for i, h := range hdrs {
		fields[i] = Field{Name: h.Name, Values: h.Values}
	}
	if c.tolerant {
		return importFields(fields), nil
	}
	return NewHeaderBagFromFields(fields)
}

func (c convertConfig) versionOr(v string) string {
	if v == "" {
		return c.version
	}
	return v
}

func headerFields(bag HeaderBag) []parser.Header {
	fields := bag.Fields()
	out := make([]parser.Header, len(fields))
	for i, f := range fields {
		out[i] = parser.Header{Name: f.Name, Values: f.Values}
	}
	return out
}

// nodeBody returns a temp stream holding b, or nil when the node had no body.
func nodeBody(b []byte) (any, error) {
	if b == nil {
		return nil, nil
	}
	s, err := NewTempStream()
	if err != nil {
		return nil, err
	}
	if _, err := s.Write(b); err != nil {
		return nil, fmt.Errorf("message: convert body: %w", err)
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("message: convert body: %w", err)
	}
	return s, nil
}

// snapshotBody reads the whole body without moving a seekable stream. An
// InputStream is drained into its cache. Other streams are left alone.
func snapshotBody(s Stream) []byte {
	if s == nil || !s.IsReadable() {
		return nil
	}
	if in, ok := s.(*InputStream); ok {
		return []byte(in.String())
	}
	if !s.IsSeekable() {
		return nil
	}
	pos, err := s.Tell()
	if err != nil {
		return nil
	}
	content := s.String()
	if _, err := s.Seek(pos, io.SeekStart); err != nil {
		return nil
	}
	return []byte(content)
}
