// Package message provides immutable HTTP message value objects: requests,
// server-side requests, responses, URIs, header bags, body streams and
// uploaded files.
//
// Every WithX method returns a new value and leaves its receiver untouched.
// Methods whose input can be invalid return an error matching one of the
// sentinels in errors.go; nothing is validated lazily.
//
// # Thread Safety
//
// Messages, URIs and header bags are safe for concurrent reads: no method
// mutates them after construction. Body streams and uploaded files carry
// mutable external state. A stream is shared by every message derived from
// the one it was attached to, so callers that share a stream across
// goroutines must serialize access themselves.
//
// # Request and ServerRequest
//
// Request keeps the method exactly as given and allows it to be empty. It
// reports a Host header derived from its URI when no Host header is stored.
// ServerRequest upper-cases the method, reports "GET" for an empty one and
// never synthesizes a Host header.
package message

import (
	"io"
	"os"

	"github.com/shapestone/shape-message/internal/grammar"
)

// DefaultProtocolVersion is the protocol version of new messages.
const DefaultProtocolVersion = "1.1"

// Message is the part shared by requests and responses.
type Message interface {
	ProtocolVersion() string
	Headers() HeaderBag
	HasHeader(name string) bool
	Header(name string) []string
	HeaderLine(name string) string
	Body() Stream
}

type message struct {
	version string
	headers HeaderBag
	body    Stream
}

func newMessage(headers HeaderBag, body Stream) message {
	return message{version: DefaultProtocolVersion, headers: headers, body: body}
}

// ProtocolVersion returns the HTTP version number, e.g. "1.1".
func (m *message) ProtocolVersion() string { return m.version }

// Headers returns the stored headers.
func (m *message) Headers() HeaderBag { return m.headers }

// HasHeader reports whether the named header is present.
func (m *message) HasHeader(name string) bool { return m.headers.Has(name) }

// Header returns the values of the named header, or nil.
func (m *message) Header(name string) []string { return m.headers.Get(name) }

// HeaderLine returns the values of the named header joined with ",".
func (m *message) HeaderLine(name string) string { return m.headers.Line(name) }

// Body returns the body stream.
func (m *message) Body() Stream { return m.body }

func (m message) withProtocolVersion(version string) (message, error) {
	if !grammar.IsProtocolVersion(version) {
		return m, newError("with protocol version", ErrInvalidArgument, "invalid protocol version %q", version)
	}
	m.version = version
	return m, nil
}

func (m message) withHeader(name string, values []string) (message, error) {
	h, err := m.headers.With(name, values...)
	if err != nil {
		return m, err
	}
	m.headers = h
	return m, nil
}

func (m message) withAddedHeader(name string, values []string) (message, error) {
	h, err := m.headers.WithAdded(name, values...)
	if err != nil {
		return m, err
	}
	m.headers = h
	return m, nil
}

func (m message) withoutHeader(name string) message {
	m.headers = m.headers.Without(name)
	return m
}

func (m message) withBody(body Stream) (message, error) {
	if body == nil {
		return m, newError("with body", ErrInvalidArgument, "nil body")
	}
	m.body = body
	return m, nil
}

// newBodyStream turns a body-like value into a Stream. nil and TempBody give a
// fresh in-memory stream, other strings are paths opened on Filesystem() with
// flag. Files and readers are wrapped.
func newBodyStream(body any, flag int) (Stream, error) {
	switch b := body.(type) {
	case nil:
		return NewTempStream()
	case string:
		if b == TempBody {
			return NewTempStream()
		}
		return OpenStream(Filesystem(), b, flag)
	case Stream:
		return b, nil
	}
	if _, ok := body.(io.Reader); ok {
		return NewFileStream(body)
	}
	if _, ok := body.(io.Writer); ok {
		return NewFileStream(body)
	}
	return nil, newError("new body", ErrInvalidArgument, "unsupported body %T", body)
}

const defaultBodyFlag = os.O_RDWR | os.O_CREATE
