package message

import (
	"strings"

	"github.com/shapestone/shape-message/internal/tokenizer"
)

// DefaultStatus is the status of a response created with status 0.
const DefaultStatus = 200

// Response is an immutable HTTP response.
type Response struct {
	message
	status int
	reason string
}

// NewResponse creates a response. body is handled as in NewRequest; status 0
// means DefaultStatus.
func NewResponse(body any, status int, headers map[string]any) (*Response, error) {
	bag, err := NewHeaderBag(headers)
	if err != nil {
		return nil, err
	}
	return newResponse(body, status, bag)
}

func newResponse(body any, status int, headers HeaderBag) (*Response, error) {
	if status == 0 {
		status = DefaultStatus
	}
	if !validStatus(status) {
		return nil, newError("new response", ErrInvalidStatusCode, "status %d out of range 100-599", status)
	}
	stream, err := newBodyStream(body, defaultBodyFlag)
	if err != nil {
		return nil, err
	}
	return &Response{
		message: newMessage(headers, stream),
		status:  status,
		reason:  ReasonPhrase(status),
	}, nil
}

// StatusCode returns the status code.
func (r *Response) StatusCode() int { return r.status }

// ReasonPhrase returns the reason phrase, "" for unregistered codes without an
// explicit phrase.
func (r *Response) ReasonPhrase() string { return r.reason }

// WithStatus returns a copy with the status replaced. An empty reason selects
// the registered phrase for code.
func (r *Response) WithStatus(code int, reason string) (*Response, error) {
	if !validStatus(code) {
		return nil, newError("with status", ErrInvalidStatusCode, "status %d out of range 100-599", code)
	}
	if reason == "" {
		reason = ReasonPhrase(code)
	} else if strings.ContainsAny(reason, "\r\n") || !tokenizer.IsSafeValue(reason) {
		return nil, newError("with status", ErrInvalidArgument, "invalid reason phrase %q", reason)
	}
	c := *r
	c.status = code
	c.reason = reason
	return &c, nil
}

// WithProtocolVersion returns a copy with the protocol version replaced.
func (r *Response) WithProtocolVersion(version string) (*Response, error) {
	m, err := r.message.withProtocolVersion(version)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithHeader returns a copy in which the named header holds exactly values.
func (r *Response) WithHeader(name string, values ...string) (*Response, error) {
	m, err := r.message.withHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithAddedHeader returns a copy with values appended to the named header.
func (r *Response) WithAddedHeader(name string, values ...string) (*Response, error) {
	m, err := r.message.withAddedHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithoutHeader returns a copy without the named header.
func (r *Response) WithoutHeader(name string) *Response {
	c := *r
	c.message = r.message.withoutHeader(name)
	return &c
}

// WithBody returns a copy with the body replaced.
func (r *Response) WithBody(body Stream) (*Response, error) {
	m, err := r.message.withBody(body)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}
