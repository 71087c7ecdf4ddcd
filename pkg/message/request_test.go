package message

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func mustRequest(t *testing.T, uri any, method string, headers map[string]any) *Request {
	t.Helper()
	r, err := NewRequest(uri, method, nil, headers)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	return r
}

func mustUri(t *testing.T, s string) *Uri {
	t.Helper()
	u, err := ParseUri(s)
	if err != nil {
		t.Fatalf("ParseUri(%q) error = %v", s, err)
	}
	return u
}

func TestNewRequest_Defaults(t *testing.T) {
	r := mustRequest(t, nil, "", nil)
	if r.Method() != "" {
		t.Errorf("Method() = %q, want empty", r.Method())
	}
	if r.ProtocolVersion() != "1.1" {
		t.Errorf("ProtocolVersion() = %q, want 1.1", r.ProtocolVersion())
	}
	if r.Uri() == nil || r.Uri().String() != "" {
		t.Errorf("Uri() = %v, want empty uri", r.Uri())
	}
	if r.RequestTarget() != "/" {
		t.Errorf("RequestTarget() = %q, want /", r.RequestTarget())
	}
	body := r.Body()
	if body == nil || !body.IsWritable() || !body.IsSeekable() {
		t.Fatal("default body should be a writable, seekable memory stream")
	}
	if r.Headers().Len() != 0 {
		t.Errorf("Headers() = %v, want empty", r.Headers().Map())
	}
}

func TestNewRequest_Inputs(t *testing.T) {
	u := mustUri(t, "http://example.com/x")
	r, err := NewRequest(u, "patch", TempBody, map[string]any{"X-Foo": "bar"})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if r.Uri() != u {
		t.Error("Uri() should be the given *Uri")
	}
	if r.Method() != "patch" {
		t.Errorf("Method() = %q, want patch (case kept)", r.Method())
	}

	tests := []struct {
		name    string
		uri     any
		method  string
		body    any
		headers map[string]any
		want    error
	}{
		{"bad uri type", 42, "GET", nil, nil, ErrInvalidUri},
		{"bad uri port", "http://h:99999/", "GET", nil, nil, ErrInvalidUri},
		{"bad method", "/", "GE T", nil, nil, ErrInvalidMethod},
		{"method with separator", "/", "GET/", nil, nil, ErrInvalidMethod},
		{"bad body", "/", "GET", 3.14, nil, ErrInvalidArgument},
		{"bad header", "/", "GET", nil, map[string]any{"X": "a\r\nb"}, ErrInvalidHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequest(tt.uri, tt.method, tt.body, tt.headers)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewRequest() err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("NewRequest() err = %v should match ErrInvalidArgument", err)
			}
		})
	}
}

func TestNewRequest_BodyFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body")
	r, err := NewRequest("/", "POST", path, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	defer r.Body().Close()

	if _, err := io.WriteString(r.Body(), "written"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "written" {
		t.Errorf("file content = %q", got)
	}
}

func TestNewRequest_BodyFromReader(t *testing.T) {
	r, err := NewRequest("/", "POST", strings.NewReader("payload"), nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if got := r.Body().String(); got != "payload" {
		t.Errorf("Body().String() = %q", got)
	}
}

func TestRequest_RequestTarget(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"https://api.example.com/user?foo=bar", "/user?foo=bar"},
		{"https://api.example.com", "/"},
		{"https://api.example.com?x=1", "/?x=1"},
		{"/just/path", "/just/path"},
		{"", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			r := mustRequest(t, tt.uri, "GET", nil)
			if got := r.RequestTarget(); got != tt.want {
				t.Errorf("RequestTarget() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequest_WithRequestTarget(t *testing.T) {
	r := mustRequest(t, "http://example.com/a", "OPTIONS", nil)
	star, err := r.WithRequestTarget("*")
	if err != nil {
		t.Fatalf("WithRequestTarget() error = %v", err)
	}
	if star.RequestTarget() != "*" {
		t.Errorf("RequestTarget() = %q, want *", star.RequestTarget())
	}
	if r.RequestTarget() != "/a" {
		t.Errorf("receiver mutated: RequestTarget() = %q", r.RequestTarget())
	}

	moved, _ := star.WithUri(mustUri(t, "http://example.com/b"), false)
	if moved.RequestTarget() != "*" {
		t.Errorf("override should survive WithUri, got %q", moved.RequestTarget())
	}

	for _, bad := range []string{"", "/a b", "/a\tb", "/a\nb"} {
		if _, err := r.WithRequestTarget(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("WithRequestTarget(%q) err = %v", bad, err)
		}
	}
}

func TestRequest_VirtualHost(t *testing.T) {
	r := mustRequest(t, "http://example.com/x", "GET", map[string]any{"Accept": "*/*"})

	if got := r.Header("host"); !reflect.DeepEqual(got, []string{"example.com"}) {
		t.Errorf("Header(host) = %v, want [example.com]", got)
	}
	if !r.HasHeader("Host") || r.HeaderLine("HOST") != "example.com" {
		t.Error("virtual Host header missing")
	}
	if names := r.Headers().Names(); !reflect.DeepEqual(names, []string{"Host", "Accept"}) {
		t.Errorf("Headers().Names() = %v, want [Host Accept]", names)
	}

	noHost := mustRequest(t, "/relative", "GET", nil)
	if noHost.HasHeader("Host") || noHost.Header("Host") != nil || noHost.Headers().Has("Host") {
		t.Error("request without URI host should have no Host header")
	}

	explicit := mustRequest(t, "http://example.com/", "GET", map[string]any{"Host": "other.test"})
	if got := explicit.HeaderLine("Host"); got != "other.test" {
		t.Errorf("explicit Host = %q, want other.test", got)
	}
}

func TestRequest_WithUriHostSync(t *testing.T) {
	withHost := mustRequest(t, "http://example.com/", "GET", map[string]any{"Host": "example.com"})
	target := mustUri(t, "http://www.example.com:10081/path")

	tests := []struct {
		name         string
		req          *Request
		uri          *Uri
		preserveHost bool
		want         string
	}{
		{"preserve keeps existing", withHost, target, true, "example.com"},
		{"replace with host and port", withHost, target, false, "www.example.com:10081"},
		{"uri without host leaves header", withHost, mustUri(t, "/only/path"), false, "example.com"},
		{"preserve without header derives", mustRequest(t, nil, "GET", nil), target, true, "www.example.com:10081"},
		{"idn host", withHost, mustUri(t, "http://bücher.example/"), false, "xn--bcher-kva.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.WithUri(tt.uri, tt.preserveHost)
			if err != nil {
				t.Fatalf("WithUri() error = %v", err)
			}
			if line := got.HeaderLine("Host"); line != tt.want {
				t.Errorf("Host = %q, want %q", line, tt.want)
			}
			if got.Uri() != tt.uri {
				t.Error("Uri() not replaced")
			}
		})
	}

	if withHost.HeaderLine("Host") != "example.com" || withHost.Uri().Host() != "example.com" {
		t.Error("receiver mutated by WithUri")
	}
	if _, err := withHost.WithUri(nil, false); !errors.Is(err, ErrInvalidUri) {
		t.Errorf("WithUri(nil) err = %v", err)
	}
}

func TestRequest_WithUriStoresHostFirst(t *testing.T) {
	r := mustRequest(t, nil, "GET", map[string]any{"Accept": "*/*", "Host": "old"})
	got, _ := r.WithUri(mustUri(t, "http://new.test/"), false)
	if names := got.Headers().Names(); names[0] != "Host" {
		t.Errorf("Names() = %v, want Host first", names)
	}
}

func TestRequest_WithMethod(t *testing.T) {
	r := mustRequest(t, nil, "GET", nil)

	lower, err := r.WithMethod("post")
	if err != nil || lower.Method() != "post" {
		t.Errorf("WithMethod(post) = %q, %v; want post", lower.Method(), err)
	}
	empty, err := r.WithMethod("")
	if err != nil || empty.Method() != "" {
		t.Errorf("WithMethod(\"\") = %q, %v", empty.Method(), err)
	}
	if _, err := r.WithMethod("BAD METHOD"); !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("WithMethod(BAD METHOD) err = %v", err)
	}
	if r.Method() != "GET" {
		t.Error("receiver mutated by WithMethod")
	}
}

func TestRequest_Immutability(t *testing.T) {
	r := mustRequest(t, "http://example.com/", "GET", map[string]any{"X-Foo": "bar"})
	other, _ := NewTempStream()

	mutators := []struct {
		name string
		fn   func() (*Request, error)
	}{
		{"WithMethod", func() (*Request, error) { return r.WithMethod("POST") }},
		{"WithRequestTarget", func() (*Request, error) { return r.WithRequestTarget("*") }},
		{"WithUri", func() (*Request, error) { return r.WithUri(mustUri(t, "http://other.test/"), false) }},
		{"WithProtocolVersion", func() (*Request, error) { return r.WithProtocolVersion("2") }},
		{"WithHeader", func() (*Request, error) { return r.WithHeader("X-Foo", "baz") }},
		{"WithAddedHeader", func() (*Request, error) { return r.WithAddedHeader("X-Foo", "baz") }},
		{"WithoutHeader", func() (*Request, error) { return r.WithoutHeader("X-Foo"), nil }},
		{"WithBody", func() (*Request, error) { return r.WithBody(other) }},
	}

	for _, m := range mutators {
		t.Run(m.name, func(t *testing.T) {
			got, err := m.fn()
			if err != nil {
				t.Fatalf("%s error = %v", m.name, err)
			}
			if got == r {
				t.Fatal("mutator returned the receiver")
			}
			if r.Method() != "GET" || r.RequestTarget() != "/" || r.Uri().Host() != "example.com" ||
				r.ProtocolVersion() != "1.1" || r.HeaderLine("X-Foo") != "bar" || r.Body() == Stream(other) {
				t.Error("receiver state changed")
			}
		})
	}
}

func TestRequest_HeaderRoundTrip(t *testing.T) {
	r := mustRequest(t, nil, "GET", nil)
	with, err := r.WithHeader("X-List", "a", "b", "c")
	if err != nil {
		t.Fatalf("WithHeader() error = %v", err)
	}
	if got := with.HeaderLine("x-list"); got != "a,b,c" {
		t.Errorf("HeaderLine() = %q", got)
	}
	without := with.WithoutHeader("X-LIST")
	if without.HasHeader("x-list") {
		t.Error("HasHeader() = true after WithoutHeader")
	}

	for _, v := range injectionVectors {
		if _, err := r.WithHeader("X-Foo", v); !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("WithHeader(%q) err = %v", v, err)
		}
		if _, err := r.WithAddedHeader("X-Foo", v); !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("WithAddedHeader(%q) err = %v", v, err)
		}
	}
}

func TestRequest_WithProtocolVersion(t *testing.T) {
	r := mustRequest(t, nil, "GET", nil)
	for _, v := range []string{"1.0", "1.1", "2", "3"} {
		got, err := r.WithProtocolVersion(v)
		if err != nil || got.ProtocolVersion() != v {
			t.Errorf("WithProtocolVersion(%q) = %v, %v", v, got, err)
		}
	}
	for _, v := range []string{"", "HTTP/1.1", "1.", ".1", "1.1.1", "a"} {
		if _, err := r.WithProtocolVersion(v); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("WithProtocolVersion(%q) err = %v", v, err)
		}
	}
}

func TestRequest_WithBodySharesStream(t *testing.T) {
	r := mustRequest(t, nil, "POST", nil)
	if _, err := r.WithBody(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("WithBody(nil) err = %v", err)
	}

	derived, _ := r.WithHeader("X", "1")
	if derived.Body() != r.Body() {
		t.Fatal("derived request should share the body stream")
	}
	r.Body().Close()
	if derived.Body().IsReadable() {
		t.Error("closing the shared stream should affect derived requests")
	}
}

func TestRequest_ImplementsMessage(t *testing.T) {
	var _ Message = mustRequest(t, nil, "GET", nil)
}
