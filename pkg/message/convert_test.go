package message

import (
	"errors"
	"io"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/shapestone/shape-core/pkg/ast"
)

func literal(t *testing.T, node ast.SchemaNode, key string) any {
	t.Helper()
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		t.Fatalf("expected ObjectNode, got %T", node)
	}
	lit, ok := obj.Properties()[key].(*ast.LiteralNode)
	if !ok {
		t.Fatalf("%s is %T, want LiteralNode", key, obj.Properties()[key])
	}
	return lit.Value()
}

func TestRequestToNode(t *testing.T) {
	r := mustRequest(t, "http://example.com/api?x=1", "POST", map[string]any{"Accept": "*/*"})
	io.WriteString(r.Body(), "payload")

	node := RequestToNode(r)
	if got := literal(t, node, "type"); got != "request" {
		t.Errorf("type = %v", got)
	}
	if got := literal(t, node, "method"); got != "POST" {
		t.Errorf("method = %v", got)
	}
	if got := literal(t, node, "uri"); got != "http://example.com/api?x=1" {
		t.Errorf("uri = %v", got)
	}
	if got := literal(t, node, "body"); got != "payload" {
		t.Errorf("body = %v", got)
	}
	if pos, _ := r.Body().Tell(); pos != 7 {
		t.Errorf("snapshot moved the body: Tell() = %d, want 7", pos)
	}

	headers := NodeToInterface(node.(*ast.ObjectNode).Properties()["headers"]).([]any)
	first := headers[0].(map[string]any)
	if first["name"] != "Host" {
		t.Errorf("first header = %v, want derived Host", first)
	}
}

func TestRequestNodeRoundTrip(t *testing.T) {
	orig := mustRequest(t, "https://example.com/a", "get", map[string]any{"X-Foo": []string{"1", "2"}})
	orig, _ = orig.WithRequestTarget("*")
	orig, _ = orig.WithProtocolVersion("2")
	io.WriteString(orig.Body(), "body")

	got, err := NodeToRequest(RequestToNode(orig))
	if err != nil {
		t.Fatalf("NodeToRequest() error = %v", err)
	}
	if got.Method() != "get" || got.RequestTarget() != "*" || got.ProtocolVersion() != "2" {
		t.Errorf("request line = %q %q %q", got.Method(), got.RequestTarget(), got.ProtocolVersion())
	}
	if !got.Uri().Equal(orig.Uri()) {
		t.Errorf("Uri() = %s, want %s", got.Uri(), orig.Uri())
	}
	if got.HeaderLine("X-Foo") != "1,2" || got.HeaderLine("Host") != "example.com" {
		t.Errorf("headers = %v", got.Headers().Map())
	}
	if got.Body().String() != "body" {
		t.Errorf("body = %q", got.Body().String())
	}
}

func TestServerRequestNodeRoundTrip(t *testing.T) {
	orig := mustServerRequest(t, ServerRequestOptions{
		ServerParams: map[string]string{"REMOTE_ADDR": "127.0.0.1"},
		Uri:          "http://example.com/search",
		Method:       "post",
		Body:         strings.NewReader("q=go"),
		Cookies:      map[string]string{"sid": "1"},
		Query:        url.Values{"q": {"go", "rust"}},
		Attributes:   map[string]any{"route": "search"},
	})

	node := ServerRequestToNode(orig)
	if got := literal(t, node, "type"); got != "server_request" {
		t.Errorf("type = %v", got)
	}

	msg, err := NodeToMessage(node)
	if err != nil {
		t.Fatalf("NodeToMessage() error = %v", err)
	}
	got, ok := msg.(*ServerRequest)
	if !ok {
		t.Fatalf("NodeToMessage() = %T, want *ServerRequest", msg)
	}
	if got.Method() != "POST" {
		t.Errorf("Method() = %q", got.Method())
	}
	if !reflect.DeepEqual(got.ServerParams(), orig.ServerParams()) {
		t.Errorf("ServerParams() = %v", got.ServerParams())
	}
	if !reflect.DeepEqual(got.CookieParams(), orig.CookieParams()) {
		t.Errorf("CookieParams() = %v", got.CookieParams())
	}
	if !reflect.DeepEqual(got.QueryParams(), orig.QueryParams()) {
		t.Errorf("QueryParams() = %v", got.QueryParams())
	}
	if got.Attribute("route", nil) != "search" {
		t.Errorf("Attributes() = %v", got.Attributes())
	}
	if got.Body().String() != "q=go" {
		t.Errorf("body = %q", got.Body().String())
	}
	if got.HasHeader("Host") {
		t.Error("server request snapshot should not gain a Host header")
	}
}

func TestServerRequestToNode_InputStream(t *testing.T) {
	r := mustServerRequest(t, ServerRequestOptions{Body: io.MultiReader(strings.NewReader("forward"))})
	node := ServerRequestToNode(r)
	if got := literal(t, node, "body"); got != "forward" {
		t.Errorf("body = %v, want forward", got)
	}
	if got := r.Body().String(); got != "forward" {
		t.Errorf("body after snapshot = %q", got)
	}
}

func TestResponseNodeRoundTrip(t *testing.T) {
	orig, _ := NewResponse(nil, 404, map[string]any{"Content-Type": "text/plain"})
	orig, _ = orig.WithStatus(404, "Gone Fishing")
	io.WriteString(orig.Body(), "missing")

	node := ResponseToNode(orig)
	if got := literal(t, node, "statusCode"); got != int64(404) {
		t.Errorf("statusCode = %v", got)
	}

	got, err := NodeToResponse(node)
	if err != nil {
		t.Fatalf("NodeToResponse() error = %v", err)
	}
	if got.StatusCode() != 404 || got.ReasonPhrase() != "Gone Fishing" {
		t.Errorf("status = %d %q", got.StatusCode(), got.ReasonPhrase())
	}
	if got.HeaderLine("content-type") != "text/plain" || got.Body().String() != "missing" {
		t.Errorf("response = %v %q", got.Headers().Map(), got.Body().String())
	}
}

func TestNodeToMessage_Validates(t *testing.T) {
	pos := ast.Position{}
	badHeader := ast.NewObjectNode(map[string]ast.SchemaNode{
		"type":   ast.NewLiteralNode("request", pos),
		"method": ast.NewLiteralNode("GET", pos),
		"headers": ast.NewObjectNode(map[string]ast.SchemaNode{
			"X-Good": ast.NewLiteralNode("ok", pos),
			"X-Bad":  ast.NewLiteralNode("a\r\n\r\nb", pos),
		}, pos),
	}, pos)

	if _, err := NodeToMessage(badHeader); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("strict conversion err = %v, want ErrInvalidHeader", err)
	}

	msg, err := NodeToMessage(badHeader, TolerantHeaders())
	if err != nil {
		t.Fatalf("tolerant conversion error = %v", err)
	}
	if msg.HasHeader("X-Bad") || !msg.HasHeader("X-Good") {
		t.Errorf("tolerant headers = %v", msg.Headers().Map())
	}

	tests := []struct {
		name string
		node ast.SchemaNode
		want error
	}{
		{"not an object", ast.NewLiteralNode("x", pos), ErrInvalidArgument},
		{"unknown type", ast.NewObjectNode(map[string]ast.SchemaNode{"type": ast.NewLiteralNode("email", pos)}, pos), ErrInvalidArgument},
		{"bad method", ast.NewObjectNode(map[string]ast.SchemaNode{
			"type": ast.NewLiteralNode("request", pos), "method": ast.NewLiteralNode("G T", pos),
		}, pos), ErrInvalidMethod},
		{"bad status", ast.NewObjectNode(map[string]ast.SchemaNode{
			"type": ast.NewLiteralNode("response", pos), "statusCode": ast.NewLiteralNode(int64(42), pos),
		}, pos), ErrInvalidStatusCode},
		{"bad version", ast.NewObjectNode(map[string]ast.SchemaNode{
			"type": ast.NewLiteralNode("response", pos), "version": ast.NewLiteralNode("HTTP/1.1", pos),
		}, pos), ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NodeToMessage(tt.node); !errors.Is(err, tt.want) {
				t.Errorf("NodeToMessage() err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNodeToMessage_DefaultVersion(t *testing.T) {
	pos := ast.Position{}
	node := ast.NewObjectNode(map[string]ast.SchemaNode{
		"type": ast.NewLiteralNode("response", pos),
	}, pos)

	msg, err := NodeToMessage(node, DefaultVersion("1.0"))
	if err != nil {
		t.Fatalf("NodeToMessage() error = %v", err)
	}
	if msg.ProtocolVersion() != "1.0" {
		t.Errorf("ProtocolVersion() = %q, want 1.0", msg.ProtocolVersion())
	}
	if resp := msg.(*Response); resp.StatusCode() != 200 {
		t.Errorf("StatusCode() = %d, want 200", resp.StatusCode())
	}
}
