// Package parser converts between shape-core AST nodes and the plain field sets
// of HTTP messages. It performs no validation beyond shape checks; callers feed
// the field sets to the validating message constructors.
//
// A request is mapped to an ObjectNode with the following structure:
//
//	{ "type": "request", "method": "POST", "uri": "https://example.com/api",
//	  "target": "/api", "version": "1.1",
//	  "headers": [{"name": "Host", "values": ["example.com"]}, ...],
//	  "body": "..." }
//
// A server request uses "type": "server_request" and may add "serverParams",
// "cookies", "query" and "attributes" objects.
//
// A response:
//
//	{ "type": "response", "version": "1.1", "statusCode": 200,
//	  "reason": "OK",
//	  "headers": [{"name": "Content-Type", "values": ["text/plain"]}, ...],
//	  "body": "..." }
//
// Headers may also be given as an object of name to string or string array,
// which is how hand-written fixtures usually spell them.
package parser

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shapestone/shape-core/pkg/ast"
)

// Message type discriminators stored in the "type" property.
const (
	TypeRequest       = "request"
	TypeServerRequest = "server_request"
	TypeResponse      = "response"
)

var zeroPos = ast.Position{}

// Header is one header name with its ordered values.
type Header struct {
	Name   string
	Values []string
}

// RequestFields is the plain field set of a request or server request.
type RequestFields struct {
	Type    string
	Method  string
	Uri     string
	Target  string // explicit request-target override, "" if none
	Version string
	Headers []Header
	Body    []byte // nil if none

	ServerParams map[string]string
	Cookies      map[string]string
	Query        map[string][]string
	Attributes   map[string]interface{}
}

// ResponseFields is the plain field set of a response.
type ResponseFields struct {
	Version    string
	StatusCode int
	Reason     string
	Headers    []Header
	Body       []byte // nil if none
}

// MessageType returns the "type" discriminator of an object node.
func MessageType(node ast.SchemaNode) (string, error) {
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		return "", fmt.Errorf("expected ObjectNode, got %T", node)
	}
	typeProp, ok := obj.Properties()["type"]
	if !ok {
		return "", fmt.Errorf("missing 'type' property")
	}
	typeLit, ok := typeProp.(*ast.LiteralNode)
	if !ok {
		return "", fmt.Errorf("'type' is not a literal")
	}
	msgType, ok := typeLit.Value().(string)
	if !ok {
		return "", fmt.Errorf("'type' is not a string")
	}
	return msgType, nil
}

// RequestToNode converts request fields to an AST ObjectNode.
func RequestToNode(f *RequestFields) ast.SchemaNode {
	msgType := f.Type
	if msgType == "" {
		msgType = TypeRequest
	}
	props := map[string]ast.SchemaNode{
		"type":    ast.NewLiteralNode(msgType, zeroPos),
		"method":  ast.NewLiteralNode(f.Method, zeroPos),
		"uri":     ast.NewLiteralNode(f.Uri, zeroPos),
		"version": ast.NewLiteralNode(f.Version, zeroPos),
		"headers": headersToNode(f.Headers),
	}

	if f.Target != "" {
		props["target"] = ast.NewLiteralNode(f.Target, zeroPos)
	}
	if f.Body != nil {
		props["body"] = ast.NewLiteralNode(string(f.Body), zeroPos)
	}
	if f.ServerParams != nil {
		props["serverParams"] = InterfaceToNode(f.ServerParams)
	}
	if f.Cookies != nil {
		props["cookies"] = InterfaceToNode(f.Cookies)
	}
	if f.Query != nil {
		props["query"] = InterfaceToNode(f.Query)
	}
	if len(f.Attributes) > 0 {
		if n := InterfaceToNode(f.Attributes); n != nil {
			props["attributes"] = n
		}
	}

	return ast.NewObjectNode(props, zeroPos)
}

// ResponseToNode converts response fields to an AST ObjectNode.
func ResponseToNode(f *ResponseFields) ast.SchemaNode {
	props := map[string]ast.SchemaNode{
		"type":       ast.NewLiteralNode(TypeResponse, zeroPos),
		"version":    ast.NewLiteralNode(f.Version, zeroPos),
		"statusCode": ast.NewLiteralNode(int64(f.StatusCode), zeroPos),
		"reason":     ast.NewLiteralNode(f.Reason, zeroPos),
		"headers":    headersToNode(f.Headers),
	}

	if f.Body != nil {
		props["body"] = ast.NewLiteralNode(string(f.Body), zeroPos)
	}

	return ast.NewObjectNode(props, zeroPos)
}

func headersToNode(headers []Header) ast.SchemaNode {
	elements := make([]ast.SchemaNode, len(headers))
	for i, h := range headers {
		values := make([]ast.SchemaNode, len(h.Values))
		for j, v := range h.Values {
			values[j] = ast.NewLiteralNode(v, zeroPos)
		}
		elements[i] = ast.NewObjectNode(map[string]ast.SchemaNode{
			"name":   ast.NewLiteralNode(h.Name, zeroPos),
			"values": ast.NewArrayDataNode(values, zeroPos),
		}, zeroPos)
	}
	return ast.NewArrayDataNode(elements, zeroPos)
}

// NodeToRequest converts an AST ObjectNode back to request fields.
// Both "request" and "server_request" nodes are accepted.
func NodeToRequest(node ast.SchemaNode) (*RequestFields, error) {
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		return nil, fmt.Errorf("expected ObjectNode, got %T", node)
	}

	props := obj.Properties()
	f := &RequestFields{Type: TypeRequest}

	if v, ok := stringProp(props, "type"); ok {
		if v != TypeRequest && v != TypeServerRequest {
			return nil, fmt.Errorf("expected request node, got type %q", v)
		}
		f.Type = v
	}
	f.Method, _ = stringProp(props, "method")
	f.Uri, _ = stringProp(props, "uri")
	f.Target, _ = stringProp(props, "target")
	f.Version, _ = stringProp(props, "version")
	if v, ok := props["headers"]; ok {
		hdrs, err := nodeToHeaders(v)
		if err != nil {
			return nil, err
		}
		f.Headers = hdrs
	}
	if s, ok := stringProp(props, "body"); ok {
		f.Body = []byte(s)
	}
	if v, ok := props["serverParams"]; ok {
		f.ServerParams = nodeToStringMap(v)
	}
	if v, ok := props["cookies"]; ok {
		f.Cookies = nodeToStringMap(v)
	}
	if v, ok := props["query"]; ok {
		f.Query = nodeToValuesMap(v)
	}
	if v, ok := props["attributes"]; ok {
		if m, ok := NodeToInterface(v).(map[string]interface{}); ok {
			f.Attributes = m
		}
	}

	return f, nil
}

// NodeToResponse converts an AST ObjectNode back to response fields.
func NodeToResponse(node ast.SchemaNode) (*ResponseFields, error) {
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		return nil, fmt.Errorf("expected ObjectNode, got %T", node)
	}

	props := obj.Properties()
	f := &ResponseFields{}

	if v, ok := stringProp(props, "type"); ok && v != TypeResponse {
		return nil, fmt.Errorf("expected response node, got type %q", v)
	}
	f.Version, _ = stringProp(props, "version")
	if v, ok := props["statusCode"]; ok {
		code, err := nodeToStatusCode(v)
		if err != nil {
			return nil, err
		}
		f.StatusCode = code
	}
	f.Reason, _ = stringProp(props, "reason")
	if v, ok := props["headers"]; ok {
		hdrs, err := nodeToHeaders(v)
		if err != nil {
			return nil, err
		}
		f.Headers = hdrs
	}
	if s, ok := stringProp(props, "body"); ok {
		f.Body = []byte(s)
	}

	return f, nil
}

func stringProp(props map[string]ast.SchemaNode, key string) (string, bool) {
	v, ok := props[key]
	if !ok {
		return "", false
	}
	lit, ok := v.(*ast.LiteralNode)
	if !ok {
		return "", false
	}
	s, ok := lit.Value().(string)
	return s, ok
}

// nodeToHeaders accepts the array form ({"name", "values"} or {"key", "value"}
// elements) and the object form. Elements of the wrong shape and non-string
// values are skipped; validating the names and values is the caller's job.
func nodeToHeaders(node ast.SchemaNode) ([]Header, error) {
	switch n := node.(type) {
	case *ast.ArrayDataNode:
		elements := n.Elements()
		headers := make([]Header, 0, len(elements))
		for _, elem := range elements {
			obj, ok := elem.(*ast.ObjectNode)
			if !ok {
				continue
			}
			props := obj.Properties()
			name, ok := stringProp(props, "name")
			if !ok {
				name, _ = stringProp(props, "key")
			}
			var values []string
			if v, ok := props["values"]; ok {
				values = literalStrings(v)
			} else if v, ok := props["value"]; ok {
				values = literalStrings(v)
			}
			headers = append(headers, Header{Name: name, Values: values})
		}
		return headers, nil

	case *ast.ObjectNode:
		props := n.Properties()
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		headers := make([]Header, 0, len(names))
		for _, name := range names {
			headers = append(headers, Header{Name: name, Values: literalStrings(props[name])})
		}
		return headers, nil
	}
	return nil, fmt.Errorf("expected ArrayDataNode or ObjectNode for headers, got %T", node)
}

// literalStrings returns the string literals of a literal or array node.
func literalStrings(node ast.SchemaNode) []string {
	switch n := node.(type) {
	case *ast.LiteralNode:
		if s, ok := n.Value().(string); ok {
			return []string{s}
		}
	case *ast.ArrayDataNode:
		var out []string
		for _, elem := range n.Elements() {
			if lit, ok := elem.(*ast.LiteralNode); ok {
				if s, ok := lit.Value().(string); ok {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

func nodeToStringMap(node ast.SchemaNode) map[string]string {
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		return nil
	}
	props := obj.Properties()
	m := make(map[string]string, len(props))
	for k, v := range props {
		if lit, ok := v.(*ast.LiteralNode); ok {
			m[k] = literalString(lit)
		}
	}
	return m
}

func nodeToValuesMap(node ast.SchemaNode) map[string][]string {
	obj, ok := node.(*ast.ObjectNode)
	if !ok {
		return nil
	}
	props := obj.Properties()
	m := make(map[string][]string, len(props))
	for k, v := range props {
		switch n := v.(type) {
		case *ast.LiteralNode:
			m[k] = []string{literalString(n)}
		case *ast.ArrayDataNode:
			vals := make([]string, 0, len(n.Elements()))
			for _, elem := range n.Elements() {
				if lit, ok := elem.(*ast.LiteralNode); ok {
					vals = append(vals, literalString(lit))
				}
			}
			m[k] = vals
		}
	}
	return m
}

func literalString(lit *ast.LiteralNode) string {
	switch v := lit.Value().(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(lit.Value())
}

// nodeToStatusCode extracts the status code from a literal node.
func nodeToStatusCode(node ast.SchemaNode) (int, error) {
	lit, ok := node.(*ast.LiteralNode)
	if !ok {
		return 0, fmt.Errorf("statusCode is not a literal")
	}
	switch code := lit.Value().(type) {
	case int64:
		return int(code), nil
	case float64:
		if code != float64(int(code)) {
			return 0, fmt.Errorf("statusCode %v is not an integer", code)
		}
		return int(code), nil
	case string:
		n, err := strconv.Atoi(code)
		if err != nil {
			return 0, fmt.Errorf("statusCode %q is not an integer", code)
		}
		return n, nil
	}
	return 0, fmt.Errorf("statusCode has unsupported type %T", lit.Value())
}
