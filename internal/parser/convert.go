package parser

import (
	"sort"

	"github.com/shapestone/shape-core/pkg/ast"
)

// NodeToInterface converts an AST node to native Go types.
func NodeToInterface(node ast.SchemaNode) interface{} {
	switch n := node.(type) {
	case *ast.LiteralNode:
		return n.Value()
	case *ast.ArrayDataNode:
		elements := n.Elements()
		arr := make([]interface{}, len(elements))
		for i, elem := range elements {
			arr[i] = NodeToInterface(elem)
		}
		return arr
	case *ast.ObjectNode:
		props := n.Properties()
		m := make(map[string]interface{}, len(props))
		for k, v := range props {
			m[k] = NodeToInterface(v)
		}
		return m
	default:
		return nil
	}
}

// InterfaceToNode converts decoded YAML/JSON style Go values to an AST node.
// Integers become int64 literals and floats float64 literals. Values that have
// no AST form (nil, funcs, structs) yield nil and are dropped from containers.
func InterfaceToNode(v interface{}) ast.SchemaNode {
	switch x := v.(type) {
	case string:
		return ast.NewLiteralNode(x, zeroPos)
	case []byte:
		return ast.NewLiteralNode(string(x), zeroPos)
	case bool:
		return ast.NewLiteralNode(x, zeroPos)
	case int:
		return ast.NewLiteralNode(int64(x), zeroPos)
	case int32:
		return ast.NewLiteralNode(int64(x), zeroPos)
	case int64:
		return ast.NewLiteralNode(x, zeroPos)
	case uint:
		return ast.NewLiteralNode(int64(x), zeroPos)
	case uint32:
		return ast.NewLiteralNode(int64(x), zeroPos)
	case uint64:
		return ast.NewLiteralNode(int64(x), zeroPos)
	case float32:
		return ast.NewLiteralNode(float64(x), zeroPos)
	case float64:
		return ast.NewLiteralNode(x, zeroPos)
	case []string:
		elements := make([]ast.SchemaNode, len(x))
		for i, s := range x {
			elements[i] = ast.NewLiteralNode(s, zeroPos)
		}
		return ast.NewArrayDataNode(elements, zeroPos)
	case []interface{}:
		elements := make([]ast.SchemaNode, 0, len(x))
		for _, elem := range x {
			if n := InterfaceToNode(elem); n != nil {
				elements = append(elements, n)
			}
		}
		return ast.NewArrayDataNode(elements, zeroPos)
	case map[string]string:
		props := make(map[string]ast.SchemaNode, len(x))
		for k, s := range x {
			props[k] = ast.NewLiteralNode(s, zeroPos)
		}
		return ast.NewObjectNode(props, zeroPos)
	case map[string][]string:
		props := make(map[string]ast.SchemaNode, len(x))
		for k, vals := range x {
			props[k] = InterfaceToNode(vals)
		}
		return ast.NewObjectNode(props, zeroPos)
	case map[string]interface{}:
		props := make(map[string]ast.SchemaNode, len(x))
		for k, elem := range x {
			if n := InterfaceToNode(elem); n != nil {
				props[k] = n
			}
		}
		return ast.NewObjectNode(props, zeroPos)
	}
	return nil
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
