package reader

import (
	"strings"

	"github.com/peterson-umoke/intelephense/internal/phptree"
	"github.com/peterson-umoke/intelephense/internal/resolver"
	"github.com/peterson-umoke/intelephense/internal/symbol"
)

// typeStrFromNode collects the declared type of a PHP type annotation
// node into a TypeStr, resolving FQN atoms through res. Grounded on the
// teacher's collectTypeNames/resolveNamedType (internal/php/type_analysis.go),
// generalized from []string name lists to the spec's TypeStr union.
func typeStrFromNode(n phptree.Node, res *resolver.Resolver) symbol.TypeStr {
	out := symbol.TypeStr{}
	if n.IsNull() {
		return out
	}
	var collect func(phptree.Node)
	collect = func(node phptree.Node) {
		if node.IsNull() {
			return
		}
		switch node.Kind() {
		case "named_type":
			var inner phptree.Node
			for _, c := range node.Children() {
				switch c.Kind() {
				case "qualified_name", "relative_name", "name":
					inner = c
				}
			}
			raw := node.Content()
			if !inner.IsNull() {
				raw = inner.Content()
			}
			resolved := resolveWritten(res, raw, symbol.KindClass)
			if resolved != "" {
				out = out.Merge(symbol.NewTypeStr(resolved))
			}
		case "primitive_type":
			raw := strings.ToLower(strings.TrimSpace(node.Content()))
			if raw != "" {
				out = out.Merge(symbol.NewTypeStr(raw))
			}
		case "optional_type", "nullable_type":
			for _, c := range node.Children() {
				collect(c)
			}
			out = out.Merge(symbol.NewTypeStr(symbol.TypeNull))
		case "union_type", "intersection_type":
			for _, c := range node.Children() {
				collect(c)
			}
		case "qualified_name", "relative_name", "name":
			raw := strings.TrimSpace(node.Content())
			if raw == "" {
				return
			}
			resolved := resolveWritten(res, raw, symbol.KindClass)
			if resolved != "" {
				out = out.Merge(symbol.NewTypeStr(resolved))
			}
		default:
			for _, c := range node.Children() {
				collect(c)
			}
		}
	}
	collect(n)
	return out
}

// variableName extracts the PHP variable identifier ("$foo" -> "foo")
// from a variable_name (or by_ref-wrapped variable_name) node. Grounded
// on the teacher's VariableNameFromNode (internal/php/node_utils.go).
func variableName(n phptree.Node) string {
	if n.IsNull() {
		return ""
	}
	switch n.Kind() {
	case "variable_name":
		for _, c := range n.Children() {
			if c.Kind() == "name" {
				return c.Content()
			}
		}
		return strings.TrimPrefix(n.Content(), "$")
	case "by_ref":
		for _, c := range n.Children() {
			if c.Kind() == "variable_name" {
				return variableName(c)
			}
		}
	case "name":
		return n.Content()
	}
	return strings.TrimPrefix(strings.TrimSpace(n.Content()), "$")
}
