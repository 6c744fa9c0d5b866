package reader

import (
	"strings"

	"github.com/peterson-umoke/intelephense/internal/phptree"
	"github.com/peterson-umoke/intelephense/internal/resolver"
)

// collectUses performs a full-tree scan for namespace_use_declaration
// nodes and populates an import table, matching the teacher's
// collectNamespaceUses (internal/php/type_analysis.go) generalized to
// track the class/function/constant kind of each rule per §4.D.
func collectUses(root phptree.Node) *resolver.ImportTable {
	table := resolver.NewImportTable()
	phptree.Walk(root, phptree.Visitor{
		Preorder: func(n phptree.Node) {
			if n.Kind() != "namespace_use_declaration" {
				return
			}
			declKind := useDeclarationKind(n)
			prefix := ""
			for _, child := range n.Children() {
				switch child.Kind() {
				case "namespace_name", "qualified_name", "name":
					if prefix == "" {
						prefix = normalizeFQN(child.Content())
					}
				case "namespace_use_group":
					for _, clause := range child.Children() {
						if clause.Kind() == "namespace_use_clause" {
							addUseClause(table, clause, prefix, declKind)
						}
					}
				case "namespace_use_clause":
					addUseClause(table, child, "", declKind)
				}
			}
		},
	})
	return table
}

func useDeclarationKind(n phptree.Node) resolver.ImportKind {
	// A `use function` / `use const` statement flags its kind on the
	// namespace_use_declaration itself (field "type"); mixed groups flag
	// individual clauses instead (handled in addUseClause).
	typeNode := n.Field("type")
	if typeNode.IsNull() {
		return resolver.ImportClass
	}
	switch strings.ToLower(typeNode.Content()) {
	case "function":
		return resolver.ImportFunction
	case "const":
		return resolver.ImportConstant
	default:
		return resolver.ImportClass
	}
}

func addUseClause(table *resolver.ImportTable, clause phptree.Node, prefix string, declKind resolver.ImportKind) {
	if clause.IsNull() {
		return
	}

	kind := declKind
	if typeNode := clause.Field("type"); !typeNode.IsNull() {
		switch strings.ToLower(typeNode.Content()) {
		case "function":
			kind = resolver.ImportFunction
		case "const":
			kind = resolver.ImportConstant
		}
	}

	alias := ""
	if aliasNode := clause.Field("alias"); !aliasNode.IsNull() {
		alias = strings.TrimSpace(aliasNode.Content())
	}

	var nameNode phptree.Node
	for i, c := range clause.Children() {
		if clause.FieldNameAt(i) == "alias" {
			continue
		}
		switch c.Kind() {
		case "qualified_name", "relative_name", "name":
			nameNode = c
		}
		if !nameNode.IsNull() {
			break
		}
	}
	if nameNode.IsNull() {
		return
	}

	base := strings.TrimSpace(nameNode.Content())
	full := base
	if prefix != "" {
		full = prefix + "\\" + strings.TrimLeft(base, "\\")
	}
	full = normalizeFQN(full)
	if full == "" {
		return
	}

	if alias == "" {
		alias = shortName(full)
	}
	table.Add(alias, full, kind)
}

func normalizeFQN(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, "\\")
	return name
}
