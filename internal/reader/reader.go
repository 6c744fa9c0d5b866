// Package reader implements the symbol reader (§4.D): a single
// post-order-ish tree walk that turns a parsed document into its symbol
// tree and import table.
package reader

import (
	"github.com/peterson-umoke/intelephense/internal/phptree"
	"github.com/peterson-umoke/intelephense/internal/resolver"
	"github.com/peterson-umoke/intelephense/internal/symbol"
)

// Result is the output of reading one document: its symbol tree (rooted
// at a synthetic namespace symbol) and the import table governing name
// resolution within it.
type Result struct {
	Root    *symbol.Symbol
	Imports *resolver.ImportTable
}

// Reader walks a parse tree into a Result. It carries no state between
// calls; a single Reader value is safe to reuse across documents.
type Reader struct{}

// New constructs a Reader.
func New() *Reader { return &Reader{} }

// Read builds the symbol tree for tree, whose declarations are attributed
// to uri.
func (r *Reader) Read(tree phptree.Tree, uri string) Result {
	root := tree.Root()
	imports := collectUses(root)
	synthetic := &symbol.Symbol{Kind: symbol.KindNamespace}
	res := &resolver.Resolver{Namespace: "", Imports: imports}
	processDecls(root.Children(), synthetic, res, uri)
	return Result{Root: synthetic, Imports: imports}
}

func processDecls(nodes []phptree.Node, parent *symbol.Symbol, res *resolver.Resolver, uri string) {
	target := parent
	for i, n := range nodes {
		switch n.Kind() {
		case "namespace_definition", "namespace_declaration":
			nsName := ""
			if nameNode := n.Field("name"); !nameNode.IsNull() {
				nsName = normalizeFQN(nameNode.Content())
			}
			nsSym := &symbol.Symbol{Kind: symbol.KindNamespace, Name: nsName, Location: locationOf(n, uri)}
			parent.Children = append(parent.Children, nsSym)
			if body := n.Field("body"); !body.IsNull() {
				childRes := &resolver.Resolver{Namespace: nsName, Imports: res.Imports}
				processDecls(body.Children(), nsSym, childRes, uri)
			} else {
				res.Namespace = nsName
				target = nsSym
			}
		case "namespace_use_declaration":
			// Collected globally up front by collectUses.
		case "class_declaration", "interface_declaration", "trait_declaration":
			doc := precedingDoc(nodes, i)
			target.Children = append(target.Children, buildClassLike(n, res, uri, doc))
		case "function_definition", "function_declaration":
			doc := precedingDoc(nodes, i)
			target.Children = append(target.Children, buildFunction(n, res, uri, doc))
		case "const_declaration":
			doc := precedingDoc(nodes, i)
			target.Children = append(target.Children, buildConsts(n, res, uri, doc, symbol.KindConstant, "", true)...)
		}
	}
}

func declareFQN(res *resolver.Resolver, name string) string {
	if res.Namespace == "" {
		return name
	}
	return res.Namespace + "\\" + name
}

func locationOf(n phptree.Node, uri string) symbol.Location {
	r := n.Range()
	return symbol.Location{
		URI:         uri,
		StartLine:   r.StartLine,
		StartColumn: r.StartColumn,
		EndLine:     r.EndLine,
		EndColumn:   r.EndColumn,
	}
}

func precedingDoc(nodes []phptree.Node, idx int) docblock {
	if idx <= 0 {
		return docblock{}
	}
	prev := nodes[idx-1]
	if prev.Kind() != "comment" {
		return docblock{}
	}
	return parseDocblock(prev.Content())
}

var classLikeKinds = map[string]symbol.Kind{
	"class_declaration":     symbol.KindClass,
	"interface_declaration": symbol.KindInterface,
	"trait_declaration":     symbol.KindTrait,
}

func buildClassLike(n phptree.Node, res *resolver.Resolver, uri string, doc docblock) *symbol.Symbol {
	kind := classLikeKinds[n.Kind()]
	name := n.Field("name").Content()
	fqn := declareFQN(res, name)

	sym := &symbol.Symbol{
		Kind:        kind,
		Name:        fqn,
		Modifiers:   modifiersOf(n, false),
		Description: doc.summary,
		Location:    locationOf(n, uri),
	}

	for _, child := range n.Children() {
		switch child.Kind() {
		case "base_clause":
			for _, base := range child.Children() {
				if resolved := resolveWritten(res, base.Content(), symbol.KindClass); resolved != "" {
					sym.Associated = appendUnique(sym.Associated, resolved)
				}
			}
		case "class_interface_clause":
			for _, iface := range child.Children() {
				if resolved := resolveWritten(res, iface.Content(), symbol.KindClass); resolved != "" {
					sym.Associated = appendUnique(sym.Associated, resolved)
				}
			}
		}
	}

	if body := n.Field("body"); !body.IsNull() {
		processClassBody(body.Children(), sym, res, uri)
	}

	applyClassDocTags(sym, doc, res)
	return sym
}

func processClassBody(nodes []phptree.Node, owner *symbol.Symbol, res *resolver.Resolver, uri string) {
	for i, n := range nodes {
		switch n.Kind() {
		case "method_declaration":
			doc := precedingDoc(nodes, i)
			owner.Children = append(owner.Children, buildMethod(n, res, uri, doc, owner.Name))
		case "property_declaration":
			doc := precedingDoc(nodes, i)
			owner.Children = append(owner.Children, buildProperties(n, res, uri, doc, owner.Name)...)
		case "const_declaration":
			doc := precedingDoc(nodes, i)
			owner.Children = append(owner.Children, buildConsts(n, res, uri, doc, symbol.KindClassConstant, owner.Name, false)...)
		case "use_declaration":
			collectTraitUses(n, res, owner)
		}
	}
}

func collectTraitUses(n phptree.Node, res *resolver.Resolver, owner *symbol.Symbol) {
	var walk func(phptree.Node)
	walk = func(node phptree.Node) {
		switch node.Kind() {
		case "qualified_name", "relative_name", "name":
			if resolved := resolveWritten(res, node.Content(), symbol.KindTrait); resolved != "" {
				owner.Associated = appendUnique(owner.Associated, resolved)
			}
			return
		}
		for _, c := range node.Children() {
			walk(c)
		}
	}
	walk(n)
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func buildFunction(n phptree.Node, res *resolver.Resolver, uri string, doc docblock) *symbol.Symbol {
	name := n.Field("name").Content()
	fqn := declareFQN(res, name)
	return buildCallable(n, res, uri, doc, symbol.KindFunction, fqn, "")
}

func buildMethod(n phptree.Node, res *resolver.Resolver, uri string, doc docblock, scope string) *symbol.Symbol {
	name := n.Field("name").Content()
	return buildCallable(n, res, uri, doc, symbol.KindMethod, name, scope)
}

func buildCallable(n phptree.Node, res *resolver.Resolver, uri string, doc docblock, kind symbol.Kind, name, scope string) *symbol.Symbol {
	sym := &symbol.Symbol{
		Kind:        kind,
		Name:        name,
		Scope:       scope,
		Modifiers:   modifiersOf(n, kind == symbol.KindMethod),
		Description: doc.summary,
		Location:    locationOf(n, uri),
	}

	params := buildParameters(n.Field("parameters"), res, uri)
	for _, tag := range doc.tags {
		if tag.kind != tagParam {
			continue
		}
		for _, p := range params {
			if p.Name == tag.name {
				p.Type = p.Type.Merge(resolveTagType(tag.typeText, res))
			}
		}
	}
	sym.Children = params

	retType := typeStrFromNode(n.Field("return_type"), res)
	for _, tag := range doc.tags {
		if tag.kind == tagReturn {
			retType = retType.Merge(resolveTagType(tag.typeText, res))
		}
	}
	sym.Type = retType

	return sym
}

func buildParameters(paramsNode phptree.Node, res *resolver.Resolver, uri string) []*symbol.Symbol {
	var out []*symbol.Symbol
	for _, p := range paramsNode.Children() {
		nameNode := p.Field("name")
		name := variableName(nameNode)
		if name == "" {
			// A parameter without a name is skipped silently (§4.D).
			continue
		}
		isPromoted := p.Kind() == "property_promotion_parameter"
		sym := &symbol.Symbol{
			Kind:      symbol.KindParameter,
			Name:      name,
			Type:      typeStrFromNode(p.Field("type"), res),
			Modifiers: modifiersOf(p, isPromoted),
			Location:  locationOf(p, uri),
		}
		out = append(out, sym)
	}
	return out
}

func buildProperties(n phptree.Node, res *resolver.Resolver, uri string, doc docblock, scope string) []*symbol.Symbol {
	baseType := typeStrFromNode(n.Field("type"), res)
	mods := modifiersOf(n, true)

	var out []*symbol.Symbol
	for _, child := range n.Children() {
		if child.Kind() != "property_element" {
			continue
		}
		name := variableName(child.Field("name"))
		if name == "" {
			continue
		}
		out = append(out, &symbol.Symbol{
			Kind:        symbol.KindProperty,
			Name:        name,
			Scope:       scope,
			Type:        baseType,
			Modifiers:   mods,
			Description: doc.summary,
			Location:    locationOf(child, uri),
		})
	}

	for _, tag := range doc.tags {
		if tag.kind != tagVar {
			continue
		}
		t := resolveTagType(tag.typeText, res)
		for _, s := range out {
			if tag.name == "" || tag.name == s.Name {
				s.Type = s.Type.Merge(t)
			}
		}
	}

	return out
}

func buildConsts(n phptree.Node, res *resolver.Resolver, uri string, doc docblock, kind symbol.Kind, scope string, namespaced bool) []*symbol.Symbol {
	mods := modifiersOf(n, kind == symbol.KindClassConstant)
	var out []*symbol.Symbol
	for _, child := range n.Children() {
		if child.Kind() != "const_element" {
			continue
		}
		raw := child.Field("name").Content()
		name := raw
		if namespaced {
			name = declareFQN(res, raw)
		}
		out = append(out, &symbol.Symbol{
			Kind:        kind,
			Name:        name,
			Scope:       scope,
			Modifiers:   mods,
			Description: doc.summary,
			Location:    locationOf(child, uri),
		})
	}
	return out
}

func applyClassDocTags(sym *symbol.Symbol, doc docblock, res *resolver.Resolver) {
	for _, tag := range doc.tags {
		switch tag.kind {
		case tagProperty, tagPropertyRead, tagPropertyWrite:
			mods := symbol.ModMagic | symbol.ModPublic
			if tag.kind == tagPropertyRead {
				mods |= symbol.ModReadOnly
			}
			if tag.kind == tagPropertyWrite {
				mods |= symbol.ModWriteOnly
			}
			sym.Children = append(sym.Children, &symbol.Symbol{
				Kind:      symbol.KindProperty,
				Name:      tag.name,
				Scope:     sym.Name,
				Type:      resolveTagType(tag.typeText, res),
				Modifiers: mods,
			})
		case tagMethod:
			var ret symbol.TypeStr
			if tag.returnType != "" {
				ret = resolveTagType(tag.returnType, res)
			}
			sym.Children = append(sym.Children, &symbol.Symbol{
				Kind:      symbol.KindMethod,
				Name:      tag.name,
				Scope:     sym.Name,
				Type:      ret,
				Modifiers: symbol.ModMagic | symbol.ModPublic,
			})
		}
	}
}
