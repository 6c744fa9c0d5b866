// Package typeresolve implements the type resolver (§4.H): a tree visitor
// that, given a name resolver and a variable table, answers the
// static type of an expression at a position.
package typeresolve

import (
	"github.com/peterson-umoke/intelephense/internal/aggregate"
	"github.com/peterson-umoke/intelephense/internal/phptree"
	"github.com/peterson-umoke/intelephense/internal/resolver"
	"github.com/peterson-umoke/intelephense/internal/symbol"
	"github.com/peterson-umoke/intelephense/internal/vars"
)

// Mode determines how a child expression is interpreted (§4.H).
type Mode int

const (
	Assignment Mode = iota
	InstanceOf
	ResolveVariableName
	ResolveType
	Foreach
)

// Canceller reports whether an in-flight request has been cancelled.
// Checked at node boundaries; never leaves visible side effects when true
// (§5, §7).
type Canceller interface {
	Cancelled() bool
}

type noCancel struct{}

func (noCancel) Cancelled() bool { return false }

// Lookup is the store access the resolver needs to build type aggregates.
type Lookup = aggregate.Lookup

// Resolver walks a parse tree and resolves expression types, maintaining
// a variable table across scopes and branches as it descends.
type Resolver struct {
	Store  Lookup
	Names  *resolver.Resolver
	Vars   *vars.Table
	Cancel Canceller

	// Class is the class-like symbol enclosing the current position, used
	// to resolve self/static/$this. Nil outside a class body.
	Class *symbol.Symbol

	target    phptree.Node
	hasTarget bool
	found     bool
	result    symbol.TypeStr
}

// classSymbolOf looks up the symbol store entry for a class/interface/
// trait declaration node, so self/static/$this can resolve against its
// real member set while walk descends into its body.
func (r *Resolver) classSymbolOf(n phptree.Node) *symbol.Symbol {
	nameNode := n.Field("name")
	if nameNode.IsNull() || r.Names == nil || r.Store == nil {
		return nil
	}
	fqn := resolveClassName(r.Names, nameNode.Content())
	if fqn == "" {
		return nil
	}
	found := r.Store.Find(fqn, func(s *symbol.Symbol) bool { return s.Kind.IsClassLike() })
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// New constructs a Resolver over an already-populated name resolver and a
// fresh variable table.
func New(store Lookup, names *resolver.Resolver) *Resolver {
	return &Resolver{Store: store, Names: names, Vars: vars.New(), Cancel: noCancel{}}
}

func (r *Resolver) cancelled() bool {
	return r.Cancel != nil && r.Cancel.Cancelled()
}

// Analyze walks root, binding variable types into r.Vars as it encounters
// assignments, instanceof refinements and foreach bindings, pushing and
// popping scopes/branch-groups around function/method/class bodies and
// if-lists (§4.H).
func (r *Resolver) Analyze(root phptree.Node) {
	r.walk(root)
}

// ResolveAt walks root exactly as Analyze does, tracking variable
// bindings in document order, and captures the static type of target
// (identified by its source byte range) the moment the walk reaches it —
// i.e. with whatever assignments, instanceof refinements and foreach
// bindings precede it in the source already folded into the variable
// table. Returns the empty type if target is never visited.
func (r *Resolver) ResolveAt(root, target phptree.Node) symbol.TypeStr {
	r.target = target
	r.hasTarget = true
	r.found = false
	r.result = symbol.TypeStr{}
	// File-level scope for top-level statements; bindings from an outer
	// scope pushed by the caller stay visible through it.
	r.Vars.PushScope()
	r.walk(root)
	r.Vars.PopScope()
	r.hasTarget = false
	return r.result
}

func (r *Resolver) walk(n phptree.Node) {
	if n.IsNull() || r.cancelled() {
		return
	}

	if r.hasTarget && !r.found && n.StartByte() == r.target.StartByte() && n.EndByte() == r.target.EndByte() {
		r.found = true
		r.result = r.TypeOf(n, ResolveType)
	}

	switch n.Kind() {
	case "function_definition", "function_declaration", "method_declaration", "anonymous_function_creation_expression", "arrow_function":
		r.Vars.PushScope()
		if params := n.Field("parameters"); !params.IsNull() {
			for _, p := range params.Children() {
				name := variableNameOf(p.Field("name"))
				if name == "" {
					continue
				}
				r.Vars.SetType(name, typeOfParamNode(p, r.Names))
			}
		}
		for _, c := range n.Children() {
			r.walk(c)
		}
		r.Vars.PopScope()
		return

	case "class_declaration", "interface_declaration", "trait_declaration":
		prevClass := r.Class
		r.Class = r.classSymbolOf(n)
		for _, c := range n.Children() {
			r.walk(c)
		}
		r.Class = prevClass
		return

	case "if_statement":
		r.walkIfList(n)
		return

	case "expression_statement":
		if n.ChildCount() > 0 {
			r.walkStatementExpr(n.Child(0))
		}
		return

	case "foreach_statement":
		r.walkForeach(n)
		return
	}

	for _, c := range n.Children() {
		r.walk(c)
	}
}

// walkIfList pushes a branch-group for an if/elseif*/else chain, a branch
// per clause.
func (r *Resolver) walkIfList(n phptree.Node) {
	r.Vars.PushBranchGroup()

	// The if_statement itself plus every else_if_clause/else_clause found
	// among its children (or nested inside an earlier clause).
	clauses := []phptree.Node{n}
	for i := 0; i < len(clauses); i++ {
		for _, c := range clauses[i].Children() {
			if c.Kind() == "else_if_clause" || c.Kind() == "else_clause" {
				clauses = append(clauses, c)
			}
		}
	}
	for _, cur := range clauses {
		r.Vars.PushBranch()
		if cur.Kind() == "if_statement" || cur.Kind() == "else_if_clause" {
			if cond := cur.Field("condition"); !cond.IsNull() {
				r.Refine(cond)
			}
		}
		if body := cur.Field("body"); !body.IsNull() {
			r.walk(body)
		} else {
			for _, c := range cur.Children() {
				if c.Kind() != "else_clause" && c.Kind() != "else_if_clause" {
					r.walk(c)
				}
			}
		}
		r.Vars.PopBranch()
	}

	r.Vars.PopBranchGroup()
}

func firstChildOfKind(n phptree.Node, kinds ...string) phptree.Node {
	for _, c := range n.Children() {
		for _, k := range kinds {
			if c.Kind() == k {
				return c
			}
		}
	}
	return phptree.Node{}
}

func (r *Resolver) walkStatementExpr(expr phptree.Node) {
	switch expr.Kind() {
	case "assignment_expression":
		r.handleAssignment(expr)
	default:
		r.walk(expr)
	}
}

// handleAssignment implements §4.H's Assignment mode: `$v = expr` binds
// `$v` to expr's resolved type in the current branch (or scope).
func (r *Resolver) handleAssignment(n phptree.Node) {
	left := n.Field("left")
	right := n.Field("right")
	name := variableNameOf(left)
	if name == "" {
		return
	}
	typ := r.TypeOf(right, Assignment)
	r.Vars.SetType(name, typ)
}

// walkForeach implements §4.H's Foreach mode. The collection expression
// always precedes `as` and is therefore the first child regardless of its
// node kind; only the children after it can be the key/value bindings, so
// they are classified separately to avoid mistaking a bare-variable
// collection (`foreach ($items as $v)`) for one of those bindings.
func (r *Resolver) walkForeach(n phptree.Node) {
	children := n.Children()
	if len(children) == 0 {
		if body := n.Field("body"); !body.IsNull() {
			r.walk(body)
		}
		return
	}
	subject := children[0]

	var key, value phptree.Node
	for _, c := range children[1:] {
		switch c.Kind() {
		case "pair":
			key = c.Field("key")
			value = c.Field("value")
		case "by_ref":
			value = byRefVariable(c)
		case "variable_name":
			if value.IsNull() {
				value = c
			} else {
				key, value = value, c
			}
		}
	}

	subjectType := r.TypeOf(subject, Foreach)
	elementType := elementTypeOf(subjectType)

	if keyName := variableNameOf(key); keyName != "" {
		r.Vars.SetType(keyName, symbol.NewTypeStr(symbol.TypeInt, symbol.TypeString))
	}
	if valName := variableNameOf(value); valName != "" {
		r.Vars.SetType(valName, elementType)
	}

	if body := n.Field("body"); !body.IsNull() {
		r.walk(body)
	}
}

// byRefVariable unwraps a `&$v` foreach-value binding to its variable_name.
func byRefVariable(n phptree.Node) phptree.Node {
	for _, c := range n.Children() {
		if c.Kind() == "variable_name" {
			return c
		}
	}
	return n
}

// elementTypeOf deduces a foreach value's type from the container's element
// atoms (set by the reader from an `X[]`/`array<T>` docblock tag, per
// symbol.ArrayOf); falls through to mixed when none are known (§4.H).
func elementTypeOf(container symbol.TypeStr) symbol.TypeStr {
	elems := symbol.TypeStr{}
	for _, atom := range container.Atoms() {
		if elem, ok := symbol.ArrayElementOf(atom); ok {
			elems = elems.Merge(symbol.NewTypeStr(elem))
		}
	}
	if !elems.IsEmpty() {
		return elems
	}
	return symbol.NewTypeStr(symbol.TypeMixed)
}

// TypeOf resolves the static type of expr under mode. It never throws:
// any unresolvable name, absent variable, or missing member yields the
// empty type (§7).
func (r *Resolver) TypeOf(expr phptree.Node, mode Mode) symbol.TypeStr {
	if expr.IsNull() || r.cancelled() {
		return symbol.TypeStr{}
	}

	switch expr.Kind() {
	case "variable_name":
		name := variableNameOf(expr)
		if name == "this" {
			return r.selfType()
		}
		return r.Vars.GetType(name)

	case "qualified_name", "relative_name", "name":
		raw := expr.Content()
		switch raw {
		case "self", "static":
			return r.selfType()
		}
		fqn := resolveClassName(r.Names, raw)
		if fqn == "" {
			return symbol.TypeStr{}
		}
		return symbol.NewTypeStr(fqn)

	case "member_access_expression", "nullsafe_member_access_expression",
		"member_call_expression", "nullsafe_member_call_expression":
		return r.resolveMemberAccess(expr)

	case "scoped_call_expression", "scoped_property_access_expression", "class_constant_access_expression":
		return r.resolveStaticAccess(expr)

	case "instanceof_expression":
		return r.resolveInstanceOf(expr)

	case "object_creation_expression":
		typeNode := expr.Field("type")
		if typeNode.IsNull() {
			return symbol.TypeStr{}
		}
		return r.TypeOf(typeNode, ResolveType)

	case "cast_expression":
		typeNode := expr.Field("type")
		return symbol.NewTypeStr(normalizeScalar(typeNode.Content()))

	case "parenthesized_expression":
		if inner := expr.Field("expression"); !inner.IsNull() {
			return r.TypeOf(inner, mode)
		}
		if expr.ChildCount() > 0 {
			return r.TypeOf(expr.Child(0), mode)
		}

	case "string":
		return symbol.NewTypeStr(symbol.TypeString)
	case "integer":
		return symbol.NewTypeStr(symbol.TypeInt)
	case "float":
		return symbol.NewTypeStr(symbol.TypeFloat)
	case "true", "false", "boolean":
		return symbol.NewTypeStr(symbol.TypeBool)
	case "null":
		return symbol.NewTypeStr(symbol.TypeNull)
	case "array_creation_expression":
		return symbol.NewTypeStr(symbol.TypeArray)
	}

	return symbol.TypeStr{}
}

// resolveInstanceOf implements §4.H's InstanceOf mode: the caller (walk)
// does not currently branch-refine automatically from a bare
// `$v instanceof T` used as a value; Refine exposes that behavior for a
// caller (e.g. the type resolver driving an if-condition) to apply to the
// positive branch explicitly.
func (r *Resolver) resolveInstanceOf(n phptree.Node) symbol.TypeStr {
	return symbol.NewTypeStr(symbol.TypeBool)
}

// Refine applies an `$v instanceof T` condition's positive-branch type
// narrowing: $v is replaced with T's type within the current branch.
func (r *Resolver) Refine(condition phptree.Node) {
	for condition.Kind() == "parenthesized_expression" && condition.ChildCount() > 0 {
		condition = condition.Child(0)
	}
	if condition.Kind() != "instanceof_expression" {
		return
	}
	left := condition.Field("left")
	right := condition.Field("right")
	name := variableNameOf(left)
	if name == "" {
		return
	}
	classType := r.TypeOf(right, InstanceOf)
	if classType.IsEmpty() {
		return
	}
	r.Vars.SetType(name, classType)
}

func (r *Resolver) selfType() symbol.TypeStr {
	if r.Class == nil {
		return symbol.TypeStr{}
	}
	return symbol.NewTypeStr(r.Class.Name)
}

func (r *Resolver) resolveMemberAccess(n phptree.Node) symbol.TypeStr {
	object := n.Field("object")
	memberName := memberNameOf(n)
	if object.IsNull() || memberName == "" {
		return symbol.TypeStr{}
	}
	objType := r.TypeOf(object, ResolveType)
	return r.memberType(objType, memberName, symbol.KindProperty, symbol.KindMethod)
}

// resolveStaticAccess resolves `E::m`/`E::$m`/`E::M`. The grammar exposes
// the qualifier as field "scope" on scoped_call_expression and
// scoped_property_access_expression; class_constant_access_expression is
// the one node of this group that names it "class" instead.
func (r *Resolver) resolveStaticAccess(n phptree.Node) symbol.TypeStr {
	class := n.Field("scope")
	if n.Kind() == "class_constant_access_expression" {
		class = n.Field("class")
	}
	memberName := memberNameOf(n)
	if class.IsNull() || memberName == "" {
		return symbol.TypeStr{}
	}
	classType := r.TypeOf(class, ResolveType)
	return r.memberType(classType, memberName, symbol.KindClassConstant, symbol.KindMethod)
}

func memberNameOf(n phptree.Node) string {
	nameNode := n.Field("name")
	if nameNode.IsNull() {
		return ""
	}
	if nameNode.Kind() == "variable_name" {
		return variableNameOf(nameNode)
	}
	return nameNode.Content()
}

// memberType implements §4.H's member-access dispatch: for each atomic
// class in objType, build a type aggregate and look up a member named
// name among the given acceptable kinds, unioning the results across a
// union type.
func (r *Resolver) memberType(objType symbol.TypeStr, name string, kinds ...symbol.Kind) symbol.TypeStr {
	out := symbol.TypeStr{}
	for _, fqn := range objType.AtomicClasses() {
		found := r.Store.Find(fqn, func(s *symbol.Symbol) bool { return s.Kind.IsClassLike() })
		if len(found) == 0 {
			continue
		}
		agg, err := aggregate.New(found[0], r.Store)
		if err != nil {
			continue
		}
		for _, m := range agg.Members(aggregate.Override) {
			if m.Name != name {
				continue
			}
			for _, k := range kinds {
				if m.Kind == k {
					out = out.Merge(m.Type)
				}
			}
		}
	}
	return out
}

func variableNameOf(n phptree.Node) string {
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
	}
	raw := n.Content()
	if len(raw) > 0 && raw[0] == '$' {
		return raw[1:]
	}
	return ""
}

func resolveClassName(res *resolver.Resolver, raw string) string {
	if res == nil {
		return ""
	}
	name := raw
	rel := resolver.Unqualified
	switch {
	case len(name) > 0 && name[0] == '\\':
		rel = resolver.FullyQualified
	}
	return res.Resolve(name, symbol.KindClass, rel)
}

func normalizeScalar(raw string) string {
	switch raw {
	case "int", "integer":
		return symbol.TypeInt
	case "float", "double", "real":
		return symbol.TypeFloat
	case "bool", "boolean":
		return symbol.TypeBool
	case "string", "binary":
		return symbol.TypeString
	case "array":
		return symbol.TypeArray
	case "object":
		return symbol.TypeObject
	default:
		return symbol.TypeMixed
	}
}

func typeOfParamNode(p phptree.Node, res *resolver.Resolver) symbol.TypeStr {
	typeNode := p.Field("type")
	if typeNode.IsNull() {
		return symbol.TypeStr{}
	}
	raw := typeNode.Content()
	if symbol.IsScalarTag(raw) {
		return symbol.NewTypeStr(raw)
	}
	fqn := resolveClassName(res, raw)
	if fqn == "" {
		return symbol.TypeStr{}
	}
	return symbol.NewTypeStr(fqn)
}
