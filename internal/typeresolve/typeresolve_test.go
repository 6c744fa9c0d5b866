package typeresolve

import (
	"context"
	"testing"

	phpforest "github.com/alexaandru/go-sitter-forest/php"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/stretchr/testify/require"

	"github.com/peterson-umoke/intelephense/internal/phptree"
	"github.com/peterson-umoke/intelephense/internal/reader"
	"github.com/peterson-umoke/intelephense/internal/resolver"
	"github.com/peterson-umoke/intelephense/internal/store"
	"github.com/peterson-umoke/intelephense/internal/symbol"
)

func parseFixture(t *testing.T, src string) phptree.Tree {
	t.Helper()
	parser := sitter.NewParser()
	lang := sitter.NewLanguage(phpforest.GetLanguage())
	require.True(t, parser.SetLanguage(lang))
	content := []byte(src)
	raw, err := parser.ParseString(context.Background(), nil, content)
	require.NoError(t, err)
	return phptree.NewTree(raw, content)
}

// findNode returns the first node (depth-first) whose Content equals
// text and whose Kind is one of kinds.
func findNode(n phptree.Node, text string, kinds ...string) phptree.Node {
	for _, k := range kinds {
		if n.Kind() == k && n.Content() == text {
			return n
		}
	}
	for _, c := range n.Children() {
		if found := findNode(c, text, kinds...); !found.IsNull() {
			return found
		}
	}
	return phptree.Node{}
}

func newStoreWith(t *testing.T, uri, src string) *store.Store {
	t.Helper()
	tree := parseFixture(t, src)
	res := reader.New().Read(tree, uri)
	s := store.New()
	require.NoError(t, s.Add(uri, res.Root))
	return s
}

func TestResolveAt_Assignment(t *testing.T) {
	src := `<?php
class Foo {}
$a = new Foo();
$a;
`
	tree := parseFixture(t, src)
	s := newStoreWith(t, "file:///a.php", src)

	names := resolver.New("", resolver.NewImportTable())
	r := New(s, names)

	// The final statement is the bare `$a;` expression statement whose
	// type we want; its sole child is the variable_name node.
	stmts := tree.Root().Children()
	last := stmts[len(stmts)-1]
	target := last.Child(0)

	typ := r.ResolveAt(tree.Root(), target)
	require.Equal(t, "Foo", typ.String())
}

func TestResolveAt_InstanceOfBranchMerge(t *testing.T) {
	src := `<?php
class Bar {}
class Baz {}
function f($x) {
    if ($x instanceof Bar) {
        $x;
    } else {
        $x;
    }
    $x;
}
`
	tree := parseFixture(t, src)
	s := newStoreWith(t, "file:///a.php", src)
	names := resolver.New("", resolver.NewImportTable())
	r := New(s, names)

	fn := findNode(tree.Root(), "f", "name")
	fnDecl := fn.Parent()
	require.Equal(t, "function_definition", fnDecl.Kind())

	// Seed $x's pre-if type via Vars directly, since parameters here
	// have no declared type.
	r.Vars.PushScope()
	r.Vars.SetType("x", symbol.NewTypeStr("Baz"))

	body := fnDecl.Field("body")
	ifStmt := body.Child(0)
	require.Equal(t, "if_statement", ifStmt.Kind())

	r.walkIfList(ifStmt)

	afterType := r.Vars.GetType("x")
	require.ElementsMatch(t, []string{"Bar", "Baz"}, afterType.AtomicClasses())
}

func TestResolveAt_MemberAccess(t *testing.T) {
	src := `<?php
class Foo {
    public function bar(): int {}
}
$a = new Foo();
$a->bar();
`
	tree := parseFixture(t, src)
	s := newStoreWith(t, "file:///a.php", src)
	names := resolver.New("", resolver.NewImportTable())
	r := New(s, names)

	// Search only the final statement: the method declaration's own name
	// node "bar" comes first in a search of the whole tree.
	lastStmt := tree.Root().Child(tree.Root().ChildCount() - 1)
	memberAccess := findNode(lastStmt, "bar", "name")
	access := memberAccess.Parent()
	require.Equal(t, "member_call_expression", access.Kind())

	typ := r.ResolveAt(tree.Root(), access)
	require.Equal(t, "int", typ.String())
}

func TestResolveAt_UnknownMemberReturnsEmpty(t *testing.T) {
	src := `<?php
class Foo {}
$a = new Foo();
$a->missing();
`
	tree := parseFixture(t, src)
	s := newStoreWith(t, "file:///a.php", src)
	names := resolver.New("", resolver.NewImportTable())
	r := New(s, names)

	memberAccess := findNode(tree.Root(), "missing", "name")
	access := memberAccess.Parent()

	typ := r.ResolveAt(tree.Root(), access)
	require.True(t, typ.IsEmpty())
}

func TestForeach_ElementAndKeyTypes(t *testing.T) {
	src := `<?php
foreach ($items as $k => $v) {
    $v;
}
`
	tree := parseFixture(t, src)
	s := store.New()
	names := resolver.New("", resolver.NewImportTable())
	r := New(s, names)

	r.Vars.PushScope()
	r.Analyze(tree.Root())

	kType := r.Vars.GetType("k")
	require.ElementsMatch(t, []string{"int", "string"}, kType.Atoms())
}

func TestWalkForeach_BareVariableSubjectNotClobbered(t *testing.T) {
	src := `<?php
foreach ($items as $v) {
    $v;
}
`
	tree := parseFixture(t, src)
	s := store.New()
	names := resolver.New("", resolver.NewImportTable())
	r := New(s, names)

	r.Vars.PushScope()
	r.Vars.SetType("items", symbol.NewTypeStr(symbol.TypeArray, symbol.ArrayOf("Foo")))

	// Named child 0 of the program is the php_tag.
	foreachStmt := tree.Root().Child(1)
	require.Equal(t, "foreach_statement", foreachStmt.Kind())
	r.walkForeach(foreachStmt)

	// $items is the collection, not a key/value binding; it must survive
	// untouched by the foreach.
	itemsType := r.Vars.GetType("items")
	require.ElementsMatch(t, []string{"array", "[]Foo"}, itemsType.Atoms())

	// $v picks up the element type carried on $items rather than the
	// foreach key type (int|string).
	vType := r.Vars.GetType("v")
	require.Equal(t, []string{"Foo"}, vType.AtomicClasses())
}

func TestResolveAt_StaticMethodCall(t *testing.T) {
	src := `<?php
class Foo {
    public static function make(): Foo {}
}
Foo::make();
`
	tree := parseFixture(t, src)
	s := newStoreWith(t, "file:///a.php", src)
	names := resolver.New("", resolver.NewImportTable())
	r := New(s, names)

	// Search only the final statement, past the method declaration's name.
	lastStmt := tree.Root().Child(tree.Root().ChildCount() - 1)
	call := findNode(lastStmt, "make", "name")
	access := call.Parent()
	require.Equal(t, "scoped_call_expression", access.Kind())

	typ := r.ResolveAt(tree.Root(), access)
	require.Equal(t, "Foo", typ.String())
}
