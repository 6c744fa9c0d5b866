package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterson-umoke/intelephense/internal/aggregate"
	"github.com/peterson-umoke/intelephense/internal/phptree"
)

func TestOpenDocument_IndexesSymbolsImmediately(t *testing.T) {
	e := New(t.TempDir(), nil)
	err := e.OpenDocument(DocumentItem{
		URI:  "file:///a.php",
		Text: "<?php\nclass Foo {\n    public function bar(): int {}\n}\n",
	})
	require.NoError(t, err)

	syms := e.DocumentSymbols("file:///a.php")
	require.Len(t, syms, 1)
	assert.Equal(t, "Foo", syms[0].Name)
}

func TestResolveType_AssignmentAtPosition(t *testing.T) {
	e := New(t.TempDir(), nil)
	src := "<?php\nclass Foo {}\n$a = new Foo();\n$a;\n"
	require.NoError(t, e.OpenDocument(DocumentItem{URI: "file:///a.php", Text: src}))

	// Line 3 (0-based) is `$a;`, column 0 targets the variable.
	typ := e.ResolveType("file:///a.php", phptree.Point{Line: 3, Column: 0}, nil)
	assert.Equal(t, "Foo", typ.String())
}

func TestAggregate_MergesInheritedMembers(t *testing.T) {
	e := New(t.TempDir(), nil)
	src := `<?php
class Base {
    public function greet(): string {}
}
class Derived extends Base {
    public function shout(): string {}
}
`
	require.NoError(t, e.OpenDocument(DocumentItem{URI: "file:///a.php", Text: src}))

	agg, err := e.Aggregate("Derived", nil)
	require.NoError(t, err)

	var names []string
	for _, m := range agg.Members(aggregate.Override) {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"shout", "greet"}, names)
}

func TestForget_RemovesSymbolsAndDocument(t *testing.T) {
	e := New(t.TempDir(), nil)
	require.NoError(t, e.OpenDocument(DocumentItem{URI: "file:///a.php", Text: "<?php\nclass Foo {}\n"}))

	n := e.Forget("file:///a.php")
	assert.Equal(t, 1, n)
	assert.Nil(t, e.DocumentSymbols("file:///a.php"))
	assert.Empty(t, e.WorkspaceSymbols("Foo"))
}

func TestDiscoverWorkspace_IndexesEveryPHPFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.php"), []byte("<?php\nclass A {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.php"), []byte("<?php\nclass B {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	e := New(dir, nil)
	n, err := e.DiscoverWorkspace(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.NotEmpty(t, e.WorkspaceSymbols("A"))
	assert.NotEmpty(t, e.WorkspaceSymbols("B"))
}

func TestAggregate_FollowsAutoloadedAncestor(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "Base.php"),
		[]byte("<?php\nclass Base {\n    public function greet(): string {}\n}\n"), 0o644))

	m := map[string][]string{"": {"src"}}
	e := New(dir, m)
	require.NoError(t, e.OpenDocument(DocumentItem{
		URI:  "file:///derived.php",
		Text: "<?php\nclass Derived extends Base {}\n",
	}))

	agg, err := e.Aggregate("Derived", nil)
	require.NoError(t, err)

	var found bool
	for _, m := range agg.Members(aggregate.Override) {
		if m.Name == "greet" {
			found = true
		}
	}
	assert.True(t, found, "expected Base::greet to be pulled in via autoload")
}

func TestEditDocument_DebouncesThenUpdatesSymbols(t *testing.T) {
	e := New(t.TempDir(), nil)
	require.NoError(t, e.OpenDocument(DocumentItem{URI: "file:///a.php", Text: "<?php\nclass Foo {}\n"}))

	require.NoError(t, e.EditDocument("file:///a.php", []byte("<?php\nclass Bar {}\n"), nil))

	// The reparse is debounced; give it time to complete and publish.
	time.Sleep(350 * time.Millisecond)

	syms := e.DocumentSymbols("file:///a.php")
	require.Len(t, syms, 1)
	assert.Equal(t, "Bar", syms[0].Name)
}

func TestCancelToken_StopsResolution(t *testing.T) {
	e := New(t.TempDir(), nil)
	src := "<?php\nclass Foo {}\n$a = new Foo();\n$a;\n"
	require.NoError(t, e.OpenDocument(DocumentItem{URI: "file:///a.php", Text: src}))

	tok := NewCancelToken()
	tok.Cancel()
	typ := e.ResolveType("file:///a.php", phptree.Point{Line: 3, Column: 0}, tok)
	assert.True(t, typ.IsEmpty())
}
