package reader

import (
	"context"
	"testing"

	phpforest "github.com/alexaandru/go-sitter-forest/php"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/stretchr/testify/require"

	"github.com/peterson-umoke/intelephense/internal/phptree"
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

func findChild(sym *symbol.Symbol, name string) *symbol.Symbol {
	for _, c := range sym.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRead_NamespaceUseExtends(t *testing.T) {
	src := `<?php
namespace App\Model;

use App\Support\Base as Root;

class Widget extends Root
{
}
`
	tree := parseFixture(t, src)
	result := New().Read(tree, "file:///widget.php")

	ns := findChild(result.Root, "App\\Model")
	require.NotNil(t, ns)

	widget := findChild(ns, "App\\Model\\Widget")
	require.NotNil(t, widget)
	require.Equal(t, symbol.KindClass, widget.Kind)
	require.Equal(t, []string{"App\\Support\\Base"}, widget.Associated)
}

func TestRead_DocblockUnionsWithParamsAndReturn(t *testing.T) {
	src := `<?php
namespace App;

class Calc
{
	/**
	 * Adds two numbers.
	 *
	 * @param int $a
	 * @param int $b
	 * @return int
	 */
	public function add($a, $b)
	{
		return $a + $b;
	}
}
`
	tree := parseFixture(t, src)
	result := New().Read(tree, "file:///calc.php")

	ns := findChild(result.Root, "App")
	require.NotNil(t, ns)
	class := findChild(ns, "App\\Calc")
	require.NotNil(t, class)

	method := findChild(class, "add")
	require.NotNil(t, method)
	require.True(t, method.Type.Has(symbol.TypeInt))

	paramA := findChild(method, "a")
	require.NotNil(t, paramA)
	require.True(t, paramA.Type.Has(symbol.TypeInt))
}

func TestRead_PropertyDocTagSynthesizesMagicMember(t *testing.T) {
	src := `<?php
namespace App;

/**
 * @property string $label
 * @property-read int $id
 * @method void rename(string $name)
 */
class Record
{
}
`
	tree := parseFixture(t, src)
	result := New().Read(tree, "file:///record.php")

	ns := findChild(result.Root, "App")
	require.NotNil(t, ns)
	class := findChild(ns, "App\\Record")
	require.NotNil(t, class)

	label := findChild(class, "label")
	require.NotNil(t, label)
	require.True(t, label.Modifiers.Has(symbol.ModMagic))
	require.True(t, label.Type.Has(symbol.TypeString))

	id := findChild(class, "id")
	require.NotNil(t, id)
	require.True(t, id.Modifiers.Has(symbol.ModReadOnly))

	rename := findChild(class, "rename")
	require.NotNil(t, rename)
	require.Equal(t, symbol.KindMethod, rename.Kind)
	require.True(t, rename.Modifiers.Has(symbol.ModMagic))
}

func TestRead_TopLevelConstantIsNamespaced(t *testing.T) {
	src := `<?php
namespace App;

const MAX_RETRIES = 3;
`
	tree := parseFixture(t, src)
	result := New().Read(tree, "file:///consts.php")

	ns := findChild(result.Root, "App")
	require.NotNil(t, ns)
	constSym := findChild(ns, "App\\MAX_RETRIES")
	require.NotNil(t, constSym)
	require.Equal(t, symbol.KindConstant, constSym.Kind)
}

func TestRead_TraitUseIsAssociated(t *testing.T) {
	src := `<?php
namespace App;

trait Greets
{
}

class Greeter
{
	use Greets;
}
`
	tree := parseFixture(t, src)
	result := New().Read(tree, "file:///greeter.php")

	ns := findChild(result.Root, "App")
	require.NotNil(t, ns)
	class := findChild(ns, "App\\Greeter")
	require.NotNil(t, class)
	require.Contains(t, class.Associated, "App\\Greets")
}
