package resolver

import (
	"testing"

	"github.com/peterson-umoke/intelephense/internal/symbol"
	"github.com/stretchr/testify/require"
)

func TestResolveFullyQualifiedIsVerbatim(t *testing.T) {
	r := New("A\\B", nil)
	require.Equal(t, "C\\D", r.Resolve("\\C\\D", symbol.KindClass, FullyQualified))
}

func TestResolveRelativePrependsNamespace(t *testing.T) {
	r := New("A\\B", nil)
	require.Equal(t, "A\\B\\C", r.Resolve("C", symbol.KindClass, Relative))
}

func TestResolveUnqualifiedClassUsesImportAlias(t *testing.T) {
	imports := NewImportTable()
	imports.Add("E", "C\\D\\E", ImportClass)
	r := New("A\\B", imports)
	require.Equal(t, "C\\D\\E\\G", r.Resolve("E\\G", symbol.KindClass, Unqualified))
}

func TestResolveUnqualifiedFunctionFallsThroughToNamespace(t *testing.T) {
	r := New("A\\B", nil)
	require.Equal(t, "A\\B\\helper", r.Resolve("helper", symbol.KindFunction, Unqualified))
}

func TestResolveUnqualifiedFunctionUsesImport(t *testing.T) {
	imports := NewImportTable()
	imports.Add("helper", "Vendor\\helper", ImportFunction)
	r := New("A\\B", imports)
	require.Equal(t, "Vendor\\helper", r.Resolve("helper", symbol.KindFunction, Unqualified))
}

func TestResolveUnqualifiedConstantIsCaseSensitive(t *testing.T) {
	imports := NewImportTable()
	imports.Add("FOO", "Vendor\\FOO", ImportConstant)
	r := New("", imports)
	require.Equal(t, "foo", r.Resolve("foo", symbol.KindConstant, Unqualified))
	require.Equal(t, "Vendor\\FOO", r.Resolve("FOO", symbol.KindConstant, Unqualified))
}

func TestResolveIdempotentOnFQN(t *testing.T) {
	r := New("A\\B", nil)
	once := r.Resolve("\\C\\D", symbol.KindClass, FullyQualified)
	twice := r.Resolve(once, symbol.KindClass, FullyQualified)
	require.Equal(t, once, twice)
}

func TestResolveNoNamespaceUnqualified(t *testing.T) {
	r := New("", nil)
	require.Equal(t, "Foo", r.Resolve("Foo", symbol.KindClass, Unqualified))
}
