package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peterson-umoke/intelephense/internal/symbol"
)

func classDoc(uri, fqn string) *symbol.Symbol {
	root := &symbol.Symbol{Kind: symbol.KindNamespace}
	root.Children = append(root.Children, &symbol.Symbol{
		Kind:     symbol.KindClass,
		Name:     fqn,
		Location: symbol.Location{URI: uri},
	})
	return root
}

func TestStore_AddFindRemoveRoundTrip(t *testing.T) {
	s := New()
	require.Empty(t, s.Find("App\\Widget", nil))

	require.NoError(t, s.Add("file:///widget.php", classDoc("file:///widget.php", "App\\Widget")))
	found := s.Find("app\\widget", nil)
	require.Len(t, found, 1)
	require.Equal(t, "App\\Widget", found[0].Name)

	s.Remove("file:///widget.php")
	require.Empty(t, s.Find("App\\Widget", nil))
}

func TestStore_AddDuplicateDocumentErrors(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("file:///a.php", classDoc("file:///a.php", "X\\Y")))
	err := s.Add("file:///a.php", classDoc("file:///a.php", "X\\Y"))
	require.Error(t, err)
	require.IsType(t, &DuplicateDocumentError{}, err)
}

func TestStore_TwoFilesSameFQN(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("file:///one.php", classDoc("file:///one.php", "X\\Y")))
	require.NoError(t, s.Add("file:///two.php", classDoc("file:///two.php", "X\\Y")))

	found := s.Find("X\\Y", nil)
	require.Len(t, found, 2)

	s.Remove("file:///one.php")
	found = s.Find("X\\Y", nil)
	require.Len(t, found, 1)
	require.Equal(t, "file:///two.php", found[0].Location.URI)
}

func TestStore_OnDocumentChangeReplacesAtomically(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("file:///widget.php", classDoc("file:///widget.php", "App\\Widget")))

	s.OnDocumentChange("file:///widget.php", classDoc("file:///widget.php", "App\\Renamed"))

	require.Empty(t, s.Find("App\\Widget", nil))
	require.Len(t, s.Find("App\\Renamed", nil), 1)
}

func TestStore_MatchPrefixIsCaseInsensitiveForClasses(t *testing.T) {
	s := New()
	require.NoError(t, s.Add("file:///widget.php", classDoc("file:///widget.php", "App\\Widget")))

	found := s.Match("app\\wid", nil)
	require.Len(t, found, 1)
}
