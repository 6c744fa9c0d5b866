package aggregate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peterson-umoke/intelephense/internal/symbol"
)

type fakeStore struct {
	byFQN map[string]*symbol.Symbol
}

func (f *fakeStore) Find(fqn string, predicate func(*symbol.Symbol) bool) []*symbol.Symbol {
	s, ok := f.byFQN[fqn]
	if !ok {
		return nil
	}
	if predicate != nil && !predicate(s) {
		return nil
	}
	return []*symbol.Symbol{s}
}

func TestMembers_NoAncestorsEqualsChildren(t *testing.T) {
	root := &symbol.Symbol{
		Kind: symbol.KindClass,
		Name: "Solo",
		Children: []*symbol.Symbol{
			{Kind: symbol.KindMethod, Name: "m"},
		},
	}
	agg, err := New(root, &fakeStore{byFQN: map[string]*symbol.Symbol{}})
	require.NoError(t, err)

	members := agg.Members(Override)
	require.Len(t, members, 1)
	require.Equal(t, root.Children[0], members[0])
}

func TestMembers_OverrideInheritsParentMethod(t *testing.T) {
	base := &symbol.Symbol{
		Kind: symbol.KindClass,
		Name: "Base",
		Children: []*symbol.Symbol{
			{Kind: symbol.KindMethod, Name: "m", Type: symbol.NewTypeStr(symbol.TypeInt)},
		},
	}
	sub := &symbol.Symbol{
		Kind:       symbol.KindClass,
		Name:       "Sub",
		Associated: []string{"Base"},
	}
	s := &fakeStore{byFQN: map[string]*symbol.Symbol{"Base": base}}
	agg, err := New(sub, s)
	require.NoError(t, err)

	members := agg.Members(Override)
	require.Len(t, members, 1)
	require.Equal(t, "m", members[0].Name)
	require.True(t, members[0].Type.Has(symbol.TypeInt))
}

func TestMembers_NonMagicBeatsMagic(t *testing.T) {
	base := &symbol.Symbol{
		Kind: symbol.KindClass,
		Name: "Base",
		Children: []*symbol.Symbol{
			{Kind: symbol.KindProperty, Name: "x", Modifiers: symbol.ModMagic},
		},
	}
	sub := &symbol.Symbol{
		Kind:       symbol.KindClass,
		Name:       "Sub",
		Associated: []string{"Base"},
		Children: []*symbol.Symbol{
			{Kind: symbol.KindProperty, Name: "x", Type: symbol.NewTypeStr(symbol.TypeString)},
		},
	}
	s := &fakeStore{byFQN: map[string]*symbol.Symbol{"Base": base}}
	agg, err := New(sub, s)
	require.NoError(t, err)

	members := agg.Members(Override)
	require.Len(t, members, 1)
	require.False(t, members[0].Modifiers.Has(symbol.ModMagic))
}

func TestMembers_AncestorPrivateExcluded(t *testing.T) {
	base := &symbol.Symbol{
		Kind: symbol.KindClass,
		Name: "Base",
		Children: []*symbol.Symbol{
			{Kind: symbol.KindMethod, Name: "secret", Modifiers: symbol.ModPrivate},
		},
	}
	sub := &symbol.Symbol{
		Kind:       symbol.KindClass,
		Name:       "Sub",
		Associated: []string{"Base"},
	}
	s := &fakeStore{byFQN: map[string]*symbol.Symbol{"Base": base}}
	agg, err := New(sub, s)
	require.NoError(t, err)

	require.Empty(t, agg.Members(Override))
}

func TestMembers_CyclicAncestorsDoNotLoop(t *testing.T) {
	a := &symbol.Symbol{Kind: symbol.KindClass, Name: "A", Associated: []string{"B"}}
	b := &symbol.Symbol{Kind: symbol.KindClass, Name: "B", Associated: []string{"A"}}
	s := &fakeStore{byFQN: map[string]*symbol.Symbol{"A": a, "B": b}}
	agg, err := New(a, s)
	require.NoError(t, err)

	require.NotPanics(t, func() { agg.AssociatedSet() })
	require.Len(t, agg.AssociatedSet(), 1)
}

func TestNew_RejectsNonClassLike(t *testing.T) {
	_, err := New(&symbol.Symbol{Kind: symbol.KindFunction, Name: "f"}, &fakeStore{byFQN: map[string]*symbol.Symbol{}})
	require.Error(t, err)
	require.IsType(t, &InvalidArgumentError{}, err)
}
