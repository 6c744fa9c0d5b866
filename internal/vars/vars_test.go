package vars

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peterson-umoke/intelephense/internal/symbol"
)

func TestBranchGroupMergesByUnion(t *testing.T) {
	tbl := New()
	tbl.PushScope()
	tbl.PushBranchGroup()

	tbl.PushBranch()
	tbl.SetType("v", symbol.NewTypeStr("A"))
	tbl.PopBranch()

	tbl.PushBranch()
	tbl.SetType("v", symbol.NewTypeStr("B"))
	tbl.PopBranch()

	tbl.PopBranchGroup()

	got := tbl.GetType("v")
	require.True(t, got.Has("A"))
	require.True(t, got.Has("B"))
}

func TestBranchNotTouchingVariableRetainsPriorType(t *testing.T) {
	tbl := New()
	tbl.PushScope()
	tbl.SetType("v", symbol.NewTypeStr("Baz"))

	tbl.PushBranchGroup()
	tbl.PushBranch()
	tbl.SetType("v", symbol.NewTypeStr("Bar"))
	tbl.PopBranch()
	tbl.PushBranch()
	// else-branch never touches v: it should retain "Baz".
	tbl.PopBranch()
	tbl.PopBranchGroup()

	got := tbl.GetType("v")
	require.True(t, got.Has("Baz"))
	require.True(t, got.Has("Bar"))
}

func TestOuterScopeVisibleAfterInnerPop(t *testing.T) {
	tbl := New()
	tbl.PushScope()
	tbl.SetType("outer", symbol.NewTypeStr("int"))

	tbl.PushScope()
	require.True(t, tbl.GetType("outer").Has("int"))
	tbl.PopScope()

	require.True(t, tbl.GetType("outer").Has("int"))
}
