package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareAndResolve_SameScope(t *testing.T) {
	tab := New()
	tab.EnterScope(0)
	require.NoError(t, tab.DeclareVar("x", 1))
	sym, diff, err := tab.Resolve("x")
	require.NoError(t, err)
	assert.Equal(t, 0, diff)
	assert.Equal(t, 3, sym.Offset)
}

func TestDeclareVar_OffsetsAdvanceFrom3(t *testing.T) {
	tab := New()
	tab.EnterScope(0)
	require.NoError(t, tab.DeclareVar("a", 1))
	require.NoError(t, tab.DeclareVar("b", 2))
	require.NoError(t, tab.DeclareVar("c", 3))
	symA, _, _ := tab.Resolve("a")
	symB, _, _ := tab.Resolve("b")
	symC, _, _ := tab.Resolve("c")
	assert.Equal(t, 3, symA.Offset)
	assert.Equal(t, 4, symB.Offset)
	assert.Equal(t, 5, symC.Offset)
}

func TestDeclareParam_SharesOffsetSpaceAheadOfLocals(t *testing.T) {
	tab := New()
	tab.EnterScope(1)
	require.NoError(t, tab.DeclareParam("a", 1))
	require.NoError(t, tab.DeclareParam("b", 1))
	require.NoError(t, tab.DeclareVar("local", 2))
	symA, _, _ := tab.Resolve("a")
	symB, _, _ := tab.Resolve("b")
	symLocal, _, _ := tab.Resolve("local")
	assert.Equal(t, 3, symA.Offset)
	assert.Equal(t, 4, symB.Offset)
	assert.Equal(t, 5, symLocal.Offset)
}

func TestDeclare_DuplicateInSameScopeFails(t *testing.T) {
	tab := New()
	tab.EnterScope(0)
	require.NoError(t, tab.DeclareVar("x", 1))
	err := tab.DeclareVar("x", 2)
	require.Error(t, err)
	var dup *DuplicateName
	assert.ErrorAs(t, err, &dup)
}

func TestDeclare_SameNameInNestedScopeIsAllowed(t *testing.T) {
	tab := New()
	tab.EnterScope(0)
	require.NoError(t, tab.DeclareVar("x", 1))
	tab.EnterScope(1)
	require.NoError(t, tab.DeclareVar("x", 2))
	sym, diff, err := tab.Resolve("x")
	require.NoError(t, err)
	assert.Equal(t, 0, diff)
	assert.Equal(t, 1, sym.Level)
}

func TestResolve_LevelDifferenceWalksEnclosingScopes(t *testing.T) {
	tab := New()
	tab.EnterScope(0)
	require.NoError(t, tab.DeclareVar("outer", 1))
	tab.EnterScope(1)
	tab.EnterScope(2)
	_, diff, err := tab.Resolve("outer")
	require.NoError(t, err)
	assert.Equal(t, 2, diff)
}

func TestResolve_UndeclaredReturnsError(t *testing.T) {
	tab := New()
	tab.EnterScope(0)
	_, _, err := tab.Resolve("nope")
	require.Error(t, err)
	var undecl *Undeclared
	assert.ErrorAs(t, err, &undecl)
}

func TestShadows(t *testing.T) {
	tab := New()
	tab.EnterScope(0)
	require.NoError(t, tab.DeclareVar("x", 1))
	tab.EnterScope(1)
	assert.True(t, tab.Shadows("x"))
	assert.False(t, tab.Shadows("never_declared"))
}

func TestUnreferencedVars(t *testing.T) {
	tab := New()
	tab.EnterScope(0)
	require.NoError(t, tab.DeclareVar("used", 1))
	require.NoError(t, tab.DeclareVar("unused", 2))
	tab.Resolve("used")
	unreferenced := tab.UnreferencedVars()
	require.Len(t, unreferenced, 1)
	assert.Equal(t, "unused", unreferenced[0].Name)
}

func TestSuggest_WithinThreshold(t *testing.T) {
	tab := New()
	tab.EnterScope(0)
	require.NoError(t, tab.DeclareVar("counter", 1))
	suggestion, ok := tab.Suggest("countr")
	require.True(t, ok)
	assert.Equal(t, "counter", suggestion)
}

func TestSuggest_TooFarIsRejected(t *testing.T) {
	tab := New()
	tab.EnterScope(0)
	require.NoError(t, tab.DeclareVar("x", 1))
	_, ok := tab.Suggest("completely_unrelated_name")
	assert.False(t, ok)
}
