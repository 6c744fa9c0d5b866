// Package vars implements the resolved variable table (§4.G): a stack of
// lexical scopes, each carrying a stack of branch-groups for
// conditional-alternative type merging.
package vars

import "github.com/peterson-umoke/intelephense/internal/symbol"

type branch struct {
	types map[string]symbol.TypeStr
}

func newBranch() *branch {
	return &branch{types: make(map[string]symbol.TypeStr)}
}

type branchGroup struct {
	branches []*branch
}

// scope is one lexical scope (function/method/class/closure body): a flat
// name -> type map, plus an active stack of branch-groups overlaying it.
type scope struct {
	types  map[string]symbol.TypeStr
	groups []*branchGroup
}

func newScope() *scope {
	return &scope{types: make(map[string]symbol.TypeStr)}
}

// Table is the resolved variable table: a stack of scopes. The zero value
// is not usable; construct with New.
type Table struct {
	scopes []*scope
}

// New returns an empty table with no active scope.
func New() *Table {
	return &Table{}
}

// PushScope opens a new lexical scope.
func (t *Table) PushScope() {
	t.scopes = append(t.scopes, newScope())
}

// PopScope closes the innermost lexical scope, discarding its bindings.
func (t *Table) PopScope() {
	if len(t.scopes) == 0 {
		return
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

func (t *Table) currentScope() *scope {
	if len(t.scopes) == 0 {
		return nil
	}
	return t.scopes[len(t.scopes)-1]
}

// PushBranchGroup opens a branch-group (an if/elseif/else chain) in the
// innermost scope.
func (t *Table) PushBranchGroup() {
	s := t.currentScope()
	if s == nil {
		return
	}
	s.groups = append(s.groups, &branchGroup{})
}

// PopBranchGroup closes the innermost branch-group: per §4.G, for every
// variable touched in any of its branches, computes the union of its
// per-branch types (a branch that never touched the variable contributes
// the enclosing scope's prior type, or the empty type if none), then
// writes the union into the enclosing scope.
func (t *Table) PopBranchGroup() {
	s := t.currentScope()
	if s == nil || len(s.groups) == 0 {
		return
	}
	group := s.groups[len(s.groups)-1]
	s.groups = s.groups[:len(s.groups)-1]

	names := make(map[string]bool)
	for _, b := range group.branches {
		for name := range b.types {
			names[name] = true
		}
	}

	for name := range names {
		prior := s.types[name]
		union := symbol.TypeStr{}
		for _, b := range group.branches {
			if t, ok := b.types[name]; ok {
				union = union.Merge(t)
			} else {
				union = union.Merge(prior)
			}
		}
		s.types[name] = union
	}
}

// PushBranch opens a new branch (overlay) within the innermost
// branch-group.
func (t *Table) PushBranch() {
	s := t.currentScope()
	if s == nil || len(s.groups) == 0 {
		return
	}
	group := s.groups[len(s.groups)-1]
	group.branches = append(group.branches, newBranch())
}

// PopBranch ends the innermost branch. Its overlay already lives in the
// branch-group's branch list, so nothing is committed here, and the branch
// is not closed: it remains the target of SetType and the first place
// GetType looks until the next PushBranch or PopBranchGroup.
func (t *Table) PopBranch() {
	// The branch's bindings already live in the branch-group's branch
	// list from SetType; nothing further to commit. Present for symmetry
	// with PushBranch and to match the §4.G operation set.
}

// currentBranch returns the innermost open branch, or nil if no
// branch-group is active in the innermost scope.
func (t *Table) currentBranch() *branch {
	s := t.currentScope()
	if s == nil || len(s.groups) == 0 {
		return nil
	}
	group := s.groups[len(s.groups)-1]
	if len(group.branches) == 0 {
		return nil
	}
	return group.branches[len(group.branches)-1]
}

// SetType binds name to typ in the topmost open branch if one exists,
// otherwise directly in the innermost scope.
func (t *Table) SetType(name string, typ symbol.TypeStr) {
	if b := t.currentBranch(); b != nil {
		b.types[name] = typ
		return
	}
	s := t.currentScope()
	if s == nil {
		return
	}
	s.types[name] = typ
}

// GetType looks up name per §4.G's precedence: topmost branch overlay ->
// enclosing branch-group merged view (approximated by the scope's own
// types, which branch-group pops have already folded in) -> enclosing
// scope -> outer scopes.
func (t *Table) GetType(name string) symbol.TypeStr {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		s := t.scopes[i]
		for g := len(s.groups) - 1; g >= 0; g-- {
			group := s.groups[g]
			if len(group.branches) == 0 {
				continue
			}
			if typ, ok := group.branches[len(group.branches)-1].types[name]; ok {
				return typ
			}
		}
		if typ, ok := s.types[name]; ok {
			return typ
		}
	}
	return symbol.TypeStr{}
}
