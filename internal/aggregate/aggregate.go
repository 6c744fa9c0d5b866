// Package aggregate implements the type aggregate (§4.F): given a
// class-like symbol, walk its inheritance/trait graph to produce a merged
// view of its effective members.
package aggregate

import (
	"fmt"

	"github.com/peterson-umoke/intelephense/internal/symbol"
)

// Lookup is the subset of the symbol store the aggregate needs: exact FQN
// lookup. *store.Store satisfies this.
type Lookup interface {
	Find(fqn string, predicate func(*symbol.Symbol) bool) []*symbol.Symbol
}

// MergeStrategy controls how same-named members collected from the
// associated set are reconciled (§4.F.2).
type MergeStrategy int

const (
	// None concatenates every member with no deduplication.
	None MergeStrategy = iota
	// Override walks root-first, keeping the first member seen per name.
	Override
	// Documented is like Override, but a later documented member replaces
	// a kept member that has no description.
	Documented
	// Base walks root-first but lets the last-seen member per name win.
	Base
)

// InvalidArgumentError is returned when constructing an Aggregate from a
// symbol that is not class-like (§7).
type InvalidArgumentError struct {
	Kind symbol.Kind
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("aggregate: %s is not class-like", e.Kind)
}

// TraitPrecedence is an extension hook for resolving `insteadof`/`as`
// conflicts between composed traits. The default aggregate behavior is
// naive union (§9 Open Question (a)); a non-nil TraitPrecedence can
// override which trait member wins for a given name.
type TraitPrecedence func(name string, candidates []*symbol.Symbol) *symbol.Symbol

// Canceller reports whether an in-flight request has been cancelled.
// Checked at node boundaries during the associated-set walk, so a long
// or cyclic inheritance chain can be abandoned early with no visible
// side effects (§5, §7).
type Canceller interface {
	Cancelled() bool
}

// Aggregate computes the associated set and merged member view of one
// class-like root symbol.
type Aggregate struct {
	root       *symbol.Symbol
	store      Lookup
	Precedence TraitPrecedence
	// Cancel, when set, is polled at each step of AssociatedSet's BFS.
	Cancel Canceller
}

func (a *Aggregate) cancelled() bool {
	return a.Cancel != nil && a.Cancel.Cancelled()
}

// New builds an Aggregate over root, looking up ancestors/traits in s.
// Returns an *InvalidArgumentError if root is not class-like.
func New(root *symbol.Symbol, s Lookup) (*Aggregate, error) {
	if root == nil || !root.Kind.IsClassLike() {
		kind := symbol.Kind(-1)
		if root != nil {
			kind = root.Kind
		}
		return nil, &InvalidArgumentError{Kind: kind}
	}
	return &Aggregate{root: root, store: s}, nil
}

// AssociatedSet performs the breadth-first walk of §4.F.1: starting from
// root's Associated FQNs, look each up (filtered to class-likes), then
// expand the frontier by each found symbol's own Associated. Cycles are
// broken by a visited-FQN set. The first encountered occurrence of a name
// wins for ordering.
func (a *Aggregate) AssociatedSet() []*symbol.Symbol {
	visited := map[string]bool{foldKey(a.root): true}
	var out []*symbol.Symbol

	queue := append([]string(nil), a.root.Associated...)
	for len(queue) > 0 {
		if a.cancelled() {
			return out
		}
		fqn := queue[0]
		queue = queue[1:]

		lowerKey := fqnFoldKey(fqn)
		if visited[lowerKey] {
			continue
		}
		visited[lowerKey] = true

		found := a.store.Find(fqn, func(s *symbol.Symbol) bool { return s.Kind.IsClassLike() })
		if len(found) == 0 {
			continue
		}
		sym := found[0]
		out = append(out, sym)
		queue = append(queue, sym.Associated...)
	}
	return out
}

func foldKey(s *symbol.Symbol) string {
	return fqnFoldKey(s.Name)
}

func fqnFoldKey(fqn string) string {
	out := make([]byte, len(fqn))
	for i := 0; i < len(fqn); i++ {
		c := fqn[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Members computes the merged member set under strategy, per §4.F.2-5.
func (a *Aggregate) Members(strategy MergeStrategy) []*symbol.Symbol {
	ancestors := a.AssociatedSet()

	// Separate traits (collected and appended last) from the inheritance
	// chain (classes/interfaces), per §4.F.4.
	var chain []*symbol.Symbol
	var traits []*symbol.Symbol
	for _, s := range ancestors {
		if s.Kind == symbol.KindTrait {
			traits = append(traits, s)
		} else {
			chain = append(chain, s)
		}
	}

	if a.root.Kind == symbol.KindInterface || a.root.Kind == symbol.KindTrait {
		// §4.F.5: parents' members concatenate without merge.
		var out []*symbol.Symbol
		out = append(out, a.root.Children...)
		for _, anc := range chain {
			out = append(out, anc.Children...)
		}
		for _, tr := range traits {
			out = append(out, tr.Children...)
		}
		return out
	}

	merged := mergeChain(a.root, chain, strategy)
	merged = appendTraitMembers(merged, traits, a.Precedence)
	return merged
}

// mergeChain merges root.Children plus each ancestor's Children per
// strategy. root's own privates are kept; an ancestor's privates are
// excluded (§4.F.3, visibility filtering).
func mergeChain(root *symbol.Symbol, ancestors []*symbol.Symbol, strategy MergeStrategy) []*symbol.Symbol {
	type slot struct {
		sym *symbol.Symbol
	}
	order := make([]string, 0, len(root.Children))
	byName := make(map[string]*slot)

	consider := func(sym *symbol.Symbol, isRoot bool) {
		if !isRoot && sym.Modifiers.Has(symbol.ModPrivate) {
			return
		}
		name := sym.Name
		existing, ok := byName[name]
		if !ok {
			byName[name] = &slot{sym: sym}
			order = append(order, name)
			return
		}
		if strategy == None {
			// handled separately below (no dedup at all).
			return
		}
		nonMagicBeatsMagic := existing.sym.Modifiers.Has(symbol.ModMagic) && !sym.Modifiers.Has(symbol.ModMagic)
		switch strategy {
		case Override:
			if nonMagicBeatsMagic {
				existing.sym = sym
			}
		case Documented:
			if nonMagicBeatsMagic || (existing.sym.Description == "" && sym.Description != "") {
				existing.sym = sym
			}
		case Base:
			// Root-last semantics: whichever is seen last wins outright.
			existing.sym = sym
		}
	}

	if strategy == None {
		var out []*symbol.Symbol
		out = append(out, root.Children...)
		for _, anc := range ancestors {
			for _, m := range anc.Children {
				if m.Modifiers.Has(symbol.ModPrivate) {
					continue
				}
				out = append(out, m)
			}
		}
		return out
	}

	for _, m := range root.Children {
		consider(m, true)
	}
	for _, anc := range ancestors {
		for _, m := range anc.Children {
			consider(m, false)
		}
	}

	out := make([]*symbol.Symbol, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name].sym)
	}
	return out
}

func appendTraitMembers(merged []*symbol.Symbol, traits []*symbol.Symbol, precedence TraitPrecedence) []*symbol.Symbol {
	if len(traits) == 0 {
		return merged
	}

	present := make(map[string]bool, len(merged))
	for _, m := range merged {
		present[m.Name] = true
	}

	byName := make(map[string][]*symbol.Symbol)
	var order []string
	for _, tr := range traits {
		for _, m := range tr.Children {
			if m.Modifiers.Has(symbol.ModPrivate) {
				continue
			}
			if _, seen := byName[m.Name]; !seen {
				order = append(order, m.Name)
			}
			byName[m.Name] = append(byName[m.Name], m)
		}
	}

	for _, name := range order {
		if present[name] {
			continue
		}
		candidates := byName[name]
		var winner *symbol.Symbol
		if precedence != nil {
			winner = precedence(name, candidates)
		}
		if winner == nil {
			winner = candidates[0] // naive union default (§9 Open Question (a)).
		}
		merged = append(merged, winner)
	}
	return merged
}
