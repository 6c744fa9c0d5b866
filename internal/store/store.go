// Package store implements the global symbol store (§4.E): a process-wide
// index of declared symbols keyed by fully-qualified name, with a
// secondary per-document index supporting atomic replace-on-reparse.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/peterson-umoke/intelephense/internal/symbol"
)

// DuplicateDocumentError is returned by Add when uri is already present;
// callers must Remove it first (§7).
type DuplicateDocumentError struct {
	URI string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("store: document %q already indexed", e.URI)
}

// Store is the global FQN-keyed symbol index. The zero value is not
// usable; construct with New. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	// folded holds symbols of kinds that fold case (classes, interfaces,
	// traits, functions, namespaces), keyed by lowercased FQN.
	folded map[string][]*symbol.Symbol
	// exact holds symbols of kinds that do not fold case (constants,
	// properties, class constants, parameters, variables), keyed by FQN
	// as declared.
	exact map[string][]*symbol.Symbol

	// docIndex maps a document URI to the top-level symbols it
	// contributed, so Remove can undo an Add in one pass.
	docIndex map[string][]*symbol.Symbol
}

// New returns an empty store.
func New() *Store {
	return &Store{
		folded:   make(map[string][]*symbol.Symbol),
		exact:    make(map[string][]*symbol.Symbol),
		docIndex: make(map[string][]*symbol.Symbol),
	}
}

// Add indexes every top-level symbol reachable from root (a document's
// symbol tree, as produced by internal/reader) under uri. It fails with
// *DuplicateDocumentError if uri is already indexed.
func (s *Store) Add(uri string, root *symbol.Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docIndex[uri]; exists {
		return &DuplicateDocumentError{URI: uri}
	}
	s.addLocked(uri, root)
	return nil
}

func (s *Store) addLocked(uri string, root *symbol.Symbol) {
	tops := topLevelSymbols(root)
	for _, sym := range tops {
		s.insertLocked(sym)
	}
	s.docIndex[uri] = tops
}

// DocumentSymbolCount returns how many top-level symbols uri contributed,
// or 0 if uri is not indexed.
func (s *Store) DocumentSymbolCount(uri string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docIndex[uri])
}

// Remove drops every symbol previously registered under uri. Removing an
// unknown uri is a no-op.
func (s *Store) Remove(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(uri)
}

func (s *Store) removeLocked(uri string) {
	tops, ok := s.docIndex[uri]
	if !ok {
		return
	}
	for _, sym := range tops {
		s.deleteLocked(sym)
	}
	delete(s.docIndex, uri)
}

// OnDocumentChange atomically replaces uri's symbols with root's top-level
// symbols: remove(uri) then add(uri, root), as one locked operation so no
// reader observes an intermediate state (§4.E, §5).
func (s *Store) OnDocumentChange(uri string, root *symbol.Symbol) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(uri)
	s.addLocked(uri, root)
}

func (s *Store) insertLocked(sym *symbol.Symbol) {
	if sym.Kind.FoldsCase() {
		key := strings.ToLower(sym.Name)
		s.folded[key] = append(s.folded[key], sym)
		return
	}
	s.exact[sym.Name] = append(s.exact[sym.Name], sym)
}

func (s *Store) deleteLocked(sym *symbol.Symbol) {
	if sym.Kind.FoldsCase() {
		key := strings.ToLower(sym.Name)
		s.folded[key] = removeSymbol(s.folded[key], sym)
		if len(s.folded[key]) == 0 {
			delete(s.folded, key)
		}
		return
	}
	s.exact[sym.Name] = removeSymbol(s.exact[sym.Name], sym)
	if len(s.exact[sym.Name]) == 0 {
		delete(s.exact, sym.Name)
	}
}

func removeSymbol(list []*symbol.Symbol, target *symbol.Symbol) []*symbol.Symbol {
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// Find returns every symbol matching fqn, kind-aware case folding applied,
// optionally filtered by predicate.
func (s *Store) Find(fqn string, predicate func(*symbol.Symbol) bool) []*symbol.Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*symbol.Symbol
	out = appendMatching(out, s.folded[strings.ToLower(fqn)], predicate)
	out = appendMatching(out, s.exact[fqn], predicate)

	if len(out) == 0 {
		logger := commonlog.GetLoggerf("intelephense.store")
		logger.Debugf("unresolved name: %s", fqn)
	}
	return out
}

// Match returns every symbol whose FQN begins with prefix, case-insensitive
// for folding kinds, optionally filtered by predicate. Results are sorted
// stably by name, suitable for completion/workspace-symbol search.
func (s *Store) Match(prefix string, predicate func(*symbol.Symbol) bool) []*symbol.Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lowerPrefix := strings.ToLower(prefix)
	var out []*symbol.Symbol
	for key, syms := range s.folded {
		if strings.HasPrefix(key, lowerPrefix) {
			out = appendMatching(out, syms, predicate)
		}
	}
	for key, syms := range s.exact {
		if strings.HasPrefix(key, prefix) {
			out = appendMatching(out, syms, predicate)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func appendMatching(out []*symbol.Symbol, syms []*symbol.Symbol, predicate func(*symbol.Symbol) bool) []*symbol.Symbol {
	for _, s := range syms {
		if predicate == nil || predicate(s) {
			out = append(out, s)
		}
	}
	return out
}

// topLevelSymbols flattens a document's symbol tree (as produced by
// internal/reader) into the symbols that belong at global-store scope:
// it descends through synthetic/namespace wrapper symbols but stops at
// the first class-like, function or constant it finds.
func topLevelSymbols(root *symbol.Symbol) []*symbol.Symbol {
	var out []*symbol.Symbol
	if root == nil {
		return out
	}
	for _, child := range root.Children {
		if child.Kind == symbol.KindNamespace {
			out = append(out, topLevelSymbols(child)...)
			continue
		}
		out = append(out, child)
	}
	return out
}
