// Package resolver implements the purely lexical name-resolution rules of
// §4.B: turning a written name, together with its relativity and expected
// kind, into a fully-qualified name. It never consults the symbol store.
package resolver

import (
	"strings"

	"github.com/peterson-umoke/intelephense/internal/symbol"
)

// Relativity classifies how a written name relates to the current
// namespace.
type Relativity int

const (
	// Unqualified has no leading separator: "Foo" or "Foo\Bar".
	Unqualified Relativity = iota
	// Relative is written as "namespace\...", prefixed with the current
	// namespace.
	Relative
	// FullyQualified has a leading separator and is used verbatim.
	FullyQualified
)

// ImportRule is one entry of a document's import table: an alias mapping
// to a target FQN of a given kind.
type ImportRule struct {
	Target string
	Kind   ImportKind
}

// ImportKind narrows which written-name kinds an import rule applies to.
type ImportKind int

const (
	ImportAny ImportKind = iota
	ImportClass
	ImportFunction
	ImportConstant
)

// ImportTable maps an alias to its target FQN and kind. Class and function
// lookups fold case; constant lookups do not (§3).
type ImportTable struct {
	folded   map[string]ImportRule // lowercased alias -> rule, for Class/Any
	exact    map[string]ImportRule // alias as written, for Constant
	funcs    map[string]ImportRule // lowercased alias, for Function
}

// NewImportTable returns an empty import table.
func NewImportTable() *ImportTable {
	return &ImportTable{
		folded: make(map[string]ImportRule),
		exact:  make(map[string]ImportRule),
		funcs:  make(map[string]ImportRule),
	}
}

// Add registers alias -> target under kind.
func (t *ImportTable) Add(alias, target string, kind ImportKind) {
	if t == nil || alias == "" {
		return
	}
	rule := ImportRule{Target: target, Kind: kind}
	switch kind {
	case ImportConstant:
		t.exact[alias] = rule
	case ImportFunction:
		t.funcs[strings.ToLower(alias)] = rule
	default:
		t.folded[strings.ToLower(alias)] = rule
	}
}

// Lookup finds an alias rule usable for the given kind.
func (t *ImportTable) Lookup(alias string, kind ImportKind) (ImportRule, bool) {
	if t == nil {
		return ImportRule{}, false
	}
	switch kind {
	case ImportConstant:
		rule, ok := t.exact[alias]
		return rule, ok
	case ImportFunction:
		rule, ok := t.funcs[strings.ToLower(alias)]
		return rule, ok
	default:
		rule, ok := t.folded[strings.ToLower(alias)]
		return rule, ok
	}
}

// Resolver holds the lexical context for one document position: the
// active namespace prefix and its import table.
type Resolver struct {
	Namespace string
	Imports   *ImportTable
}

// New builds a resolver for the given namespace and import table. A nil
// table is treated as empty.
func New(namespace string, imports *ImportTable) *Resolver {
	if imports == nil {
		imports = NewImportTable()
	}
	return &Resolver{Namespace: namespace, Imports: imports}
}

func importKindFor(kind symbol.Kind) ImportKind {
	switch kind {
	case symbol.KindClass, symbol.KindInterface, symbol.KindTrait:
		return ImportClass
	case symbol.KindFunction:
		return ImportFunction
	case symbol.KindConstant:
		return ImportConstant
	default:
		return ImportAny
	}
}

// Resolve implements the §4.B algorithm: turn a written name of the given
// kind and relativity into a fully-qualified name. Resolve is idempotent
// on names that are already fully qualified.
func (r *Resolver) Resolve(written string, kind symbol.Kind, rel Relativity) string {
	name := trimLeadingSeparators(written)

	switch rel {
	case FullyQualified:
		return name
	case Relative:
		return joinNS(r.namespace(), name)
	}

	// Unqualified.
	head, tail, hasTail := splitHead(name)
	importKind := importKindFor(kind)

	if importKind == ImportClass {
		if rule, ok := r.Imports.Lookup(head, ImportClass); ok {
			if hasTail {
				return joinNS(rule.Target, tail)
			}
			return rule.Target
		}
	} else if (importKind == ImportFunction || importKind == ImportConstant) && !hasTail {
		if rule, ok := r.Imports.Lookup(name, importKind); ok {
			return rule.Target
		}
	}

	// No fallback to the global namespace: an unqualified function or
	// constant inside a namespace always resolves into that namespace.
	if r.namespace() != "" {
		return joinNS(r.namespace(), name)
	}
	return name
}

func (r *Resolver) namespace() string {
	if r == nil {
		return ""
	}
	return r.Namespace
}

func trimLeadingSeparators(s string) string {
	return strings.TrimLeft(s, "\\")
}

func splitHead(name string) (head, tail string, hasTail bool) {
	idx := strings.Index(name, "\\")
	if idx < 0 {
		return name, "", false
	}
	return name[:idx], name[idx+1:], true
}

func joinNS(ns, name string) string {
	if ns == "" {
		return name
	}
	if name == "" {
		return ns
	}
	return ns + "\\" + name
}
