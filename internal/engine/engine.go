// Package engine is the composition root the spec asks for (§9: "an
// explicit Engine value owned by the host rather than free functions over
// module-level bindings"). It wires every component (§4.A-I) together and
// exposes the operations §6 lists as "Exposed to providers."
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/peterson-umoke/intelephense/internal/aggregate"
	"github.com/peterson-umoke/intelephense/internal/autoload"
	"github.com/peterson-umoke/intelephense/internal/docstore"
	"github.com/peterson-umoke/intelephense/internal/phptree"
	"github.com/peterson-umoke/intelephense/internal/reader"
	"github.com/peterson-umoke/intelephense/internal/resolver"
	"github.com/peterson-umoke/intelephense/internal/store"
	"github.com/peterson-umoke/intelephense/internal/symbol"
	"github.com/peterson-umoke/intelephense/internal/typeresolve"
)

// DocumentItem mirrors the LSP TextDocumentItem contract consumed at
// §6: a URI, its language id, full text and version.
type DocumentItem struct {
	URI        string
	LanguageID string
	Text       string
	Version    int
}

// CancelToken is a request-scoped cancellation flag (§5): the type
// resolver and type aggregate poll it at node/step boundaries and return
// early with an empty result, never as an error (§7).
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken returns a token in the not-cancelled state.
func NewCancelToken() *CancelToken { return &CancelToken{} }

// Cancel marks the token cancelled. Idempotent.
func (c *CancelToken) Cancel() { c.cancelled.Store(true) }

// Cancelled satisfies both typeresolve.Canceller and aggregate.Canceller.
func (c *CancelToken) Cancelled() bool { return c.cancelled.Load() }

// docState is what the engine keeps per document beyond its parsed tree:
// the symbol tree and import table produced by the last successful read,
// needed to answer position-scoped queries without re-reading the tree.
type docState struct {
	tree    phptree.Tree
	imports *resolver.ImportTable
	root    *symbol.Symbol
}

// Engine owns every component of the semantic core and is the single
// point through which an LSP provider (or a CLI/batch tool) reaches it.
type Engine struct {
	docs     *docstore.Store
	bus      *docstore.ChangeBus
	symbols  *store.Store
	reader   *reader.Reader
	autoload autoload.Map
	root     string

	mu    sync.RWMutex
	state map[string]docState
}

// New constructs an Engine rooted at workspaceRoot, using m for PSR-4
// resolution of references into unopened files (an empty/nil m disables
// that lookup; Discover/open-document indexing still works).
func New(workspaceRoot string, m autoload.Map) *Engine {
	e := &Engine{
		symbols:  store.New(),
		reader:   reader.New(),
		autoload: m,
		root:     workspaceRoot,
		state:    make(map[string]docState),
	}
	e.bus = docstore.NewChangeBus()
	e.bus.Subscribe(e.onReparse)
	e.docs = docstore.NewStore(0, e.bus)
	return e
}

// autoloadingLookup wraps the global symbol store with a fallback: a
// miss on a class-like FQN is retried once after resolving and parsing
// the file PSR-4 says should declare it (§6's "go-to-definition and the
// type aggregate... follow a reference into a file the editor has never
// opened"). Passed wherever aggregate/typeresolve want a Lookup so every
// associated-set walk and member-access resolution benefits, not just
// the entry points this package calls directly.
type autoloadingLookup struct {
	eng *Engine
}

func (l autoloadingLookup) Find(fqn string, predicate func(*symbol.Symbol) bool) []*symbol.Symbol {
	if found := l.eng.symbols.Find(fqn, predicate); len(found) > 0 {
		return found
	}
	l.eng.loadByAutoload(fqn)
	return l.eng.symbols.Find(fqn, predicate)
}

// loadByAutoload resolves fqn to a file via the engine's PSR-4 map,
// parses it (through the document store, so a later editor-open reuses
// the same cached document), and indexes its symbols. A no-op if
// autoload is unconfigured or fqn does not resolve to an existing file.
func (e *Engine) loadByAutoload(fqn string) {
	if e.autoload.IsEmpty() {
		return
	}
	path, ok := autoload.Resolve(fqn, e.autoload, e.root)
	if !ok {
		return
	}
	uri := pathToURI(path)

	e.mu.RLock()
	_, already := e.state[uri]
	e.mu.RUnlock()
	if already {
		return
	}

	doc, err := e.docs.Get(uri, path)
	if err != nil {
		return
	}
	res := e.reader.Read(doc.Tree(), uri)
	e.symbols.OnDocumentChange(uri, res.Root)

	e.mu.Lock()
	e.state[uri] = docState{tree: doc.Tree(), imports: res.Imports, root: res.Root}
	e.mu.Unlock()
}

func (e *Engine) onReparse(evt docstore.ChangeEvent) {
	res := e.reader.Read(evt.Tree, evt.URI)
	e.symbols.OnDocumentChange(evt.URI, res.Root)

	e.mu.Lock()
	e.state[evt.URI] = docState{tree: evt.Tree, imports: res.Imports, root: res.Root}
	e.mu.Unlock()
}

// OpenDocument registers item as live and parses it immediately (§6).
func (e *Engine) OpenDocument(item DocumentItem) error {
	_, err := e.docs.Open(item.URI, []byte(item.Text))
	return err
}

// CloseDocument marks id as no longer open (§6). Per §3's lifecycle, the
// symbol remains queryable until Forget is called or eviction reclaims
// the slot; this matches the teacher's "closed but still cached" model.
func (e *Engine) CloseDocument(uri string) {
	e.docs.Close(uri)
}

// EditDocument applies an incremental content change, scheduling a
// debounced re-parse (§4.I, §6).
func (e *Engine) EditDocument(uri string, newText []byte, change *docstore.EditArgs) error {
	return e.docs.Edit(uri, newText, change)
}

// DocumentText returns an open document's current in-memory source, so a
// transport layer can apply an LSP range-based content change against it
// before calling EditDocument with the resulting full text.
func (e *Engine) DocumentText(uri string) (string, bool) {
	doc := e.docs.Lookup(uri)
	if doc == nil {
		return "", false
	}
	return string(doc.Content()), true
}

// Discover parses item without registering it as open, indexing its
// symbols immediately, and returns how many top-level symbols it
// contributed (§6).
func (e *Engine) Discover(item DocumentItem) (int, error) {
	content := []byte(item.Text)
	doc := docstore.NewDocument(item.URI, nil)
	if err := doc.Open(content); err != nil {
		return 0, err
	}
	res := e.reader.Read(doc.Tree(), item.URI)
	e.symbols.OnDocumentChange(item.URI, res.Root)

	e.mu.Lock()
	e.state[item.URI] = docState{tree: doc.Tree(), imports: res.Imports, root: res.Root}
	e.mu.Unlock()

	return e.symbols.DocumentSymbolCount(item.URI), nil
}

// DiscoverWorkspace walks root for *.php files and Discovers each,
// yielding between documents per §5's "long operations... yield between
// documents" (a supplemented feature beyond the distilled spec).
func (e *Engine) DiscoverWorkspace(root string) (int, error) {
	total := 0
	logger := commonlog.GetLoggerf("intelephense.engine")
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".php" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Debugf("discover: skipping %s: %v", path, err)
			return nil
		}
		uri := pathToURI(path)
		n, err := e.Discover(DocumentItem{URI: uri, LanguageID: "php", Text: string(data)})
		if err != nil {
			logger.Debugf("discover: parse error for %s: %v", path, err)
			return nil
		}
		total += n
		return nil
	})
	return total, err
}

// Forget removes uri's symbols from the store and evicts its parsed
// document entirely, returning how many top-level symbols it had (§6,
// §3's "deleted when the document is closed and unreferenced").
func (e *Engine) Forget(uri string) int {
	n := e.symbols.DocumentSymbolCount(uri)
	e.symbols.Remove(uri)
	e.docs.Remove(uri)

	e.mu.Lock()
	delete(e.state, uri)
	e.mu.Unlock()

	return n
}

// DocumentSymbols returns the document's symbol tree's top-level
// children (each carrying its own nested Children), per §6.
func (e *Engine) DocumentSymbols(uri string) []*symbol.Symbol {
	e.mu.RLock()
	st, ok := e.state[uri]
	e.mu.RUnlock()
	if !ok || st.root == nil {
		return nil
	}
	return flattenTopLevel(st.root)
}

func flattenTopLevel(root *symbol.Symbol) []*symbol.Symbol {
	var out []*symbol.Symbol
	for _, c := range root.Children {
		if c.Kind == symbol.KindNamespace {
			out = append(out, flattenTopLevel(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// WorkspaceSymbols searches the global store for symbols whose FQN
// begins with query (§6).
func (e *Engine) WorkspaceSymbols(query string) []*symbol.Symbol {
	return e.symbols.Match(query, nil)
}

// Aggregate builds a type aggregate over classFqn (§6). Returns an error
// if no class-like symbol is found for the FQN, even after an autoload
// attempt.
func (e *Engine) Aggregate(classFqn string, cancel *CancelToken) (*aggregate.Aggregate, error) {
	lookup := autoloadingLookup{eng: e}
	found := lookup.Find(classFqn, func(s *symbol.Symbol) bool { return s.Kind.IsClassLike() })
	if len(found) == 0 {
		return nil, fmt.Errorf("engine: no class-like symbol for %q", classFqn)
	}
	agg, err := aggregate.New(found[0], lookup)
	if err != nil {
		return nil, err
	}
	if cancel != nil {
		agg.Cancel = cancel
	}
	return agg, nil
}

// ResolveType answers the static type of the expression at pos within
// uri (§6, §4.H). Returns the empty type if the document is unknown, the
// position matches no expression, or resolution otherwise fails (§7).
func (e *Engine) ResolveType(uri string, pos phptree.Point, cancel *CancelToken) symbol.TypeStr {
	e.mu.RLock()
	st, ok := e.state[uri]
	e.mu.RUnlock()
	if !ok {
		return symbol.TypeStr{}
	}

	target := st.tree.NodeAt(pos)
	if target.IsNull() {
		return symbol.TypeStr{}
	}

	names := e.namesAt(st, target)
	tr := typeresolve.New(autoloadingLookup{eng: e}, names)
	if cancel != nil {
		tr.Cancel = cancel
	}
	tr.Class = e.enclosingClass(target, names)
	return tr.ResolveAt(st.tree.Root(), target)
}

// namesAt builds a name resolver for the document position enclosing
// target: the import table is document-wide (§3), but the active
// namespace depends on which namespace block (if any) encloses target.
func (e *Engine) namesAt(st docState, target phptree.Node) *resolver.Resolver {
	ns := enclosingNamespace(target)
	return resolver.New(ns, st.imports)
}

func enclosingNamespace(n phptree.Node) string {
	nsNode := n.AncestorOfKind("namespace_definition", "namespace_declaration")
	if nsNode.IsNull() {
		return ""
	}
	if name := nsNode.Field("name"); !name.IsNull() {
		return name.Content()
	}
	return ""
}

// enclosingClass looks up the symbol-store entry for the class/
// interface/trait declaration enclosing target, for self/static/$this
// resolution (§4.H).
func (e *Engine) enclosingClass(target phptree.Node, names *resolver.Resolver) *symbol.Symbol {
	classNode := target.AncestorOfKind("class_declaration", "interface_declaration", "trait_declaration")
	if classNode.IsNull() {
		return nil
	}
	nameNode := classNode.Field("name")
	if nameNode.IsNull() {
		return nil
	}
	fqn := names.Resolve(nameNode.Content(), symbol.KindClass, resolver.Unqualified)
	found := e.symbols.Find(fqn, func(s *symbol.Symbol) bool { return s.Kind.IsClassLike() })
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// ProvideDefinition resolves the name or member reference at pos within
// uri to a declaration location (§6).
func (e *Engine) ProvideDefinition(uri string, pos phptree.Point) (symbol.Location, bool) {
	e.mu.RLock()
	st, ok := e.state[uri]
	e.mu.RUnlock()
	if !ok {
		return symbol.Location{}, false
	}

	target := st.tree.NodeAt(pos)
	if target.IsNull() {
		return symbol.Location{}, false
	}
	names := e.namesAt(st, target)

	if classNode := target.AncestorOfKind("qualified_name", "relative_name", "name"); !classNode.IsNull() {
		fqn := resolveWrittenName(names, classNode.Content())
		if found := e.symbols.Find(fqn, func(s *symbol.Symbol) bool { return s.Kind.IsClassLike() || s.Kind == symbol.KindFunction }); len(found) > 0 {
			return found[0].Location, true
		}
	}

	if access := target.AncestorOfKind("member_access_expression", "nullsafe_member_access_expression",
		"member_call_expression", "nullsafe_member_call_expression"); !access.IsNull() {
		objType := e.ResolveType(uri, toPoint(access.Field("object").Range()), nil)
		memberName := access.Field("name").Content()
		for _, fqn := range objType.AtomicClasses() {
			agg, err := e.Aggregate(fqn, nil)
			if err != nil {
				continue
			}
			for _, m := range agg.Members(aggregate.Override) {
				if m.Name == memberName {
					return m.Location, true
				}
			}
		}
	}

	return symbol.Location{}, false
}

func resolveWrittenName(names *resolver.Resolver, raw string) string {
	rel := resolver.Unqualified
	if len(raw) > 0 && raw[0] == '\\' {
		rel = resolver.FullyQualified
	}
	return names.Resolve(raw, symbol.KindClass, rel)
}

func toPoint(r phptree.Range) phptree.Point {
	return phptree.Point{Line: r.StartLine - 1, Column: r.StartColumn}
}

// ProvideCompletions returns candidate symbols at pos within uri (§6): if
// the position follows a member-access operator, candidates are the
// object's aggregate member set; otherwise candidates are a workspace
// prefix match.
func (e *Engine) ProvideCompletions(uri string, pos phptree.Point, writtenPrefix string) []*symbol.Symbol {
	e.mu.RLock()
	st, ok := e.state[uri]
	e.mu.RUnlock()
	if !ok {
		return nil
	}

	target := st.tree.NodeAt(pos)
	if access := target.AncestorOfKind("member_access_expression", "nullsafe_member_access_expression",
		"member_call_expression", "nullsafe_member_call_expression"); !access.IsNull() {
		objType := e.ResolveType(uri, toPoint(access.Field("object").Range()), nil)
		var out []*symbol.Symbol
		for _, fqn := range objType.AtomicClasses() {
			agg, err := e.Aggregate(fqn, nil)
			if err != nil {
				continue
			}
			for _, m := range agg.Members(aggregate.Override) {
				if hasPrefixFold(m.Name, writtenPrefix) {
					out = append(out, m)
				}
			}
		}
		return out
	}

	return e.symbols.Match(writtenPrefix, nil)
}

func hasPrefixFold(name, prefix string) bool {
	if prefix == "" {
		return true
	}
	if len(name) < len(prefix) {
		return false
	}
	return foldEqualASCII(name[:len(prefix)], prefix)
}

func foldEqualASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// ProvideSignatureHelp returns the callable symbol (function or method)
// invoked at pos within uri, whose Children are its parameters (§6).
func (e *Engine) ProvideSignatureHelp(uri string, pos phptree.Point) *symbol.Symbol {
	e.mu.RLock()
	st, ok := e.state[uri]
	e.mu.RUnlock()
	if !ok {
		return nil
	}

	target := st.tree.NodeAt(pos)
	callNode := target.AncestorOfKind("function_call_expression", "member_call_expression",
		"nullsafe_member_call_expression", "scoped_call_expression")
	if callNode.IsNull() {
		return nil
	}
	names := e.namesAt(st, target)

	switch callNode.Kind() {
	case "function_call_expression":
		nameNode := callNode.Field("function")
		if nameNode.IsNull() {
			return nil
		}
		fqn := names.Resolve(nameNode.Content(), symbol.KindFunction, relativityOf(nameNode.Content()))
		found := e.symbols.Find(fqn, func(s *symbol.Symbol) bool { return s.Kind == symbol.KindFunction })
		if len(found) == 0 {
			return nil
		}
		return found[0]
	default:
		// member_call_expression names its receiver "object";
		// scoped_call_expression (E::m(...)) names it "scope".
		objField := callNode.Field("object")
		if objField.IsNull() {
			objField = callNode.Field("scope")
		}
		objType := e.ResolveType(uri, toPoint(objField.Range()), nil)
		memberName := callNode.Field("name").Content()
		for _, fqn := range objType.AtomicClasses() {
			agg, err := e.Aggregate(fqn, nil)
			if err != nil {
				continue
			}
			for _, m := range agg.Members(aggregate.Override) {
				if m.Name == memberName && m.Kind == symbol.KindMethod {
					return m
				}
			}
		}
	}
	return nil
}

func relativityOf(raw string) resolver.Relativity {
	if len(raw) > 0 && raw[0] == '\\' {
		return resolver.FullyQualified
	}
	return resolver.Unqualified
}

func pathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}
