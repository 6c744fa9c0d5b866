// Package docstore implements the document store and change-event bus of
// component I (§4.I): live parsed documents, debounced re-parse, and a
// synchronous broadcast to the symbol store on reparse completion.
//
// Document is adapted directly from the teacher's internal/php.Document
// (parser + debounce timer + dirty tracking), generalized from PHP-file
// paths to LSP document URIs and from the teacher's own 500ms static
// analysis debounce to this spec's explicit ~250ms quiet window (§4.I).
package docstore

import (
	"context"
	"sync"
	"time"

	phpforest "github.com/alexaandru/go-sitter-forest/php"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/tliron/commonlog"

	"github.com/peterson-umoke/intelephense/internal/phptree"
)

// DebounceInterval is the fixed quiet window between an edit and the
// re-parse it schedules, matching §4.I exactly (the teacher's own
// analysisDebounceInterval is 500ms; this engine follows the spec's
// number instead).
const DebounceInterval = 250 * time.Millisecond

// ChangeEvent is broadcast once a document's re-parse completes.
type ChangeEvent struct {
	URI  string
	Tree phptree.Tree
}

// ChangeBus is a synchronous subscriber list. Per §5's single serialized
// request loop, subscribers run inline on whatever goroutine completed
// the re-parse; there is no queueing, and a subscriber observes every
// event in the order its document committed.
type ChangeBus struct {
	mu          sync.Mutex
	subscribers []func(ChangeEvent)
}

// NewChangeBus returns an empty bus.
func NewChangeBus() *ChangeBus { return &ChangeBus{} }

// Subscribe registers fn to be called on every future change event.
func (b *ChangeBus) Subscribe(fn func(ChangeEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

func (b *ChangeBus) publish(evt ChangeEvent) {
	b.mu.Lock()
	subs := append([]func(ChangeEvent){}, b.subscribers...)

	b.mu.Unlock()
	for _, fn := range subs {
		fn(evt)
	}
}

// Document maintains one source file's tree-sitter parser and tree, and
// decides when an edit should trigger a new parse. The zero value is not
// usable; construct with NewDocument.
type Document struct {
	uri    string
	parser *sitter.Parser
	bus    *ChangeBus

	mu            sync.RWMutex
	tree          *sitter.Tree
	content       []byte
	version       int64
	debounceTimer *time.Timer
}

// NewDocument constructs a Document for uri. bus may be nil, in which
// case reparses complete silently (useful for one-shot discovery reads
// that do not need to notify a symbol store).
func NewDocument(uri string, bus *ChangeBus) *Document {
	parser := sitter.NewParser()
	lang := sitter.NewLanguage(phpforest.GetLanguage())
	_ = parser.SetLanguage(lang)
	return &Document{uri: uri, parser: parser, bus: bus}
}

// Open replaces the document's entire content and parses it immediately,
// bypassing the debounce window (used for the initial open and for a
// whole-file content replacement).
func (d *Document) Open(content []byte) error {
	return d.update(content, nil, true)
}

// Update applies an incremental edit to the document: content is the new
// full buffer after the edit, and change (when non-nil) is the
// tree-sitter edit describing what moved, letting the parser reuse the
// previous tree incrementally. The re-parse this schedules is debounced
// per §4.I.
func (d *Document) Update(content []byte, change *sitter.InputEdit) error {
	return d.update(content, change, false)
}

// Flush forces an immediate re-parse, cancelling any pending debounce
// timer (§6's explicit flush(uri) operation).
func (d *Document) Flush() {
	d.mu.Lock()
	content := append([]byte(nil), d.content...)
	version := d.version
	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
		d.debounceTimer = nil
	}
	d.mu.Unlock()
	d.reparse(content, version)
}

func (d *Document) update(content []byte, change *sitter.InputEdit, immediate bool) error {
	d.mu.Lock()
	d.content = content
	if d.tree != nil && change != nil {
		d.tree.Edit(*change)
	}
	d.version++
	version := d.version

	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
		d.debounceTimer = nil
	}

	if !immediate {
		d.debounceTimer = time.AfterFunc(DebounceInterval, func() {
			d.reparse(content, version)
		})
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	d.reparse(content, version)
	return nil
}

func (d *Document) reparse(content []byte, version int64) {
	d.mu.Lock()
	if version != d.version {
		d.mu.Unlock()
		return
	}
	oldTree := d.tree
	d.mu.Unlock()

	newTree, err := d.parser.ParseString(context.Background(), oldTree, content)
	if err != nil {
		// ParseError (§7): surfaced as a diagnostic by the caller, never
		// fatal here; the document keeps its last good tree.
		commonlog.GetLoggerf("intelephense.docstore").Debugf("parse error for %s: %v", d.uri, err)
		return
	}

	d.mu.Lock()
	if version != d.version {
		d.mu.Unlock()
		newTree.Close()
		return
	}
	if d.tree != nil {
		d.tree.Close()
	}
	d.tree = newTree
	tree := phptree.NewTree(newTree, content)
	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
		d.debounceTimer = nil
	}
	d.mu.Unlock()

	if d.bus != nil {
		d.bus.publish(ChangeEvent{URI: d.uri, Tree: tree})
	}
}

// Tree returns the document's most recently parsed tree façade.
func (d *Document) Tree() phptree.Tree {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.tree == nil {
		return phptree.Tree{}
	}
	return phptree.NewTree(d.tree, d.content)
}

// Content returns the document's current in-memory source bytes.
func (d *Document) Content() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.content
}

// Close releases the parser/tree resources owned by the document.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
		d.debounceTimer = nil
	}
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
	d.content = nil
}
