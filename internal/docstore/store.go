package docstore

import (
	"fmt"
	"os"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

type storedDocument struct {
	uri    string
	doc    *Document
	isOpen bool
}

// Store is a bounded cache of parsed Documents keyed by URI. Open
// documents are pinned against eviction; closed-but-cached documents
// (reached only via go-to-definition into a file the editor never
// opened) are evicted oldest-first once the store is over capacity.
// Adapted directly from the teacher's internal/php.DocumentStore,
// generalized from filesystem paths to LSP URIs.
type Store struct {
	mu      sync.Mutex
	max     int
	bus     *ChangeBus
	entries []*storedDocument
	index   map[string]*storedDocument
}

// NewStore constructs a store with the given maximum size (<=0 defaults
// to 1000, matching the teacher's default) and the bus new documents
// publish reparse events to.
func NewStore(max int, bus *ChangeBus) *Store {
	if max <= 0 {
		max = 1000
	}
	return &Store{max: max, bus: bus, index: make(map[string]*storedDocument)}
}

// Open registers uri as open with the given full text, parses it
// immediately, and pins it against eviction until Close.
func (s *Store) Open(uri string, text []byte) (*Document, error) {
	entry := s.ensureEntryLocked(uri, true)
	if err := entry.doc.Open(text); err != nil {
		return nil, err
	}
	return entry.doc, nil
}

func (s *Store) ensureEntryLocked(uri string, open bool) *storedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.index[uri]
	if !ok {
		entry = &storedDocument{uri: uri, doc: NewDocument(uri, s.bus)}
		s.entries = append(s.entries, entry)
		s.index[uri] = entry
	}
	if open {
		entry.isOpen = true
	}
	s.moveToEndLocked(entry)
	s.ensureCapacityLocked()
	return entry
}

// Edit applies an incremental change to an already-open document.
func (s *Store) Edit(uri string, text []byte, change *EditArgs) error {
	s.mu.Lock()
	entry, ok := s.index[uri]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("docstore: %q is not open", uri)
	}
	if change == nil {
		return entry.doc.Update(text, nil)
	}
	return entry.doc.Update(text, change.inputEdit())
}

// Close marks uri as no longer open, making it eligible for eviction.
// The parsed document is not dropped immediately: in-flight queries may
// still hold a reference to its tree via Get/Tree.
func (s *Store) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.index[uri]; ok {
		entry.isOpen = false
	}
}

// Remove unconditionally drops uri from the store and releases its
// resources, regardless of open state (§3's "deleted when the document
// is closed and unreferenced").
func (s *Store) Remove(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.index[uri]
	if !ok {
		return
	}
	s.removeEntryLocked(entry)
	entry.doc.Close()
}

// Get returns the document for uri, reading and parsing it from path on
// disk if it is not already cached. This is the mechanism that lets
// go-to-definition and the type aggregate follow a reference into a file
// the editor has never opened (resolved via internal/autoload).
func (s *Store) Get(uri string, path string) (*Document, error) {
	s.mu.Lock()
	if entry, ok := s.index[uri]; ok {
		s.moveToEndLocked(entry)
		s.mu.Unlock()
		return entry.doc, nil
	}
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := NewDocument(uri, s.bus)
	if err := doc.Open(data); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.index[uri]; ok {
		return entry.doc, nil
	}
	entry := &storedDocument{uri: uri, doc: doc}
	s.entries = append(s.entries, entry)
	s.index[uri] = entry
	s.ensureCapacityLocked()
	return doc, nil
}

// Lookup returns the cached document for uri without touching disk, or
// nil if it is not resident.
func (s *Store) Lookup(uri string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.index[uri]
	if !ok {
		return nil
	}
	return entry.doc
}

// Flush forces an immediate re-parse of uri, if cached.
func (s *Store) Flush(uri string) {
	s.mu.Lock()
	entry, ok := s.index[uri]
	s.mu.Unlock()
	if ok {
		entry.doc.Flush()
	}
}

func (s *Store) moveToEndLocked(entry *storedDocument) {
	idx := -1
	for i, e := range s.entries {
		if e == entry {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(s.entries)-1 {
		return
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	s.entries = append(s.entries, entry)
}

func (s *Store) removeEntryLocked(entry *storedDocument) {
	for i, e := range s.entries {
		if e == entry {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	delete(s.index, entry.uri)
}

func (s *Store) ensureCapacityLocked() {
	for len(s.entries) > s.max {
		evicted := false
		for _, entry := range s.entries {
			if entry.isOpen {
				continue
			}
			s.removeEntryLocked(entry)
			entry.doc.Close()
			evicted = true
			break
		}
		if !evicted {
			break
		}
	}
}

// EditArgs carries the byte-offset and point coordinates of one
// incremental content change, enough to build the tree-sitter edit a
// re-parse needs to reuse the previous tree. The LSP transport layer
// (outside this core, per §1/§6) is responsible for translating an
// LSP range into these coordinates.
type EditArgs struct {
	StartByte, OldEndByte, NewEndByte uint32
	StartPoint, OldEndPoint, NewEndPoint Point
}

// Point is a 0-based line/column position, matching phptree.Point.
type Point struct {
	Line, Column uint32
}

func (e *EditArgs) inputEdit() *sitter.InputEdit {
	if e == nil {
		return nil
	}
	toPoint := func(p Point) sitter.Point { return sitter.Point{Row: uint(p.Line), Column: uint(p.Column)} }
	return &sitter.InputEdit{
		StartIndex:    uint(e.StartByte),
		OldEndIndex:   uint(e.OldEndByte),
		NewEndIndex:   uint(e.NewEndByte),
		StartPoint:    toPoint(e.StartPoint),
		OldEndPoint:   toPoint(e.OldEndPoint),
		NewEndPoint:   toPoint(e.NewEndPoint),
	}
}
