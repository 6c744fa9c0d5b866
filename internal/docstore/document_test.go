package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_OpenParsesImmediately(t *testing.T) {
	var events []ChangeEvent
	bus := NewChangeBus()
	bus.Subscribe(func(e ChangeEvent) { events = append(events, e) })

	doc := NewDocument("file:///a.php", bus)
	require.NoError(t, doc.Open([]byte("<?php class Foo {}")))

	require.Len(t, events, 1)
	assert.Equal(t, "file:///a.php", events[0].URI)
	assert.Equal(t, "class_declaration", doc.Tree().Root().Child(1).Kind())
}

func TestDocument_UpdateDebounces(t *testing.T) {
	var events []ChangeEvent
	bus := NewChangeBus()
	bus.Subscribe(func(e ChangeEvent) { events = append(events, e) })

	doc := NewDocument("file:///a.php", bus)
	require.NoError(t, doc.Open([]byte("<?php class Foo {}")))
	require.Len(t, events, 1)

	require.NoError(t, doc.Update([]byte("<?php class Bar {}"), nil))
	// Immediately after Update, the debounce window has not elapsed: no
	// second event yet, and the tree is still the old one.
	assert.Len(t, events, 1)

	time.Sleep(DebounceInterval + 100*time.Millisecond)
	assert.Len(t, events, 2)
	assert.Equal(t, "Bar", doc.Tree().Root().Child(1).Field("name").Content())
}

func TestDocument_FlushForcesImmediateReparse(t *testing.T) {
	var events []ChangeEvent
	bus := NewChangeBus()
	bus.Subscribe(func(e ChangeEvent) { events = append(events, e) })

	doc := NewDocument("file:///a.php", bus)
	require.NoError(t, doc.Open([]byte("<?php class Foo {}")))
	require.NoError(t, doc.Update([]byte("<?php class Bar {}"), nil))

	doc.Flush()
	assert.Len(t, events, 2)
	assert.Equal(t, "Bar", doc.Tree().Root().Child(1).Field("name").Content())
}

func TestDocument_SupersededReparseIsDropped(t *testing.T) {
	var events []ChangeEvent
	bus := NewChangeBus()
	bus.Subscribe(func(e ChangeEvent) { events = append(events, e) })

	doc := NewDocument("file:///a.php", bus)
	require.NoError(t, doc.Open([]byte("<?php class Foo {}")))

	require.NoError(t, doc.Update([]byte("<?php class Bar {}"), nil))
	require.NoError(t, doc.Update([]byte("<?php class Baz {}"), nil))

	time.Sleep(DebounceInterval + 100*time.Millisecond)
	// Only the latest edit's reparse should have fired, not an
	// intermediate one superseded before its timer elapsed.
	assert.Len(t, events, 2)
	assert.Equal(t, "Baz", doc.Tree().Root().Child(1).Field("name").Content())
}
