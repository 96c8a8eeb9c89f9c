// Package store defines the ordered key/value view of a directory store that
// cursors traverse: a master table of entries, equality indexes on attribute
// values and the rdn index that records the hierarchy.
package store

import (
	"errors"

	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/entry"
)

var (
	// ErrNotFound is returned when an entry or index does not exist
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when adding an entry whose DN is already present
	ErrExists = errors.New("entry already exists")

	// ErrNotLeaf is returned when deleting an entry that still has children
	ErrNotLeaf = errors.New("entry has children")

	// ErrNoParent is returned when adding an entry whose parent is missing
	ErrNoParent = errors.New("parent entry does not exist")
)

// IndexEntry is one element produced by an index cursor: the indexed key, the
// id of the entry it refers to and, when already loaded, the entry itself.
type IndexEntry[K any] struct {
	Key   K
	ID    entry.ID
	Entry *entry.Entry
}

// Index is an ordered index from keys of type K to entry ids.
type Index[K any] interface {
	// Attribute names what the index is built on
	Attribute() string

	// ForwardCursor returns a cursor over the whole index in key order
	ForwardCursor(opts ...cursor.Option) (cursor.Cursor[IndexEntry[K]], error)

	// ForwardCursorOn returns a cursor over the entries stored under key only
	ForwardCursorOn(key K, opts ...cursor.Option) (cursor.Cursor[IndexEntry[K]], error)

	// Count returns the number of index entries
	Count() int
}

// Store is the read side of a directory store as seen by search cursors.
type Store interface {
	// MasterScan returns a cursor over every entry in id order. Each element
	// carries the entry, keyed by its own id.
	MasterScan(opts ...cursor.Option) (cursor.Cursor[IndexEntry[entry.ID]], error)

	// EqualityIndex returns the index on attr, if one is maintained
	EqualityIndex(attr string) (Index[string], bool)

	// HasIndexOn reports whether attr has an equality index
	HasIndexOn(attr string) bool

	// RdnIndex returns the hierarchy index
	RdnIndex() Index[ParentIDAndRdn]

	// Lookup loads an entry by id
	Lookup(id entry.ID) (*entry.Entry, error)
}
