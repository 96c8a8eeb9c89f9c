package entry

import (
	"github.com/google/uuid"
)

// ID uniquely identifies an entry within a store.
type ID = uuid.UUID

// RootParentID is the parent id of entries that sit at the top of the tree.
var RootParentID = uuid.Nil

// NewID returns a fresh random entry id.
func NewID() ID {
	return uuid.New()
}

// ParseID parses the canonical textual form of an id.
func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// IDFromBytes converts the 16-byte binary form of an id.
func IDFromBytes(b []byte) (ID, error) {
	return uuid.FromBytes(b)
}
