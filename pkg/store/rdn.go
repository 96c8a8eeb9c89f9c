package store

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"

	"github.com/KevoDB/dircore/pkg/entry"
)

const idSize = 16

// rdnSeparator joins the rdns of a multi-rdn key. Normalized rdns never contain it.
const rdnSeparator = 0x00

// ErrCorruptKey is returned when an index key or value cannot be decoded
var ErrCorruptKey = errors.New("corrupt index key")

// ParentIDAndRdn is the key of the rdn index: an entry's parent id and its
// rdns relative to that parent, plus the fan-out counts kept with it.
//
// Keys sort by parent id, then by normalized rdns, so all children of one
// parent are contiguous. The counts do not take part in ordering.
type ParentIDAndRdn struct {
	ParentID entry.ID
	Rdns     []string

	NbChildren    int
	NbDescendants int
}

// ParentPivot returns the key that sorts before every child of parentID.
func ParentPivot(parentID entry.ID) ParentIDAndRdn {
	return ParentIDAndRdn{ParentID: parentID}
}

// Compare orders two keys by parent id and then by normalized rdns.
func (k ParentIDAndRdn) Compare(other ParentIDAndRdn) int {
	return bytes.Compare(k.EncodeKey(), other.EncodeKey())
}

// EncodeKey returns the ordered key bytes: the 16-byte parent id followed by
// the normalized rdns. A key without rdns is a pure parent prefix.
func (k ParentIDAndRdn) EncodeKey() []byte {
	b := make([]byte, 0, idSize+32)
	b = append(b, k.ParentID[:]...)
	for i, rdn := range k.Rdns {
		if i > 0 {
			b = append(b, rdnSeparator)
		}
		b = append(b, entry.NormalizeRDN(rdn)...)
	}
	return b
}

// EncodeValue returns the stored value for id: the id followed by the
// children and descendant counts as uvarints.
func (k ParentIDAndRdn) EncodeValue(id entry.ID) []byte {
	b := make([]byte, 0, idSize+2*binary.MaxVarintLen64)
	b = append(b, id[:]...)
	b = binary.AppendUvarint(b, uint64(k.NbChildren))
	b = binary.AppendUvarint(b, uint64(k.NbDescendants))
	return b
}

// DecodeParentIDAndRdn rebuilds a key and the entry id from stored bytes.
func DecodeParentIDAndRdn(key, value []byte) (ParentIDAndRdn, entry.ID, error) {
	var k ParentIDAndRdn
	if len(key) < idSize {
		return k, entry.ID{}, errors.Wrapf(ErrCorruptKey, "rdn key of %d bytes", len(key))
	}
	copy(k.ParentID[:], key[:idSize])
	if rest := key[idSize:]; len(rest) > 0 {
		k.Rdns = strings.Split(string(rest), string(rune(rdnSeparator)))
	}

	if len(value) < idSize {
		return k, entry.ID{}, errors.Wrapf(ErrCorruptKey, "rdn value of %d bytes", len(value))
	}
	var id entry.ID
	copy(id[:], value[:idSize])

	rest := value[idSize:]
	children, n := binary.Uvarint(rest)
	if n <= 0 {
		return k, entry.ID{}, errors.Wrap(ErrCorruptKey, "children count")
	}
	descendants, m := binary.Uvarint(rest[n:])
	if m <= 0 {
		return k, entry.ID{}, errors.Wrap(ErrCorruptKey, "descendant count")
	}
	k.NbChildren = int(children)
	k.NbDescendants = int(descendants)

	return k, id, nil
}
