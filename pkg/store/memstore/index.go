package memstore

import (
	"context"

	pkgerrors "github.com/pkg/errors"

	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/entry"
	"github.com/KevoDB/dircore/pkg/stats"
	"github.com/KevoDB/dircore/pkg/store"
	"github.com/KevoDB/dircore/pkg/store/memtable"
)

var (
	_ store.Index[string]               = (*equalityIndex)(nil)
	_ store.Index[store.ParentIDAndRdn] = (*rdnIndex)(nil)
)

// equalityIndex maps normalized attribute values to entry ids.
type equalityIndex struct {
	attr  string
	list  *memtable.SkipList
	bloom *bloomFilter
	store *Store
}

// insert is called with the store lock held.
func (ix *equalityIndex) insert(value string, id entry.ID) {
	ix.list.Insert([]byte(value), id[:])
	ix.bloom.add(value)
}

func (ix *equalityIndex) Attribute() string {
	return ix.attr
}

func (ix *equalityIndex) ForwardCursor(opts ...cursor.Option) (cursor.Cursor[store.IndexEntry[string]], error) {
	ix.store.stats.TrackOperation(stats.OpIndexCursor)
	return memtable.NewCursor[store.IndexEntry[string]](ix.list, equalityCodec{}, memtable.Range{}, "equality", opts...), nil
}

// ForwardCursorOn returns a cursor over the ids whose attribute holds value.
// The value is normalized before lookup. A bloom miss yields an empty cursor
// without touching the skip list.
func (ix *equalityIndex) ForwardCursorOn(value string, opts ...cursor.Option) (cursor.Cursor[store.IndexEntry[string]], error) {
	if ix.store.closed.Load() {
		return nil, ErrClosed
	}
	ix.store.stats.TrackOperation(stats.OpIndexCursor)

	norm := entry.NormalizeValue([]byte(value))

	ix.store.mu.RLock()
	present := ix.bloom.mayContain(norm)
	ix.store.mu.RUnlock()

	if !present {
		ix.store.stats.TrackBloomSkip()
		ix.store.metrics.RecordBloomSkip(context.Background(), ix.attr)
		return cursor.NewEmptyCursor[store.IndexEntry[string]](opts...), nil
	}

	key := []byte(norm)
	return memtable.NewCursor[store.IndexEntry[string]](ix.list, equalityCodec{}, memtable.KeyRange(key), "equality", opts...), nil
}

func (ix *equalityIndex) Count() int {
	return ix.list.Len()
}

// equalityCodec decodes (value, id) pairs. A pivot with a nil id covers every
// id stored under the value.
type equalityCodec struct{}

func (equalityCodec) Decode(key, value []byte) (store.IndexEntry[string], error) {
	id, err := entry.IDFromBytes(value)
	if err != nil {
		return store.IndexEntry[string]{}, pkgerrors.Wrap(store.ErrCorruptKey, err.Error())
	}
	return store.IndexEntry[string]{Key: string(key), ID: id}, nil
}

func (equalityCodec) Pivot(e store.IndexEntry[string]) ([]byte, []byte, error) {
	key := []byte(entry.NormalizeValue([]byte(e.Key)))
	if e.ID == (entry.ID{}) {
		return key, nil, nil
	}
	id := e.ID
	return key, id[:], nil
}

// rdnIndex maps ParentIDAndRdn keys to entry ids and fan-out counts.
type rdnIndex struct {
	list *memtable.SkipList
}

func (ix *rdnIndex) Attribute() string {
	return "rdn"
}

func (ix *rdnIndex) ForwardCursor(opts ...cursor.Option) (cursor.Cursor[store.IndexEntry[store.ParentIDAndRdn]], error) {
	return memtable.NewCursor[store.IndexEntry[store.ParentIDAndRdn]](ix.list, rdnCodec{}, memtable.Range{}, "rdn", opts...), nil
}

// ForwardCursorOn returns a cursor over the single entry stored under key.
// A key without rdns selects every child of its parent id.
func (ix *rdnIndex) ForwardCursorOn(key store.ParentIDAndRdn, opts ...cursor.Option) (cursor.Cursor[store.IndexEntry[store.ParentIDAndRdn]], error) {
	encoded := key.EncodeKey()
	rng := memtable.KeyRange(encoded)
	if len(key.Rdns) == 0 {
		rng = memtable.PrefixRange(encoded)
	}
	return memtable.NewCursor[store.IndexEntry[store.ParentIDAndRdn]](ix.list, rdnCodec{}, rng, "rdn", opts...), nil
}

func (ix *rdnIndex) Count() int {
	return ix.list.Len()
}

// rdnCodec decodes rdn index pairs. Keys are unique, so pivots only carry the key.
type rdnCodec struct{}

func (rdnCodec) Decode(key, value []byte) (store.IndexEntry[store.ParentIDAndRdn], error) {
	k, id, err := store.DecodeParentIDAndRdn(key, value)
	if err != nil {
		return store.IndexEntry[store.ParentIDAndRdn]{}, err
	}
	return store.IndexEntry[store.ParentIDAndRdn]{Key: k, ID: id}, nil
}

func (rdnCodec) Pivot(e store.IndexEntry[store.ParentIDAndRdn]) ([]byte, []byte, error) {
	return e.Key.EncodeKey(), nil, nil
}

// masterCodec decodes master records into entries keyed by their own id.
type masterCodec struct {
	s *Store
}

func (c masterCodec) Decode(key, value []byte) (store.IndexEntry[entry.ID], error) {
	id, err := entry.IDFromBytes(key)
	if err != nil {
		return store.IndexEntry[entry.ID]{}, pkgerrors.Wrap(store.ErrCorruptKey, err.Error())
	}
	e, err := c.s.codec.Decode(value)
	if err != nil {
		c.s.stats.TrackError("decode_error")
		return store.IndexEntry[entry.ID]{}, pkgerrors.Wrapf(err, "decode record %s", id)
	}
	c.s.stats.TrackRecordBytes(false, uint64(len(value)))
	return store.IndexEntry[entry.ID]{Key: id, ID: id, Entry: e}, nil
}

func (masterCodec) Pivot(e store.IndexEntry[entry.ID]) ([]byte, []byte, error) {
	id := e.Key
	return id[:], nil, nil
}
