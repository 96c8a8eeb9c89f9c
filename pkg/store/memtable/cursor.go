package memtable

import (
	"bytes"
	"time"

	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/telemetry"
)

// Codec turns stored pairs into cursor elements and elements back into pivots.
type Codec[E any] interface {
	// Decode builds an element from a stored pair
	Decode(key, value []byte) (E, error)

	// Pivot returns the pair an element sorts as. A nil value stands for the
	// whole key: Before lands ahead of every pair with that key and After
	// lands behind all of them.
	Pivot(e E) (key, value []byte, err error)
}

// Range limits a cursor to keys in [Start, End). Nil bounds are open.
type Range struct {
	Start []byte
	End   []byte
}

// KeyRange returns the range holding exactly the pairs stored under key.
func KeyRange(key []byte) Range {
	return Range{Start: key, End: successor(key)}
}

// PrefixRange returns the range of keys that start with prefix.
func PrefixRange(prefix []byte) Range {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return Range{Start: prefix, End: end[:i+1]}
		}
	}
	return Range{Start: prefix}
}

// successor returns the smallest key greater than key.
func successor(key []byte) []byte {
	return append(append([]byte(nil), key...), 0)
}

func (r Range) contains(key []byte) bool {
	if r.Start != nil && bytes.Compare(key, r.Start) < 0 {
		return false
	}
	return r.End == nil || bytes.Compare(key, r.End) < 0
}

type position int

const (
	beforeFirst position = iota
	afterLast
	// gap means the cursor sits just before the iterator's node
	gap
	onElement
)

// Cursor is a bidirectional cursor over a SkipList decoded with a Codec.
type Cursor[E any] struct {
	cursor.Base

	it    *Iterator
	codec Codec[E]
	rng   Range

	pos     position
	current E
}

// NewCursor creates a cursor over the pairs of list that fall within rng.
func NewCursor[E any](list *SkipList, codec Codec[E], rng Range, cursorType string, opts ...cursor.Option) *Cursor[E] {
	return &Cursor[E]{
		Base:  cursor.NewBase(cursorType, opts...),
		it:    list.NewIterator(),
		codec: codec,
		rng:   rng,
		pos:   beforeFirst,
	}
}

func (c *Cursor[E]) reset(p position) {
	var zero E
	c.pos = p
	c.current = zero
}

// Before positions the cursor so that Next returns the first element >= pivot.
func (c *Cursor[E]) Before(pivot E) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	key, value, err := c.codec.Pivot(pivot)
	if err != nil {
		return err
	}

	c.it.SeekPair(key, value)
	c.settleGap()
	return nil
}

// After positions the cursor so that Next returns the first element > pivot.
func (c *Cursor[E]) After(pivot E) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	key, value, err := c.codec.Pivot(pivot)
	if err != nil {
		return err
	}

	if value == nil {
		c.it.Seek(successor(key))
	} else {
		c.it.SeekAfter(key, value)
	}
	c.settleGap()
	return nil
}

// settleGap turns the iterator position after a seek into a gap inside the range.
func (c *Cursor[E]) settleGap() {
	switch {
	case !c.it.Valid():
		c.reset(afterLast)
	case c.rng.Start != nil && bytes.Compare(c.it.Key(), c.rng.Start) < 0:
		c.reset(beforeFirst)
	case !c.rng.contains(c.it.Key()):
		c.reset(afterLast)
	default:
		c.reset(gap)
	}
}

func (c *Cursor[E]) BeforeFirst() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.reset(beforeFirst)
	return nil
}

func (c *Cursor[E]) AfterLast() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.reset(afterLast)
	return nil
}

func (c *Cursor[E]) First() (bool, error) {
	if err := c.BeforeFirst(); err != nil {
		return false, err
	}
	return c.Next()
}

func (c *Cursor[E]) Last() (bool, error) {
	if err := c.AfterLast(); err != nil {
		return false, err
	}
	return c.Previous()
}

func (c *Cursor[E]) seekStart() {
	if c.rng.Start != nil {
		c.it.Seek(c.rng.Start)
	} else {
		c.it.SeekToFirst()
	}
}

func (c *Cursor[E]) seekEnd() {
	if c.rng.End == nil {
		c.it.SeekToLast()
		return
	}
	c.it.Seek(c.rng.End)
	if c.it.Valid() {
		c.it.Prev()
	} else {
		c.it.SeekToLast()
	}
}

func (c *Cursor[E]) Next() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}

	start := time.Now()
	switch c.pos {
	case beforeFirst:
		c.seekStart()
	case onElement:
		c.it.Next()
	case afterLast:
		c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypeNext, time.Since(start), false)
		return false, nil
	}

	ok, err := c.land(afterLast)
	c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypeNext, time.Since(start), ok)
	return ok, err
}

func (c *Cursor[E]) Previous() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}

	start := time.Now()
	switch c.pos {
	case afterLast:
		c.seekEnd()
	case onElement, gap:
		c.it.Prev()
	case beforeFirst:
		c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypePrevious, time.Since(start), false)
		return false, nil
	}

	ok, err := c.land(beforeFirst)
	c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypePrevious, time.Since(start), ok)
	return ok, err
}

// land decodes the iterator's node if it is inside the range, or parks the
// cursor at the given end.
func (c *Cursor[E]) land(end position) (bool, error) {
	if !c.it.Valid() || !c.rng.contains(c.it.Key()) {
		c.reset(end)
		return false, nil
	}

	e, err := c.codec.Decode(c.it.Key(), c.it.Value())
	if err != nil {
		c.reset(end)
		return false, err
	}
	c.pos = onElement
	c.current = e
	return true, nil
}

func (c *Cursor[E]) Get() (E, error) {
	var zero E
	if err := c.CheckNotClosed(); err != nil {
		return zero, err
	}
	if c.pos != onElement {
		return zero, cursor.ErrInvalidPosition
	}
	return c.current, nil
}

func (c *Cursor[E]) Available() bool {
	return c.pos == onElement && !c.IsClosed()
}

func (c *Cursor[E]) Close() error {
	return c.CloseWithCause(nil)
}

func (c *Cursor[E]) CloseWithCause(cause error) error {
	if c.MarkClosed(cause) {
		c.reset(afterLast)
		c.Metrics.RecordClose(c.Context, c.Type, 0)
	}
	return nil
}

// IsFirst reports whether the cursor is on the first element of its range.
func (c *Cursor[E]) IsFirst() bool {
	if !c.Available() {
		return false
	}
	peek := *c.it
	peek.Prev()
	return !peek.Valid() || !c.rng.contains(peek.Key())
}

// IsLast reports whether the cursor is on the last element of its range.
func (c *Cursor[E]) IsLast() bool {
	if !c.Available() {
		return false
	}
	peek := *c.it
	peek.Next()
	return !peek.Valid() || !c.rng.contains(peek.Key())
}

func (c *Cursor[E]) IsBeforeFirst() bool {
	return c.pos == beforeFirst && !c.IsClosed()
}

func (c *Cursor[E]) IsAfterLast() bool {
	return c.pos == afterLast && !c.IsClosed()
}

var (
	_ cursor.Cursor[[]byte] = (*Cursor[[]byte])(nil)
	_ cursor.Positional     = (*Cursor[[]byte])(nil)
)
