package search

import (
	"time"

	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/entry"
	"github.com/KevoDB/dircore/pkg/store"
	"github.com/KevoDB/dircore/pkg/telemetry"
)

// EqualityCursor yields the entries matching (attr=value).
//
// When the store indexes attr the cursor reads the index entries stored under
// the value. Otherwise it scans the master table and evaluates the assertion
// on each entry. Both paths produce elements keyed by the normalized value;
// scan elements also carry the decoded entry.
type EqualityCursor struct {
	cursor.Base

	eval *EqualityEvaluator

	index cursor.Cursor[store.IndexEntry[string]]
	scan  cursor.Cursor[store.IndexEntry[entry.ID]]

	// scan path only
	prefetched store.IndexEntry[string]
	available  bool
}

// NewEqualityCursor picks the index path when st has an index on attr.
func NewEqualityCursor(st store.Store, attr, value string, opts ...cursor.Option) (*EqualityCursor, error) {
	c := &EqualityCursor{
		Base: cursor.NewBase("equality", opts...),
		eval: NewEqualityEvaluator(attr, value),
	}

	inner := c.innerOptions()

	if ix, ok := st.EqualityIndex(c.eval.Attribute()); ok && st.HasIndexOn(c.eval.Attribute()) {
		idx, err := ix.ForwardCursorOn(c.eval.Value(), inner...)
		if err != nil {
			return nil, err
		}
		c.index = idx
	} else {
		scan, err := st.MasterScan(inner...)
		if err != nil {
			return nil, err
		}
		c.scan = scan
	}

	c.Logger.Debug("equality on %s uses index: %v", c.eval.Attribute(), c.index != nil)
	c.Metrics.RecordIndexPath(c.Context, c.eval.Attribute(), c.index != nil)
	return c, nil
}

// innerOptions passes the logger, metrics and context on but gives the inner
// cursor its own closure monitor.
func (c *EqualityCursor) innerOptions() []cursor.Option {
	return []cursor.Option{
		cursor.WithLogger(c.Logger),
		cursor.WithMetrics(c.Metrics),
		cursor.WithContext(c.Context),
	}
}

// Indexed reports whether the cursor reads an equality index.
func (c *EqualityCursor) Indexed() bool {
	return c.index != nil
}

func (c *EqualityCursor) clear() {
	c.prefetched = store.IndexEntry[string]{}
	c.available = false
}

// Before positions ahead of pivot. On the scan path only the pivot id counts.
func (c *EqualityCursor) Before(pivot store.IndexEntry[string]) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	if c.index != nil {
		return c.index.Before(pivot)
	}
	c.clear()
	return c.scan.Before(store.IndexEntry[entry.ID]{Key: pivot.ID})
}

// After positions behind pivot. On the scan path only the pivot id counts.
func (c *EqualityCursor) After(pivot store.IndexEntry[string]) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	if c.index != nil {
		return c.index.After(pivot)
	}
	c.clear()
	return c.scan.After(store.IndexEntry[entry.ID]{Key: pivot.ID})
}

func (c *EqualityCursor) BeforeFirst() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	if c.index != nil {
		return c.index.BeforeFirst()
	}
	c.clear()
	return c.scan.BeforeFirst()
}

func (c *EqualityCursor) AfterLast() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	if c.index != nil {
		return c.index.AfterLast()
	}
	c.clear()
	return c.scan.AfterLast()
}

func (c *EqualityCursor) First() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}
	if c.index != nil {
		return c.index.First()
	}
	if err := c.BeforeFirst(); err != nil {
		return false, err
	}
	return c.Next()
}

func (c *EqualityCursor) Last() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}
	if c.index != nil {
		return c.index.Last()
	}
	if err := c.AfterLast(); err != nil {
		return false, err
	}
	return c.Previous()
}

func (c *EqualityCursor) Next() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}
	if c.index != nil {
		return c.index.Next()
	}
	return c.scanTo(telemetry.OpTypeNext, c.scan.Next)
}

func (c *EqualityCursor) Previous() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}
	if c.index != nil {
		return c.index.Previous()
	}
	return c.scanTo(telemetry.OpTypePrevious, c.scan.Previous)
}

// scanTo moves the scan with step until an entry matches or the scan ends.
func (c *EqualityCursor) scanTo(op string, step func() (bool, error)) (bool, error) {
	start := time.Now()
	c.clear()

	for {
		ok, err := step()
		if err != nil {
			return false, err
		}
		if !ok {
			c.Metrics.RecordStep(c.Context, c.Type, op, time.Since(start), false)
			return false, nil
		}

		candidate, err := c.scan.Get()
		if err != nil {
			return false, err
		}
		matched := c.eval.Evaluate(candidate.Entry)
		c.Metrics.RecordFiltered(c.Context, 1, matched)
		if !matched {
			continue
		}

		c.prefetched = store.IndexEntry[string]{
			Key:   c.eval.Value(),
			ID:    candidate.ID,
			Entry: candidate.Entry,
		}
		c.available = true
		c.Metrics.RecordStep(c.Context, c.Type, op, time.Since(start), true)
		return true, nil
	}
}

func (c *EqualityCursor) Get() (store.IndexEntry[string], error) {
	if err := c.CheckNotClosed(); err != nil {
		return store.IndexEntry[string]{}, err
	}
	if c.index != nil {
		return c.index.Get()
	}
	if !c.available {
		return store.IndexEntry[string]{}, cursor.ErrInvalidPosition
	}
	return c.prefetched, nil
}

func (c *EqualityCursor) Available() bool {
	if c.IsClosed() {
		return false
	}
	if c.index != nil {
		return c.index.Available()
	}
	return c.available
}

func (c *EqualityCursor) Close() error {
	return c.CloseWithCause(nil)
}

// CloseWithCause closes whichever inner cursor is in use.
func (c *EqualityCursor) CloseWithCause(cause error) error {
	if !c.MarkClosed(cause) {
		return nil
	}
	c.clear()

	var inner interface {
		Close() error
		CloseWithCause(error) error
	}
	if c.index != nil {
		inner = c.index
	} else {
		inner = c.scan
	}

	var err error
	if cause != nil {
		err = inner.CloseWithCause(cause)
	} else {
		err = inner.Close()
	}

	failures := 0
	if err != nil {
		failures = 1
	}
	c.Metrics.RecordClose(c.Context, c.Type, failures)
	return err
}

// positional returns the index cursor when it can report its position. The
// scan path cannot tell whether a later entry matches without reading ahead.
func (c *EqualityCursor) positional() (cursor.Positional, bool) {
	if c.index == nil || c.IsClosed() {
		return nil, false
	}
	p, ok := c.index.(cursor.Positional)
	return p, ok
}

// IsFirst reports whether the index path is on its first match. It is always
// false on the scan path.
func (c *EqualityCursor) IsFirst() bool {
	p, ok := c.positional()
	return ok && p.IsFirst()
}

// IsLast reports whether the index path is on its last match. It is always
// false on the scan path.
func (c *EqualityCursor) IsLast() bool {
	p, ok := c.positional()
	return ok && p.IsLast()
}

func (c *EqualityCursor) IsBeforeFirst() bool {
	p, ok := c.positional()
	return ok && p.IsBeforeFirst()
}

func (c *EqualityCursor) IsAfterLast() bool {
	p, ok := c.positional()
	return ok && p.IsAfterLast()
}

var (
	_ cursor.Cursor[store.IndexEntry[string]] = (*EqualityCursor)(nil)
	_ cursor.Positional                       = (*EqualityCursor)(nil)
)
