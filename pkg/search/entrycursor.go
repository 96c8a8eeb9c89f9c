package search

import (
	"time"

	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/entry"
	"github.com/KevoDB/dircore/pkg/store"
	"github.com/KevoDB/dircore/pkg/telemetry"
)

// EntryCursor turns an index cursor into a cursor over entries. The entry
// cached on an index element is used when present; otherwise it is loaded
// from the store the first time Get is called on that element.
type EntryCursor[K any] struct {
	cursor.Base

	inner cursor.Cursor[store.IndexEntry[K]]
	st    store.Store

	loaded *entry.Entry
}

// NewEntryCursor wraps inner. The entry cursor owns inner and closes it.
func NewEntryCursor[K any](inner cursor.Cursor[store.IndexEntry[K]], st store.Store, opts ...cursor.Option) *EntryCursor[K] {
	return &EntryCursor[K]{
		Base:  cursor.NewBase("entry", opts...),
		inner: inner,
		st:    st,
	}
}

// Before is not supported: an entry does not carry its index key.
func (c *EntryCursor[K]) Before(*entry.Entry) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	return cursor.Unsupported(c.Type, "Before")
}

// After is not supported.
func (c *EntryCursor[K]) After(*entry.Entry) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	return cursor.Unsupported(c.Type, "After")
}

func (c *EntryCursor[K]) BeforeFirst() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.loaded = nil
	return c.inner.BeforeFirst()
}

func (c *EntryCursor[K]) AfterLast() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.loaded = nil
	return c.inner.AfterLast()
}

func (c *EntryCursor[K]) First() (bool, error) {
	return c.step(telemetry.OpTypeNext, c.inner.First)
}

func (c *EntryCursor[K]) Last() (bool, error) {
	return c.step(telemetry.OpTypePrevious, c.inner.Last)
}

func (c *EntryCursor[K]) Next() (bool, error) {
	return c.step(telemetry.OpTypeNext, c.inner.Next)
}

func (c *EntryCursor[K]) Previous() (bool, error) {
	return c.step(telemetry.OpTypePrevious, c.inner.Previous)
}

func (c *EntryCursor[K]) step(op string, move func() (bool, error)) (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}
	start := time.Now()
	c.loaded = nil

	ok, err := move()
	if err != nil {
		return false, err
	}
	c.Metrics.RecordStep(c.Context, c.Type, op, time.Since(start), ok)
	return ok, nil
}

// Get returns the entry the inner cursor is on, loading it if needed.
func (c *EntryCursor[K]) Get() (*entry.Entry, error) {
	if err := c.CheckNotClosed(); err != nil {
		return nil, err
	}
	if c.loaded != nil {
		return c.loaded, nil
	}

	ie, err := c.inner.Get()
	if err != nil {
		return nil, err
	}
	if ie.Entry != nil {
		c.loaded = ie.Entry
		return c.loaded, nil
	}

	e, err := c.st.Lookup(ie.ID)
	if err != nil {
		return nil, err
	}
	c.loaded = e
	return e, nil
}

func (c *EntryCursor[K]) Available() bool {
	return !c.IsClosed() && c.inner.Available()
}

func (c *EntryCursor[K]) Close() error {
	return c.CloseWithCause(nil)
}

func (c *EntryCursor[K]) CloseWithCause(cause error) error {
	if !c.MarkClosed(cause) {
		return nil
	}
	c.loaded = nil

	var err error
	if cause != nil {
		err = c.inner.CloseWithCause(cause)
	} else {
		err = c.inner.Close()
	}

	failures := 0
	if err != nil {
		failures = 1
	}
	c.Metrics.RecordClose(c.Context, c.Type, failures)
	return err
}

var _ cursor.Cursor[*entry.Entry] = (*EntryCursor[string])(nil)
