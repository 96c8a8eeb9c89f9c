package filtered

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/entry"
)

// mockSearch is a minimal SearchContext that strips one attribute on projection
type mockSearch struct {
	abandoned bool
	strip     string
	projected int
}

func (m *mockSearch) IsAbandoned() bool          { return m.abandoned }
func (m *mockSearch) SetAbandoned(abandoned bool) { m.abandoned = abandoned }
func (m *mockSearch) Project(e *entry.Entry) {
	m.projected++
	if m.strip != "" {
		e.Remove(m.strip)
	}
}

// countingFilter records each evaluation in a shared trace
type countingFilter struct {
	name   string
	reject string
	trace  *[]string
	calls  int
}

func (f *countingFilter) Accept(_ SearchContext, e *entry.Entry) (bool, error) {
	f.calls++
	*f.trace = append(*f.trace, f.name+":"+e.GetString("cn"))
	return e.GetString("cn") != f.reject, nil
}

// trackingCursor records closes on top of a list cursor
type trackingCursor struct {
	*cursor.ListCursor[*entry.Entry]
	closeErr error
	closes   int
	cause    error
}

func (t *trackingCursor) Close() error { return t.CloseWithCause(nil) }

func (t *trackingCursor) CloseWithCause(cause error) error {
	t.closes++
	t.cause = cause
	_ = t.ListCursor.CloseWithCause(cause)
	return t.closeErr
}

func entries(names ...string) []*entry.Entry {
	out := make([]*entry.Entry, len(names))
	for i, n := range names {
		e := entry.New(entry.NewID(), "cn="+n+",dc=example")
		e.SetString("cn", n)
		e.SetString("secret", "s-"+n)
		out[i] = e
	}
	return out
}

func names(t *testing.T, c cursor.Cursor[*entry.Entry]) []string {
	t.Helper()
	all, err := cursor.Collect[*entry.Entry](c)
	require.NoError(t, err)
	out := make([]string, len(all))
	for i, e := range all {
		out[i] = e.GetString("cn")
	}
	return out
}

func TestNoFiltersAcceptsEverything(t *testing.T) {
	c := New(cursor.NewListCursor(entries("a", "b", "c"), nil), nil, nil)
	assert.Equal(t, []string{"a", "b", "c"}, names(t, c))
}

func TestSingleFilter(t *testing.T) {
	var trace []string
	f := &countingFilter{name: "f", reject: "b", trace: &trace}

	c := New(cursor.NewListCursor(entries("a", "b", "c"), nil), nil, []Filter{f})
	assert.Equal(t, []string{"a", "c"}, names(t, c))
	assert.Equal(t, 3, f.calls)
}

func TestFilterOrderDeterminism(t *testing.T) {
	run := func(order func(f1, f2 Filter) []Filter) ([]string, []string) {
		var trace []string
		f1 := &countingFilter{name: "F1", trace: &trace}
		f2 := &countingFilter{name: "F2", reject: "x", trace: &trace}
		c := New(cursor.NewListCursor(entries("a", "x", "b"), nil), nil, order(f1, f2))
		return names(t, c), trace
	}

	gotA, traceA := run(func(f1, f2 Filter) []Filter { return []Filter{f1, f2} })
	gotB, traceB := run(func(f1, f2 Filter) []Filter { return []Filter{f2, f1} })

	assert.Equal(t, []string{"a", "b"}, gotA)
	assert.Equal(t, gotA, gotB)

	assert.Equal(t, []string{"F1:a", "F2:a", "F1:x", "F2:x", "F1:b", "F2:b"}, traceA)
	// F2 rejects x first, so F1 never sees it
	assert.Equal(t, []string{"F2:a", "F1:a", "F2:x", "F2:b", "F1:b"}, traceB)
}

func TestFilterMutatesOnlyWorkingCopy(t *testing.T) {
	source := entries("a", "b")
	mutate := NewFilterFunc("mutate", func(_ SearchContext, e *entry.Entry) (bool, error) {
		e.SetString("cn", "changed")
		return true, nil
	})
	search := &mockSearch{strip: "secret"}

	c := New(cursor.NewListCursor(source, nil), search, []Filter{mutate})
	ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok)

	got, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, "changed", got.GetString("cn"))
	assert.False(t, got.Has("secret"), "projection runs before caching")
	assert.Equal(t, 1, search.projected)

	assert.Equal(t, "a", source[0].GetString("cn"))
	assert.True(t, source[0].Has("secret"))
}

func TestSkipsNilCandidates(t *testing.T) {
	list := append([]*entry.Entry{nil}, entries("a")...)
	list = append(list, nil)

	c := New(cursor.NewListCursor(list, nil), nil, nil)
	assert.Equal(t, []string{"a"}, names(t, c))
}

func TestBidirectional(t *testing.T) {
	reject := NewFilterFunc("no-b", func(_ SearchContext, e *entry.Entry) (bool, error) {
		return e.GetString("cn") != "b", nil
	})
	c := New(cursor.NewListCursor(entries("a", "b", "c"), nil), nil, []Filter{reject})

	ok, err := c.Last()
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := c.Get()
	assert.Equal(t, "c", got.GetString("cn"))

	ok, err = c.Previous()
	require.NoError(t, err)
	require.True(t, ok)
	got, _ = c.Get()
	assert.Equal(t, "a", got.GetString("cn"))

	ok, err = c.Previous()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, c.Available())

	ok, err = c.First()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBoundaryIdempotence(t *testing.T) {
	c := New(cursor.NewListCursor(entries("a"), nil), nil, nil)

	ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		ok, err = c.Next()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	_, err = c.Get()
	assert.ErrorIs(t, err, cursor.ErrInvalidPosition)
}

func TestRepositionClearsPrefetch(t *testing.T) {
	c := New(cursor.NewListCursor(entries("a", "b"), nil), nil, nil)

	ok, _ := c.Next()
	require.True(t, ok)
	require.True(t, c.Available())

	require.NoError(t, c.BeforeFirst())
	assert.False(t, c.Available())

	ok, _ = c.Next()
	require.True(t, ok)
	require.NoError(t, c.AfterLast())
	assert.False(t, c.Available())
}

func TestAbandonedFirstClosesCursor(t *testing.T) {
	inner := &trackingCursor{ListCursor: cursor.NewListCursor(entries("a"), nil)}
	search := &mockSearch{}
	c := New(inner, search, nil)

	search.SetAbandoned(true)
	_, err := c.First()
	assert.ErrorIs(t, err, cursor.ErrAbandoned)
	assert.True(t, c.IsClosed())
	assert.Equal(t, 1, inner.closes)
	assert.ErrorIs(t, inner.cause, cursor.ErrAbandoned)

	_, err = c.Next()
	assert.ErrorIs(t, err, cursor.ErrClosed)
	assert.ErrorIs(t, err, cursor.ErrAbandoned)

	// Last on the closed cursor reports the close, and does not close again
	_, err = c.Last()
	assert.ErrorIs(t, err, cursor.ErrClosed)
	assert.Equal(t, 1, inner.closes)
}

func TestAbandonedLast(t *testing.T) {
	search := &mockSearch{abandoned: true}
	c := New(cursor.NewListCursor(entries("a"), nil), search, nil)

	_, err := c.Last()
	assert.ErrorIs(t, err, cursor.ErrAbandoned)
	assert.True(t, c.IsClosed())
}

func TestNextIgnoresAbandonment(t *testing.T) {
	search := &mockSearch{abandoned: true}
	c := New(cursor.NewListCursor(entries("a"), nil), search, nil)

	ok, err := c.Next()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFilterErrorPropagates(t *testing.T) {
	boom := errors.New("schema lookup failed")
	failing := NewFilterFunc("failing", func(SearchContext, *entry.Entry) (bool, error) {
		return false, boom
	})
	c := New(cursor.NewListCursor(entries("a"), nil), nil, []Filter{failing})

	_, err := c.Next()
	assert.ErrorIs(t, err, boom)
}

func TestFilterManagement(t *testing.T) {
	var trace []string
	f1 := &countingFilter{name: "F1", trace: &trace}
	f2 := &countingFilter{name: "F2", trace: &trace}

	c := New(cursor.NewEmptyCursor[*entry.Entry](), nil, []Filter{f1})
	require.NoError(t, c.AddFilter(f2))
	assert.ErrorIs(t, c.AddFilter(nil), ErrNilFilter)
	assert.Equal(t, []Filter{f1, f2}, c.Filters())

	assert.True(t, c.RemoveFilter(f1))
	assert.False(t, c.RemoveFilter(f1))
	assert.Equal(t, []Filter{f2}, c.Filters())
}

func TestPivotUnsupported(t *testing.T) {
	c := New(cursor.NewEmptyCursor[*entry.Entry](), nil, nil)
	assert.ErrorIs(t, c.Before(nil), cursor.ErrUnsupported)
	assert.ErrorIs(t, c.After(nil), cursor.ErrUnsupported)
}

func TestCloseReturnsInnerError(t *testing.T) {
	boom := errors.New("close failed")
	inner := &trackingCursor{ListCursor: cursor.NewListCursor(entries("a"), nil), closeErr: boom}
	c := New(inner, nil, nil)

	assert.ErrorIs(t, c.Close(), boom)
	assert.NoError(t, c.Close())
	assert.Equal(t, 1, inner.closes)
}
