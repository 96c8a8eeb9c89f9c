package cursor

import (
	"cmp"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCursor(values ...int) *ListCursor[int] {
	return NewListCursor(values, cmp.Compare[int])
}

func TestListCursorForwardBackward(t *testing.T) {
	c := intCursor(10, 20, 30)

	assert.True(t, c.IsBeforeFirst())
	assert.False(t, c.Available())
	_, err := c.Get()
	assert.ErrorIs(t, err, ErrInvalidPosition)

	got, err := Collect[int](c)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, got)
	assert.True(t, c.IsAfterLast())

	var back []int
	for {
		ok, err := c.Previous()
		require.NoError(t, err)
		if !ok {
			break
		}
		v, err := c.Get()
		require.NoError(t, err)
		back = append(back, v)
	}
	assert.Equal(t, []int{30, 20, 10}, back)
	assert.True(t, c.IsBeforeFirst())
}

func TestListCursorBoundaryIdempotence(t *testing.T) {
	c := intCursor(1)

	ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		ok, err = c.Next()
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, c.Available())
	}

	// Stepping back from after-last lands on the last element again
	ok, err = c.Previous()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, c.IsLast())
	assert.True(t, c.IsFirst())
}

func TestListCursorFirstLast(t *testing.T) {
	c := intCursor(5, 6, 7)

	ok, err := c.Last()
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := c.Get()
	assert.Equal(t, 7, v)
	assert.True(t, c.IsLast())

	ok, err = c.First()
	require.NoError(t, err)
	require.True(t, ok)
	v, _ = c.Get()
	assert.Equal(t, 5, v)

	empty := intCursor()
	ok, err = empty.First()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, empty.IsFirst())
}

func TestListCursorPivot(t *testing.T) {
	c := intCursor(10, 20, 20, 30)

	require.NoError(t, c.Before(20))
	assert.False(t, c.Available())
	ok, _ := c.Next()
	require.True(t, ok)
	assert.True(t, c.Available())
	v, _ := c.Get()
	assert.Equal(t, 20, v)

	require.NoError(t, c.After(20))
	ok, _ = c.Next()
	require.True(t, ok)
	v, _ = c.Get()
	assert.Equal(t, 30, v)

	require.NoError(t, c.After(99))
	ok, _ = c.Next()
	assert.False(t, ok)

	require.NoError(t, c.Before(1))
	ok, _ = c.Previous()
	assert.False(t, ok)

	unordered := NewListCursor([]int{3, 1}, nil)
	assert.ErrorIs(t, unordered.Before(1), ErrUnsupported)
	assert.ErrorIs(t, unordered.After(1), ErrUnsupported)
}

func TestListCursorClose(t *testing.T) {
	c := intCursor(1, 2)
	ok, _ := c.Next()
	require.True(t, ok)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())
	assert.False(t, c.Available())

	_, err := c.Next()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Get()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.BeforeFirst(), ErrClosed)
	_, err = c.Last()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestListCursorCloseWithCause(t *testing.T) {
	monitor := NewClosureMonitor()
	c := NewListCursor([]string{"a"}, nil, WithClosureMonitor(monitor))

	cause := errors.New("client went away")
	require.NoError(t, c.CloseWithCause(cause))

	_, err := c.Next()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, err, cause)

	var closedErr *ClosedError
	require.True(t, errors.As(err, &closedErr))
	assert.Equal(t, cause, closedErr.Cause)

	// The shared monitor tells the consumer why
	assert.True(t, monitor.IsClosed())
	assert.Equal(t, cause, monitor.Cause())
}

func TestSharedMonitorClosedUpstream(t *testing.T) {
	monitor := NewClosureMonitor()
	c := intCursor(1)
	c.Monitor = monitor

	monitor.Close(ErrAbandoned)
	assert.True(t, c.IsClosed())

	_, err := c.Next()
	assert.ErrorIs(t, err, ErrAbandoned)

	// The cursor still gets to release once
	assert.True(t, c.MarkClosed(nil))
	assert.False(t, c.MarkClosed(nil))
}

func TestSingletonAndEmpty(t *testing.T) {
	s := NewSingletonCursor("only", nil)
	got, err := Collect[string](s)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, got)
	assert.Equal(t, "singleton", s.Type)

	e := NewEmptyCursor[string]()
	ok, err := e.First()
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = e.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = e.Get()
	assert.ErrorIs(t, err, ErrInvalidPosition)
	require.NoError(t, e.Before("x"))

	require.NoError(t, e.Close())
	_, err = e.Previous()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClosedErrorMessage(t *testing.T) {
	assert.Equal(t, "cursor closed", (&ClosedError{}).Error())
	assert.Equal(t, "cursor closed: boom", (&ClosedError{Cause: errors.New("boom")}).Error())
	assert.ErrorIs(t, Unsupported("descendant", "Last"), ErrUnsupported)
}
