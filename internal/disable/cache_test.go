package disable

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource answers from a map and counts store reads.
type countingSource struct {
	mu       sync.Mutex
	disabled map[int64]bool
	calls    atomic.Int32
	err      error
	gate     chan struct{} // when non-nil, reads block until it is closed
	started  chan struct{}
}

// The answer is read before blocking, so a gated call returns the state as
// of when the query "ran".
func (s *countingSource) IsDisabled(_ context.Context, id int64) (bool, error) {
	s.calls.Add(1)
	s.mu.Lock()
	v, err := s.disabled[id], s.err
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	if err != nil {
		return false, err
	}
	return v, nil
}

func (s *countingSource) set(id int64, v bool) {
	s.mu.Lock()
	s.disabled[id] = v
	s.mu.Unlock()
}

func TestCache_MissThenHit(t *testing.T) {
	src := &countingSource{disabled: map[int64]bool{1: true}}
	c := NewCache(src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.Get(ctx, 1)
		require.NoError(t, err)
		assert.True(t, got)
	}
	assert.EqualValues(t, 1, src.calls.Load(), "store read more than once")
	assert.Equal(t, 1, c.Len())
}

func TestCache_InvalidateForcesReload(t *testing.T) {
	src := &countingSource{disabled: map[int64]bool{}}
	c := NewCache(src)
	ctx := context.Background()

	got, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, got)

	src.set(7, true)
	c.Invalidate(7)
	assert.Equal(t, 0, c.Len())

	got, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, got)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCache_InvalidateAbsentKey(t *testing.T) {
	c := NewCache(&countingSource{disabled: map[int64]bool{}})
	c.Invalidate(123)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	boom := errors.New("store unreachable")
	src := &countingSource{disabled: map[int64]bool{2: true}, err: boom}
	c := NewCache(src)
	ctx := context.Background()

	_, err := c.Get(ctx, 2)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()

	got, err := c.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	src := &countingSource{
		disabled: map[int64]bool{3: true},
		gate:     make(chan struct{}),
		started:  make(chan struct{}, 1),
	}
	c := NewCache(src)

	const readers = 16
	var wg sync.WaitGroup
	results := make([]bool, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), 3)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-src.started
	close(src.gate)
	wg.Wait()

	for i, v := range results {
		assert.True(t, v, "reader %d", i)
	}
	// Readers that arrived after the load finished hit the map instead.
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestCache_LoadRacingInvalidateIsNotStored(t *testing.T) {
	src := &countingSource{
		disabled: map[int64]bool{},
		gate:     make(chan struct{}),
		started:  make(chan struct{}, 2),
	}
	c := NewCache(src)

	done := make(chan bool)
	go func() {
		v, err := c.Get(context.Background(), 9)
		assert.NoError(t, err)
		done <- v
	}()

	// The load has read "enabled"; a write lands before it returns.
	<-src.started
	src.set(9, true)
	c.Invalidate(9)
	close(src.gate)

	assert.False(t, <-done, "in-flight reader may see the old value")
	assert.Equal(t, 0, c.Len(), "stale load must not be cached")

	got, err := c.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, got, "subsequent reads see the write")
}

func TestCache_FreshAfterStoreDisable(t *testing.T) {
	s, mock, _ := newStore(t, "mysql")
	c := NewCache(s)
	s.SetInvalidator(c)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(qInsertMySQL)).
		WithArgs(int64(5), fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta(qSoftEnable)).
		WithArgs(fixed, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	got, err := c.Get(ctx, 5)
	require.NoError(t, err)
	require.False(t, got)

	require.NoError(t, s.Disable(ctx, 5))
	got, err = c.Get(ctx, 5)
	require.NoError(t, err)
	assert.True(t, got, "cached 'enabled' survived a disable")

	require.NoError(t, s.Enable(ctx, 5))
	got, err = c.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, got, "cached 'disabled' survived an enable")

	assert.NoError(t, mock.ExpectationsWereMet())
}
