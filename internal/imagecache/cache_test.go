package imagecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeLoader struct {
	calls   atomic.Int32
	gate    chan struct{}
	missing map[string]bool
}

func (f *fakeLoader) GetImage(ctx context.Context, id string) ([]byte, string, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if f.missing[id] {
		return nil, "", errors.New("not found")
	}
	return []byte("img-" + id), "image/png", nil
}

func newCache(t *testing.T, loader Loader) *Cache {
	t.Helper()
	c, err := New(loader, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAcquireRelease(t *testing.T) {
	loader := &fakeLoader{}
	c := newCache(t, loader)
	ctx := context.Background()

	path, err := c.Acquire(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "img-1", string(data))

	again, err := c.Acquire(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.EqualValues(t, 1, loader.calls.Load(), "hit does not reload")

	c.Release("1")
	_, err = os.Stat(path)
	assert.NoError(t, err, "file kept while referenced")

	c.Release("1")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file removed after last release")
	assert.Equal(t, 0, c.Len())

	c.Release("1")
	c.Release("never-acquired")
}

func TestAcquire_ConcurrentMissLoadsOnce(t *testing.T) {
	loader := &fakeLoader{gate: make(chan struct{})}
	c := newCache(t, loader)

	const n = 8
	var wg sync.WaitGroup
	paths := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = c.Acquire(context.Background(), "7")
		}(i)
	}
	close(loader.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, paths[0], paths[i])
	}
	assert.Equal(t, 1, c.Len())

	for i := 0; i < n; i++ {
		c.Release("7")
	}
	assert.Equal(t, 0, c.Len())
}

func TestAcquire_CanceledCallerDoesNotFailWaiters(t *testing.T) {
	loader := &fakeLoader{gate: make(chan struct{})}
	c := newCache(t, loader)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Acquire(first, "5")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		path string
		err  error
	}
	second := make(chan result, 1)
	go func() {
		path, err := c.Acquire(context.Background(), "5")
		second <- result{path, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(loader.gate)
	res := <-second
	require.NoError(t, res.err)
	data, err := os.ReadFile(res.path)
	require.NoError(t, err)
	assert.Equal(t, "img-5", string(data))
	assert.EqualValues(t, 1, loader.calls.Load(), "waiters share the first download")

	c.Release("5")
	assert.Equal(t, 0, c.Len())
}

func TestAcquire_LoadError(t *testing.T) {
	c := newCache(t, &fakeLoader{missing: map[string]bool{"x": true}})

	_, err := c.Acquire(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestPrefetch(t *testing.T) {
	loader := &fakeLoader{missing: map[string]bool{"2": true}}
	c := newCache(t, loader)

	paths, err := c.Prefetch(context.Background(), []string{"1", "2", "3", "1"})
	require.NoError(t, err)

	assert.Len(t, paths, 2)
	assert.Contains(t, paths, "1")
	assert.Contains(t, paths, "3")
	assert.NotContains(t, paths, "2")
	assert.EqualValues(t, 3, loader.calls.Load())

	for id := range paths {
		c.Release(id)
	}
	assert.Equal(t, 0, c.Len())
}

func TestPrefetch_Canceled(t *testing.T) {
	loader := &fakeLoader{gate: make(chan struct{})}
	c := newCache(t, loader)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Prefetch(ctx, []string{"1", "2"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	c, err := New(&fakeLoader{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = c.Acquire(context.Background(), "1")
	require.NoError(t, err)

	require.NoError(t, c.Close())
	_, err = os.Stat(c.Dir())
	assert.True(t, os.IsNotExist(err), "temp dir removed")

	_, err = c.Acquire(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, c.Close())
}
