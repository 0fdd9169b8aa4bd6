package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptt-copy-ai/internal/domain/entity"
)

func TestResolutionCacheCachesSuccess(t *testing.T) {
	c := NewResolutionCache()
	var calls int32
	loader := func(context.Context) (*entity.Resolution, error) {
		atomic.AddInt32(&calls, 1)
		return &entity.Resolution{Provider: "gemini", Model: "gemini-1.5-pro"}, nil
	}

	for i := 0; i < 3; i++ {
		res, err := c.GetOrLoad(context.Background(), "k", time.Minute, loader)
		require.NoError(t, err)
		assert.Equal(t, "gemini-1.5-pro", res.Model)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	res, ok, err := c.Peek(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gemini-1.5-pro", res.Model)
}

func TestResolutionCacheDoesNotCacheFailure(t *testing.T) {
	c := NewResolutionCache()
	var calls int32
	loader := func(context.Context) (*entity.Resolution, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("all probes failed")
	}

	_, err := c.GetOrLoad(context.Background(), "k", time.Minute, loader)
	require.Error(t, err)
	_, err = c.GetOrLoad(context.Background(), "k", time.Minute, loader)
	require.Error(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	_, ok, _ := c.Peek(context.Background(), "k")
	assert.False(t, ok)
}

func TestResolutionCacheExpiresAndInvalidates(t *testing.T) {
	c := NewResolutionCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	model := "a"
	loader := func(context.Context) (*entity.Resolution, error) {
		return &entity.Resolution{Model: model}, nil
	}
	res, err := c.GetOrLoad(context.Background(), "k", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Model)

	model = "b"
	now = now.Add(2 * time.Minute)
	res, err = c.GetOrLoad(context.Background(), "k", time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "b", res.Model)

	require.NoError(t, c.Invalidate(context.Background(), "k"))
	_, ok, _ := c.Peek(context.Background(), "k")
	assert.False(t, ok)
}

func TestResolutionCacheCollapsesConcurrentLoads(t *testing.T) {
	c := NewResolutionCache()
	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) (*entity.Resolution, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &entity.Resolution{Model: "m"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.GetOrLoad(context.Background(), "k", time.Minute, loader)
			assert.NoError(t, err)
			assert.Equal(t, "m", res.Model)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
