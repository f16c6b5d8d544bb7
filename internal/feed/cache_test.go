package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/gophfeed/internal/model"
	"github.com/dtroode/gophfeed/internal/testutil"
)

type epochCounter struct {
	n atomic.Uint64
}

func (e *epochCounter) Epoch() uint64 { return e.n.Load() }

// fakeBackend serves feed pages by key and records every request.
type fakeBackend struct {
	mu       sync.Mutex
	pages    map[string]model.FeedPage
	requests []string
	err      error
}

func (b *fakeBackend) fetch(_ context.Context, key string) (model.FeedPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests = append(b.requests, key)
	if b.err != nil {
		return model.FeedPage{}, b.err
	}
	return b.pages[key], nil
}

func (b *fakeBackend) requested() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func twoPageBackend() *fakeBackend {
	return &fakeBackend{pages: map[string]model.FeedPage{
		"/posts/feed?limit=10": {
			Posts:      []model.Post{{ID: "p1"}, {ID: "p2"}},
			NextCursor: "c1",
		},
		"/posts/feed?cursor=c1&limit=10": {
			Posts: []model.Post{{ID: "p2"}, {ID: "p3"}},
		},
	}}
}

func TestCache_LoadAndPaginate(t *testing.T) {
	backend := twoPageBackend()
	c := NewCache(FeedKey(10), backend.fetch, &epochCounter{}, testutil.MakeNoopLogger())

	require.NoError(t, c.Load(testutil.Context(t)))
	require.NoError(t, c.Load(testutil.Context(t)))
	assert.False(t, c.Exhausted())

	more, err := c.LoadMore(testutil.Context(t))
	require.NoError(t, err)
	assert.True(t, more)
	assert.True(t, c.Exhausted())

	more, err = c.LoadMore(testutil.Context(t))
	require.NoError(t, err)
	assert.False(t, more)

	assert.Equal(t, []string{
		"/posts/feed?limit=10",
		"/posts/feed?cursor=c1&limit=10",
	}, backend.requested())

	var ids []string
	for _, p := range c.Posts() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids)
}

func TestCache_MissingPostsEndsFeed(t *testing.T) {
	backend := &fakeBackend{pages: map[string]model.FeedPage{
		"/posts/feed?limit=10": {Message: "no posts", NextCursor: "c1"},
	}}
	c := NewCache(FeedKey(10), backend.fetch, &epochCounter{}, testutil.MakeNoopLogger())

	require.NoError(t, c.Load(testutil.Context(t)))
	assert.True(t, c.Exhausted())

	more, err := c.LoadMore(testutil.Context(t))
	require.NoError(t, err)
	assert.False(t, more)
	assert.Len(t, backend.requested(), 1)
}

func TestCache_LoadMoreSuppressedWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	fetch := func(ctx context.Context, key string) (model.FeedPage, error) {
		calls.Add(1)
		close(started)
		<-release
		return model.FeedPage{Posts: []model.Post{{ID: "p1"}}, NextCursor: "c1"}, nil
	}
	c := NewCache(FeedKey(10), fetch, &epochCounter{}, testutil.MakeNoopLogger())

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(context.Background())
		done <- err
	}()

	<-started
	assert.True(t, c.Validating())

	more, err := c.LoadMore(testutil.Context(t))
	require.ErrorIs(t, err, model.ErrFetchInFlight)
	assert.False(t, more)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, c.Validating())
	assert.Len(t, c.Pages(), 1)
}

func TestCache_InvalidateRefetchesFromFirstPage(t *testing.T) {
	backend := twoPageBackend()
	c := NewCache(FeedKey(10), backend.fetch, &epochCounter{}, testutil.MakeNoopLogger())

	require.NoError(t, c.Load(testutil.Context(t)))
	_, err := c.LoadMore(testutil.Context(t))
	require.NoError(t, err)

	backend.mu.Lock()
	backend.pages["/posts/feed?limit=10"] = model.FeedPage{
		Posts:      []model.Post{{ID: "new"}, {ID: "p1"}},
		NextCursor: "c1",
	}
	backend.mu.Unlock()

	require.NoError(t, c.Invalidate(testutil.Context(t)))

	requests := backend.requested()
	assert.Equal(t, []string{
		"/posts/feed?limit=10",
		"/posts/feed?cursor=c1&limit=10",
	}, requests[2:])
	assert.Equal(t, "new", c.Posts()[0].ID)
	assert.Len(t, c.Pages(), 2)
}

func TestCache_InvalidateEmptyFetchesFirstPage(t *testing.T) {
	backend := twoPageBackend()
	c := NewCache(FeedKey(10), backend.fetch, &epochCounter{}, testutil.MakeNoopLogger())

	require.NoError(t, c.Invalidate(testutil.Context(t)))
	assert.Equal(t, []string{"/posts/feed?limit=10"}, backend.requested())
	assert.Len(t, c.Pages(), 1)
}

func TestCache_InvalidateFailureKeepsPages(t *testing.T) {
	backend := twoPageBackend()
	c := NewCache(FeedKey(10), backend.fetch, &epochCounter{}, testutil.MakeNoopLogger())
	require.NoError(t, c.Load(testutil.Context(t)))

	backend.mu.Lock()
	backend.err = errors.New("backend down")
	backend.mu.Unlock()

	require.Error(t, c.Invalidate(testutil.Context(t)))
	assert.Len(t, c.Pages(), 1)
	assert.False(t, c.Validating())
}

func TestCache_InvalidateSupersedesLoadMore(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once

	fetch := func(ctx context.Context, key string) (model.FeedPage, error) {
		if key == "/posts/feed?cursor=c1&limit=10" {
			first.Do(func() { close(started) })
			<-release
			return model.FeedPage{Posts: []model.Post{{ID: "old"}}}, nil
		}
		return model.FeedPage{Posts: []model.Post{{ID: "p1"}}, NextCursor: "c1"}, nil
	}
	c := NewCache(FeedKey(10), fetch, &epochCounter{}, testutil.MakeNoopLogger())
	require.NoError(t, c.Load(testutil.Context(t)))

	done := make(chan bool, 1)
	go func() {
		more, _ := c.LoadMore(context.Background())
		done <- more
	}()
	<-started

	require.NoError(t, c.Invalidate(testutil.Context(t)))
	close(release)

	assert.False(t, <-done)
	require.Len(t, c.Pages(), 1)
	assert.Equal(t, "p1", c.Posts()[0].ID)
}

func TestCache_StaleEpochDiscarded(t *testing.T) {
	epochs := &epochCounter{}
	fetch := func(ctx context.Context, key string) (model.FeedPage, error) {
		epochs.n.Add(1)
		return model.FeedPage{Posts: []model.Post{{ID: "p1"}}}, nil
	}
	c := NewCache(FeedKey(10), fetch, epochs, testutil.MakeNoopLogger())

	_, err := c.LoadMore(testutil.Context(t))
	require.ErrorIs(t, err, model.ErrStaleEpoch)
	assert.Empty(t, c.Pages())
	assert.False(t, c.Validating())
}

func TestCache_Reset(t *testing.T) {
	backend := twoPageBackend()
	c := NewCache(FeedKey(10), backend.fetch, &epochCounter{}, testutil.MakeNoopLogger())
	require.NoError(t, c.Load(testutil.Context(t)))

	c.Reset()
	assert.Empty(t, c.Pages())
	assert.Empty(t, c.Keys())
	assert.False(t, c.Exhausted())
}
