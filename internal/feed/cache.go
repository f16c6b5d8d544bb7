package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
)

// Fetcher loads the page addressed by key.
type Fetcher func(ctx context.Context, key string) (model.FeedPage, error)

// EpochSource reports the current session epoch. Results fetched under an
// older epoch are discarded.
type EpochSource interface {
	Epoch() uint64
}

// Cache is an append-only view over a cursor-paginated feed.
//
// At most one fetch for the page sequence runs at a time. Invalidate refetches
// every loaded page and replaces the sequence wholesale.
type Cache struct {
	mu         sync.Mutex
	keyFn      KeyFunc
	fetch      Fetcher
	epochs     EpochSource
	pages      []model.FeedPage
	keys       []string
	inFlight   bool
	generation uint64
	logger     *logger.Logger
}

// NewCache creates an empty Cache.
func NewCache(keyFn KeyFunc, fetch Fetcher, epochs EpochSource, logger *logger.Logger) *Cache {
	return &Cache{
		keyFn:  keyFn,
		fetch:  fetch,
		epochs: epochs,
		logger: logger,
	}
}

// Load fetches the first page unless pages are already cached.
func (c *Cache) Load(ctx context.Context) error {
	c.mu.Lock()
	loaded := len(c.pages) > 0
	c.mu.Unlock()
	if loaded {
		return nil
	}

	_, err := c.LoadMore(ctx)
	if errors.Is(err, model.ErrFetchInFlight) {
		return nil
	}
	return err
}

// LoadMore fetches the next page of the sequence. It reports false without
// fetching when the sequence has ended, and returns model.ErrFetchInFlight
// while another fetch for the sequence is running.
func (c *Cache) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.logger.Debug("Feed cache: load more suppressed, fetch in flight")
		return false, model.ErrFetchInFlight
	}
	key, ok := c.nextKeyLocked()
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	c.inFlight = true
	gen := c.generation
	epoch := c.epochs.Epoch()
	c.mu.Unlock()

	page, err := c.fetch(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		// Invalidate took over the sequence while this page was loading.
		return false, nil
	}
	c.inFlight = false

	if err != nil {
		return false, fmt.Errorf("failed to fetch feed page %q: %w", key, err)
	}
	if epoch != c.epochs.Epoch() {
		return false, model.ErrStaleEpoch
	}

	c.pages = append(c.pages, page)
	c.keys = append(c.keys, key)
	return true, nil
}

// Invalidate refetches every loaded page (at least page 0) in order and
// replaces the cached sequence. On failure the previous pages are kept.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.inFlight = true
	count := len(c.pages)
	epoch := c.epochs.Epoch()
	c.mu.Unlock()

	if count == 0 {
		count = 1
	}

	pages := make([]model.FeedPage, 0, count)
	keys := make([]string, 0, count)
	var prev *model.FeedPage
	var fetchErr error
	for i := 0; i < count; i++ {
		key, ok := c.keyFn(i, prev)
		if !ok {
			break
		}
		page, err := c.fetch(ctx, key)
		if err != nil {
			fetchErr = fmt.Errorf("failed to refetch feed page %q: %w", key, err)
			break
		}
		pages = append(pages, page)
		keys = append(keys, key)
		prev = &pages[len(pages)-1]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return nil
	}
	c.inFlight = false

	if fetchErr != nil {
		return fetchErr
	}
	if epoch != c.epochs.Epoch() {
		return model.ErrStaleEpoch
	}

	c.pages = pages
	c.keys = keys
	c.logger.Debug("Feed cache: revalidated", "pages", len(pages))
	return nil
}

// Reset drops every cached page. A fetch in flight is discarded.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.inFlight = false
	c.pages = nil
	c.keys = nil
}

// Pages returns a copy of the cached pages in order.
func (c *Cache) Pages() []model.FeedPage {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.FeedPage, len(c.pages))
	copy(out, c.pages)
	return out
}

// Keys returns the request keys of the cached pages.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Posts concatenates the cached pages. A post repeated by a later page
// (its cursor window shifted after new posts) is kept at its first position.
func (c *Cache) Posts() []model.Post {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{})
	var posts []model.Post
	for _, page := range c.pages {
		for _, p := range page.Posts {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			posts = append(posts, p)
		}
	}
	return posts
}

// Validating reports whether a fetch is in flight.
func (c *Cache) Validating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Exhausted reports whether the key function has ended the sequence.
func (c *Cache) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pages) == 0 {
		return false
	}
	_, ok := c.nextKeyLocked()
	return !ok
}

func (c *Cache) nextKeyLocked() (string, bool) {
	index := len(c.pages)
	if index == 0 {
		return c.keyFn(0, nil)
	}
	return c.keyFn(index, &c.pages[index-1])
}
