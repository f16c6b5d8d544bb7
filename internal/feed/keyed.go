package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/dtroode/gophfeed/internal/model"
)

// Keyed is a read-through cache of values addressed by request key, such as
// a user's post listing or a post's comments.
type Keyed[V any] struct {
	mu      sync.Mutex
	fetch   func(ctx context.Context, key string) (V, error)
	epochs  EpochSource
	entries map[string]V
}

// NewKeyed creates an empty Keyed cache.
func NewKeyed[V any](fetch func(ctx context.Context, key string) (V, error), epochs EpochSource) *Keyed[V] {
	return &Keyed[V]{
		fetch:   fetch,
		epochs:  epochs,
		entries: make(map[string]V),
	}
}

// Get returns the cached value of key, fetching it on a miss.
func (k *Keyed[V]) Get(ctx context.Context, key string) (V, error) {
	k.mu.Lock()
	v, ok := k.entries[key]
	k.mu.Unlock()
	if ok {
		return v, nil
	}
	return k.load(ctx, key)
}

// Peek returns the cached value of key without fetching.
func (k *Keyed[V]) Peek(key string) (V, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.entries[key]
	return v, ok
}

// Each calls fn for every cached entry until fn returns false. fn must not
// call back into the cache.
func (k *Keyed[V]) Each(fn func(key string, v V) bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, v := range k.entries {
		if !fn(key, v) {
			return
		}
	}
}

// Invalidate refetches key if it is cached. Uncached keys are left alone.
func (k *Keyed[V]) Invalidate(ctx context.Context, key string) error {
	k.mu.Lock()
	_, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		return nil
	}

	if _, err := k.load(ctx, key); err != nil {
		return err
	}
	return nil
}

// Reset drops every entry.
func (k *Keyed[V]) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries = make(map[string]V)
}

func (k *Keyed[V]) load(ctx context.Context, key string) (V, error) {
	epoch := k.epochs.Epoch()
	v, err := k.fetch(ctx, key)
	if err != nil {
		var zero V
		return zero, fmt.Errorf("failed to fetch %q: %w", key, err)
	}
	if epoch != k.epochs.Epoch() {
		var zero V
		return zero, model.ErrStaleEpoch
	}

	k.mu.Lock()
	k.entries[key] = v
	k.mu.Unlock()
	return v, nil
}
