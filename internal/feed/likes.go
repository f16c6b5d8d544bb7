package feed

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dtroode/gophfeed/internal/model"
)

// Likes holds the locally displayed like state of posts or comments.
//
// Flip applies an optimistic toggle. It is never rolled back: the caller
// reconciles with the server by refetching and calling Settle, so likes are
// eventually consistent. Until then Seed leaves the flipped entry alone.
//
// A settled entry is newer than any listing cached before the toggle, so Seed
// skips it as well until Release marks the listings fresh again.
type Likes struct {
	mu      sync.Mutex
	states  map[string]model.LikeState
	pending map[string]struct{}
	settled map[string]struct{}
}

func NewLikes() *Likes {
	return &Likes{
		states:  make(map[string]model.LikeState),
		pending: make(map[string]struct{}),
		settled: make(map[string]struct{}),
	}
}

// Seed records the server counter of id. The liked flag known locally is
// kept, and entries awaiting or holding a reconciliation are skipped.
func (l *Likes) Seed(id string, likes int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pending[id]; ok {
		return
	}
	if _, ok := l.settled[id]; ok {
		return
	}
	s := l.states[id]
	s.Likes = likes
	l.states[id] = s
}

// Settle records the server truth of id and ends its reconciliation.
func (l *Likes) Settle(id string, state model.LikeState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.pending, id)
	l.settled[id] = struct{}{}
	l.states[id] = state
}

// Release lets Seed overwrite settled entries again. Call it once the
// listings have been refetched after the last Settle.
func (l *Likes) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settled = make(map[string]struct{})
}

// Pending reports whether id has an unreconciled optimistic toggle.
func (l *Likes) Pending(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[id]
	return ok
}

// SetLiked records the server liked flag of id unless a toggle is pending.
func (l *Likes) SetLiked(id string, liked bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pending[id]; ok {
		return
	}
	s := l.states[id]
	s.Liked = liked
	l.states[id] = s
}

func (l *Likes) Get(id string) (model.LikeState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.states[id]
	return s, ok
}

// Flip toggles the liked flag of id and moves the counter with it.
func (l *Likes) Flip(id string) model.LikeState {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.states[id]
	s.Liked = !s.Liked
	if s.Liked {
		s.Likes++
	} else if s.Likes > 0 {
		s.Likes--
	}
	l.states[id] = s
	l.pending[id] = struct{}{}
	return s
}

func (l *Likes) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = make(map[string]model.LikeState)
	l.pending = make(map[string]struct{})
	l.settled = make(map[string]struct{})
}

// Hydrate asks hasLiked for every id with at most limit calls in flight and
// records the answers. Ids whose check fails keep their previous flag; the
// first error is returned after all checks finish.
func (l *Likes) Hydrate(ctx context.Context, ids []string, limit int, hasLiked func(ctx context.Context, id string) (bool, error)) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, id := range ids {
		id := id
		g.Go(func() error {
			liked, err := hasLiked(ctx, id)
			if err != nil {
				return err
			}
			l.SetLiked(id, liked)
			return nil
		})
	}

	return g.Wait()
}
