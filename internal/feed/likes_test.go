package feed

import (
	"github.com/dtroode/gophfeed/internal/testutil"

	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/gophfeed/internal/model"
)

func TestLikes_FlipIsImmediate(t *testing.T) {
	l := NewLikes()
	l.Seed("p1", 5)

	got := l.Flip("p1")
	assert.Equal(t, model.LikeState{Liked: true, Likes: 6}, got)

	got = l.Flip("p1")
	assert.Equal(t, model.LikeState{Liked: false, Likes: 5}, got)
}

func TestLikes_SeedKeepsLikedFlag(t *testing.T) {
	l := NewLikes()
	l.SetLiked("p1", true)
	l.Seed("p1", 3)

	s, ok := l.Get("p1")
	require.True(t, ok)
	assert.Equal(t, model.LikeState{Liked: true, Likes: 3}, s)
}

func TestLikes_UnlikeNeverNegative(t *testing.T) {
	l := NewLikes()
	l.SetLiked("p1", true)

	assert.Equal(t, model.LikeState{Liked: false, Likes: 0}, l.Flip("p1"))
}

func TestLikes_Hydrate(t *testing.T) {
	l := NewLikes()
	var inFlight, peak atomic.Int32

	hasLiked := func(_ context.Context, id string) (bool, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		return id == "p2", nil
	}

	require.NoError(t, l.Hydrate(testutil.Context(t), []string{"p1", "p2", "p3", "p4"}, 2, hasLiked))
	assert.LessOrEqual(t, peak.Load(), int32(2))

	s, _ := l.Get("p2")
	assert.True(t, s.Liked)
	s, _ = l.Get("p1")
	assert.False(t, s.Liked)
}

func TestLikes_HydrateError(t *testing.T) {
	l := NewLikes()
	boom := errors.New("boom")

	err := l.Hydrate(testutil.Context(t), []string{"p1"}, 1, func(context.Context, string) (bool, error) {
		return false, boom
	})
	require.ErrorIs(t, err, boom)
	_, ok := l.Get("p1")
	assert.False(t, ok)
}

func TestLikes_PendingUntilSettled(t *testing.T) {
	l := NewLikes()
	l.Seed("p1", 5)
	l.Flip("p1")
	require.True(t, l.Pending("p1"))

	// a stale listing must not undo the optimistic flip
	l.Seed("p1", 5)
	l.SetLiked("p1", false)
	s, _ := l.Get("p1")
	assert.Equal(t, model.LikeState{Liked: true, Likes: 6}, s)

	l.Settle("p1", model.LikeState{Liked: true, Likes: 7})
	assert.False(t, l.Pending("p1"))

	l.Release()
	l.Seed("p1", 8)
	s, _ = l.Get("p1")
	assert.Equal(t, model.LikeState{Liked: true, Likes: 8}, s)
}

func TestLikes_SettledSurvivesStaleListing(t *testing.T) {
	l := NewLikes()
	l.Seed("p1", 5)
	l.Flip("p1")
	l.Settle("p1", model.LikeState{Liked: true, Likes: 6})

	// the listing cached before the toggle still says 5
	l.Seed("p1", 5)
	s, _ := l.Get("p1")
	assert.Equal(t, model.LikeState{Liked: true, Likes: 6}, s)

	l.Release()
	l.Seed("p1", 9)
	s, _ = l.Get("p1")
	assert.Equal(t, model.LikeState{Liked: true, Likes: 9}, s)
}
