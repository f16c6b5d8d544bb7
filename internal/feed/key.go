package feed

import (
	"fmt"
	"net/url"

	"github.com/dtroode/gophfeed/internal/model"
)

// KeyFunc returns the request key of the page at index given the previous page.
// prev is nil for index 0. ok is false when no further page exists.
type KeyFunc func(index int, prev *model.FeedPage) (key string, ok bool)

// FeedKey is the KeyFunc of the home feed with the given page size.
//
// A previous page without a posts field, or without a cursor, ends the sequence.
func FeedKey(limit int) KeyFunc {
	return func(index int, prev *model.FeedPage) (string, bool) {
		if index == 0 {
			return fmt.Sprintf("/posts/feed?limit=%d", limit), true
		}
		if prev == nil || prev.Posts == nil || prev.NextCursor == "" {
			return "", false
		}
		return fmt.Sprintf("/posts/feed?cursor=%s&limit=%d", url.QueryEscape(prev.NextCursor), limit), true
	}
}
