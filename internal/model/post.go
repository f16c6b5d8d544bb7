package model

import "time"

// Author is the public part of a user embedded in posts and comments.
type Author struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	DisplayName       string `json:"displayName"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

// Counts holds server-side engagement counters.
type Counts struct {
	Comments int `json:"comments"`
	Likes    int `json:"likes"`
}

// Post is a cached copy of a backend post.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      Author    `json:"user"`
	Count     Counts    `json:"_count"`
}

// NewPost is the payload of a post creation.
type NewPost struct {
	Content  string `json:"content"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// FeedPage is one cursor page of the home feed.
// A nil Posts slice means the response carried no posts field.
type FeedPage struct {
	Message    string `json:"message,omitempty"`
	Posts      []Post `json:"posts"`
	NextCursor string `json:"nextCursor"`
	Count      int    `json:"count"`
}

// Comment is a cached copy of a backend comment.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	User      Author    `json:"user"`
	Count     Counts    `json:"_count"`
}

// LikeState is the locally displayed like flag and counter of a post or comment.
type LikeState struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// PostView is a post with the like state shown to the current user.
type PostView struct {
	Post
	LikeState
}

// CommentView is a comment with the like state shown to the current user.
type CommentView struct {
	Comment
	LikeState
}

// UserView is another user's profile and whether the current user follows them.
type UserView struct {
	Profile   Profile `json:"profile"`
	Following bool    `json:"following"`
}
