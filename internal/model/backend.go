package model

import "context"

// ProfileAPI is the backend surface for the current user's profile.
type ProfileAPI interface {
	GetMe(ctx context.Context, idToken string) (Profile, error)
	Register(ctx context.Context, idToken string, data RegistrationData) (Profile, error)
	UpdateMe(ctx context.Context, idToken string, update ProfileUpdate) (Profile, error)
}

// PostAPI is the backend surface for posts and their likes.
type PostAPI interface {
	GetFeedPage(ctx context.Context, idToken, key string) (FeedPage, error)
	GetPost(ctx context.Context, idToken, postID string) (Post, error)
	ListUserPosts(ctx context.Context, idToken, userID string) ([]Post, error)
	CreatePost(ctx context.Context, idToken string, post NewPost) (Post, error)
	DeletePost(ctx context.Context, idToken, postID string) error
	SetPostLike(ctx context.Context, idToken, postID string, like bool) error
	HasLikedPost(ctx context.Context, idToken, postID string) (bool, error)
}

// CommentAPI is the backend surface for comments and their likes.
type CommentAPI interface {
	ListComments(ctx context.Context, idToken, postID string) ([]Comment, error)
	AddComment(ctx context.Context, idToken, postID, content string) (Comment, error)
	SetCommentLike(ctx context.Context, idToken, commentID string, like bool) error
	HasLikedComment(ctx context.Context, idToken, commentID string) (bool, error)
}

// UserAPI is the backend surface for other users.
type UserAPI interface {
	GetUser(ctx context.Context, idToken, userID string) (Profile, error)
	IsFollowing(ctx context.Context, idToken, userID string) (bool, error)
	SetFollow(ctx context.Context, idToken, userID string, follow bool) error
}

// BackendAPI is the complete backend REST surface.
type BackendAPI interface {
	ProfileAPI
	PostAPI
	CommentAPI
	UserAPI
}
