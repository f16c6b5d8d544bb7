package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dtroode/gophfeed/internal/feed"
	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
)

// ContentConfig tunes the content caches of a session.
type ContentConfig struct {
	PageSize           int
	HydrateConcurrency int
}

// Content serves posts, comments, likes and follows for one session and keeps
// its caches consistent after mutations.
type Content struct {
	api      model.BackendAPI
	session  *Session
	uploader model.Uploader
	recorder Recorder

	feed         *feed.Cache
	userPosts    *feed.Keyed[[]model.Post]
	comments     *feed.Keyed[[]model.Comment]
	users        *feed.Keyed[model.Profile]
	postLikes    *feed.Likes
	commentLikes *feed.Likes

	mu        sync.Mutex
	following map[string]bool

	hydrate int
	logger  *logger.Logger
}

// NewContent creates the content service of session.
func NewContent(
	api model.BackendAPI,
	session *Session,
	uploader model.Uploader,
	recorder Recorder,
	cfg ContentConfig,
	logger *logger.Logger,
) *Content {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	c := &Content{
		api:          api,
		session:      session,
		uploader:     uploader,
		recorder:     recorder,
		postLikes:    feed.NewLikes(),
		commentLikes: feed.NewLikes(),
		following:    make(map[string]bool),
		hydrate:      cfg.HydrateConcurrency,
		logger:       logger,
	}

	c.feed = feed.NewCache(feed.FeedKey(cfg.PageSize), c.fetchFeedPage, session, logger)
	c.userPosts = feed.NewKeyed(c.fetchUserPosts, session)
	c.comments = feed.NewKeyed(c.fetchComments, session)
	c.users = feed.NewKeyed(c.fetchUser, session)

	return c
}

// Reset drops every cached page, listing and like state.
func (c *Content) Reset() {
	c.feed.Reset()
	c.userPosts.Reset()
	c.comments.Reset()
	c.users.Reset()
	c.postLikes.Reset()
	c.commentLikes.Reset()

	c.mu.Lock()
	c.following = make(map[string]bool)
	c.mu.Unlock()
}

// Feed returns the loaded home feed, loading the first page if needed.
func (c *Content) Feed(ctx context.Context) ([]model.PostView, error) {
	if err := c.feed.Load(ctx); err != nil {
		return nil, err
	}
	return c.postViews(ctx, c.feed.Posts()), nil
}

// LoadMore appends the next feed page.
func (c *Content) LoadMore(ctx context.Context) (bool, error) {
	return c.feed.LoadMore(ctx)
}

// FeedStatus reports whether a feed fetch is running and whether the feed has ended.
func (c *Content) FeedStatus() (validating, exhausted bool) {
	return c.feed.Validating(), c.feed.Exhausted()
}

// RefreshFeed refetches every loaded feed page.
func (c *Content) RefreshFeed(ctx context.Context) error {
	if err := c.feed.Invalidate(ctx); err != nil {
		return err
	}
	c.postLikes.Release()
	return nil
}

// Post returns a single post, uncached.
func (c *Content) Post(ctx context.Context, postID string) (model.PostView, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return model.PostView{}, err
	}

	post, err := c.api.GetPost(ctx, idToken, postID)
	c.recorder.BackendFetch("post", err)
	if err != nil {
		return model.PostView{}, fmt.Errorf("failed to get post: %w", err)
	}

	return c.postViews(ctx, []model.Post{post})[0], nil
}

// UserPosts returns the posts of a user.
func (c *Content) UserPosts(ctx context.Context, userID string) ([]model.PostView, error) {
	posts, err := c.userPosts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.postViews(ctx, posts), nil
}

// CreatePost publishes a post and revalidates the whole feed so it shows on top.
func (c *Content) CreatePost(ctx context.Context, post model.NewPost) (model.Post, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return model.Post{}, err
	}

	created, err := c.api.CreatePost(ctx, idToken, post)
	if err != nil {
		c.logger.Error("Content service: failed to create post",
			"error", err.Error())
		return model.Post{}, fmt.Errorf("failed to create post: %w", err)
	}

	c.logger.Info("Content service: post created",
		"post_id", created.ID)

	if err := c.feed.Invalidate(ctx); err != nil {
		c.logger.Error("Content service: failed to revalidate feed",
			"error", err.Error())
	} else {
		c.postLikes.Release()
	}
	if me, ok := c.currentUserID(); ok {
		c.invalidate(ctx, c.userPosts, me)
	}

	return created, nil
}

// UploadMedia stores a file for a post or avatar and returns its URL.
func (c *Content) UploadMedia(ctx context.Context, folder, filename string, r io.Reader, size int64, onProgress model.ProgressFunc) (string, error) {
	if c.uploader == nil {
		return "", &model.UploadError{Code: "NotConfigured", Err: fmt.Errorf("object storage is not configured")}
	}

	url, err := c.uploader.Upload(ctx, folder, filename, r, size, onProgress)
	c.recorder.Upload(err)
	if err != nil {
		c.logger.Error("Content service: upload failed",
			"filename", filename,
			"error", err.Error())
		return "", err
	}
	return url, nil
}

// DeletePost deletes a post and revalidates the listing it belongs to.
// The home feed is left alone.
func (c *Content) DeletePost(ctx context.Context, postID string) error {
	idToken, err := c.session.IDToken()
	if err != nil {
		return err
	}

	author := c.authorOf(postID)

	if err := c.api.DeletePost(ctx, idToken, postID); err != nil {
		c.logger.Error("Content service: failed to delete post",
			"post_id", postID,
			"error", err.Error())
		return fmt.Errorf("failed to delete post: %w", err)
	}

	c.invalidate(ctx, c.userPosts, author)
	return nil
}

// TogglePostLike flips the like of a post locally, sends it, then reconciles
// the listing of the post and its like state with the server. The returned
// state is the optimistic one; a request failure is returned alongside it.
func (c *Content) TogglePostLike(ctx context.Context, postID string) (model.LikeState, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return model.LikeState{}, err
	}

	c.ensurePostLike(ctx, idToken, postID)
	state := c.postLikes.Flip(postID)

	reqErr := c.api.SetPostLike(ctx, idToken, postID, state.Liked)
	if reqErr != nil {
		c.logger.Error("Content service: like request failed",
			"post_id", postID,
			"liked", state.Liked,
			"error", reqErr.Error())
		reqErr = fmt.Errorf("failed to update like: %w", reqErr)
	}

	author := c.authorOf(postID)
	if post, ok := c.reconcilePostLike(ctx, idToken, postID); ok && post.UserID != "" {
		author = post.UserID
	}
	c.invalidate(ctx, c.userPosts, author)

	return state, reqErr
}

// Comments returns the comments of a post.
func (c *Content) Comments(ctx context.Context, postID string) ([]model.CommentView, error) {
	comments, err := c.comments.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	return c.commentViews(ctx, comments), nil
}

// AddComment posts a comment and revalidates the comments of the post.
func (c *Content) AddComment(ctx context.Context, postID, content string) (model.Comment, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return model.Comment{}, err
	}

	comment, err := c.api.AddComment(ctx, idToken, postID, content)
	if err != nil {
		c.logger.Error("Content service: failed to add comment",
			"post_id", postID,
			"error", err.Error())
		return model.Comment{}, fmt.Errorf("failed to add comment: %w", err)
	}

	c.invalidate(ctx, c.comments, postID)
	c.commentLikes.Release()
	return comment, nil
}

// ToggleCommentLike flips the like of a comment the same way TogglePostLike does.
func (c *Content) ToggleCommentLike(ctx context.Context, postID, commentID string) (model.LikeState, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return model.LikeState{}, err
	}

	if _, ok := c.commentLikes.Get(commentID); !ok {
		if comment, found := c.findComment(postID, commentID); found {
			c.commentLikes.Seed(commentID, comment.Count.Likes)
		}
	}
	state := c.commentLikes.Flip(commentID)

	reqErr := c.api.SetCommentLike(ctx, idToken, commentID, state.Liked)
	if reqErr != nil {
		c.logger.Error("Content service: comment like request failed",
			"comment_id", commentID,
			"error", reqErr.Error())
		reqErr = fmt.Errorf("failed to update comment like: %w", reqErr)
	}

	c.invalidate(ctx, c.comments, postID)

	liked, err := c.api.HasLikedComment(ctx, idToken, commentID)
	if err != nil {
		c.logger.Debug("Content service: comment like reconciliation deferred",
			"comment_id", commentID,
			"error", err.Error())
		return state, reqErr
	}
	settled := model.LikeState{Liked: liked, Likes: state.Likes}
	if comment, found := c.findComment(postID, commentID); found {
		settled.Likes = comment.Count.Likes
	}
	c.commentLikes.Settle(commentID, settled)

	return state, reqErr
}

// User returns another user's profile and the follow flag.
func (c *Content) User(ctx context.Context, userID string) (model.UserView, error) {
	profile, err := c.users.Get(ctx, userID)
	if err != nil {
		return model.UserView{}, err
	}
	c.session.UpdateUserInfo(profile)

	c.mu.Lock()
	following, known := c.following[userID]
	c.mu.Unlock()

	if !known {
		idToken, err := c.session.IDToken()
		if err != nil {
			return model.UserView{}, err
		}
		following, err = c.api.IsFollowing(ctx, idToken, userID)
		if err != nil {
			return model.UserView{}, fmt.Errorf("failed to get follow state: %w", err)
		}
		c.mu.Lock()
		c.following[userID] = following
		c.mu.Unlock()
	}

	return model.UserView{Profile: profile, Following: following}, nil
}

// ToggleFollow flips the follow flag optimistically, sends it and
// revalidates the user's profile.
func (c *Content) ToggleFollow(ctx context.Context, userID string) (bool, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	follow := !c.following[userID]
	c.following[userID] = follow
	c.mu.Unlock()

	reqErr := c.api.SetFollow(ctx, idToken, userID, follow)
	if reqErr != nil {
		c.logger.Error("Content service: follow request failed",
			"user_id", userID,
			"follow", follow,
			"error", reqErr.Error())
		reqErr = fmt.Errorf("failed to update follow: %w", reqErr)
	}

	c.invalidate(ctx, c.users, userID)
	return follow, reqErr
}

// UpdateProfile edits the current user's profile and updates the session.
func (c *Content) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (model.Profile, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return model.Profile{}, err
	}

	profile, err := c.api.UpdateMe(ctx, idToken, update)
	if err != nil {
		c.logger.Error("Content service: failed to update profile",
			"error", err.Error())
		return model.Profile{}, fmt.Errorf("failed to update profile: %w", err)
	}

	c.session.UpdateUserInfo(profile)
	c.invalidate(ctx, c.users, profile.ID)
	return profile, nil
}

func (c *Content) fetchFeedPage(ctx context.Context, key string) (model.FeedPage, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return model.FeedPage{}, err
	}
	page, err := c.api.GetFeedPage(ctx, idToken, key)
	c.recorder.BackendFetch("feed", err)
	return page, err
}

func (c *Content) fetchUserPosts(ctx context.Context, userID string) ([]model.Post, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return nil, err
	}
	posts, err := c.api.ListUserPosts(ctx, idToken, userID)
	c.recorder.BackendFetch("user_posts", err)
	return posts, err
}

func (c *Content) fetchComments(ctx context.Context, postID string) ([]model.Comment, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return nil, err
	}
	comments, err := c.api.ListComments(ctx, idToken, postID)
	c.recorder.BackendFetch("comments", err)
	return comments, err
}

func (c *Content) fetchUser(ctx context.Context, userID string) (model.Profile, error) {
	idToken, err := c.session.IDToken()
	if err != nil {
		return model.Profile{}, err
	}
	profile, err := c.api.GetUser(ctx, idToken, userID)
	c.recorder.BackendFetch("user", err)
	return profile, err
}

type invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

func (c *Content) invalidate(ctx context.Context, cache invalidator, key string) {
	if key == "" {
		return
	}
	if err := cache.Invalidate(ctx, key); err != nil {
		c.logger.Error("Content service: failed to revalidate listing",
			"key", key,
			"error", err.Error())
	}
}

func (c *Content) currentUserID() (string, bool) {
	p, ok := model.ProfileOf(c.session.Status().User)
	return p.ID, ok
}

// authorOf finds the author of a cached post, falling back to the current user.
func (c *Content) authorOf(postID string) string {
	if post, ok := c.findPost(postID); ok && post.UserID != "" {
		return post.UserID
	}
	me, _ := c.currentUserID()
	return me
}

func (c *Content) findPost(postID string) (model.Post, bool) {
	for _, p := range c.feed.Posts() {
		if p.ID == postID {
			return p, true
		}
	}
	var (
		found model.Post
		ok    bool
	)
	c.userPosts.Each(func(_ string, posts []model.Post) bool {
		for _, p := range posts {
			if p.ID == postID {
				found, ok = p, true
				return false
			}
		}
		return true
	})
	return found, ok
}

func (c *Content) findComment(postID, commentID string) (model.Comment, bool) {
	comments, ok := c.comments.Peek(postID)
	if !ok {
		return model.Comment{}, false
	}
	for _, cm := range comments {
		if cm.ID == commentID {
			return cm, true
		}
	}
	return model.Comment{}, false
}

// ensurePostLike seeds the like state of a post not shown yet.
func (c *Content) ensurePostLike(ctx context.Context, idToken, postID string) {
	if _, ok := c.postLikes.Get(postID); ok {
		return
	}
	if post, ok := c.findPost(postID); ok {
		c.postLikes.Seed(postID, post.Count.Likes)
	}
	liked, err := c.api.HasLikedPost(ctx, idToken, postID)
	if err != nil {
		c.logger.Debug("Content service: failed to read like state",
			"post_id", postID,
			"error", err.Error())
		return
	}
	c.postLikes.SetLiked(postID, liked)
}

// reconcilePostLike replaces the optimistic like state with the server's.
// On failure the optimistic state stays until the next reconciliation.
// The fetched post is returned when the server answered.
func (c *Content) reconcilePostLike(ctx context.Context, idToken, postID string) (model.Post, bool) {
	post, err := c.api.GetPost(ctx, idToken, postID)
	if err != nil {
		c.logger.Debug("Content service: like reconciliation deferred",
			"post_id", postID,
			"error", err.Error())
		return model.Post{}, false
	}
	liked, err := c.api.HasLikedPost(ctx, idToken, postID)
	if err != nil {
		c.logger.Debug("Content service: like reconciliation deferred",
			"post_id", postID,
			"error", err.Error())
		return post, true
	}
	c.postLikes.Settle(postID, model.LikeState{Liked: liked, Likes: post.Count.Likes})
	return post, true
}

func (c *Content) postViews(ctx context.Context, posts []model.Post) []model.PostView {
	var unknown []string
	for _, p := range posts {
		if _, ok := c.postLikes.Get(p.ID); !ok {
			unknown = append(unknown, p.ID)
		}
		c.postLikes.Seed(p.ID, p.Count.Likes)
	}

	if len(unknown) > 0 {
		if idToken, err := c.session.IDToken(); err == nil {
			err := c.postLikes.Hydrate(ctx, unknown, c.hydrate, func(ctx context.Context, id string) (bool, error) {
				return c.api.HasLikedPost(ctx, idToken, id)
			})
			if err != nil {
				c.logger.Debug("Content service: like hydration incomplete",
					"error", err.Error())
			}
		}
	}

	views := make([]model.PostView, 0, len(posts))
	for _, p := range posts {
		state, _ := c.postLikes.Get(p.ID)
		views = append(views, model.PostView{Post: p, LikeState: state})
	}
	return views
}

func (c *Content) commentViews(ctx context.Context, comments []model.Comment) []model.CommentView {
	var unknown []string
	for _, cm := range comments {
		if _, ok := c.commentLikes.Get(cm.ID); !ok {
			unknown = append(unknown, cm.ID)
		}
		c.commentLikes.Seed(cm.ID, cm.Count.Likes)
	}

	if len(unknown) > 0 {
		if idToken, err := c.session.IDToken(); err == nil {
			err := c.commentLikes.Hydrate(ctx, unknown, c.hydrate, func(ctx context.Context, id string) (bool, error) {
				return c.api.HasLikedComment(ctx, idToken, id)
			})
			if err != nil {
				c.logger.Debug("Content service: comment like hydration incomplete",
					"error", err.Error())
			}
		}
	}

	views := make([]model.CommentView, 0, len(comments))
	for _, cm := range comments {
		state, _ := c.commentLikes.Get(cm.ID)
		views = append(views, model.CommentView{Comment: cm, LikeState: state})
	}
	return views
}
