package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
)

var _ model.BackendAPI = (*Client)(nil)

// Config configures the backend REST client.
type Config struct {
	BaseURL   string
	APIPrefix string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

// Client talks to the social backend. Every call carries the caller's id token
// as a bearer header and is paced by a shared rate limiter.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config, logger *logger.Logger) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + cfg.APIPrefix,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Do sends a request to path (relative to the API prefix) and decodes a 2xx
// body into out. Non-2xx responses are returned as *model.RequestError.
func (c *Client) Do(ctx context.Context, method, path, idToken string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil && method != http.MethodGet {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idToken != "" {
		req.Header.Set("Authorization", "Bearer "+idToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := &model.RequestError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, &reqErr.Body); err != nil || reqErr.Body == nil {
			reqErr.Body = map[string]any{"message": strings.TrimSpace(string(raw))}
		}
		c.logger.Debug("Backend client: request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode)
		return reqErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// decodeField decodes raw[field] into out when present, the whole object otherwise.
func decodeField(raw json.RawMessage, field string, out any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if inner, ok := envelope[field]; ok {
			raw = inner
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path, idToken, field string, out any) error {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, idToken, nil, &raw); err != nil {
		return err
	}
	return decodeField(raw, field, out)
}

func (c *Client) send(ctx context.Context, method, path, idToken, field string, in, out any) error {
	var raw json.RawMessage
	if err := c.Do(ctx, method, path, idToken, in, &raw); err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return decodeField(raw, field, out)
}

func esc(s string) string {
	return url.PathEscape(s)
}

func verb(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}

// GetMe returns the profile of the caller.
func (c *Client) GetMe(ctx context.Context, idToken string) (model.Profile, error) {
	var p model.Profile
	err := c.get(ctx, "/users/me", idToken, "user", &p)
	return p, err
}

// Register creates the backend profile of the caller.
func (c *Client) Register(ctx context.Context, idToken string, data model.RegistrationData) (model.Profile, error) {
	var p model.Profile
	err := c.send(ctx, http.MethodPost, "/auth/register", idToken, "user", data, &p)
	return p, err
}

// UpdateMe changes the caller's profile.
func (c *Client) UpdateMe(ctx context.Context, idToken string, update model.ProfileUpdate) (model.Profile, error) {
	var p model.Profile
	err := c.send(ctx, http.MethodPut, "/users/me", idToken, "user", update, &p)
	return p, err
}

// GetFeedPage fetches the feed page addressed by key, as produced by the feed key function.
func (c *Client) GetFeedPage(ctx context.Context, idToken, key string) (model.FeedPage, error) {
	var page model.FeedPage
	err := c.Do(ctx, http.MethodGet, key, idToken, nil, &page)
	return page, err
}

func (c *Client) GetPost(ctx context.Context, idToken, postID string) (model.Post, error) {
	var p model.Post
	err := c.get(ctx, "/posts/"+esc(postID), idToken, "post", &p)
	return p, err
}

func (c *Client) ListUserPosts(ctx context.Context, idToken, userID string) ([]model.Post, error) {
	var posts []model.Post
	err := c.get(ctx, UserPostsPath(userID), idToken, "posts", &posts)
	return posts, err
}

func (c *Client) CreatePost(ctx context.Context, idToken string, post model.NewPost) (model.Post, error) {
	var p model.Post
	err := c.send(ctx, http.MethodPost, "/posts", idToken, "post", post, &p)
	return p, err
}

func (c *Client) DeletePost(ctx context.Context, idToken, postID string) error {
	return c.Do(ctx, http.MethodDelete, "/posts/"+esc(postID), idToken, nil, nil)
}

// SetPostLike sends "like" when like is true and "unlike" otherwise.
func (c *Client) SetPostLike(ctx context.Context, idToken, postID string, like bool) error {
	path := fmt.Sprintf("/post-likes/%s/%s", esc(postID), verb(like, "like", "unlike"))
	return c.Do(ctx, http.MethodPost, path, idToken, nil, nil)
}

func (c *Client) HasLikedPost(ctx context.Context, idToken, postID string) (bool, error) {
	var out struct {
		HasLiked bool `json:"hasLiked"`
	}
	err := c.Do(ctx, http.MethodGet, "/post-likes/"+esc(postID)+"/hasLiked", idToken, nil, &out)
	return out.HasLiked, err
}

func (c *Client) ListComments(ctx context.Context, idToken, postID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := c.get(ctx, CommentsPath(postID), idToken, "comments", &comments)
	return comments, err
}

func (c *Client) AddComment(ctx context.Context, idToken, postID, content string) (model.Comment, error) {
	var cm model.Comment
	in := map[string]string{"content": content}
	err := c.send(ctx, http.MethodPost, CommentsPath(postID), idToken, "comment", in, &cm)
	return cm, err
}

func (c *Client) SetCommentLike(ctx context.Context, idToken, commentID string, like bool) error {
	path := fmt.Sprintf("/comment-likes/%s/%s", esc(commentID), verb(like, "like", "unlike"))
	return c.Do(ctx, http.MethodPost, path, idToken, nil, nil)
}

func (c *Client) HasLikedComment(ctx context.Context, idToken, commentID string) (bool, error) {
	var out struct {
		HasLiked bool `json:"hasLiked"`
	}
	err := c.Do(ctx, http.MethodGet, "/comment-likes/"+esc(commentID)+"/hasLiked", idToken, nil, &out)
	return out.HasLiked, err
}

func (c *Client) GetUser(ctx context.Context, idToken, userID string) (model.Profile, error) {
	var p model.Profile
	err := c.get(ctx, UserPath(userID), idToken, "user", &p)
	return p, err
}

func (c *Client) IsFollowing(ctx context.Context, idToken, userID string) (bool, error) {
	var out struct {
		IsFollowing bool `json:"isFollowing"`
	}
	err := c.Do(ctx, http.MethodGet, UserPath(userID)+"/isFollowing", idToken, nil, &out)
	return out.IsFollowing, err
}

func (c *Client) SetFollow(ctx context.Context, idToken, userID string, follow bool) error {
	path := UserPath(userID) + "/" + verb(follow, "follow", "unfollow")
	return c.Do(ctx, http.MethodPost, path, idToken, nil, nil)
}

// UserPostsPath is the listing path of a user's posts, also used as its cache key.
func UserPostsPath(userID string) string {
	return "/posts/by-user/" + esc(userID) + "/all"
}

// CommentsPath is the listing path of a post's comments, also used as its cache key.
func CommentsPath(postID string) string {
	return "/comments/" + esc(postID) + "/comments"
}

// UserPath is the path of a user profile, also used as its cache key.
func UserPath(userID string) string {
	return "/users/" + esc(userID)
}
