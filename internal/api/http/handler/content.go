package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	scopectx "github.com/dtroode/gophfeed/internal/api/http/context"
	"github.com/dtroode/gophfeed/internal/logger"
	"github.com/dtroode/gophfeed/internal/model"
)

const (
	maxUploadSize    = 32 << 20
	defaultUploadDir = "posts"
	uploadFormFile   = "file"
	uploadFormFolder = "folder"
	maxCommentLength = 2000
	maxPostLength    = 5000
)

var uploadFolders = map[string]bool{
	"posts":    true,
	"avatars":  true,
	"comments": true,
}

type feedResponse struct {
	Posts      []model.PostView `json:"posts"`
	Validating bool             `json:"validating"`
	Exhausted  bool             `json:"exhausted"`
}

type loadMoreResponse struct {
	Loaded    bool `json:"loaded"`
	Exhausted bool `json:"exhausted"`
}

type postsResponse struct {
	Posts []model.PostView `json:"posts"`
}

type commentsResponse struct {
	Comments []model.CommentView `json:"comments"`
}

type commentRequest struct {
	Content string `json:"content"`
}

type likeResponse struct {
	model.LikeState
	Warning string `json:"warning,omitempty"`
}

type followResponse struct {
	Following bool   `json:"following"`
	Warning   string `json:"warning,omitempty"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Content exposes feed, post, comment and user operations of the session.
type Content struct {
	base
}

func NewContent(ctxMgr *scopectx.Manager, logger *logger.Logger) *Content {
	return &Content{base: base{ctxMgr: ctxMgr, logger: logger}}
}

// Feed handles GET /api/feed.
func (h *Content) Feed(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	posts, err := scope.Content.Feed(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	validating, exhausted := scope.Content.FeedStatus()

	writeJSON(w, http.StatusOK, feedResponse{Posts: posts, Validating: validating, Exhausted: exhausted})
}

// LoadMore handles POST /api/feed/more.
func (h *Content) LoadMore(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	loaded, err := scope.Content.LoadMore(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	_, exhausted := scope.Content.FeedStatus()

	writeJSON(w, http.StatusOK, loadMoreResponse{Loaded: loaded, Exhausted: exhausted})
}

// RefreshFeed handles POST /api/feed/refresh.
func (h *Content) RefreshFeed(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := scope.Content.RefreshFeed(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Post handles GET /api/posts/{id}.
func (h *Content) Post(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	post, err := scope.Content.Post(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// CreatePost handles POST /api/posts.
func (h *Content) CreatePost(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req model.NewPost
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" && req.MediaURL == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "a post needs content or media")
		return
	}
	if len(req.Content) > maxPostLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "post content is too long")
		return
	}

	post, err := scope.Content.CreatePost(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// DeletePost handles DELETE /api/posts/{id}.
func (h *Content) DeletePost(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := scope.Content.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TogglePostLike handles POST /api/posts/{id}/like.
func (h *Content) TogglePostLike(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	state, err := scope.Content.TogglePostLike(r.Context(), chi.URLParam(r, "id"))
	h.writeLike(w, state, err)
}

// Comments handles GET /api/posts/{id}/comments.
func (h *Content) Comments(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	comments, err := scope.Content.Comments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

// AddComment handles POST /api/posts/{id}/comments.
func (h *Content) AddComment(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" || len(req.Content) > maxCommentLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "comment content is empty or too long")
		return
	}

	comment, err := scope.Content.AddComment(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// ToggleCommentLike handles POST /api/posts/{id}/comments/{commentID}/like.
func (h *Content) ToggleCommentLike(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	state, err := scope.Content.ToggleCommentLike(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "commentID"))
	h.writeLike(w, state, err)
}

// writeLike answers with the optimistic state. A failed like request does not
// roll it back and is reported as a warning.
func (h *Content) writeLike(w http.ResponseWriter, state model.LikeState, err error) {
	if err != nil && errors.Is(err, model.ErrNoCredential) {
		handleError(w, err)
		return
	}

	resp := likeResponse{LikeState: state}
	if err != nil {
		resp.Warning = model.UserMessage(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// User handles GET /api/users/{id}.
func (h *Content) User(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	user, err := scope.Content.User(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UserPosts handles GET /api/users/{id}/posts.
func (h *Content) UserPosts(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	posts, err := scope.Content.UserPosts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postsResponse{Posts: posts})
}

// ToggleFollow handles POST /api/users/{id}/follow.
func (h *Content) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	following, err := scope.Content.ToggleFollow(r.Context(), chi.URLParam(r, "id"))
	if err != nil && errors.Is(err, model.ErrNoCredential) {
		handleError(w, err)
		return
	}

	resp := followResponse{Following: following}
	if err != nil {
		resp.Warning = model.UserMessage(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateProfile handles PUT /api/users/me.
func (h *Content) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req model.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := scope.Content.UpdateProfile(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Upload handles POST /api/media as multipart form data with a "file" part
// and an optional "folder" field.
func (h *Content) Upload(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "upload must be multipart form data under 32MB")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	folder := r.FormValue(uploadFormFolder)
	if folder == "" {
		folder = defaultUploadDir
	}
	if !uploadFolders[folder] {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown upload folder")
		return
	}

	file, header, err := r.FormFile(uploadFormFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing file part")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	url, err := scope.Content.UploadMedia(r.Context(), folder, filename, file, header.Size, func(percent int) {
		h.logger.Debug("Content handler: upload progress",
			"filename", filename,
			"percent", percent)
	})
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}
