package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/service"
)

// PostHandler serves the /api/post routes: the feed, posts, likes, and
// comments.
type PostHandler struct {
	posts  *service.PostService
	feed   *service.FeedService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, feed *service.FeedService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, feed: feed, logger: logger}
}

// feedLimit parses ?limit=N; anything missing or unusable falls back to
// the service default.
func feedLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func (h *PostHandler) FollowingUsersPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	page, err := h.feed.GetFeed(r.Context(), id.Username, feedLimit(r), "")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *PostHandler) MoreFollowingUsersPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	cursor := chi.URLParam(r, "cursor")

	page, err := h.feed.GetFeed(r.Context(), id.Username, feedLimit(r), cursor)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *PostHandler) NewPost(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	path, cleanup, err := saveUpload(r, "postFile")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer cleanup()

	var description *string
	if d := r.FormValue("description"); d != "" {
		description = &d
	}

	post, err := h.posts.Create(r.Context(), id.Username, path, description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) SinglePost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")

	detail, err := h.posts.Get(r.Context(), postID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *PostHandler) UserPosts(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	posts, err := h.posts.ListByAuthor(r.Context(), username)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// UpdatePost takes a multipart form so the image can be replaced in the
// same request: fields postId and description, optional file postFile.
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("", "invalid multipart form"))
		return
	}

	// the file part is optional on edits
	path := ""
	if len(r.MultipartForm.File["postFile"]) > 0 {
		p, cleanup, err := saveUpload(r, "postFile")
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		defer cleanup()
		path = p
	}

	var description *string
	if d := r.FormValue("description"); d != "" {
		description = &d
	}

	post, err := h.posts.Update(r.Context(), id.Username, r.FormValue("postId"), path, description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var in struct {
		PostID string `json:"postId"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.posts.Delete(r.Context(), id.Username, in.PostID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var in struct {
		PostID string `json:"postId"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.posts.Like(r.Context(), id.Username, in.PostID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "liked"})
}

func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var in struct {
		PostID string `json:"postId"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.posts.Unlike(r.Context(), id.Username, in.PostID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "unliked"})
}

func (h *PostHandler) GetLike(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")
	username := chi.URLParam(r, "username")

	like, err := h.posts.GetLike(r.Context(), username, postID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, like)
}

func (h *PostHandler) GetLikes(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")

	likes, err := h.posts.Likes(r.Context(), postID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"likes": likes})
}

func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var in struct {
		PostID      string `json:"postId"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	comment, err := h.posts.CreateComment(r.Context(), id.Username, in.PostID, in.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *PostHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var in struct {
		CommentID   string `json:"commentId"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	comment, err := h.posts.UpdateComment(r.Context(), id.Username, in.CommentID, in.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var in struct {
		CommentID string `json:"commentId"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.posts.DeleteComment(r.Context(), id.Username, in.CommentID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
}

func (h *PostHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")

	comments, err := h.posts.Comments(r.Context(), postID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (h *PostHandler) GetUserComments(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")
	username := chi.URLParam(r, "username")

	comments, err := h.posts.UserComments(r.Context(), postID, username)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}
