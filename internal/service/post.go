package service

import (
	"context"
	"log/slog"

	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/media"
	"github.com/sociable/sociable/internal/model"
	"github.com/sociable/sociable/internal/repository"
)

const postFolder = "sociable/posts"

// PostService owns posts and their likes and comments.
type PostService struct {
	posts    repository.PostRepository
	likes    repository.LikeRepository
	comments repository.CommentRepository
	media    media.Store
	logger   *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	likes repository.LikeRepository,
	comments repository.CommentRepository,
	mediaStore media.Store,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		likes:    likes,
		comments: comments,
		media:    mediaStore,
		logger:   logger,
	}
}

// Create uploads the image and persists the post, in that order: a post
// row must never reference an image that was not stored. An upload
// failure surfaces as Upstream and nothing is persisted.
func (s *PostService) Create(ctx context.Context, author, localPath string, description *string) (*model.Post, error) {
	url, err := s.media.Upload(ctx, localPath, postFolder)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		AuthorName:  author,
		Image:       url,
		Description: description,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.logger.Info("post created",
		slog.String("author", author), slog.String("post_id", post.ID))
	return post, nil
}

// PostDetail is the single-post page payload.
type PostDetail struct {
	Post     model.Post      `json:"post"`
	Likes    []model.Like    `json:"likes"`
	Comments []model.Comment `json:"comments"`
}

// Get returns one post with its likes and comments.
func (s *PostService) Get(ctx context.Context, postID string) (*PostDetail, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	likes, err := s.likes.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: *post, Likes: likes, Comments: comments}, nil
}

// ListByAuthor returns one user's posts oldest-first.
func (s *PostService) ListByAuthor(ctx context.Context, username string) ([]model.Post, error) {
	return s.posts.ListByAuthor(ctx, username)
}

// Update edits a post's description and, when localPath is non-empty,
// replaces its image. Only the author may edit; the old image is removed
// best-effort after the row points at the new one.
func (s *PostService) Update(ctx context.Context, actor, postID, localPath string, description *string) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorName != actor {
		return nil, apperror.Unauthorized("only the author can edit this post")
	}

	oldImage := ""
	if localPath != "" {
		url, err := s.media.Upload(ctx, localPath, postFolder)
		if err != nil {
			return nil, err
		}
		oldImage = post.Image
		post.Image = url
	}
	if description != nil {
		post.Description = description
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	if oldImage != "" {
		if err := s.media.Delete(ctx, oldImage); err != nil {
			s.logger.Warn("deleting replaced post image failed",
				slog.String("url", oldImage), slog.Any("error", err))
		}
	}

	s.logger.Info("post updated",
		slog.String("author", actor), slog.String("post_id", postID))
	return post, nil
}

// Delete removes the post (cascading its likes and comments) and then its
// image. The media delete is best-effort: once the row is gone the post
// is gone, an orphaned asset is just storage.
func (s *PostService) Delete(ctx context.Context, actor, postID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorName != actor {
		return apperror.Unauthorized("only the author can delete this post")
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	if err := s.media.Delete(ctx, post.Image); err != nil {
		s.logger.Warn("deleting post image failed",
			slog.String("url", post.Image), slog.Any("error", err))
	}

	s.logger.Info("post deleted",
		slog.String("author", actor), slog.String("post_id", postID))
	return nil
}

// Like records a like. Liking a missing post is NotFound, liking twice is
// Conflict.
func (s *PostService) Like(ctx context.Context, username, postID string) error {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return err
	}
	return s.likes.Create(ctx, &model.Like{LikedBy: username, PostID: postID})
}

// Unlike removes a like; an absent like is NotFound.
func (s *PostService) Unlike(ctx context.Context, username, postID string) error {
	return s.likes.Delete(ctx, username, postID)
}

// GetLike returns one user's like on a post, NotFound if absent.
func (s *PostService) GetLike(ctx context.Context, username, postID string) (*model.Like, error) {
	return s.likes.Get(ctx, username, postID)
}

// Likes lists a post's likes with liker profiles.
func (s *PostService) Likes(ctx context.Context, postID string) ([]model.Like, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.likes.ListByPost(ctx, postID)
}

// CreateComment adds a comment to an existing post.
func (s *PostService) CreateComment(ctx context.Context, username, postID, text string) (*model.Comment, error) {
	if text == "" {
		return nil, apperror.ValidationFailed("description", "comment text is required")
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:      postID,
		CommentedBy: username,
		Description: text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment edits a comment's text; only its author may.
func (s *PostService) UpdateComment(ctx context.Context, actor, commentID, text string) (*model.Comment, error) {
	if text == "" {
		return nil, apperror.ValidationFailed("description", "comment text is required")
	}

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.CommentedBy != actor {
		return nil, apperror.Unauthorized("only the author can edit this comment")
	}

	comment.Description = text
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment; only its author may.
func (s *PostService) DeleteComment(ctx context.Context, actor, commentID string) error {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.CommentedBy != actor {
		return apperror.Unauthorized("only the author can delete this comment")
	}
	return s.comments.Delete(ctx, commentID)
}

// Comments lists a post's comments oldest-first.
func (s *PostService) Comments(ctx context.Context, postID string) ([]model.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, postID)
}

// UserComments lists one user's comments on a post.
func (s *PostService) UserComments(ctx context.Context, postID, username string) ([]model.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPostAndUser(ctx, postID, username)
}
