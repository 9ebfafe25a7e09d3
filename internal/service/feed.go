package service

import (
	"context"
	"log/slog"

	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/model"
	"github.com/sociable/sociable/internal/repository"
)

// DefaultFeedLimit is the page size when the client sends no limit or an
// unusable one.
const DefaultFeedLimit = 7

// FeedService assembles the home timeline.
type FeedService struct {
	posts   repository.PostRepository
	follows repository.FollowRepository
	logger  *slog.Logger
}

func NewFeedService(posts repository.PostRepository, follows repository.FollowRepository, logger *slog.Logger) *FeedService {
	return &FeedService{posts: posts, follows: follows, logger: logger}
}

// FeedPage is one page of the timeline. NextCursor is the id of the last
// post when the page came back full, nil when this is the final page.
type FeedPage struct {
	Posts      []model.Post `json:"posts"`
	NextCursor *string      `json:"nextCursor"`
}

// GetFeed returns a reverse-chronological page of posts by the accounts
// the viewer follows. A viewer who follows nobody sees the global
// most-recent posts instead, their own included.
//
// cursorID resumes a previous page strictly after that post; an unknown
// cursor is a validation error. limit <= 0 falls back to
// DefaultFeedLimit.
func (s *FeedService) GetFeed(ctx context.Context, viewer string, limit int, cursorID string) (*FeedPage, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}

	opts := repository.FeedOptions{Limit: limit}
	if cursorID != "" {
		row, err := s.posts.GetByID(ctx, cursorID)
		if err != nil {
			return nil, apperror.ValidationFailed("cursor", "unknown feed cursor")
		}
		opts.After = &repository.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	}

	following, err := s.follows.Following(ctx, viewer)
	if err != nil {
		return nil, err
	}

	var posts []model.Post
	if len(following) == 0 {
		posts, err = s.posts.ListRecent(ctx, opts)
	} else {
		posts, err = s.posts.ListByAuthors(ctx, following, opts)
	}
	if err != nil {
		return nil, err
	}

	page := &FeedPage{Posts: posts}
	// A full page may still be the last one; the client finds out on the
	// next request, which comes back short.
	if len(posts) == limit {
		last := posts[len(posts)-1].ID
		page.NextCursor = &last
	}

	s.logger.Debug("feed assembled",
		slog.String("viewer", viewer),
		slog.Int("posts", len(posts)),
		slog.Bool("fallback", len(following) == 0))
	return page, nil
}
