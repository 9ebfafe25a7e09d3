package service

import (
	"context"
	"log/slog"

	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/model"
	"github.com/sociable/sociable/internal/repository"
)

// GraphService manages the follow graph.
type GraphService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	logger  *slog.Logger
}

func NewGraphService(follows repository.FollowRepository, users repository.UserRepository, logger *slog.Logger) *GraphService {
	return &GraphService{follows: follows, users: users, logger: logger}
}

// Follow adds an edge from follower to target. Following yourself is a
// validation error, a missing target is NotFound, a repeated follow is
// Conflict.
func (s *GraphService) Follow(ctx context.Context, follower, target string) error {
	if follower == target {
		return apperror.ValidationFailed("username", "you cannot follow yourself")
	}
	if _, err := s.users.GetByUsername(ctx, target); err != nil {
		return err
	}

	if err := s.follows.Create(ctx, &model.Follow{
		FollowedBy: follower,
		Following:  target,
	}); err != nil {
		return err
	}

	s.logger.Info("follow created",
		slog.String("follower", follower), slog.String("target", target))
	return nil
}

// Unfollow removes the edge. Unfollowing someone never followed is
// NotFound.
func (s *GraphService) Unfollow(ctx context.Context, follower, target string) error {
	if err := s.follows.Delete(ctx, follower, target); err != nil {
		return err
	}

	s.logger.Info("follow removed",
		slog.String("follower", follower), slog.String("target", target))
	return nil
}

// Following returns the distinct usernames the user follows. An empty
// list is a valid answer; an unknown user is NotFound.
func (s *GraphService) Following(ctx context.Context, username string) ([]string, error) {
	if _, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, err
	}
	return s.follows.Following(ctx, username)
}

// Suggestions returns the profiles of the accounts the user follows, the
// payload behind the who-to-interact-with sidebar.
func (s *GraphService) Suggestions(ctx context.Context, username string) ([]model.Profile, error) {
	following, err := s.follows.Following(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.users.ProfilesByUsernames(ctx, following)
}
