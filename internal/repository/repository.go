// Package repository declares the persistence gateway interfaces.
//
// Services program against these interfaces; the sqlite subpackage is the
// concrete implementation and tests substitute in-memory mocks. Every
// implementation translates storage-level failures into the apperror
// taxonomy: unique-constraint violations become ErrConflict, missing rows
// become ErrNotFound. Raw driver errors never cross this boundary.
package repository

import (
	"context"
	"time"

	"github.com/sociable/sociable/internal/model"
)

// Cursor points at the last row a feed page returned. Continuation is
// strictly after this row in (created_at DESC, id DESC) order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// FeedOptions bounds a feed query. A nil After means "from the top".
type FeedOptions struct {
	Limit int
	After *Cursor
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByVerifyToken(ctx context.Context, token string) (*model.User, error)
	GetByResetToken(ctx context.Context, token string) (*model.User, error)
	SearchByUsername(ctx context.Context, fragment string) ([]model.Profile, error)
	ProfilesByUsernames(ctx context.Context, usernames []string) ([]model.Profile, error)

	UpdateUsername(ctx context.Context, username, newUsername string) error
	UpdateEmail(ctx context.Context, username, newEmail string) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	UpdateProfilePicture(ctx context.Context, username, pictureURL string) error

	// SetVerifyToken replaces any outstanding verification token.
	SetVerifyToken(ctx context.Context, userID, token string, expiry time.Time) error
	// MarkVerified clears the verification token pair and sets the flag,
	// making the consumed token unusable.
	MarkVerified(ctx context.Context, userID string) error
	SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error
	// ResetPassword stores the new hash and clears the reset token pair in
	// the same statement.
	ResetPassword(ctx context.Context, userID, passwordHash string) error
}

type FollowRepository interface {
	Create(ctx context.Context, follow *model.Follow) error
	Delete(ctx context.Context, followedBy, following string) error
	// Following returns the distinct usernames the user follows. An empty
	// slice is a valid result and distinct from "user not found", which
	// callers check separately against UserRepository.
	Following(ctx context.Context, username string) ([]string, error)
	FollowersOf(ctx context.Context, username string) ([]model.Follow, error)
	FollowingOf(ctx context.Context, username string) ([]model.Follow, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	// ListByAuthors returns posts by any of the given authors, newest
	// first, id descending as tie-break, at most opts.Limit rows.
	ListByAuthors(ctx context.Context, authors []string, opts FeedOptions) ([]model.Post, error)
	// ListRecent is the follow-nobody fallback: the same ordering over all
	// authors, the viewer's own posts included.
	ListRecent(ctx context.Context, opts FeedOptions) ([]model.Post, error)
	// ListByAuthor returns one author's posts, oldest first.
	ListByAuthor(ctx context.Context, username string) ([]model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
}

type LikeRepository interface {
	Create(ctx context.Context, like *model.Like) error
	Delete(ctx context.Context, likedBy, postID string) error
	Get(ctx context.Context, likedBy, postID string) (*model.Like, error)
	ListByPost(ctx context.Context, postID string) ([]model.Like, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	Update(ctx context.Context, comment *model.Comment) error
	Delete(ctx context.Context, id string) error
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
	ListByPostAndUser(ctx context.Context, postID, username string) ([]model.Comment, error)
}
