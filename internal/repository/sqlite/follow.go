package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/model"
	"github.com/sociable/sociable/internal/repository"
)

var _ repository.FollowRepository = (*FollowDB)(nil)

// Create inserts a follow edge. The UNIQUE (followed_by, following)
// constraint turns a duplicate follow into ErrConflict; the service layer
// has already rejected self-follows and missing targets.
func (db *FollowDB) Create(ctx context.Context, follow *model.Follow) error {
	follow.ID = xid.New().String()
	follow.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO follows (id, followed_by, following, created_at)
		 VALUES (?, ?, ?, ?)`,
		follow.ID, follow.FollowedBy, follow.Following, follow.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(
				fmt.Sprintf("already following %s", follow.Following))
		}
		return fmt.Errorf("sqlite: inserting follow %s -> %s: %w",
			follow.FollowedBy, follow.Following, err)
	}
	return nil
}

// Delete removes the edge. Zero rows affected means the caller never
// followed the target, reported as NotFound.
func (db *FollowDB) Delete(ctx context.Context, followedBy, following string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM follows WHERE followed_by = ? AND following = ?`,
		followedBy, following,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting follow %s -> %s: %w", followedBy, following, err)
	}
	return requireRowAffected(result, "follow", followedBy+" -> "+following)
}

// Following returns the usernames the given user follows. An empty result
// is a valid answer; the caller decides whether the user itself exists.
func (db *FollowDB) Following(ctx context.Context, username string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT following FROM follows WHERE followed_by = ? ORDER BY following`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing following of %s: %w", username, err)
	}
	defer rows.Close()

	following := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning follow row: %w", err)
		}
		following = append(following, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating follows: %w", err)
	}
	return following, nil
}

// FollowersOf lists the edges pointing at username, each joined with the
// follower's public profile for the profile page.
func (db *FollowDB) FollowersOf(ctx context.Context, username string) ([]model.Follow, error) {
	return db.listFollows(ctx,
		`SELECT f.id, f.followed_by, f.following, f.created_at,
		        u.id, u.username, u.profile_picture
		 FROM follows f JOIN users u ON u.username = f.followed_by
		 WHERE f.following = ?
		 ORDER BY f.created_at DESC`,
		username,
	)
}

// FollowingOf lists the edges originating at username, joined with the
// followee's public profile.
func (db *FollowDB) FollowingOf(ctx context.Context, username string) ([]model.Follow, error) {
	return db.listFollows(ctx,
		`SELECT f.id, f.followed_by, f.following, f.created_at,
		        u.id, u.username, u.profile_picture
		 FROM follows f JOIN users u ON u.username = f.following
		 WHERE f.followed_by = ?
		 ORDER BY f.created_at DESC`,
		username,
	)
}

func (db *FollowDB) listFollows(ctx context.Context, query, username string) ([]model.Follow, error) {
	rows, err := db.conn.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing follow edges of %s: %w", username, err)
	}
	defer rows.Close()

	follows := []model.Follow{}
	for rows.Next() {
		var (
			f model.Follow
			p model.Profile
		)
		if err := rows.Scan(
			&f.ID, &f.FollowedBy, &f.Following, &f.CreatedAt,
			&p.ID, &p.Username, &p.ProfilePicture,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning follow edge: %w", err)
		}
		f.Counterpart = &p
		follows = append(follows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating follow edges: %w", err)
	}
	return follows, nil
}
