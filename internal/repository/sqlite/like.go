package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/model"
	"github.com/sociable/sociable/internal/repository"
)

var _ repository.LikeRepository = (*LikeDB)(nil)

// Create records a like. The UNIQUE (liked_by, post_id) pair makes a
// second like by the same user a Conflict.
func (db *LikeDB) Create(ctx context.Context, like *model.Like) error {
	like.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO likes (liked_by, post_id, created_at) VALUES (?, ?, ?)`,
		like.LikedBy, like.PostID, like.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("already liked this post")
		}
		return fmt.Errorf("sqlite: inserting like %s/%s: %w", like.LikedBy, like.PostID, err)
	}
	return nil
}

// Delete unlikes. Unliking a post that was never liked is NotFound.
func (db *LikeDB) Delete(ctx context.Context, likedBy, postID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM likes WHERE liked_by = ? AND post_id = ?`,
		likedBy, postID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting like %s/%s: %w", likedBy, postID, err)
	}
	return requireRowAffected(result, "like", likedBy+"/"+postID)
}

func (db *LikeDB) Get(ctx context.Context, likedBy, postID string) (*model.Like, error) {
	var like model.Like
	err := db.conn.QueryRowContext(ctx,
		`SELECT liked_by, post_id, created_at FROM likes
		 WHERE liked_by = ? AND post_id = ?`,
		likedBy, postID,
	).Scan(&like.LikedBy, &like.PostID, &like.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("like", likedBy+"/"+postID)
		}
		return nil, fmt.Errorf("sqlite: getting like %s/%s: %w", likedBy, postID, err)
	}
	return &like, nil
}

// ListByPost returns a post's likes joined with each liker's profile.
func (db *LikeDB) ListByPost(ctx context.Context, postID string) ([]model.Like, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT l.liked_by, l.post_id, l.created_at,
		        u.id, u.username, u.profile_picture
		 FROM likes l JOIN users u ON u.username = l.liked_by
		 WHERE l.post_id = ?
		 ORDER BY l.created_at DESC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing likes of %s: %w", postID, err)
	}
	defer rows.Close()

	likes := []model.Like{}
	for rows.Next() {
		var (
			l model.Like
			p model.Profile
		)
		if err := rows.Scan(
			&l.LikedBy, &l.PostID, &l.CreatedAt,
			&p.ID, &p.Username, &p.ProfilePicture,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning like row: %w", err)
		}
		l.Liker = &p
		likes = append(likes, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating likes: %w", err)
	}
	return likes, nil
}
