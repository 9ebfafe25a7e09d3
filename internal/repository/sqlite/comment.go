package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/model"
	"github.com/sociable/sociable/internal/repository"
)

var _ repository.CommentRepository = (*CommentDB)(nil)

func (db *CommentDB) Create(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, commented_by, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.PostID, comment.CommentedBy,
		comment.Description, comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment on %s: %w", comment.PostID, err)
	}
	return nil
}

func (db *CommentDB) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, post_id, commented_by, description, created_at, updated_at
		 FROM comments WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.PostID, &c.CommentedBy, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return &c, nil
}

func (db *CommentDB) Update(ctx context.Context, comment *model.Comment) error {
	comment.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE comments SET description = ?, updated_at = ? WHERE id = ?`,
		comment.Description, comment.UpdatedAt, comment.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", comment.ID, err)
	}
	return requireRowAffected(result, "comment", comment.ID)
}

func (db *CommentDB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	return requireRowAffected(result, "comment", id)
}

// ListByPost returns a post's comments oldest-first, joined with each
// commenter's profile.
func (db *CommentDB) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	return db.listComments(ctx,
		`SELECT c.id, c.post_id, c.commented_by, c.description, c.created_at, c.updated_at,
		        u.id, u.username, u.profile_picture
		 FROM comments c JOIN users u ON u.username = c.commented_by
		 WHERE c.post_id = ?
		 ORDER BY c.created_at ASC, c.id ASC`,
		postID,
	)
}

// ListByPostAndUser narrows ListByPost to one commenter.
func (db *CommentDB) ListByPostAndUser(ctx context.Context, postID, username string) ([]model.Comment, error) {
	return db.listComments(ctx,
		`SELECT c.id, c.post_id, c.commented_by, c.description, c.created_at, c.updated_at,
		        u.id, u.username, u.profile_picture
		 FROM comments c JOIN users u ON u.username = c.commented_by
		 WHERE c.post_id = ? AND c.commented_by = ?
		 ORDER BY c.created_at ASC, c.id ASC`,
		postID, username,
	)
}

func (db *CommentDB) listComments(ctx context.Context, query string, args ...any) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var (
			c model.Comment
			p model.Profile
		)
		if err := rows.Scan(
			&c.ID, &c.PostID, &c.CommentedBy, &c.Description, &c.CreatedAt, &c.UpdatedAt,
			&p.ID, &p.Username, &p.ProfilePicture,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		c.Commenter = &p
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}
