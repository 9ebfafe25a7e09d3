package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/model"
	"github.com/sociable/sociable/internal/repository"
)

var _ repository.PostRepository = (*PostDB)(nil)

// feedSelect joins the author's public profile onto each post, the shape
// every feed and single-post response uses.
const feedSelect = `SELECT p.id, p.author_name, p.image, p.description, p.created_at,
	       u.id, u.username, u.profile_picture
	FROM posts p JOIN users u ON u.username = p.author_name`

// feedOrder is the canonical feed ordering: newest first, id descending
// breaks same-timestamp ties deterministically (xids are time-ordered, so
// this also matches insertion order).
const feedOrder = ` ORDER BY p.created_at DESC, p.id DESC LIMIT ?`

func (db *PostDB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, author_name, image, description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		post.ID, post.AuthorName, post.Image, post.Description, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting post by %s: %w", post.AuthorName, err)
	}
	return nil
}

func (db *PostDB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx, feedSelect+` WHERE p.id = ?`, id)

	post, err := scanJoinedPost(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return post, nil
}

// ListByAuthors returns the feed page for the given author set. The
// cursor predicate reproduces "strictly after the cursor row" under the
// (created_at DESC, id DESC) ordering.
func (db *PostDB) ListByAuthors(ctx context.Context, authors []string, opts repository.FeedOptions) ([]model.Post, error) {
	if len(authors) == 0 {
		return []model.Post{}, nil
	}

	placeholders := strings.Repeat("?,", len(authors)-1) + "?"
	query := feedSelect + ` WHERE p.author_name IN (` + placeholders + `)`

	args := make([]any, 0, len(authors)+3)
	for _, a := range authors {
		args = append(args, a)
	}
	query, args = appendCursor(query, args, opts.After)
	args = append(args, opts.Limit)

	return db.queryPosts(ctx, query+feedOrder, args...)
}

// ListRecent is the empty-following fallback: the same page shape over
// all authors, the viewer's own posts included.
func (db *PostDB) ListRecent(ctx context.Context, opts repository.FeedOptions) ([]model.Post, error) {
	query := feedSelect + ` WHERE 1=1`
	args := []any{}
	query, args = appendCursor(query, args, opts.After)
	args = append(args, opts.Limit)

	return db.queryPosts(ctx, query+feedOrder, args...)
}

// ListByAuthor returns one author's posts oldest-first, the ordering the
// profile page renders.
func (db *PostDB) ListByAuthor(ctx context.Context, username string) ([]model.Post, error) {
	return db.queryPosts(ctx,
		feedSelect+` WHERE p.author_name = ? ORDER BY p.created_at ASC, p.id ASC`,
		username,
	)
}

// Update rewrites the mutable fields (image, description). Author and
// creation time are immutable.
func (db *PostDB) Update(ctx context.Context, post *model.Post) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE posts SET image = ?, description = ? WHERE id = ?`,
		post.Image, post.Description, post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}
	return requireRowAffected(result, "post", post.ID)
}

// Delete removes the post; likes and comments go with it via
// ON DELETE CASCADE.
func (db *PostDB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	return requireRowAffected(result, "post", id)
}

// appendCursor adds the strictly-after predicate for a resumed page.
func appendCursor(query string, args []any, after *repository.Cursor) (string, []any) {
	if after == nil {
		return query, args
	}
	query += ` AND (p.created_at < ? OR (p.created_at = ? AND p.id < ?))`
	args = append(args, after.CreatedAt, after.CreatedAt, after.ID)
	return query, args
}

func (db *PostDB) queryPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		post, err := scanJoinedPost(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

// scanJoinedPost reads a post+author row from either a *sql.Row or
// *sql.Rows scan function.
func scanJoinedPost(scan func(...any) error) (*model.Post, error) {
	var (
		p           model.Post
		author      model.Profile
		description sql.NullString
	)
	if err := scan(
		&p.ID, &p.AuthorName, &p.Image, &description, &p.CreatedAt,
		&author.ID, &author.Username, &author.ProfilePicture,
	); err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	p.Author = &author
	return &p, nil
}
