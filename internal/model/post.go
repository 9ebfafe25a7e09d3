package model

import "time"

// Post is a single piece of media published by a user.
//
// Image holds the CDN URL of the uploaded asset. A post row is only ever
// committed after the upload succeeded, so Image is never empty.
// Description is a pointer because "no caption" and "empty caption" are
// distinct to the frontend (the original schema has it nullable).
type Post struct {
	ID          string    `json:"postId"      db:"id"`
	AuthorName  string    `json:"authorName"  db:"author_name"`
	Image       string    `json:"image"       db:"image"`
	Description *string   `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`

	// Author is the public profile of the posting user, populated by feed
	// and single-post queries via a join. Nil elsewhere.
	Author *Profile `json:"author,omitempty" db:"-"`
}

// Like records that a user liked a post. The (LikedBy, PostID) pair is
// unique — at most one like per user per post, enforced by the storage
// layer and surfaced as a Conflict on duplicates.
type Like struct {
	LikedBy   string    `json:"likedByUsername" db:"liked_by"`
	PostID    string    `json:"postId"          db:"post_id"`
	CreatedAt time.Time `json:"createdAt"       db:"created_at"`

	Liker *Profile `json:"likedBy,omitempty" db:"-"`
}

// Comment is a user's comment on a post. Any authenticated user may
// comment; only the original commenter may update or delete it.
type Comment struct {
	ID          string    `json:"commentId"           db:"id"`
	PostID      string    `json:"postId"              db:"post_id"`
	CommentedBy string    `json:"commentedByUsername" db:"commented_by"`
	Description string    `json:"commentDescription"  db:"description"`
	CreatedAt   time.Time `json:"createdAt"           db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"           db:"updated_at"`

	Commenter *Profile `json:"commentedBy,omitempty" db:"-"`
}
