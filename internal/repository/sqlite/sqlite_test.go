package sqlite

import (
	"context"
	"testing"

	"github.com/sociable/sociable/internal/model"
)

// newTestDB returns a fresh in-memory database per test. ":memory:" costs
// nothing to create and disappears when the connection closes, so every
// test is fully isolated.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a verified user with derived email/password.
func createTestUser(t *testing.T, users *UserDB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   "$2a$04$fakehashfortesting",
		ProfilePicture: "https://cdn.example.com/default.png",
		IsVerified:     true,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user %s: %v", username, err)
	}
	return user
}

// createTestPost inserts a post by author and returns it.
func createTestPost(t *testing.T, posts *PostDB, author, image string) *model.Post {
	t.Helper()
	post := &model.Post{AuthorName: author, Image: image}
	if err := posts.Create(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post for %s: %v", author, err)
	}
	return post
}

// follow creates an edge and fails the test on error.
func follow(t *testing.T, follows *FollowDB, by, target string) {
	t.Helper()
	if err := follows.Create(context.Background(), &model.Follow{
		FollowedBy: by,
		Following:  target,
	}); err != nil {
		t.Fatalf("failed to follow %s -> %s: %v", by, target, err)
	}
}
