package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/model"
)

func TestFollowCreateAndList(t *testing.T) {
	db := newTestDB(t)
	users := db.Users()
	follows := db.Follows()
	ctx := context.Background()

	createTestUser(t, users, "alice")
	createTestUser(t, users, "bob")
	createTestUser(t, users, "carol")

	follow(t, follows, "alice", "bob")
	follow(t, follows, "alice", "carol")
	follow(t, follows, "bob", "carol")

	following, err := follows.Following(ctx, "alice")
	if err != nil {
		t.Fatalf("Following failed: %v", err)
	}
	if len(following) != 2 || following[0] != "bob" || following[1] != "carol" {
		t.Errorf("alice follows %v, want [bob carol]", following)
	}

	followers, err := follows.FollowersOf(ctx, "carol")
	if err != nil {
		t.Fatalf("FollowersOf failed: %v", err)
	}
	if len(followers) != 2 {
		t.Fatalf("carol has %d followers, want 2", len(followers))
	}
	for _, f := range followers {
		if f.Counterpart == nil {
			t.Fatal("expected follower profile to be joined")
		}
		if f.Counterpart.Username != f.FollowedBy {
			t.Errorf("joined profile %q does not match edge %q",
				f.Counterpart.Username, f.FollowedBy)
		}
	}

	edges, err := follows.FollowingOf(ctx, "alice")
	if err != nil {
		t.Fatalf("FollowingOf failed: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("alice has %d outgoing edges, want 2", len(edges))
	}
	for _, f := range edges {
		if f.Counterpart == nil || f.Counterpart.Username != f.Following {
			t.Errorf("joined profile does not match followee on edge %+v", f)
		}
	}
}

func TestFollowDuplicate(t *testing.T) {
	db := newTestDB(t)
	follows := db.Follows()

	createTestUser(t, db.Users(), "alice")
	createTestUser(t, db.Users(), "bob")
	follow(t, follows, "alice", "bob")

	err := follows.Create(context.Background(), &model.Follow{
		FollowedBy: "alice",
		Following:  "bob",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestFollowDelete(t *testing.T) {
	db := newTestDB(t)
	follows := db.Follows()
	ctx := context.Background()

	createTestUser(t, db.Users(), "alice")
	createTestUser(t, db.Users(), "bob")
	follow(t, follows, "alice", "bob")

	if err := follows.Delete(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	following, err := follows.Following(ctx, "alice")
	if err != nil {
		t.Fatalf("Following failed: %v", err)
	}
	if len(following) != 0 {
		t.Errorf("edge not removed: %v", following)
	}

	// deleting again is NotFound, not a silent no-op
	if err := follows.Delete(ctx, "alice", "bob"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFollowingEmpty(t *testing.T) {
	db := newTestDB(t)

	createTestUser(t, db.Users(), "loner")

	following, err := db.Follows().Following(context.Background(), "loner")
	if err != nil {
		t.Fatalf("Following failed: %v", err)
	}
	if following == nil || len(following) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", following)
	}
}
