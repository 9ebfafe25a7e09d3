package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sociable/sociable/internal/apperror"
)

type postFixture struct {
	svc      *PostService
	posts    *mockPostRepo
	likes    *mockLikeRepo
	comments *mockCommentRepo
	media    *mockMediaStore
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	f := &postFixture{
		posts:    &mockPostRepo{},
		likes:    &mockLikeRepo{},
		comments: &mockCommentRepo{},
		media:    &mockMediaStore{},
	}
	f.svc = NewPostService(f.posts, f.likes, f.comments, f.media, discardLogger())
	return f
}

func TestPostCreate(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	desc := "first post"
	post, err := f.svc.Create(ctx, "alice", "photo.jpg", &desc)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if post.ID == "" {
		t.Error("post has no id")
	}
	if len(f.media.uploads) != 1 || f.media.uploads[0] != "photo.jpg" {
		t.Errorf("uploads = %v", f.media.uploads)
	}
	if post.Image == "" {
		t.Error("post image url not set from upload")
	}
}

func TestPostCreateUploadFails(t *testing.T) {
	f := newPostFixture(t)
	f.media.uploadErr = apperror.Upstream("uploading image", errors.New("cdn down"))

	_, err := f.svc.Create(context.Background(), "alice", "photo.jpg", nil)
	if !errors.Is(err, apperror.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	// nothing persisted when the upload never happened
	if len(f.posts.posts) != 0 {
		t.Errorf("post persisted despite upload failure")
	}
}

func TestPostGetDetail(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, "alice", "photo.jpg", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := f.svc.Like(ctx, "bob", post.ID); err != nil {
		t.Fatalf("Like failed: %v", err)
	}
	if _, err := f.svc.CreateComment(ctx, "bob", post.ID, "nice"); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	detail, err := f.svc.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if detail.Post.ID != post.ID || len(detail.Likes) != 1 || len(detail.Comments) != 1 {
		t.Errorf("detail = %+v", detail)
	}

	if _, err := f.svc.Get(ctx, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing post: expected ErrNotFound, got %v", err)
	}
}

func TestPostUpdateOwnership(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, "alice", "photo.jpg", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := f.svc.Update(ctx, "mallory", post.ID, "", nil); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("foreign edit: expected ErrUnauthorized, got %v", err)
	}

	desc := "edited"
	updated, err := f.svc.Update(ctx, "alice", post.ID, "", &desc)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Description == nil || *updated.Description != "edited" {
		t.Errorf("description = %v", updated.Description)
	}
	// no new image: the old one must survive
	if len(f.media.deletes) != 0 {
		t.Errorf("image deleted on description-only edit: %v", f.media.deletes)
	}
}

func TestPostUpdateReplacesImage(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, "alice", "old.jpg", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	oldURL := post.Image

	updated, err := f.svc.Update(ctx, "alice", post.ID, "new.jpg", nil)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Image == oldURL {
		t.Error("image url unchanged after replacement")
	}
	if len(f.media.deletes) != 1 || f.media.deletes[0] != oldURL {
		t.Errorf("old image not deleted: %v", f.media.deletes)
	}
}

func TestPostDelete(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, "alice", "photo.jpg", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := f.svc.Delete(ctx, "mallory", post.ID); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("foreign delete: expected ErrUnauthorized, got %v", err)
	}

	if err := f.svc.Delete(ctx, "alice", post.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(f.media.deletes) != 1 || f.media.deletes[0] != post.Image {
		t.Errorf("post image not deleted: %v", f.media.deletes)
	}
	if _, err := f.svc.Get(ctx, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("post survived delete: %v", err)
	}
}

func TestPostDeleteSurvivesMediaFailure(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, "alice", "photo.jpg", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// the row wins: a media failure must not resurrect the post
	f.media.deleteErr = errors.New("cdn down")
	if err := f.svc.Delete(ctx, "alice", post.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := f.svc.Get(ctx, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("post survived delete: %v", err)
	}
}

func TestLikeUnlike(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, "alice", "photo.jpg", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := f.svc.Like(ctx, "bob", "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("liking missing post: expected ErrNotFound, got %v", err)
	}

	if err := f.svc.Like(ctx, "bob", post.ID); err != nil {
		t.Fatalf("Like failed: %v", err)
	}
	if err := f.svc.Like(ctx, "bob", post.ID); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("double like: expected ErrConflict, got %v", err)
	}

	like, err := f.svc.GetLike(ctx, "bob", post.ID)
	if err != nil {
		t.Fatalf("GetLike failed: %v", err)
	}
	if like.LikedBy != "bob" {
		t.Errorf("like = %+v", like)
	}

	likes, err := f.svc.Likes(ctx, post.ID)
	if err != nil {
		t.Fatalf("Likes failed: %v", err)
	}
	if len(likes) != 1 {
		t.Errorf("likes = %d, want 1", len(likes))
	}

	if err := f.svc.Unlike(ctx, "bob", post.ID); err != nil {
		t.Fatalf("Unlike failed: %v", err)
	}
	if err := f.svc.Unlike(ctx, "bob", post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("double unlike: expected ErrNotFound, got %v", err)
	}
}

func TestComments(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.svc.Create(ctx, "alice", "photo.jpg", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := f.svc.CreateComment(ctx, "bob", post.ID, ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty comment: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.CreateComment(ctx, "bob", "ghost", "hi"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("comment on missing post: expected ErrNotFound, got %v", err)
	}

	comment, err := f.svc.CreateComment(ctx, "bob", post.ID, "first!")
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if _, err := f.svc.CreateComment(ctx, "alice", post.ID, "thanks"); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	// ownership on edit and delete
	if _, err := f.svc.UpdateComment(ctx, "alice", comment.ID, "hijacked"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("foreign edit: expected ErrUnauthorized, got %v", err)
	}
	if err := f.svc.DeleteComment(ctx, "alice", comment.ID); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("foreign delete: expected ErrUnauthorized, got %v", err)
	}

	updated, err := f.svc.UpdateComment(ctx, "bob", comment.ID, "first, edited")
	if err != nil {
		t.Fatalf("UpdateComment failed: %v", err)
	}
	if updated.Description != "first, edited" {
		t.Errorf("description = %q", updated.Description)
	}

	all, err := f.svc.Comments(ctx, post.ID)
	if err != nil {
		t.Fatalf("Comments failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("comments = %d, want 2", len(all))
	}

	mine, err := f.svc.UserComments(ctx, post.ID, "bob")
	if err != nil {
		t.Fatalf("UserComments failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != comment.ID {
		t.Errorf("user comments = %+v", mine)
	}

	if err := f.svc.DeleteComment(ctx, "bob", comment.ID); err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}
	if _, err := f.svc.UpdateComment(ctx, "bob", comment.ID, "gone"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("deleted comment: expected ErrNotFound, got %v", err)
	}
}
