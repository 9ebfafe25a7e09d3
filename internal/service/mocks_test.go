package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/model"
	"github.com/sociable/sociable/internal/repository"
)

// ---------------------------------------------------------------------------
// In-memory repository fakes. They reproduce the contract the sqlite layer
// implements (Conflict on duplicates, NotFound on missing rows) so the
// services under test see the same error taxonomy.
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	users  map[string]*model.User // keyed by id
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*model.User{}}
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperror.Conflict("username is taken")
		}
		if u.Email == user.Email {
			return apperror.Conflict("user with this email already exists")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) find(match func(*model.User) bool, resource, key string) (*model.User, error) {
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound(resource, key)
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id }, "user", id)
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == username }, "user", username)
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email }, "user", email)
}

func (m *mockUserRepo) GetByVerifyToken(_ context.Context, token string) (*model.User, error) {
	return m.find(func(u *model.User) bool {
		return u.VerifyToken != nil && *u.VerifyToken == token
	}, "verification token", token)
}

func (m *mockUserRepo) GetByResetToken(_ context.Context, token string) (*model.User, error) {
	return m.find(func(u *model.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token
	}, "reset token", token)
}

func (m *mockUserRepo) SearchByUsername(_ context.Context, fragment string) ([]model.Profile, error) {
	profiles := []model.Profile{}
	for _, u := range m.users {
		if strings.Contains(u.Username, fragment) {
			profiles = append(profiles, u.Profile())
		}
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Username < profiles[j].Username })
	return profiles, nil
}

func (m *mockUserRepo) ProfilesByUsernames(_ context.Context, usernames []string) ([]model.Profile, error) {
	wanted := map[string]bool{}
	for _, name := range usernames {
		wanted[name] = true
	}
	profiles := []model.Profile{}
	for _, u := range m.users {
		if wanted[u.Username] {
			profiles = append(profiles, u.Profile())
		}
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Username < profiles[j].Username })
	return profiles, nil
}

func (m *mockUserRepo) byUsername(username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockUserRepo) UpdateUsername(_ context.Context, username, newUsername string) error {
	for _, u := range m.users {
		if u.Username == newUsername {
			return apperror.Conflict(newUsername + " is already taken")
		}
	}
	u, err := m.byUsername(username)
	if err != nil {
		return err
	}
	u.Username = newUsername
	return nil
}

func (m *mockUserRepo) UpdateEmail(_ context.Context, username, newEmail string) error {
	for _, u := range m.users {
		if u.Email == newEmail {
			return apperror.Conflict(newEmail + " is already taken")
		}
	}
	u, err := m.byUsername(username)
	if err != nil {
		return err
	}
	u.Email = newEmail
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, username, passwordHash string) error {
	u, err := m.byUsername(username)
	if err != nil {
		return err
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) UpdateProfilePicture(_ context.Context, username, pictureURL string) error {
	u, err := m.byUsername(username)
	if err != nil {
		return err
	}
	u.ProfilePicture = pictureURL
	return nil
}

func (m *mockUserRepo) SetVerifyToken(_ context.Context, userID, token string, expiry time.Time) error {
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.VerifyToken = &token
	e := expiry
	u.VerifyExpiry = &e
	return nil
}

func (m *mockUserRepo) MarkVerified(_ context.Context, userID string) error {
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.IsVerified = true
	u.VerifyToken = nil
	u.VerifyExpiry = nil
	return nil
}

func (m *mockUserRepo) SetResetToken(_ context.Context, userID, token string, expiry time.Time) error {
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.ResetToken = &token
	e := expiry
	u.ResetExpiry = &e
	return nil
}

func (m *mockUserRepo) ResetPassword(_ context.Context, userID, passwordHash string) error {
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.PasswordHash = passwordHash
	u.ResetToken = nil
	u.ResetExpiry = nil
	return nil
}

type mockFollowRepo struct {
	edges []model.Follow
}

var _ repository.FollowRepository = (*mockFollowRepo)(nil)

func (m *mockFollowRepo) Create(_ context.Context, follow *model.Follow) error {
	for _, e := range m.edges {
		if e.FollowedBy == follow.FollowedBy && e.Following == follow.Following {
			return apperror.Conflict("already following " + follow.Following)
		}
	}
	follow.ID = fmt.Sprintf("follow-%d", len(m.edges)+1)
	follow.CreatedAt = time.Now()
	m.edges = append(m.edges, *follow)
	return nil
}

func (m *mockFollowRepo) Delete(_ context.Context, followedBy, following string) error {
	for i, e := range m.edges {
		if e.FollowedBy == followedBy && e.Following == following {
			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("follow", followedBy+" -> "+following)
}

func (m *mockFollowRepo) Following(_ context.Context, username string) ([]string, error) {
	following := []string{}
	for _, e := range m.edges {
		if e.FollowedBy == username {
			following = append(following, e.Following)
		}
	}
	sort.Strings(following)
	return following, nil
}

func (m *mockFollowRepo) FollowersOf(_ context.Context, username string) ([]model.Follow, error) {
	edges := []model.Follow{}
	for _, e := range m.edges {
		if e.Following == username {
			edges = append(edges, e)
		}
	}
	return edges, nil
}

func (m *mockFollowRepo) FollowingOf(_ context.Context, username string) ([]model.Follow, error) {
	edges := []model.Follow{}
	for _, e := range m.edges {
		if e.FollowedBy == username {
			edges = append(edges, e)
		}
	}
	return edges, nil
}

type mockPostRepo struct {
	posts  []model.Post // newest last, like insertion order
	nextID int
}

var _ repository.PostRepository = (*mockPostRepo)(nil)

func (m *mockPostRepo) Create(_ context.Context, post *model.Post) error {
	m.nextID++
	post.ID = fmt.Sprintf("post-%02d", m.nextID)
	post.CreatedAt = time.Now()
	m.posts = append(m.posts, *post)
	return nil
}

func (m *mockPostRepo) GetByID(_ context.Context, id string) (*model.Post, error) {
	for _, p := range m.posts {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("post", id)
}

// page applies the newest-first ordering, cursor, and limit the sqlite
// layer implements.
func (m *mockPostRepo) page(filter func(model.Post) bool, opts repository.FeedOptions) []model.Post {
	page := []model.Post{}
	started := opts.After == nil
	for i := len(m.posts) - 1; i >= 0 && len(page) < opts.Limit; i-- {
		p := m.posts[i]
		if !started {
			if p.ID == opts.After.ID {
				started = true
			}
			continue
		}
		if filter(p) {
			page = append(page, p)
		}
	}
	return page
}

func (m *mockPostRepo) ListByAuthors(_ context.Context, authors []string, opts repository.FeedOptions) ([]model.Post, error) {
	set := map[string]bool{}
	for _, a := range authors {
		set[a] = true
	}
	return m.page(func(p model.Post) bool { return set[p.AuthorName] }, opts), nil
}

func (m *mockPostRepo) ListRecent(_ context.Context, opts repository.FeedOptions) ([]model.Post, error) {
	return m.page(func(model.Post) bool { return true }, opts), nil
}

func (m *mockPostRepo) ListByAuthor(_ context.Context, username string) ([]model.Post, error) {
	posts := []model.Post{}
	for _, p := range m.posts {
		if p.AuthorName == username {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (m *mockPostRepo) Update(_ context.Context, post *model.Post) error {
	for i, p := range m.posts {
		if p.ID == post.ID {
			m.posts[i].Image = post.Image
			m.posts[i].Description = post.Description
			return nil
		}
	}
	return apperror.NotFound("post", post.ID)
}

func (m *mockPostRepo) Delete(_ context.Context, id string) error {
	for i, p := range m.posts {
		if p.ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("post", id)
}

type mockLikeRepo struct {
	likes []model.Like
}

var _ repository.LikeRepository = (*mockLikeRepo)(nil)

func (m *mockLikeRepo) Create(_ context.Context, like *model.Like) error {
	for _, l := range m.likes {
		if l.LikedBy == like.LikedBy && l.PostID == like.PostID {
			return apperror.Conflict("already liked this post")
		}
	}
	like.CreatedAt = time.Now()
	m.likes = append(m.likes, *like)
	return nil
}

func (m *mockLikeRepo) Delete(_ context.Context, likedBy, postID string) error {
	for i, l := range m.likes {
		if l.LikedBy == likedBy && l.PostID == postID {
			m.likes = append(m.likes[:i], m.likes[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("like", likedBy+"/"+postID)
}

func (m *mockLikeRepo) Get(_ context.Context, likedBy, postID string) (*model.Like, error) {
	for _, l := range m.likes {
		if l.LikedBy == likedBy && l.PostID == postID {
			cp := l
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("like", likedBy+"/"+postID)
}

func (m *mockLikeRepo) ListByPost(_ context.Context, postID string) ([]model.Like, error) {
	likes := []model.Like{}
	for _, l := range m.likes {
		if l.PostID == postID {
			likes = append(likes, l)
		}
	}
	return likes, nil
}

type mockCommentRepo struct {
	comments []model.Comment
	nextID   int
}

var _ repository.CommentRepository = (*mockCommentRepo)(nil)

func (m *mockCommentRepo) Create(_ context.Context, comment *model.Comment) error {
	m.nextID++
	comment.ID = fmt.Sprintf("comment-%d", m.nextID)
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	m.comments = append(m.comments, *comment)
	return nil
}

func (m *mockCommentRepo) GetByID(_ context.Context, id string) (*model.Comment, error) {
	for _, c := range m.comments {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("comment", id)
}

func (m *mockCommentRepo) Update(_ context.Context, comment *model.Comment) error {
	for i, c := range m.comments {
		if c.ID == comment.ID {
			m.comments[i].Description = comment.Description
			m.comments[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return apperror.NotFound("comment", comment.ID)
}

func (m *mockCommentRepo) Delete(_ context.Context, id string) error {
	for i, c := range m.comments {
		if c.ID == id {
			m.comments = append(m.comments[:i], m.comments[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("comment", id)
}

func (m *mockCommentRepo) ListByPost(_ context.Context, postID string) ([]model.Comment, error) {
	comments := []model.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

func (m *mockCommentRepo) ListByPostAndUser(_ context.Context, postID, username string) ([]model.Comment, error) {
	comments := []model.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID && c.CommentedBy == username {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

// ---------------------------------------------------------------------------
// Collaborator fakes
// ---------------------------------------------------------------------------

type mockMediaStore struct {
	uploads   []string // local paths uploaded
	deletes   []string // urls deleted
	uploadErr error
	deleteErr error
}

func (m *mockMediaStore) Upload(_ context.Context, localPath, folder string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploads = append(m.uploads, localPath)
	return "https://media.test/" + folder + "/" + localPath, nil
}

func (m *mockMediaStore) Delete(_ context.Context, url string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletes = append(m.deletes, url)
	return nil
}

type sentMail struct {
	kind, to, username, link string
}

type mockMailer struct {
	sent    []sentMail
	sendErr error
}

func (m *mockMailer) SendVerification(_ context.Context, to, username, link string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{kind: "verify", to: to, username: username, link: link})
	return nil
}

func (m *mockMailer) SendPasswordReset(_ context.Context, to, username, link string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{kind: "reset", to: to, username: username, link: link})
	return nil
}
