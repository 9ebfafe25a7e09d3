package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/auth"
	"github.com/sociable/sociable/internal/mailer"
	"github.com/sociable/sociable/internal/media"
	"github.com/sociable/sociable/internal/model"
	"github.com/sociable/sociable/internal/repository"
)

const avatarFolder = "sociable/avatars"

// AccountService owns the account lifecycle: signup, sign-in, email
// verification, password reset, and profile maintenance.
type AccountService struct {
	users         repository.UserRepository
	follows       repository.FollowRepository
	posts         repository.PostRepository
	passwords     *auth.PasswordService
	tokens        *auth.TokenService
	mail          mailer.Mailer
	media         media.Store
	validate      *validator.Validate
	logger        *slog.Logger
	publicOrigin  string
	defaultAvatar string
}

func NewAccountService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	posts repository.PostRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	mail mailer.Mailer,
	mediaStore media.Store,
	logger *slog.Logger,
	publicOrigin, defaultAvatar string,
) *AccountService {
	return &AccountService{
		users:         users,
		follows:       follows,
		posts:         posts,
		passwords:     passwords,
		tokens:        tokens,
		mail:          mail,
		media:         mediaStore,
		validate:      newValidator(),
		logger:        logger,
		publicOrigin:  publicOrigin,
		defaultAvatar: defaultAvatar,
	}
}

type SignUpInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignUp creates an unverified account and emails a verification link.
// A mail failure is logged but does not roll the account back; sign-in
// re-issues the link.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (*model.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   hash,
		ProfilePicture: s.defaultAvatar,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.issueVerification(ctx, user); err != nil {
		s.logger.Error("sending verification mail failed",
			slog.String("username", user.Username),
			slog.Any("error", err))
	}

	s.logger.Info("account created", slog.String("username", user.Username))
	return user, nil
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignIn verifies the credentials and returns a signed session token.
// Accounts sign in by email; usernames are the public handle.
//
// An unverified account gets a fresh verification link mailed before the
// call fails, so a lost or expired first email never locks anyone out.
func (s *AccountService) SignIn(ctx context.Context, in SignInInput) (string, *model.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return "", nil, validationError(err)
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		// same answer as a wrong password: no address probing
		return "", nil, apperror.Unauthenticated("invalid email or password")
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		return "", nil, apperror.Unauthenticated("invalid email or password")
	}

	if !user.IsVerified {
		if err := s.issueVerification(ctx, user); err != nil {
			s.logger.Error("re-sending verification mail failed",
				slog.String("username", user.Username),
				slog.Any("error", err))
		}
		return "", nil, apperror.Unauthorized(
			"email not verified; a new verification link has been sent")
	}

	token, err := s.tokens.IssueSession(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		return "", nil, fmt.Errorf("service: issuing session: %w", err)
	}

	s.logger.Info("user signed in", slog.String("username", user.Username))
	return token, user, nil
}

// issueVerification mints a fresh verification token, stores it
// (replacing any outstanding one), and mails the link.
func (s *AccountService) issueVerification(ctx context.Context, user *model.User) error {
	token, err := auth.NewOneShotToken()
	if err != nil {
		return err
	}
	expiry := time.Now().Add(auth.VerifyTokenTTL)
	if err := s.users.SetVerifyToken(ctx, user.ID, token, expiry); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/verifyemail/%s", s.publicOrigin, token)
	return s.mail.SendVerification(ctx, user.Email, user.Username, link)
}

// VerifyEmail consumes a verification token. Unknown or already-used
// tokens are InvalidToken; a known token past its TTL is TokenExpired.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperror.InvalidToken("verification token missing")
	}

	user, err := s.users.GetByVerifyToken(ctx, token)
	if err != nil {
		return apperror.InvalidToken("invalid or already used verification token")
	}
	if user.VerifyExpiry == nil || user.VerifyExpiry.Before(time.Now()) {
		return apperror.TokenExpired("verification token expired, sign in to request a new one")
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return err
	}
	s.logger.Info("email verified", slog.String("username", user.Username))
	return nil
}

// SendResetLink mails a password reset link. Unlike signup mail, delivery
// is the whole point here, so a transport failure fails the call.
func (s *AccountService) SendResetLink(ctx context.Context, email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := auth.NewOneShotToken()
	if err != nil {
		return err
	}
	expiry := time.Now().Add(auth.ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/password/reset?token=%s", s.publicOrigin, url.QueryEscape(token))
	if err := s.mail.SendPasswordReset(ctx, user.Email, user.Username, link); err != nil {
		return err
	}

	s.logger.Info("password reset link sent", slog.String("username", user.Username))
	return nil
}

// ResetPassword consumes a reset token and stores the new password. The
// repository clears the token in the same statement, so a second use of
// the link comes back as InvalidToken.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperror.InvalidToken("reset token missing")
	}
	if len(newPassword) < auth.MinPasswordLength {
		return apperror.ValidationFailed("newPassword",
			fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	}

	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		return apperror.InvalidToken("invalid or already used reset token")
	}
	if user.ResetExpiry == nil || user.ResetExpiry.Before(time.Now()) {
		return apperror.TokenExpired("reset token expired, request a new link")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return apperror.ValidationFailed("newPassword", err.Error())
	}
	if err := s.users.ResetPassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.logger.Info("password reset", slog.String("username", user.Username))
	return nil
}

// UpdateProfilePicture uploads the new avatar, points the account at it,
// and then removes the previous asset. The old delete is best-effort: the
// database already references the new image.
func (s *AccountService) UpdateProfilePicture(ctx context.Context, username, localPath string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	newURL, err := s.media.Upload(ctx, localPath, avatarFolder)
	if err != nil {
		return "", err
	}

	if err := s.users.UpdateProfilePicture(ctx, username, newURL); err != nil {
		return "", err
	}

	if old := user.ProfilePicture; old != "" && old != s.defaultAvatar {
		if err := s.media.Delete(ctx, old); err != nil {
			s.logger.Warn("deleting old profile picture failed",
				slog.String("url", old), slog.Any("error", err))
		}
	}

	return newURL, nil
}

// UpdateUsername renames the account and returns a fresh session token so
// the cookie's claims match the new name.
func (s *AccountService) UpdateUsername(ctx context.Context, id auth.Identity, newUsername string) (string, error) {
	if err := s.validate.Var(newUsername, "required,min=3,max=30,alphanum"); err != nil {
		return "", apperror.ValidationFailed("newUsername", "must be 3-30 alphanumeric characters")
	}
	if newUsername == id.Username {
		return "", apperror.ValidationFailed("newUsername", "that is already your username")
	}

	if err := s.users.UpdateUsername(ctx, id.Username, newUsername); err != nil {
		return "", err
	}

	token, err := s.tokens.IssueSession(auth.Identity{
		UserID:   id.UserID,
		Username: newUsername,
		Email:    id.Email,
	})
	if err != nil {
		return "", fmt.Errorf("service: re-issuing session: %w", err)
	}

	s.logger.Info("username changed",
		slog.String("from", id.Username), slog.String("to", newUsername))
	return token, nil
}

// UpdateEmail changes the account email and returns a fresh session token.
func (s *AccountService) UpdateEmail(ctx context.Context, id auth.Identity, newEmail string) (string, error) {
	if err := s.validate.Var(newEmail, "required,email"); err != nil {
		return "", apperror.ValidationFailed("newEmail", "must be a valid email address")
	}

	if err := s.users.UpdateEmail(ctx, id.Username, newEmail); err != nil {
		return "", err
	}

	token, err := s.tokens.IssueSession(auth.Identity{
		UserID:   id.UserID,
		Username: id.Username,
		Email:    newEmail,
	})
	if err != nil {
		return "", fmt.Errorf("service: re-issuing session: %w", err)
	}

	s.logger.Info("email changed", slog.String("username", id.Username))
	return token, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AccountService) ChangePassword(ctx context.Context, username, current, next string) error {
	if len(next) < auth.MinPasswordLength {
		return apperror.ValidationFailed("newPassword",
			fmt.Sprintf("password must be at least %d characters", auth.MinPasswordLength))
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		return apperror.ValidationFailed("currentPassword", "current password is incorrect")
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return apperror.ValidationFailed("newPassword", err.Error())
	}
	if err := s.users.UpdatePassword(ctx, username, hash); err != nil {
		return err
	}

	s.logger.Info("password changed", slog.String("username", username))
	return nil
}

// Search returns public profiles whose username contains the fragment.
func (s *AccountService) Search(ctx context.Context, fragment string) ([]model.Profile, error) {
	if fragment == "" {
		return nil, apperror.ValidationFailed("username", "search fragment is required")
	}
	return s.users.SearchByUsername(ctx, fragment)
}

// ProfileView is the full profile page payload.
type ProfileView struct {
	Profile   model.Profile  `json:"profile"`
	Followers []model.Follow `json:"followers"`
	Following []model.Follow `json:"following"`
	Posts     []model.Post   `json:"posts"`
}

// Profile assembles the public profile page: the profile itself, both
// sides of the follow graph, and the user's posts oldest-first.
func (s *AccountService) Profile(ctx context.Context, username string) (*ProfileView, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	followers, err := s.follows.FollowersOf(ctx, username)
	if err != nil {
		return nil, err
	}
	following, err := s.follows.FollowingOf(ctx, username)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByAuthor(ctx, username)
	if err != nil {
		return nil, err
	}

	return &ProfileView{
		Profile:   user.Profile(),
		Followers: followers,
		Following: following,
		Posts:     posts,
	}, nil
}

// OwnProfileView is the signed-in user's view of themselves: the profile
// plus follower/following names for the sidebar.
type OwnProfileView struct {
	Profile   model.Profile `json:"profile"`
	Email     string        `json:"email"`
	Followers []string      `json:"followers"`
	Following []string      `json:"following"`
}

func (s *AccountService) OwnProfile(ctx context.Context, username string) (*OwnProfileView, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	followerEdges, err := s.follows.FollowersOf(ctx, username)
	if err != nil {
		return nil, err
	}
	followers := make([]string, len(followerEdges))
	for i, f := range followerEdges {
		followers[i] = f.FollowedBy
	}

	following, err := s.follows.Following(ctx, username)
	if err != nil {
		return nil, err
	}

	return &OwnProfileView{
		Profile:   user.Profile(),
		Email:     user.Email,
		Followers: followers,
		Following: following,
	}, nil
}
