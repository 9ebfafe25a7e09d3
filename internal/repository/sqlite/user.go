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

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, username, email, password_hash, profile_picture,
	is_verified, verify_token, verify_expiry, reset_token, reset_expiry,
	created_at, updated_at`

// Create inserts a new user. The ID and timestamps are filled in here;
// username/email collisions come back as apperror.ErrConflict with a
// message naming the offending field, the way the signup flow reports it.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ProfilePicture,
		user.IsVerified,
		user.VerifyToken,
		user.VerifyExpiry,
		user.ResetToken,
		user.ResetExpiry,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "users.email") {
				return apperror.Conflict("user with this email already exists")
			}
			return apperror.Conflict("username is taken")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}
	return nil
}

func (db *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id = ?", id, "user", id)
}

func (db *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username = ?", username, "user", username)
}

func (db *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email = ?", email, "user", email)
}

// GetByVerifyToken looks a user up by an outstanding verification token.
// An absent row means the token was never issued or already consumed.
func (db *UserDB) GetByVerifyToken(ctx context.Context, token string) (*model.User, error) {
	return db.getUser(ctx, "verify_token = ?", token, "verification token", token)
}

func (db *UserDB) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	return db.getUser(ctx, "reset_token = ?", token, "reset token", token)
}

func (db *UserDB) getUser(ctx context.Context, where string, arg any, resource, key string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(resource, key)
		}
		return nil, fmt.Errorf("sqlite: getting user (%s): %w", where, err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u            model.User
		verifyToken  sql.NullString
		verifyExpiry sql.NullTime
		resetToken   sql.NullString
		resetExpiry  sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.ProfilePicture,
		&u.IsVerified,
		&verifyToken,
		&verifyExpiry,
		&resetToken,
		&resetExpiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if verifyToken.Valid {
		u.VerifyToken = &verifyToken.String
	}
	if verifyExpiry.Valid {
		t := verifyExpiry.Time
		u.VerifyExpiry = &t
	}
	if resetToken.Valid {
		u.ResetToken = &resetToken.String
	}
	if resetExpiry.Valid {
		t := resetExpiry.Time
		u.ResetExpiry = &t
	}
	return &u, nil
}

// SearchByUsername returns public profiles whose username contains the
// fragment, the substring search behind /userSearch.
func (db *UserDB) SearchByUsername(ctx context.Context, fragment string) ([]model.Profile, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username, profile_picture FROM users
		 WHERE username LIKE '%' || ? || '%'
		 ORDER BY username`,
		fragment,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// ProfilesByUsernames returns the public profiles for the given usernames,
// used by the suggestions listing. Unknown names are silently skipped.
func (db *UserDB) ProfilesByUsernames(ctx context.Context, usernames []string) ([]model.Profile, error) {
	if len(usernames) == 0 {
		return []model.Profile{}, nil
	}

	placeholders := strings.Repeat("?,", len(usernames)-1) + "?"
	args := make([]any, len(usernames))
	for i, name := range usernames {
		args[i] = name
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username, profile_picture FROM users
		 WHERE username IN (`+placeholders+`)
		 ORDER BY username`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing profiles: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

func scanProfiles(rows *sql.Rows) ([]model.Profile, error) {
	profiles := []model.Profile{}
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.ProfilePicture); err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating profiles: %w", err)
	}
	return profiles, nil
}

// UpdateUsername renames a user. The follows/posts/likes/comments tables
// reference users(username) with ON UPDATE CASCADE, so the rename
// propagates through the graph in one statement.
func (db *UserDB) UpdateUsername(ctx context.Context, username, newUsername string) error {
	err := db.updateUserField(ctx, username, "username", newUsername)
	if err != nil && isUniqueViolation(err) {
		return apperror.Conflict(fmt.Sprintf("%s is already taken", newUsername))
	}
	return err
}

func (db *UserDB) UpdateEmail(ctx context.Context, username, newEmail string) error {
	err := db.updateUserField(ctx, username, "email", newEmail)
	if err != nil && isUniqueViolation(err) {
		return apperror.Conflict(fmt.Sprintf("%s is already taken", newEmail))
	}
	return err
}

func (db *UserDB) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	return db.updateUserField(ctx, username, "password_hash", passwordHash)
}

func (db *UserDB) UpdateProfilePicture(ctx context.Context, username, pictureURL string) error {
	return db.updateUserField(ctx, username, "profile_picture", pictureURL)
}

func (db *UserDB) updateUserField(ctx context.Context, username, column, value string) error {
	result, err := db.conn.ExecContext(ctx,
		// column names come from the fixed call sites above, never from input
		fmt.Sprintf(`UPDATE users SET %s = ?, updated_at = ? WHERE username = ?`, column),
		value, time.Now().UTC(), username,
	)
	if err != nil {
		// errors.As sees through this wrap, so the unique-violation checks
		// at the call sites still work.
		return fmt.Errorf("sqlite: updating user %s: %w", username, err)
	}
	return requireRowAffected(result, "user", username)
}

// SetVerifyToken stores a fresh verification token, replacing whatever
// token was outstanding. Called at signup and again on every unverified
// sign-in attempt.
func (db *UserDB) SetVerifyToken(ctx context.Context, userID, token string, expiry time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET verify_token = ?, verify_expiry = ?, updated_at = ? WHERE id = ?`,
		token, expiry.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting verify token for %s: %w", userID, err)
	}
	return requireRowAffected(result, "user", userID)
}

// MarkVerified flips the verification flag and clears the token pair in
// one statement, so a consumed token can never match again.
func (db *UserDB) MarkVerified(ctx context.Context, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET is_verified = 1, verify_token = NULL, verify_expiry = NULL, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking user %s verified: %w", userID, err)
	}
	return requireRowAffected(result, "user", userID)
}

func (db *UserDB) SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_expiry = ?, updated_at = ? WHERE id = ?`,
		token, expiry.UTC(), time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting reset token for %s: %w", userID, err)
	}
	return requireRowAffected(result, "user", userID)
}

// ResetPassword stores the new hash and clears the reset token pair
// atomically, making the token single-use.
func (db *UserDB) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET password_hash = ?, reset_token = NULL, reset_expiry = NULL, updated_at = ?
		 WHERE id = ?`,
		passwordHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: resetting password for %s: %w", userID, err)
	}
	return requireRowAffected(result, "user", userID)
}

// requireRowAffected turns a zero-row UPDATE/DELETE into NotFound.
func requireRowAffected(result sql.Result, resource, key string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, key)
	}
	return nil
}
