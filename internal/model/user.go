// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Username and email are both globally unique; the rest of the system
// references users by username (posts, follows, likes, comments all carry
// usernames, not ids), matching how profiles are addressed in URLs.
//
// The two token/expiry pairs drive the email-verification and
// password-reset lifecycles. They are separate columns so that requesting
// a password reset can never invalidate a pending email verification (and
// vice versa). A nil token means no flow is in progress.
type User struct {
	ID             string     `json:"userId"         db:"id"`
	Username       string     `json:"username"       db:"username"`
	Email          string     `json:"email"          db:"email"`
	PasswordHash   string     `json:"-"              db:"password_hash"` // never serialized
	ProfilePicture string     `json:"profilePicture" db:"profile_picture"`
	IsVerified     bool       `json:"isVerified"     db:"is_verified"`
	VerifyToken    *string    `json:"-"              db:"verify_token"`
	VerifyExpiry   *time.Time `json:"-"              db:"verify_expiry"`
	ResetToken     *string    `json:"-"              db:"reset_token"`
	ResetExpiry    *time.Time `json:"-"              db:"reset_expiry"`
	CreatedAt      time.Time  `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt"      db:"updated_at"`
}

// Profile is the public projection of a User: what other users are allowed
// to see. Handlers return this instead of User so that token and hash
// fields can never leak by accident.
type Profile struct {
	ID             string `json:"userId"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

// Profile returns the public projection of u.
func (u *User) Profile() Profile {
	return Profile{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}
