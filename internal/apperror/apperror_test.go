package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestUnwrap_MatchesSentinel(t *testing.T) {
	cases := []struct {
		name     string
		err      *AppError
		sentinel error
	}{
		{"not found", NotFound("user", "bob"), ErrNotFound},
		{"validation", ValidationFailed("email", "email is required"), ErrValidation},
		{"conflict", Conflict("username is taken"), ErrConflict},
		{"unauthenticated", Unauthenticated("please sign in"), ErrUnauthenticated},
		{"unauthorized", Unauthorized("not your post"), ErrUnauthorized},
		{"token expired", TokenExpired("token expired, sign in again"), ErrTokenExpired},
		{"invalid token", InvalidToken("invalid token"), ErrInvalidToken},
		{"upstream", Upstream("media upload", errors.New("boom")), ErrUpstream},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tc.err, tc.sentinel)
			}
		})
	}
}

func TestWrappedError_StillMatches(t *testing.T) {
	// Services wrap AppErrors with fmt.Errorf("...: %w", err). Both the
	// sentinel check and the *AppError extraction must survive wrapping.
	err := fmt.Errorf("following user: %w", Conflict("already following"))

	if !errors.Is(err, ErrConflict) {
		t.Error("errors.Is should find ErrConflict through the wrap")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As should extract *AppError through the wrap")
	}
	if appErr.Message != "already following" {
		t.Errorf("Message = %q, want %q", appErr.Message, "already following")
	}
}

func TestError_ReturnsMessage(t *testing.T) {
	err := ValidationFailed("password", "password must be at least 8 characters")
	if err.Error() != "password must be at least 8 characters" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Field != "password" {
		t.Errorf("Field = %q, want %q", err.Field, "password")
	}
}
