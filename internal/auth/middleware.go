package auth

import (
	"context"
	"net/http"

	"github.com/sociable/sociable/internal/model"
)

// SessionCookie is the cookie carrying the signed session token. It is
// HttpOnly and SameSite=Lax everywhere it is set.
const SessionCookie = "accessToken"

// contextKey is unexported so only this package can read or write the
// identity value in a request context.
type contextKey string

const identityKey contextKey = "identity"

// UserResolver is the slice of the persistence gateway the middleware
// needs: confirm the token's user still exists. Declared here, on the
// consumer side, so auth does not depend on the repository package.
type UserResolver interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth enforces authentication on protected routes.
//
// It reads the session cookie, validates the token, and then re-resolves
// the identity against the database — a deleted account's leftover cookie
// must not keep working for up to SessionTTL. On success the Identity is
// stored in the request context; on any failure the chain stops with 401.
func RequireAuth(tokens *TokenService, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			id, err := tokens.ValidateSession(cookie.Value)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetUserByID(r.Context(), id.UserID)
			if err != nil {
				unauthorized(w)
				return
			}

			// The database is authoritative for the mutable fields; the
			// token may predate a username or email change.
			identity := Identity{
				UserID:   user.ID,
				Username: user.Username,
				Email:    user.Email,
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated identity placed by
// RequireAuth. Returns ok=false on anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthenticated","message":"please sign in"}`))
}
