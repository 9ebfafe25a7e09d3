package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sociable/sociable/internal/apperror"
	"github.com/sociable/sociable/internal/auth"
	"github.com/sociable/sociable/internal/service"
)

// UserHandler serves the /api/user routes: accounts, sessions, and the
// follow graph.
type UserHandler struct {
	accounts *service.AccountService
	graph    *service.GraphService
	logger   *slog.Logger
}

func NewUserHandler(accounts *service.AccountService, graph *service.GraphService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, graph: graph, logger: logger}
}

// setSessionCookie stores the signed session token. HttpOnly keeps it
// away from scripts; SameSite=Lax still sends it on top-level
// navigations, which the email-link flows rely on.
func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// identity pulls the authenticated identity; the auth middleware has
// already rejected anonymous requests on these routes.
func identity(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, logger, apperror.Unauthenticated("please sign in"))
	}
	return id, ok
}

func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var in service.SignUpInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.accounts.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "account created, check your email for a verification link",
		"user":    user.Profile(),
	})
}

func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var in service.SignInInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, user, err := h.accounts.SignIn(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": user,
	})
}

func (h *UserHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

func (h *UserHandler) IsLoggedIn(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loggedIn": true, "user": id})
}

func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if err := h.accounts.VerifyEmail(r.Context(), token); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified, you can sign in now"})
}

func (h *UserHandler) SendResetLink(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.accounts.SendResetLink(r.Context(), in.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reset link sent, check your email"})
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		NewPassword string `json:"newPassword"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	token := r.URL.Query().Get("token")
	if err := h.accounts.ResetPassword(r.Context(), token, in.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset, sign in with the new one"})
}

func (h *UserHandler) UpdateProfilePic(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	path, cleanup, err := saveUpload(r, "profilePic")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer cleanup()

	url, err := h.accounts.UpdateProfilePicture(r.Context(), id.Username, path)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"profilePicture": url})
}

func (h *UserHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var in struct {
		NewUsername string `json:"newUsername"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, err := h.accounts.UpdateUsername(r.Context(), id, in.NewUsername)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// fresh cookie so the session claims match the new name
	setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{"username": in.NewUsername})
}

func (h *UserHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var in struct {
		NewEmail string `json:"newEmail"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, err := h.accounts.UpdateEmail(r.Context(), id, in.NewEmail)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{"email": in.NewEmail})
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), id.Username, in.CurrentPassword, in.NewPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

func (h *UserHandler) UserSearch(w http.ResponseWriter, r *http.Request) {
	fragment := chi.URLParam(r, "username")

	profiles, err := h.accounts.Search(r.Context(), fragment)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": profiles})
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	view, err := h.accounts.Profile(r.Context(), username)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *UserHandler) LoggedInUserProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.accounts.OwnProfile(r.Context(), id.Username)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *UserHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	profiles, err := h.graph.Suggestions(r.Context(), id.Username)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": profiles})
}

func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	target := chi.URLParam(r, "username")

	if err := h.graph.Follow(r.Context(), id.Username, target); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "now following " + target})
}

func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	target := chi.URLParam(r, "username")

	if err := h.graph.Unfollow(r.Context(), id.Username, target); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "unfollowed " + target})
}
