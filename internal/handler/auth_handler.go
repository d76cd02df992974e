package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"go-course-format/internal/auth"
	"go-course-format/internal/data"
	"go-course-format/internal/logger"
	"go-course-format/internal/session"
)

// Authenticator is the OIDC client used by the login flow.
type Authenticator interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	VerifiedClaims(ctx context.Context, code string) (*auth.Claims, error)
}

// UserStore provisions local accounts for identity provider subjects.
type UserStore interface {
	GetBySubject(ctx context.Context, subject string) (*data.User, error)
	CreateUser(ctx context.Context, user *data.User) error
}

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	auth     Authenticator
	sessions session.Manager
	users    UserStore
	grant    func(userID int64) error
	log      logger.Logger
}

// NewAuthHandler creates a new AuthHandler. grant gives a newly logged in
// user the authenticated role.
func NewAuthHandler(a Authenticator, sm session.Manager, users UserStore, grant func(userID int64) error, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: a, sessions: sm, users: users, grant: grant, log: log}
}

// handleLogin redirects the user to the OIDC provider to log in.
// It uses a random 'state' string for CSRF protection.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		http.Error(w, "Login is not configured", http.StatusNotFound)
		return
	}
	state, err := randString(16)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.sessions.Put(r.Context(), session.KeyOAuthState, state)
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback is the redirect URL for the OIDC provider. It verifies the
// ID token, provisions the local user and logs them in.
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		http.Error(w, "Login is not configured", http.StatusNotFound)
		return
	}
	ctx := r.Context()
	state := h.sessions.PopString(ctx, session.KeyOAuthState)
	if state == "" || r.URL.Query().Get("state") != state {
		http.Error(w, "state did not match", http.StatusBadRequest)
		return
	}

	claims, err := h.auth.VerifiedClaims(ctx, r.URL.Query().Get("code"))
	if err != nil {
		h.log.Error(err, "Failed to verify login")
		http.Error(w, "Failed to verify ID Token", http.StatusUnauthorized)
		return
	}

	user, err := h.provision(ctx, claims)
	if err != nil {
		h.log.Error(err, "Failed to provision user")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := h.grant(user.ID); err != nil {
		h.log.Error(err, "Failed to grant the authenticated role")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Prevent session fixation.
	if err := h.sessions.RenewToken(ctx); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.sessions.Put(ctx, session.KeyUserID, user.ID)
	h.sessions.Put(ctx, session.KeySubject, auth.Subject(user.ID))

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) provision(ctx context.Context, claims *auth.Claims) (*data.User, error) {
	user, err := h.users.GetBySubject(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}
	username := claims.PreferredUsername
	if username == "" {
		username = claims.Email
	}
	if username == "" {
		username = claims.Subject
	}
	if err := h.users.CreateUser(ctx, &data.User{
		Username:    username,
		AuthSubject: claims.Subject,
		FirstName:   claims.GivenName,
		LastName:    claims.FamilyName,
		Email:       claims.Email,
		TrackForums: true,
	}); err != nil {
		return nil, err
	}
	return h.users.GetBySubject(ctx, claims.Subject)
}

// handleLogout destroys the session and redirects to the home page.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// randString is a helper function to generate a random string for the 'state' parameter.
func randString(nByte int) (string, error) {
	b := make([]byte, nByte)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
