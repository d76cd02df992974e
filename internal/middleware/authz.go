package middleware

import (
	"context"
	"errors"
	"net/http"

	"go-course-format/internal/auth"
	"go-course-format/internal/data"
	"go-course-format/internal/logger"
	"go-course-format/internal/service"
	"go-course-format/internal/session"
)

type contextKey string

const userContextKey contextKey = "user"

// UserInfo represents the user of the request as restored from the session.
type UserInfo struct {
	Subject string
	UserID  int64
	User    *data.User
}

// RouteAuthorizer decides whether a subject may call a route.
type RouteAuthorizer interface {
	CanAccessRoute(subject, path, method string) (bool, error)
}

// UserLoader loads the session user.
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*data.User, error)
}

// Authorizer creates a new middleware for authorization.
// It restores the session user and checks the route with Casbin.
func Authorizer(perms RouteAuthorizer, users UserLoader, sm session.Manager, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &UserInfo{Subject: auth.Subject(0)}
			if id := sm.GetInt64(r.Context(), session.KeyUserID); id > 0 {
				user, err := users.GetByID(r.Context(), id)
				switch {
				case errors.Is(err, data.ErrNotFound):
					// The account is gone; continue as a visitor.
					sm.Remove(r.Context(), session.KeyUserID)
					sm.Remove(r.Context(), session.KeySubject)
				case err != nil:
					log.Error(err, "Failed to load session user")
					http.Error(w, "Authorization error", http.StatusInternalServerError)
					return
				default:
					info = &UserInfo{Subject: auth.Subject(user.ID), UserID: user.ID, User: user}
				}
			}

			r = r.WithContext(WithUserInfo(r.Context(), info))

			allowed, err := perms.CanAccessRoute(info.Subject, r.URL.Path, r.Method)
			if err != nil {
				log.Error(err, "Route authorization failed")
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithUserInfo stores the request user in ctx.
func WithUserInfo(ctx context.Context, info *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, info)
}

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	return &UserInfo{Subject: auth.Subject(0)}
}

// ViewerFrom returns the viewer of the request.
func ViewerFrom(ctx context.Context) service.Viewer {
	return service.Viewer{User: GetUserInfo(ctx).User}
}
