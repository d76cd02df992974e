package session

import (
	"context"
	"net/http"
)

// Keys of the values stored in a session.
const (
	KeyUserID     = "user_id"
	KeySubject    = "user_subject"
	KeyOAuthState = "oauth_state"
	KeySessKey    = "sesskey"
	KeyMode       = "forum_displaymode"
)

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	GetInt(ctx context.Context, key string) int
	GetInt64(ctx context.Context, key string) int64
	PopString(ctx context.Context, key string) string
	RenewToken(ctx context.Context) error
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
}
