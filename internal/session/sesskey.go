package session

import (
	"context"
	"crypto/subtle"

	"github.com/google/uuid"
)

// SessKey returns the anti-forgery key of the session, creating it on first use.
func SessKey(ctx context.Context, m Manager) string {
	key := m.GetString(ctx, KeySessKey)
	if key == "" {
		key = uuid.NewString()
		m.Put(ctx, KeySessKey, key)
	}
	return key
}

// ConfirmSessKey reports whether given matches the session's key. A session
// without a key never confirms.
func ConfirmSessKey(ctx context.Context, m Manager, given string) bool {
	key := m.GetString(ctx, KeySessKey)
	if key == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(given)) == 1
}
