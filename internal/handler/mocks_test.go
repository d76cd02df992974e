//go:build unit || integration

package handler

import (
	"context"
	"net/http"

	"go-course-format/internal/session"
)

// mockSessionManager keeps session values in a map shared by all requests.
type mockSessionManager struct {
	values        map[string]interface{}
	destroyCalled bool
	renewCalled   bool
	renewErr      error
}

var _ session.Manager = (*mockSessionManager)(nil)

func newMockSession() *mockSessionManager {
	return &mockSessionManager{values: make(map[string]interface{})}
}

func (m *mockSessionManager) LoadAndSave(next http.Handler) http.Handler { return next }

func (m *mockSessionManager) Put(ctx context.Context, key string, val interface{}) {
	m.values[key] = val
}

func (m *mockSessionManager) GetString(ctx context.Context, key string) string {
	s, _ := m.values[key].(string)
	return s
}

func (m *mockSessionManager) GetInt(ctx context.Context, key string) int {
	n, _ := m.values[key].(int)
	return n
}

func (m *mockSessionManager) GetInt64(ctx context.Context, key string) int64 {
	n, _ := m.values[key].(int64)
	return n
}

func (m *mockSessionManager) PopString(ctx context.Context, key string) string {
	s := m.GetString(ctx, key)
	delete(m.values, key)
	return s
}

func (m *mockSessionManager) RenewToken(ctx context.Context) error {
	m.renewCalled = true
	return m.renewErr
}

func (m *mockSessionManager) Destroy(ctx context.Context) error {
	m.destroyCalled = true
	m.values = make(map[string]interface{})
	return nil
}

func (m *mockSessionManager) Remove(ctx context.Context, key string) {
	delete(m.values, key)
}
