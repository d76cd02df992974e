//go:build unit

package cache

import (
	"context"
	"testing"
	"time"

	"go-course-format/internal/config"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(config.CacheConfig{FilePath: "file::memory:", TTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create test cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	if err := c.Set(ctx, "text:ab12", []byte(`<p>Hi</p>`), 0); err != nil {
		t.Fatalf("Set() returned an unexpected error: %v", err)
	}
	got, err := c.Get(ctx, "text:ab12")
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if string(got) != `<p>Hi</p>` {
		t.Errorf("expected cached value %q, got %q", `<p>Hi</p>`, got)
	}

	miss, err := c.Get(ctx, "text:ffff")
	if err != nil || miss != nil {
		t.Errorf("expected a silent miss, got %q, %v", miss, err)
	}
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	base := time.Unix(1000, 0)
	c.now = func() time.Time { return base }

	if err := c.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set() returned an unexpected error: %v", err)
	}
	c.now = func() time.Time { return base.Add(2 * time.Second) }
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired item to be a miss, got %q", got)
	}
}

func TestCacheSetReplaces(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	for _, v := range []string{"old", "new"} {
		if err := c.Set(ctx, "k", []byte(v), 0); err != nil {
			t.Fatalf("Set() returned an unexpected error: %v", err)
		}
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() returned an unexpected error: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("expected the last stored value, got %q", got)
	}
}
