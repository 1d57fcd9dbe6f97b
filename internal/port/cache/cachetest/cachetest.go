// Package cachetest provides a behavioral test suite for cache.Cache implementations.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/CareerForge/internal/port/cache"
)

// Run exercises the cache contract against c. Keys are namespaced by the
// calling test so suites may share a backend.
func Run(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()
	key := func(k string) string { return cache.RoadmapKey(t.Name(), k) }

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, key("a"), []byte(`{"progress":50}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, key("a"))
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"progress":50}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, key("missing"))
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, key("del"), []byte("v"), time.Minute)
		if err := c.Delete(ctx, key("del")); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, key("del"))
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, key("never")); err != nil {
			t.Fatalf("Delete of nonexistent key should not error: %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, key("ow"), []byte("v1"), time.Minute)
		_ = c.Set(ctx, key("ow"), []byte("v2"), time.Minute)
		val, found, err := c.Get(ctx, key("ow"))
		if err != nil {
			t.Fatal(err)
		}
		if !found || string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %s (found=%v)", val, found)
		}
	})
}
