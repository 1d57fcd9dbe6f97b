package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/CareerForge/internal/adapter/tiered"
	"github.com/Strob0t/CareerForge/internal/port/cache/cachetest"
)

// memCache is a simple in-memory cache for testing.
type memCache struct {
	data map[string][]byte
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func TestTieredCompliance(t *testing.T) {
	cachetest.Run(t, tiered.New(newMemCache(), newMemCache(), time.Minute))
}

func TestTieredCompliance_L1Only(t *testing.T) {
	cachetest.Run(t, tiered.New(newMemCache(), nil, time.Minute))
}

func TestTiered_L2HitWithBackfill(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)

	l2.data["roadmap:u1:r1"] = []byte("view")

	val, found, err := c.Get(context.Background(), "roadmap:u1:r1")
	if err != nil || !found || string(val) != "view" {
		t.Fatalf("expected L2 hit, got %s found=%v err=%v", val, found, err)
	}
	if string(l1.data["roadmap:u1:r1"]) != "view" {
		t.Fatal("expected L1 backfill")
	}
}

func TestTiered_L2ErrorIsMiss(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	l2.err = errors.New("nats unavailable")
	c := tiered.New(l1, l2, time.Minute)

	_, found, err := c.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("L2 failure should degrade to miss, got %v", err)
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestTiered_DeleteAttemptsBoth(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	c := tiered.New(l1, l2, time.Minute)
	ctx := context.Background()

	l1.data["k"] = []byte("v")
	l2.data["k"] = []byte("v")
	l1.err = errors.New("l1 broken")

	if err := c.Delete(ctx, "k"); err == nil {
		t.Fatal("expected joined error")
	}
	if _, ok := l2.data["k"]; ok {
		t.Fatal("L2 delete must still run when L1 fails")
	}
}
