package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/CareerForge/internal/adapter/sqlite"
	"github.com/Strob0t/CareerForge/internal/extract"
	"github.com/Strob0t/CareerForge/internal/middleware"
	"github.com/Strob0t/CareerForge/internal/port/messagequeue"
)

// newStore returns an empty SQLite store in a temp dir.
func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.NewStore(db)
}

func userCtx(userID string) context.Context {
	return middleware.WithUserID(context.Background(), userID)
}

func newExtractor() *extract.Extractor {
	return extract.New(extract.DefaultMaxInputBytes, extract.PreferFirst, nil)
}

// fakeGen returns canned text, optionally per prompt substring.
type fakeGen struct {
	mu      sync.Mutex
	text    string
	err     error
	byMatch map[string]string
	prompts []string
}

func (g *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	for sub, text := range g.byMatch {
		if strings.Contains(prompt, sub) {
			return text, nil
		}
	}
	return g.text, g.err
}

func (g *fakeGen) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type published struct {
	subject string
	data    string
}

// fakeQueue records published messages after validating them.
type fakeQueue struct {
	mu   sync.Mutex
	msgs []published
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, published{subject, string(data)})
	return nil
}

func (q *fakeQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

// failingQueue rejects every publish.
type failingQueue struct{ *fakeQueue }

func (failingQueue) Publish(context.Context, string, []byte) error {
	return errors.New("nats: no responders")
}

func (q *fakeQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.msgs))
	for i, m := range q.msgs {
		out[i] = m.subject
	}
	return out
}

type pushed struct {
	userID    string
	eventType string
	payload   any
}

type fakeHub struct {
	mu     sync.Mutex
	events []pushed
}

func (h *fakeHub) BroadcastToUser(_ context.Context, userID, eventType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, pushed{userID, eventType, payload})
}

// memCache is a map-backed cache.Cache that counts deletes.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes []string
	failGet bool
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, false, errors.New("cache down")
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deletes = append(c.deletes, key)
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type fakeMetrics struct {
	mu       sync.Mutex
	toggles  int
	roadmaps []string
	llm      []string
}

func (m *fakeMetrics) RecordToggle(context.Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toggles++
}

func (m *fakeMetrics) RecordRoadmap(_ context.Context, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roadmaps = append(m.roadmaps, kind)
}

func (m *fakeMetrics) RecordLLM(_ context.Context, purpose string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.llm = append(m.llm, purpose)
}
