package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer serializes writes from the drain workers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(l), &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// slowHandler delays each record so the queue backs up.
type slowHandler struct {
	slog.Handler
	delay time.Duration
}

func (h slowHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	time.Sleep(h.delay)
	return h.Handler.Handle(ctx, rec)
}

func newJSON(w *syncBuffer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

func TestAsyncHandlerDeliversEveryQueuedRecord(t *testing.T) {
	tests := []struct {
		name    string
		writers int
		each    int
		workers int
	}{
		{"single writer", 1, 50, 1},
		{"many writers", 20, 25, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &syncBuffer{}
			ah := NewAsyncHandler(newJSON(out), tt.writers*tt.each, tt.workers)
			log := slog.New(ah)

			var wg sync.WaitGroup
			for w := range tt.writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := range tt.each {
						log.Info("task toggled", "writer", w, "seq", i)
					}
				}()
			}
			wg.Wait()
			ah.Close()

			if got, want := len(out.lines()), tt.writers*tt.each; got != want {
				t.Fatalf("got %d records after Close, want %d", got, want)
			}
			if ah.DroppedCount() != 0 {
				t.Errorf("dropped %d with a buffer sized for every record", ah.DroppedCount())
			}
		})
	}
}

func TestAsyncHandlerDropsWhenFull(t *testing.T) {
	out := &syncBuffer{}
	ah := NewAsyncHandler(slowHandler{Handler: newJSON(out), delay: 5 * time.Millisecond}, 1, 1)
	log := slog.New(ah)

	const sent = 40
	for i := range sent {
		log.Info("insight refresh", "i", i)
	}
	ah.Close()

	dropped := ah.DroppedCount()
	if dropped == 0 {
		t.Fatal("expected drops with a one-slot buffer and a slow handler")
	}
	if got := int64(len(out.lines())); got+dropped != sent {
		t.Errorf("written %d + dropped %d != sent %d", got, dropped, sent)
	}
}

func TestAsyncHandlerKeepsDerivedAttrs(t *testing.T) {
	out := &syncBuffer{}
	ah := NewAsyncHandler(newJSON(out), 10, 1)
	log := slog.New(ah).With("service", "careerforge").WithGroup("job")

	log.Warn("job failed", "name", "insights")
	ah.Close()

	lines := out.lines()
	if len(lines) != 1 {
		t.Fatalf("got %d records", len(lines))
	}
	if lines[0]["service"] != "careerforge" {
		t.Errorf("service attr lost: %v", lines[0])
	}
	job, _ := lines[0]["job"].(map[string]any)
	if job["name"] != "insights" {
		t.Errorf("grouped attr lost: %v", lines[0])
	}
}

func TestAsyncHandlerWritesSynchronouslyAfterClose(t *testing.T) {
	out := &syncBuffer{}
	ah := NewAsyncHandler(newJSON(out), 10, 1)
	ah.Close()
	ah.Close()

	slog.New(ah).Info("late record")
	if got := len(out.lines()); got != 1 {
		t.Fatalf("expected the late record written inline, got %d", got)
	}
}
