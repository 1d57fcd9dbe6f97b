package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cfotel "github.com/Strob0t/CareerForge/internal/adapter/otel"
)

// Job is a named unit of background work run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on their intervals until its context ends. Each job has
// its own loop, so a slow run delays its next tick instead of overlapping it.
type Scheduler struct {
	jobs []Job
	wg   sync.WaitGroup
}

// NewScheduler creates a Scheduler for jobs. Jobs with a non-positive
// interval are ignored.
func NewScheduler(jobs ...Job) *Scheduler {
	s := &Scheduler{}
	for _, j := range jobs {
		if j.Interval <= 0 || j.Run == nil {
			slog.Warn("scheduler: job disabled", "job", j.Name)
			continue
		}
		s.jobs = append(s.jobs, j)
	}
	return s
}

// Start launches one loop per job and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, j)
		}()
	}
	slog.Info("scheduler started", "jobs", len(s.jobs))
}

// Wait blocks until every job loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runJob(ctx, j)
		}
	}
}

// runJob runs j once, recovering a panic so the loop survives it.
func runJob(ctx context.Context, j Job) {
	ctx, span := cfotel.StartJobSpan(ctx, j.Name)
	start := time.Now()
	var err error
	defer func() {
		if p := recover(); p != nil {
			slog.Error("scheduler: job panicked", "job", j.Name, "panic", p)
		}
		cfotel.EndSpan(span, err)
	}()

	err = j.Run(ctx)
	if err != nil {
		slog.WarnContext(ctx, "scheduler: job failed", "job", j.Name, "error", err, "duration", time.Since(start))
		return
	}
	slog.InfoContext(ctx, "scheduler: job done", "job", j.Name, "duration", time.Since(start))
}
