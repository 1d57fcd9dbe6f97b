package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/CareerForge/internal/domain"
	"github.com/Strob0t/CareerForge/internal/domain/insight"
	"github.com/Strob0t/CareerForge/internal/extract"
	"github.com/Strob0t/CareerForge/internal/port/cache"
	"github.com/Strob0t/CareerForge/internal/port/database"
	"github.com/Strob0t/CareerForge/internal/port/messagequeue"
	"github.com/Strob0t/CareerForge/internal/port/textgen"
)

// InsightService refreshes and serves industry insight reports.
type InsightService struct {
	store        database.Store
	gen          textgen.Generator
	ext          *extract.Extractor
	queue        messagequeue.Queue
	cache        cache.Cache
	cacheTTL     time.Duration
	metrics      Metrics
	concurrency  int
	refreshAfter time.Duration
	now          func() time.Time
}

// NewInsightService creates an InsightService that refreshes at most
// concurrency industries at once and schedules the next refresh refreshAfter
// the last one.
func NewInsightService(store database.Store, gen textgen.Generator, ext *extract.Extractor, concurrency int, refreshAfter time.Duration) *InsightService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &InsightService{
		store:        store,
		gen:          gen,
		ext:          ext,
		concurrency:  concurrency,
		refreshAfter: refreshAfter,
		now:          time.Now,
	}
}

// SetQueue attaches the event bus.
func (s *InsightService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetCache attaches the insight cache.
func (s *InsightService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.cacheTTL = ttl
}

// SetMetrics attaches metric instruments.
func (s *InsightService) SetMetrics(m Metrics) { s.metrics = m }

// Get returns the stored insight for industry.
func (s *InsightService) Get(ctx context.Context, industry string) (*insight.Insight, error) {
	if _, err := principal(ctx); err != nil {
		return nil, err
	}
	industry = strings.TrimSpace(industry)
	if industry == "" {
		return nil, fmt.Errorf("%w: industry is required", domain.ErrValidation)
	}

	key := cache.InsightKey(industry)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var in insight.Insight
			if json.Unmarshal(data, &in) == nil {
				return &in, nil
			}
		}
	}

	in, err := s.store.GetInsight(ctx, industry)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if data, err := json.Marshal(in); err == nil {
			_ = s.cache.Set(ctx, key, data, s.cacheTTL)
		}
	}
	return in, nil
}

// RunResult summarizes one refresh pass.
type RunResult struct {
	Refreshed int
	Skipped   int
	Failed    int
}

// Run refreshes every known industry whose insight is due. A failing industry
// is logged and counted; the rest still run. The returned error joins all
// per-industry failures.
func (s *InsightService) Run(ctx context.Context) (RunResult, error) {
	industries, err := s.store.ListIndustries(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("list industries: %w", err)
	}

	var (
		refreshed, skipped atomic.Int32
		mu                 sync.Mutex
		errs               []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, industry := range industries {
		g.Go(func() error {
			done, err := s.refresh(gctx, industry)
			switch {
			case err != nil:
				slog.ErrorContext(gctx, "insight refresh failed", "industry", industry, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", industry, err))
				mu.Unlock()
			case done:
				refreshed.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := RunResult{
		Refreshed: int(refreshed.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    len(errs),
	}
	slog.InfoContext(ctx, "insights refreshed",
		"refreshed", res.Refreshed, "skipped", res.Skipped, "failed", res.Failed)
	return res, errors.Join(errs...)
}

// refresh regenerates one industry when due. It reports whether it did.
func (s *InsightService) refresh(ctx context.Context, industry string) (bool, error) {
	now := s.now()
	existing, err := s.store.GetInsight(ctx, industry)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return false, fmt.Errorf("get insight: %w", err)
	case !existing.Due(now):
		return false, nil
	}

	raw, err := generateText(ctx, s.gen, s.metrics, "insight", "", insightPrompt(industry))
	if err != nil {
		return false, err
	}
	var report insight.Report
	if err := s.ext.DecodeObject(raw, &report); err != nil {
		return false, &GenerationError{Raw: raw, Err: err}
	}
	if err := report.Validate(); err != nil {
		return false, &GenerationError{Raw: raw, Err: err}
	}

	in := &insight.Insight{
		Industry:    industry,
		Report:      report,
		LastUpdated: now,
		NextUpdate:  now.Add(s.refreshAfter),
	}
	if err := s.store.UpsertInsight(ctx, in); err != nil {
		return false, fmt.Errorf("upsert insight: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.InsightKey(industry)); err != nil {
			slog.WarnContext(ctx, "cache invalidate failed", "industry", industry, "error", err)
		}
	}
	publishEvent(ctx, s.queue, messagequeue.SubjectInsightUpdated, messagequeue.InsightUpdatedPayload{
		Industry:    industry,
		DemandLevel: string(report.DemandLevel),
		NextUpdate:  in.NextUpdate.UTC().Format(time.RFC3339),
	})
	return true, nil
}
