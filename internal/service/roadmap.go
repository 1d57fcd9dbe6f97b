package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cfotel "github.com/Strob0t/CareerForge/internal/adapter/otel"
	"github.com/Strob0t/CareerForge/internal/adapter/ws"
	"github.com/Strob0t/CareerForge/internal/domain"
	"github.com/Strob0t/CareerForge/internal/domain/roadmap"
	"github.com/Strob0t/CareerForge/internal/domain/user"
	"github.com/Strob0t/CareerForge/internal/extract"
	"github.com/Strob0t/CareerForge/internal/middleware"
	"github.com/Strob0t/CareerForge/internal/port/broadcast"
	"github.com/Strob0t/CareerForge/internal/port/cache"
	"github.com/Strob0t/CareerForge/internal/port/database"
	"github.com/Strob0t/CareerForge/internal/port/messagequeue"
	"github.com/Strob0t/CareerForge/internal/port/textgen"
)

// Metrics is the subset of instruments the services record to.
type Metrics interface {
	RecordToggle(ctx context.Context, completed bool)
	RecordRoadmap(ctx context.Context, kind string)
	RecordLLM(ctx context.Context, purpose string, d time.Duration, err error)
}

// GenerationError reports generated text that could not be turned into a
// usable result. Raw is the untouched model output.
type GenerationError struct {
	Raw string
	Err error
}

func (e *GenerationError) Error() string { return "generation failed: " + e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// RoadmapService generates, stores and tracks career roadmaps.
type RoadmapService struct {
	store    database.Store
	gen      textgen.Generator
	ext      *extract.Extractor
	cache    cache.Cache
	cacheTTL time.Duration
	queue    messagequeue.Queue
	hub      broadcast.Broadcaster
	metrics  Metrics
	now      func() time.Time
}

// NewRoadmapService creates a RoadmapService. Cache, queue, broadcaster and
// metrics are optional and attached with the Set methods.
func NewRoadmapService(store database.Store, gen textgen.Generator, ext *extract.Extractor) *RoadmapService {
	return &RoadmapService{store: store, gen: gen, ext: ext, now: time.Now}
}

// SetCache attaches the roadmap view cache.
func (s *RoadmapService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.cacheTTL = ttl
}

// SetQueue attaches the event bus.
func (s *RoadmapService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetBroadcaster attaches the realtime push hub.
func (s *RoadmapService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetMetrics attaches metric instruments.
func (s *RoadmapService) SetMetrics(m Metrics) { s.metrics = m }

// Generate asks the model for a milestone roadmap and persists it.
func (s *RoadmapService) Generate(ctx context.Context, req roadmap.GenerateRequest) (*roadmap.Roadmap, error) {
	userID, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := roadmap.ValidateGenerate(&req); err != nil {
		return nil, err
	}

	profile, err := s.store.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		profile = &user.Profile{ID: userID}
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	}

	raw, err := s.generate(ctx, "roadmap", userID, milestonePrompt(profile, req.TargetRole, req.DurationWeeks))
	if err != nil {
		return nil, err
	}

	v, err := s.ext.ExtractMatching(raw, roadmapShaped)
	if err != nil {
		return nil, s.generationFailed(ctx, raw, err)
	}
	spec, err := extract.NormalizeRoadmap(v, req.Title)
	if err != nil {
		return nil, s.generationFailed(ctx, raw, err)
	}
	spec.TargetRole = req.TargetRole
	if err := roadmap.ValidateSpec(&spec); err != nil {
		return nil, s.generationFailed(ctx, raw, err)
	}

	r, err := s.store.CreateRoadmap(ctx, userID, &spec, s.now())
	if err != nil {
		return nil, fmt.Errorf("create roadmap: %w", err)
	}
	s.created(ctx, r, spec.TaskCount(), "milestones")
	return r, nil
}

// roadmapShaped accepts either generated roadmap shape, so bracketed prose
// such as a citation is skipped in favor of the real payload.
func roadmapShaped(v json.RawMessage) bool {
	_, err := extract.NormalizeRoadmap(v, "")
	return err == nil
}

func stepsShaped(v json.RawMessage) bool {
	return extract.RequireObjectElements(v) == nil
}

// GenerateSteps asks the model for a flat list of steps on topic. The result
// is not persisted.
func (s *RoadmapService) GenerateSteps(ctx context.Context, topic string) ([]roadmap.TaskSpec, error) {
	userID, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", domain.ErrValidation)
	}

	raw, err := s.generate(ctx, "steps", userID, stepsPrompt(topic))
	if err != nil {
		return nil, err
	}
	arr, err := s.ext.ExtractMatching(raw, stepsShaped)
	if err != nil {
		return nil, s.generationFailed(ctx, raw, err)
	}
	if err := extract.RequireObjectElements(arr); err != nil {
		return nil, s.generationFailed(ctx, raw, err)
	}
	return extract.NormalizeRoadmapSteps(arr), nil
}

// Create persists a flat step roadmap supplied by the client.
func (s *RoadmapService) Create(ctx context.Context, req roadmap.CreateRequest) (*roadmap.Roadmap, error) {
	userID, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := roadmap.ValidateCreate(&req); err != nil {
		return nil, err
	}

	spec := req.Spec()
	if err := roadmap.ValidateSpec(&spec); err != nil {
		return nil, err
	}
	r, err := s.store.CreateRoadmap(ctx, userID, &spec, s.now())
	if err != nil {
		return nil, fmt.Errorf("create roadmap: %w", err)
	}
	s.created(ctx, r, spec.TaskCount(), "steps")
	return r, nil
}

// List returns the caller's roadmaps, newest first.
func (s *RoadmapService) List(ctx context.Context) ([]roadmap.Summary, error) {
	userID, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	key := cache.RoadmapListKey(userID)
	var out []roadmap.Summary
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	out, err = s.store.ListRoadmaps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	s.remember(ctx, key, out)
	return out, nil
}

// Get returns one of the caller's roadmaps with milestones and tasks.
func (s *RoadmapService) Get(ctx context.Context, roadmapID string) (*roadmap.Roadmap, error) {
	userID, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	key := cache.RoadmapKey(userID, roadmapID)
	var r roadmap.Roadmap
	if s.cached(ctx, key, &r) {
		return &r, nil
	}

	got, err := s.store.GetRoadmap(ctx, userID, roadmapID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, key, got)
	return got, nil
}

// Delete removes one of the caller's roadmaps with all milestones and tasks.
func (s *RoadmapService) Delete(ctx context.Context, roadmapID string) error {
	userID, err := principal(ctx)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRoadmap(ctx, userID, roadmapID); err != nil {
		return err
	}

	s.invalidate(ctx, userID, roadmapID)
	s.publish(ctx, messagequeue.SubjectRoadmapDeleted, messagequeue.RoadmapDeletedPayload{
		RoadmapID: roadmapID,
		UserID:    userID,
	})
	s.broadcast(ctx, userID, broadcast.EventRoadmapDeleted, ws.RoadmapEvent{RoadmapID: roadmapID})
	return nil
}

// ToggleTask sets the completion state of one task and returns the new state
// with the recomputed roadmap progress. Repeating a toggle is a no-op.
func (s *RoadmapService) ToggleTask(ctx context.Context, roadmapID, taskID string, completed bool) (*roadmap.TaskState, error) {
	userID, err := principal(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.store.SetTaskCompleted(ctx, userID, roadmapID, taskID, completed, s.now())
	if err != nil {
		return nil, err
	}

	// Committed; views and subscribers may now observe the change.
	s.invalidate(ctx, userID, roadmapID)
	s.publish(ctx, messagequeue.SubjectRoadmapProgress, messagequeue.RoadmapProgressPayload{
		RoadmapID: st.RoadmapID,
		UserID:    userID,
		TaskID:    st.TaskID,
		Completed: st.Completed,
		Progress:  st.Progress,
	})
	s.broadcast(ctx, userID, broadcast.EventRoadmapProgress, ws.ProgressEvent{
		RoadmapID: st.RoadmapID,
		TaskID:    st.TaskID,
		Completed: st.Completed,
		Progress:  st.Progress,
	})
	if s.metrics != nil {
		s.metrics.RecordToggle(ctx, completed)
	}
	return st, nil
}

func (s *RoadmapService) generate(ctx context.Context, purpose, userID, prompt string) (string, error) {
	return generateText(ctx, s.gen, s.metrics, purpose, userID, prompt)
}

// generateText runs one traced and timed generation call.
func generateText(ctx context.Context, gen textgen.Generator, m Metrics, purpose, userID, prompt string) (string, error) {
	ctx, span := cfotel.StartGenerateSpan(ctx, purpose, userID)
	start := time.Now()
	raw, err := gen.Generate(ctx, prompt)
	if m != nil {
		m.RecordLLM(ctx, purpose, time.Since(start), err)
	}
	cfotel.EndSpan(span, err)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", purpose, err)
	}
	return raw, nil
}

func (s *RoadmapService) generationFailed(ctx context.Context, raw string, err error) error {
	slog.WarnContext(ctx, "unusable generation", "error", err, "raw_response", raw)
	return &GenerationError{Raw: raw, Err: err}
}

func (s *RoadmapService) created(ctx context.Context, r *roadmap.Roadmap, tasks int, kind string) {
	s.invalidateList(ctx, r.UserID)
	s.publish(ctx, messagequeue.SubjectRoadmapGenerated, messagequeue.RoadmapGeneratedPayload{
		RoadmapID:  r.ID,
		UserID:     r.UserID,
		Title:      r.Title,
		Milestones: len(r.Milestones),
		Tasks:      tasks,
	})
	s.broadcast(ctx, r.UserID, broadcast.EventRoadmapCreated, ws.RoadmapEvent{RoadmapID: r.ID, Title: r.Title})
	if s.metrics != nil {
		s.metrics.RecordRoadmap(ctx, kind)
	}
}

func (s *RoadmapService) cached(ctx context.Context, key string, v any) bool {
	if s.cache == nil {
		return false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.WarnContext(ctx, "cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (s *RoadmapService) remember(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}

func (s *RoadmapService) invalidate(ctx context.Context, userID, roadmapID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.RoadmapKey(userID, roadmapID)); err != nil {
		slog.WarnContext(ctx, "cache invalidate failed", "roadmap_id", roadmapID, "error", err)
	}
	s.invalidateList(ctx, userID)
}

func (s *RoadmapService) invalidateList(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.RoadmapListKey(userID)); err != nil {
		slog.WarnContext(ctx, "cache invalidate failed", "user_id", userID, "error", err)
	}
}

func (s *RoadmapService) publish(ctx context.Context, subject string, payload any) {
	publishEvent(ctx, s.queue, subject, payload)
}

func (s *RoadmapService) broadcast(ctx context.Context, userID, eventType string, payload any) {
	if s.hub != nil {
		s.hub.BroadcastToUser(ctx, userID, eventType, payload)
	}
}

// publishEvent marshals payload onto subject. Failures are logged; the
// triggering operation has already committed.
func publishEvent(ctx context.Context, q messagequeue.Queue, subject string, payload any) bool {
	if q == nil {
		return false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event", "subject", subject, "error", err)
		return false
	}
	if err := q.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "publish event", "subject", subject, "error", err)
		return false
	}
	return true
}

// principal returns the authenticated user id from ctx.
func principal(ctx context.Context) (string, error) {
	id := middleware.UserIDFromContext(ctx)
	if id == "" {
		return "", fmt.Errorf("%w: no authenticated user", domain.ErrUnauthorized)
	}
	return id, nil
}
