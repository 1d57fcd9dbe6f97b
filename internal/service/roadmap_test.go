package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/Strob0t/CareerForge/internal/adapter/ws"
	"github.com/Strob0t/CareerForge/internal/domain"
	"github.com/Strob0t/CareerForge/internal/domain/roadmap"
	"github.com/Strob0t/CareerForge/internal/domain/user"
	"github.com/Strob0t/CareerForge/internal/extract"
	"github.com/Strob0t/CareerForge/internal/port/broadcast"
	"github.com/Strob0t/CareerForge/internal/port/cache"
	"github.com/Strob0t/CareerForge/internal/port/messagequeue"
)

const milestoneReply = "Here is your plan:\n```json\n" + `{
  "title": "Path to SRE",
  "milestones": [
    {"title": "Foundations", "durationWeeks": 3, "tasks": [
      {"title": "Learn Linux", "taskType": "learning", "estimatedHours": 20},
      {"title": "Build a homelab", "taskType": "project"}
    ]},
    {"title": "Cloud", "tasks": [
      {"title": "Get certified", "taskType": "certification", "resourceUrl": "https://example.com/cert"}
    ]}
  ]
}` + "\n```\nGood luck!"

type rig struct {
	svc     *RoadmapService
	gen     *fakeGen
	queue   *fakeQueue
	hub     *fakeHub
	cache   *memCache
	metrics *fakeMetrics
}

func newRig(t *testing.T, reply string) *rig {
	t.Helper()
	r := &rig{
		gen:     &fakeGen{text: reply},
		queue:   &fakeQueue{},
		hub:     &fakeHub{},
		cache:   newMemCache(),
		metrics: &fakeMetrics{},
	}
	r.svc = NewRoadmapService(newStore(t), r.gen, newExtractor())
	r.svc.SetCache(r.cache, 0)
	r.svc.SetQueue(r.queue)
	r.svc.SetBroadcaster(r.hub)
	r.svc.SetMetrics(r.metrics)
	return r
}

func TestGeneratePersistsMilestoneRoadmap(t *testing.T) {
	r := newRig(t, milestoneReply)
	ctx := userCtx("user-a")

	got, err := r.svc.Generate(ctx, roadmap.GenerateRequest{TargetRole: "Site Reliability Engineer"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Title != "Path to SRE" || got.TargetRole != "Site Reliability Engineer" {
		t.Errorf("unexpected roadmap header: %q / %q", got.Title, got.TargetRole)
	}
	if len(got.Milestones) != 2 {
		t.Fatalf("expected 2 milestones, got %d", len(got.Milestones))
	}
	if got.Milestones[1].DurationWeeks != roadmap.DefaultDurationWeeks {
		t.Errorf("expected default duration, got %d", got.Milestones[1].DurationWeeks)
	}
	if n := len(got.Tasks()); n != 3 {
		t.Errorf("expected 3 tasks, got %d", n)
	}
	if got.Progress != 0 {
		t.Errorf("new roadmap progress = %d, want 0", got.Progress)
	}

	if !strings.Contains(r.gen.prompts[0], "GOAL: Become a Site Reliability Engineer") {
		t.Errorf("prompt missing goal: %s", r.gen.prompts[0])
	}
	if !strings.Contains(r.gen.prompts[0], "roughly 12 weeks") {
		t.Error("prompt should carry the default duration")
	}
	if !slices.Equal(r.queue.subjects(), []string{messagequeue.SubjectRoadmapGenerated}) {
		t.Errorf("unexpected published subjects %v", r.queue.subjects())
	}
	if len(r.hub.events) != 1 || r.hub.events[0].eventType != broadcast.EventRoadmapCreated {
		t.Errorf("expected one created event, got %+v", r.hub.events)
	}
	if !slices.Equal(r.metrics.roadmaps, []string{"milestones"}) || !slices.Equal(r.metrics.llm, []string{"roadmap"}) {
		t.Errorf("unexpected metrics %+v", r.metrics)
	}
}

func TestGenerateUsesProfile(t *testing.T) {
	r := newRig(t, milestoneReply)
	ctx := userCtx("user-p")
	profiles := NewProfileService(r.svc.store)
	if _, err := profiles.Update(ctx, user.UpdateRequest{
		Name:     "Ada",
		Industry: "Fintech",
		Skills:   []string{"Go", "SQL"},
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := r.svc.Generate(ctx, roadmap.GenerateRequest{TargetRole: "Staff Engineer", DurationWeeks: 20}); err != nil {
		t.Fatal(err)
	}
	p := r.gen.prompts[0]
	for _, want := range []string{"Name: Ada", "Industry: Fintech", "Skills: Go, SQL", "roughly 20 weeks"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(error) bool
	}{
		{"prose only", "Sorry, I cannot help with that.", func(err error) bool { return errors.Is(err, extract.ErrParse) }},
		{"scalar", `42`, func(err error) bool {
			var se *extract.SchemaError
			return errors.As(err, &se)
		}},
		{"object without milestones", `{"title":"x"}`, func(err error) bool {
			var se *extract.SchemaError
			return errors.As(err, &se)
		}},
		{"milestone without tasks", `{"title":"x","milestones":[{"title":"m","tasks":[]}]}`, func(err error) bool {
			return errors.Is(err, domain.ErrValidation)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, tt.reply)
			ctx := userCtx("user-f")
			_, err := r.svc.Generate(ctx, roadmap.GenerateRequest{TargetRole: "PM"})
			if err == nil {
				t.Fatal("expected error")
			}
			var ge *GenerationError
			if !errors.As(err, &ge) {
				t.Fatalf("expected *GenerationError, got %T %v", err, err)
			}
			if ge.Raw != tt.reply {
				t.Errorf("raw response not preserved: %q", ge.Raw)
			}
			if !tt.check(err) {
				t.Errorf("unexpected cause: %v", err)
			}
			list, err := r.svc.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 0 {
				t.Errorf("failed generation must not persist, got %d roadmaps", len(list))
			}
			if len(r.queue.subjects()) != 0 {
				t.Errorf("failed generation must not publish, got %v", r.queue.subjects())
			}
		})
	}
}

func TestGenerateAcceptsFlatSteps(t *testing.T) {
	r := newRig(t, `[{"title":"Read the SRE book"},{"title":"Run an on-call drill"}]`)
	got, err := r.svc.Generate(userCtx("flat"), roadmap.GenerateRequest{TargetRole: "SRE", Title: "On-call ready"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Title != "On-call ready" || len(got.Milestones) != 1 || len(got.Tasks()) != 2 {
		t.Errorf("unexpected roadmap %+v", got)
	}
}

func TestGenerateSkipsCitationBeforePlan(t *testing.T) {
	reply := "Based on industry data [1], here is your plan:\n" + `{"title":"Path to SRE","milestones":[{"title":"Foundations","tasks":[{"title":"Learn Linux","taskType":"learning"}]}]}`
	r := newRig(t, reply)

	got, err := r.svc.Generate(userCtx("cite"), roadmap.GenerateRequest{TargetRole: "SRE"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Title != "Path to SRE" || len(got.Milestones) != 1 {
		t.Fatalf("unexpected roadmap %q with %d milestones", got.Title, len(got.Milestones))
	}
	if m := got.Milestones[0]; m.Title != "Foundations" || len(m.Tasks) != 1 || m.Tasks[0].Title != "Learn Linux" {
		t.Errorf("milestone not taken from the reply: %+v", m)
	}
}

func TestGenerateRejectsScalarArrays(t *testing.T) {
	for _, reply := range []string{`[1]`, "See [1] and [2] for details."} {
		t.Run(reply, func(t *testing.T) {
			r := newRig(t, reply)
			ctx := userCtx("scalars")
			_, err := r.svc.Generate(ctx, roadmap.GenerateRequest{TargetRole: "SRE"})
			var se *extract.SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			list, err := r.svc.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 0 {
				t.Errorf("no roadmap may be saved, got %d", len(list))
			}
		})
	}
}

func TestGenerateStepsRejectsScalarArrays(t *testing.T) {
	r := newRig(t, "Sources: [1]")
	_, err := r.svc.GenerateSteps(userCtx("u"), "Go")
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	var se *extract.SchemaError
	if !errors.As(err, &se) || se.Path != "[0]" {
		t.Errorf("expected element SchemaError, got %v", err)
	}
}

func TestGenerateProviderError(t *testing.T) {
	r := newRig(t, "")
	r.gen.err = errors.New("upstream 503")
	_, err := r.svc.Generate(userCtx("u"), roadmap.GenerateRequest{TargetRole: "PM"})
	if err == nil || !strings.Contains(err.Error(), "upstream 503") {
		t.Fatalf("expected provider error, got %v", err)
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		t.Error("provider errors carry no raw response")
	}
}

func TestGenerateValidation(t *testing.T) {
	r := newRig(t, milestoneReply)
	_, err := r.svc.Generate(userCtx("u"), roadmap.GenerateRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if r.gen.calls() != 0 {
		t.Error("invalid request must not reach the model")
	}
}

func TestUnauthenticated(t *testing.T) {
	r := newRig(t, milestoneReply)
	ctx := context.Background()

	calls := map[string]func() error{
		"generate": func() error { _, err := r.svc.Generate(ctx, roadmap.GenerateRequest{TargetRole: "x"}); return err },
		"steps":    func() error { _, err := r.svc.GenerateSteps(ctx, "go"); return err },
		"list":     func() error { _, err := r.svc.List(ctx); return err },
		"get":      func() error { _, err := r.svc.Get(ctx, "id"); return err },
		"delete":   func() error { return r.svc.Delete(ctx, "id") },
		"toggle":   func() error { _, err := r.svc.ToggleTask(ctx, "r", "t", true); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestGenerateSteps(t *testing.T) {
	reply := "```\n" + `[{"title":"Learn Go","estimated_time":"2 weeks"},{"description":"no title"}]` + "\n```"
	r := newRig(t, reply)

	steps, err := r.svc.GenerateSteps(userCtx("u"), "Backend development")
	if err != nil {
		t.Fatalf("GenerateSteps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[1].Title != "Step 2" || steps[1].ID != "2" || steps[1].EstimatedTime != roadmap.DefaultEstimatedTime {
		t.Errorf("defaults not applied: %+v", steps[1])
	}
	if !strings.Contains(r.gen.prompts[0], "roadmap for: Backend development") {
		t.Error("prompt missing topic")
	}
	if len(r.queue.subjects()) != 0 {
		t.Error("steps are not persisted or published")
	}

	if _, err := r.svc.GenerateSteps(userCtx("u"), ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty topic: expected validation error, got %v", err)
	}
}

func createFlat(t *testing.T, r *rig, ctx context.Context, steps ...string) *roadmap.Roadmap {
	t.Helper()
	req := roadmap.CreateRequest{Title: "Go", Topic: "golang"}
	for _, s := range steps {
		req.Steps = append(req.Steps, roadmap.TaskSpec{Title: s})
	}
	rm, err := r.svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return rm
}

func TestToggleTaskUpdatesProgressAndNotifies(t *testing.T) {
	r := newRig(t, "")
	ctx := userCtx("user-t")
	rm := createFlat(t, r, ctx, "one", "two", "three", "four")
	tasks := rm.Tasks()

	// Warm both views so invalidation is observable.
	if _, err := r.svc.Get(ctx, rm.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := r.svc.List(ctx); err != nil {
		t.Fatal(err)
	}
	detailKey := cache.RoadmapKey("user-t", rm.ID)
	if !r.cache.has(detailKey) {
		t.Fatal("expected detail view cached")
	}

	st, err := r.svc.ToggleTask(ctx, rm.ID, tasks[0].ID, true)
	if err != nil {
		t.Fatalf("ToggleTask: %v", err)
	}
	if !st.Completed || st.Progress != 25 || st.CompletedAt == nil {
		t.Errorf("unexpected state %+v", st)
	}
	if r.cache.has(detailKey) || r.cache.has(cache.RoadmapListKey("user-t")) {
		t.Error("toggle must invalidate cached views")
	}

	last := r.hub.events[len(r.hub.events)-1]
	ev, ok := last.payload.(ws.ProgressEvent)
	if !ok || last.eventType != broadcast.EventRoadmapProgress || last.userID != "user-t" {
		t.Fatalf("unexpected push %+v", last)
	}
	if ev.Progress != 25 || ev.TaskID != tasks[0].ID {
		t.Errorf("unexpected progress event %+v", ev)
	}
	if !slices.Contains(r.queue.subjects(), messagequeue.SubjectRoadmapProgress) {
		t.Error("expected progress message")
	}

	// Repeating the same toggle is idempotent.
	again, err := r.svc.ToggleTask(ctx, rm.ID, tasks[0].ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if again.Progress != 25 || !again.CompletedAt.Equal(*st.CompletedAt) {
		t.Errorf("repeat toggle changed state: %+v", again)
	}

	got, err := r.svc.Get(ctx, rm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 25 {
		t.Errorf("fresh read progress = %d, want 25", got.Progress)
	}
	if r.metrics.toggles != 2 {
		t.Errorf("expected 2 toggles recorded, got %d", r.metrics.toggles)
	}
}

func TestToggleTaskOwnership(t *testing.T) {
	r := newRig(t, "")
	owner := userCtx("owner")
	rm := createFlat(t, r, owner, "only")
	taskID := rm.Tasks()[0].ID
	before := len(r.hub.events)

	_, err := r.svc.ToggleTask(userCtx("intruder"), rm.ID, taskID, true)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign toggle: expected ErrNotFound, got %v", err)
	}
	if len(r.hub.events) != before {
		t.Error("failed toggle must not broadcast")
	}

	got, err := r.svc.Get(owner, rm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tasks()[0].Completed {
		t.Error("foreign toggle must not change the task")
	}
}

func TestCreateValidation(t *testing.T) {
	r := newRig(t, "")
	_, err := r.svc.Create(userCtx("u"), roadmap.CreateRequest{Title: "x"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = r.svc.Create(userCtx("u"), roadmap.CreateRequest{
		Title: "Go", Topic: "golang",
		Steps: []roadmap.TaskSpec{{Title: "Tour of Go"}, {Title: ""}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank step title: expected validation error, got %v", err)
	}
}

func TestDeleteInvalidatesAndNotifies(t *testing.T) {
	r := newRig(t, "")
	ctx := userCtx("user-d")
	rm := createFlat(t, r, ctx, "a", "b")
	if _, err := r.svc.Get(ctx, rm.ID); err != nil {
		t.Fatal(err)
	}

	if err := r.svc.Delete(userCtx("someone-else"), rm.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign delete: expected ErrNotFound, got %v", err)
	}
	if err := r.svc.Delete(ctx, rm.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if r.cache.has(cache.RoadmapKey("user-d", rm.ID)) {
		t.Error("delete must invalidate the detail view")
	}
	if _, err := r.svc.Get(ctx, rm.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("deleted roadmap: expected ErrNotFound, got %v", err)
	}
	if !slices.Contains(r.queue.subjects(), messagequeue.SubjectRoadmapDeleted) {
		t.Error("expected deleted message")
	}
}

func TestListServedFromCache(t *testing.T) {
	r := newRig(t, "")
	ctx := userCtx("user-l")
	createFlat(t, r, ctx, "a")

	first, err := r.svc.List(ctx)
	if err != nil || len(first) != 1 {
		t.Fatalf("List: %v %v", first, err)
	}
	r.cache.data[cache.RoadmapListKey("user-l")] = []byte(`[{"id":"cached","title":"From cache"}]`)
	second, err := r.svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 || second[0].ID != "cached" {
		t.Errorf("expected cached list, got %+v", second)
	}

	r.cache.failGet = true
	third, err := r.svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(third) != 1 || third[0].ID == "cached" {
		t.Errorf("cache failure should fall back to the store, got %+v", third)
	}
}

func TestServiceWithoutOptionalPorts(t *testing.T) {
	svc := NewRoadmapService(newStore(t), &fakeGen{text: milestoneReply}, newExtractor())
	ctx := userCtx("bare")
	rm, err := svc.Generate(ctx, roadmap.GenerateRequest{TargetRole: "Analyst"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ToggleTask(ctx, rm.ID, rm.Tasks()[0].ID, true); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, rm.ID); err != nil {
		t.Fatal(err)
	}
}
