// Package storetest provides a behavioral test suite for database.Store
// implementations.
package storetest

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/CareerForge/internal/domain"
	"github.com/Strob0t/CareerForge/internal/domain/insight"
	"github.com/Strob0t/CareerForge/internal/domain/roadmap"
	"github.com/Strob0t/CareerForge/internal/domain/user"
	"github.com/Strob0t/CareerForge/internal/port/database"
)

// Run exercises the store contract against s. Every subtest uses fresh user
// ids so the suite can run repeatedly against a persistent database.
func Run(t *testing.T, s database.Store) {
	t.Helper()
	ctx := context.Background()
	newUser := func() string { return "user-" + uuid.NewString() }
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	t.Run("Ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("ProfileRoundTrip", func(t *testing.T) {
		uid := newUser()
		if _, err := s.GetProfile(ctx, uid); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound before create, got %v", err)
		}
		if err := s.EnsureUser(ctx, uid); err != nil {
			t.Fatal(err)
		}
		if err := s.EnsureUser(ctx, uid); err != nil {
			t.Fatalf("EnsureUser should be idempotent: %v", err)
		}
		got, err := s.UpsertProfile(ctx, &user.Profile{
			ID: uid, Email: "a@example.com", Name: "Ada", Industry: "tech-software",
			Skills: []string{"Go", "SQL"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if got.Industry != "tech-software" || len(got.Skills) != 2 {
			t.Fatalf("unexpected profile %+v", got)
		}
		again, err := s.GetProfile(ctx, uid)
		if err != nil {
			t.Fatal(err)
		}
		if again.Email != "a@example.com" || again.Skills[1] != "SQL" {
			t.Fatalf("unexpected stored profile %+v", again)
		}
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		uid := newUser()
		spec := twoMilestones()
		rm, err := s.CreateRoadmap(ctx, uid, &spec, start)
		if err != nil {
			t.Fatal(err)
		}
		if rm.Progress != 0 || rm.Status != roadmap.StatusActive {
			t.Fatalf("new roadmap should be active at 0%%, got %d %s", rm.Progress, rm.Status)
		}

		got, err := s.GetRoadmap(ctx, uid, rm.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Milestones) != 2 {
			t.Fatalf("expected 2 milestones, got %d", len(got.Milestones))
		}
		if got.Milestones[0].Title != "Foundations" || got.Milestones[1].Title != "Projects" {
			t.Fatalf("milestones out of order: %q, %q", got.Milestones[0].Title, got.Milestones[1].Title)
		}
		if n := len(got.Milestones[0].Tasks); n != 2 {
			t.Fatalf("expected 2 tasks in first milestone, got %d", n)
		}
		if got.Milestones[0].Tasks[0].Title != "Learn Go" {
			t.Fatalf("tasks out of order: %q", got.Milestones[0].Tasks[0].Title)
		}
		due := got.Milestones[1].DueDate
		if due == nil || !due.Equal(start.AddDate(0, 0, 7*5)) {
			t.Fatalf("expected cumulative due date, got %v", due)
		}
		if h := got.Milestones[0].Tasks[0].EstimatedHours; h == nil || *h != 10 {
			t.Fatalf("expected estimated hours 10, got %v", h)
		}
	})

	t.Run("CreateIsAllOrNothing", func(t *testing.T) {
		uid := newUser()
		spec := twoMilestones()
		// The last task of the last milestone violates the schema, so the
		// roadmap row, both milestones and the earlier tasks are already
		// written when the insert fails.
		last := &spec.Milestones[len(spec.Milestones)-1]
		last.Tasks = append(last.Tasks, roadmap.TaskSpec{Title: " "})

		if _, err := s.CreateRoadmap(ctx, uid, &spec, start); err == nil {
			t.Fatal("expected the blank task insert to fail")
		}

		list, err := s.ListRoadmaps(ctx, uid)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 0 {
			t.Fatalf("failed create left %d roadmaps behind", len(list))
		}
		pending, err := s.ListPendingReminders(ctx)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range pending {
			if p.UserID == uid {
				t.Fatalf("failed create left tasks behind: %+v", p)
			}
		}

		// The same user can still create once the spec is valid.
		good := twoMilestones()
		rm, err := s.CreateRoadmap(ctx, uid, &good, start)
		if err != nil {
			t.Fatal(err)
		}
		got, err := s.GetRoadmap(ctx, uid, rm.ID)
		if err != nil {
			t.Fatal(err)
		}
		if n := len(got.Tasks()); n != 3 {
			t.Fatalf("expected only the valid roadmap's 3 tasks, got %d", n)
		}
		if list, _ = s.ListRoadmaps(ctx, uid); len(list) != 1 {
			t.Fatalf("expected exactly one roadmap, got %d", len(list))
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		uid := newUser()
		first := flat("First", 2)
		second := flat("Second", 1)
		if _, err := s.CreateRoadmap(ctx, uid, &first, start); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
		if _, err := s.CreateRoadmap(ctx, uid, &second, start); err != nil {
			t.Fatal(err)
		}
		list, err := s.ListRoadmaps(ctx, uid)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 roadmaps, got %d", len(list))
		}
		if list[0].Title != "Second" || list[1].TotalTasks != 2 {
			t.Fatalf("unexpected list %+v", list)
		}

		empty, err := s.ListRoadmaps(ctx, newUser())
		if err != nil {
			t.Fatal(err)
		}
		if empty == nil || len(empty) != 0 {
			t.Fatalf("expected empty non-nil list, got %#v", empty)
		}
	})

	t.Run("ToggleProgress", func(t *testing.T) {
		uid := newUser()
		spec := flat("Two steps", 2)
		rm, err := s.CreateRoadmap(ctx, uid, &spec, start)
		if err != nil {
			t.Fatal(err)
		}
		tasks := rm.Tasks()
		at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

		st, err := s.SetTaskCompleted(ctx, uid, rm.ID, tasks[0].ID, true, at)
		if err != nil {
			t.Fatal(err)
		}
		if st.Progress != 50 || !st.Completed || st.CompletedAt == nil {
			t.Fatalf("expected 50%% completed, got %+v", st)
		}

		// Completing again keeps the original timestamp.
		st, err = s.SetTaskCompleted(ctx, uid, rm.ID, tasks[0].ID, true, at.Add(time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if st.Progress != 50 || !st.CompletedAt.Equal(at) {
			t.Fatalf("repeat completion changed state: %+v", st)
		}

		st, err = s.SetTaskCompleted(ctx, uid, rm.ID, tasks[1].ID, true, at)
		if err != nil {
			t.Fatal(err)
		}
		if st.Progress != 100 {
			t.Fatalf("expected 100%%, got %d", st.Progress)
		}
		got, err := s.GetRoadmap(ctx, uid, rm.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != roadmap.StatusComplete || got.Progress != 100 {
			t.Fatalf("expected complete roadmap, got %s %d", got.Status, got.Progress)
		}

		st, err = s.SetTaskCompleted(ctx, uid, rm.ID, tasks[1].ID, false, at)
		if err != nil {
			t.Fatal(err)
		}
		if st.Progress != 50 || st.Completed || st.CompletedAt != nil {
			t.Fatalf("expected uncompleted task at 50%%, got %+v", st)
		}
		got, err = s.GetRoadmap(ctx, uid, rm.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != roadmap.StatusActive {
			t.Fatalf("expected roadmap back to active, got %s", got.Status)
		}
	})

	t.Run("ForeignUserIsNotFound", func(t *testing.T) {
		owner, other := newUser(), newUser()
		spec := flat("Private", 1)
		rm, err := s.CreateRoadmap(ctx, owner, &spec, start)
		if err != nil {
			t.Fatal(err)
		}
		taskID := rm.Tasks()[0].ID

		if _, err := s.GetRoadmap(ctx, other, rm.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get: expected ErrNotFound, got %v", err)
		}
		if _, err := s.SetTaskCompleted(ctx, other, rm.ID, taskID, true, start); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("toggle: expected ErrNotFound, got %v", err)
		}
		if err := s.DeleteRoadmap(ctx, other, rm.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("delete: expected ErrNotFound, got %v", err)
		}

		got, err := s.GetRoadmap(ctx, owner, rm.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Progress != 0 {
			t.Fatalf("foreign toggle must not change progress, got %d", got.Progress)
		}
	})

	t.Run("TaskOfOtherRoadmapIsNotFound", func(t *testing.T) {
		uid := newUser()
		a, b := flat("A", 1), flat("B", 1)
		ra, err := s.CreateRoadmap(ctx, uid, &a, start)
		if err != nil {
			t.Fatal(err)
		}
		rb, err := s.CreateRoadmap(ctx, uid, &b, start)
		if err != nil {
			t.Fatal(err)
		}
		_, err = s.SetTaskCompleted(ctx, uid, ra.ID, rb.Tasks()[0].ID, true, start)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("MalformedIDs", func(t *testing.T) {
		uid := newUser()
		if _, err := s.GetRoadmap(ctx, uid, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := s.DeleteRoadmap(ctx, uid, "42"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.SetTaskCompleted(ctx, uid, uuid.NewString(), "x", true, start); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		uid := newUser()
		spec := twoMilestones()
		rm, err := s.CreateRoadmap(ctx, uid, &spec, start)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.SetTaskCompleted(ctx, uid, rm.ID, rm.Tasks()[0].ID, true, start); err != nil {
			t.Fatal(err)
		}
		if err := s.DeleteRoadmap(ctx, uid, rm.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := s.GetRoadmap(ctx, uid, rm.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeleteRoadmap(ctx, uid, rm.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("second delete: expected ErrNotFound, got %v", err)
		}
		list, err := s.ListRoadmaps(ctx, uid)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 0 {
			t.Fatalf("expected no roadmaps, got %d", len(list))
		}
	})

	t.Run("PendingReminders", func(t *testing.T) {
		uid := newUser()
		if _, err := s.UpsertProfile(ctx, &user.Profile{ID: uid, Email: "r@example.com", Name: "Rem"}); err != nil {
			t.Fatal(err)
		}
		spec := flat("Pending", 3)
		rm, err := s.CreateRoadmap(ctx, uid, &spec, start)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.SetTaskCompleted(ctx, uid, rm.ID, rm.Tasks()[0].ID, true, start); err != nil {
			t.Fatal(err)
		}
		list, err := s.ListPendingReminders(ctx)
		if err != nil {
			t.Fatal(err)
		}
		var found *user.Reminder
		for i := range list {
			if list[i].UserID == uid {
				found = &list[i]
			}
		}
		if found == nil || found.PendingTasks != 2 || found.Email != "r@example.com" {
			t.Fatalf("expected reminder with 2 pending tasks, got %+v", found)
		}
	})

	t.Run("Insights", func(t *testing.T) {
		industry := "industry-" + uuid.NewString()
		if _, err := s.GetInsight(ctx, industry); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		uid := newUser()
		if _, err := s.UpsertProfile(ctx, &user.Profile{ID: uid, Industry: industry}); err != nil {
			t.Fatal(err)
		}
		industries, err := s.ListIndustries(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Contains(industries, industry) {
			t.Fatalf("expected %s in %v", industry, industries)
		}

		now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		in := &insight.Insight{
			Industry: industry,
			Report: insight.Report{
				GrowthRate:    4.5,
				DemandLevel:   insight.DemandHigh,
				MarketOutlook: insight.OutlookPositive,
				TopSkills:     []string{"Go"},
				SalaryRanges:  []insight.SalaryRange{{Role: "Engineer", Min: 1, Max: 2, Median: 1.5, Location: "US"}},
			},
			LastUpdated: now,
			NextUpdate:  now.AddDate(0, 0, 7),
		}
		if err := s.UpsertInsight(ctx, in); err != nil {
			t.Fatal(err)
		}
		in.Report.DemandLevel = insight.DemandLow
		if err := s.UpsertInsight(ctx, in); err != nil {
			t.Fatal(err)
		}
		got, err := s.GetInsight(ctx, industry)
		if err != nil {
			t.Fatal(err)
		}
		if got.Report.DemandLevel != insight.DemandLow || got.Report.SalaryRanges[0].Role != "Engineer" {
			t.Fatalf("unexpected insight %+v", got.Report)
		}
		if !got.NextUpdate.Equal(now.AddDate(0, 0, 7)) {
			t.Fatalf("unexpected next update %v", got.NextUpdate)
		}
	})
}

func twoMilestones() roadmap.Spec {
	hours := 10.0
	return roadmap.Spec{
		Title:      "Backend Engineer",
		TargetRole: "Backend Engineer",
		Milestones: []roadmap.MilestoneSpec{
			{
				Title:         "Foundations",
				DurationWeeks: 2,
				Tasks: []roadmap.TaskSpec{
					{Title: "Learn Go", TaskType: string(roadmap.TaskLearning), EstimatedHours: &hours},
					{Title: "Learn SQL", TaskType: string(roadmap.TaskLearning)},
				},
			},
			{
				Title:         "Projects",
				DurationWeeks: 3,
				Tasks: []roadmap.TaskSpec{
					{Title: "Build an API", TaskType: string(roadmap.TaskProject)},
				},
			},
		},
	}
}

func flat(title string, steps int) roadmap.Spec {
	req := roadmap.CreateRequest{Title: title, Topic: "go"}
	for range steps {
		req.Steps = append(req.Steps, roadmap.TaskSpec{Title: title + " step", Description: "d"})
	}
	return req.Spec()
}
