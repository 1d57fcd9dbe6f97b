package extract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Strob0t/CareerForge/internal/domain/roadmap"
)

func TestNormalizeRoadmapSteps(t *testing.T) {
	raw := json.RawMessage(`[
		{"title":"Learn Go","description":"Tour of Go","id":"a1","estimated_time":"2 days"},
		{},
		5,
		{"id":7,"estimatedHours":3.5,"title":42},
		{"id":0,"estimatedTime":"1 week","estimated_hours":"2"}
	]`)

	steps := NormalizeRoadmapSteps(raw)
	if len(steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(steps))
	}

	first := steps[0]
	if first.ID != "a1" || first.Title != "Learn Go" || first.Description != "Tour of Go" || first.EstimatedTime != "2 days" {
		t.Errorf("first step not preserved: %+v", first)
	}
	if first.EstimatedHours != nil {
		t.Errorf("expected nil hours, got %v", *first.EstimatedHours)
	}

	for _, i := range []int{1, 2} {
		s := steps[i]
		wantID := string(rune('1' + i))
		if s.ID != wantID || s.Title != "Step "+wantID || s.Description != "" || s.EstimatedTime != roadmap.DefaultEstimatedTime {
			t.Errorf("step %d not defaulted: %+v", i+1, s)
		}
		if s.Position != i+1 {
			t.Errorf("step %d position = %d", i+1, s.Position)
		}
	}

	fourth := steps[3]
	if fourth.ID != "7" || fourth.Title != "Step 4" {
		t.Errorf("fourth step: %+v", fourth)
	}
	if fourth.EstimatedHours == nil || *fourth.EstimatedHours != 3.5 {
		t.Errorf("fourth step hours: %v", fourth.EstimatedHours)
	}

	fifth := steps[4]
	if fifth.ID != "5" || fifth.EstimatedTime != "1 week" {
		t.Errorf("fifth step: %+v", fifth)
	}
	if fifth.EstimatedHours == nil || *fifth.EstimatedHours != 2 {
		t.Errorf("fifth step hours: %v", fifth.EstimatedHours)
	}
}

func TestNormalizeRoadmapStepsNonArray(t *testing.T) {
	inputs := []json.RawMessage{
		nil,
		json.RawMessage(`{"title":"x"}`),
		json.RawMessage(`"steps"`),
		json.RawMessage(`[1,`),
	}
	for _, in := range inputs {
		steps := NormalizeRoadmapSteps(in)
		if steps == nil || len(steps) != 0 {
			t.Errorf("NormalizeRoadmapSteps(%s) = %v, want empty slice", in, steps)
		}
	}
}

func TestNormalizeRoadmapMilestones(t *testing.T) {
	raw := json.RawMessage(`{
		"title": "Become an SRE",
		"targetRole": "SRE",
		"milestones": [
			{"title":"Linux","durationWeeks":3,"tasks":[
				{"title":"LFCS","taskType":"Certification","resourceUrl":"https://training.linuxfoundation.org","estimatedHours":40}
			]},
			{"tasks":[{"taskType":"reading"}]},
			"garbage"
		]
	}`)

	spec, err := NormalizeRoadmap(raw, "fallback")
	if err != nil {
		t.Fatalf("NormalizeRoadmap: %v", err)
	}
	if spec.Title != "Become an SRE" || spec.TargetRole != "SRE" {
		t.Errorf("header: %+v", spec)
	}
	if len(spec.Milestones) != 3 {
		t.Fatalf("expected 3 milestones, got %d", len(spec.Milestones))
	}

	m1 := spec.Milestones[0]
	if m1.Title != "Linux" || m1.DurationWeeks != 3 || len(m1.Tasks) != 1 {
		t.Fatalf("milestone 1: %+v", m1)
	}
	task := m1.Tasks[0]
	if task.TaskType != string(roadmap.TaskCertification) {
		t.Errorf("task type = %q, want certification", task.TaskType)
	}
	if task.ResourceURL == "" || task.EstimatedHours == nil || *task.EstimatedHours != 40 {
		t.Errorf("task fields lost: %+v", task)
	}

	m2 := spec.Milestones[1]
	if m2.Title != "Milestone 2" || m2.DurationWeeks != roadmap.DefaultDurationWeeks {
		t.Errorf("milestone 2 defaults: %+v", m2)
	}
	if len(m2.Tasks) != 1 || m2.Tasks[0].Title != "Step 1" || m2.Tasks[0].TaskType != string(roadmap.TaskLearning) {
		t.Errorf("milestone 2 tasks: %+v", m2.Tasks)
	}

	m3 := spec.Milestones[2]
	if m3.Title != "Milestone 3" || len(m3.Tasks) != 0 {
		t.Errorf("milestone 3: %+v", m3)
	}
}

func TestNormalizeRoadmapFlatSteps(t *testing.T) {
	spec, err := NormalizeRoadmap(json.RawMessage(`[{"title":"A"},{"title":"B"}]`), "Kubernetes")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Title != "Kubernetes" || len(spec.Milestones) != 1 {
		t.Fatalf("spec: %+v", spec)
	}
	m := spec.Milestones[0]
	if m.Title != "Kubernetes" || m.DurationWeeks != roadmap.DefaultDurationWeeks || len(m.Tasks) != 2 {
		t.Errorf("milestone: %+v", m)
	}
}

func TestNormalizeRoadmapTitleFallback(t *testing.T) {
	spec, err := NormalizeRoadmap(json.RawMessage(`{"milestones":[{"title":"M","tasks":[{}]}]}`), "My Career Roadmap")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Title != "My Career Roadmap" {
		t.Errorf("title = %q", spec.Title)
	}
}

func TestNormalizeRoadmapSchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		path     string
		expected Kind
		actual   Kind
	}{
		{name: "missing milestones", raw: `{"title":"x"}`, path: "milestones", expected: KindArray, actual: KindMissing},
		{name: "milestones object", raw: `{"milestones":{}}`, path: "milestones", expected: KindArray, actual: KindObject},
		{name: "empty milestones", raw: `{"milestones":[]}`, path: "milestones", expected: kindNonEmptyArray, actual: kindEmptyArray},
		{name: "empty array", raw: `[]`, expected: kindNonEmptyArray, actual: kindEmptyArray},
		{name: "citation array", raw: `[1]`, path: "[0]", expected: KindObject, actual: KindNumber},
		{name: "array of strings", raw: `["a","b"]`, path: "[0]", expected: KindObject, actual: KindString},
		{name: "string", raw: `"roadmap"`, expected: kindContainer, actual: KindString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeRoadmap(json.RawMessage(tt.raw), "f")
			var schema *SchemaError
			if !errors.As(err, &schema) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			if schema.Path != tt.path || schema.Expected != tt.expected || schema.Actual != tt.actual {
				t.Errorf("got %+v", schema)
			}
		})
	}
}
