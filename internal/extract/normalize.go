package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Strob0t/CareerForge/internal/domain/roadmap"
)

type fields map[string]json.RawMessage

// NormalizeRoadmapSteps converts an array of step objects into TaskSpecs,
// defaulting every missing field. It never fails: a non-array input yields an
// empty slice and a malformed element yields a fully defaulted step.
func NormalizeRoadmapSteps(raw json.RawMessage) []roadmap.TaskSpec {
	var elems []json.RawMessage
	if KindOf(raw) != KindArray || json.Unmarshal(raw, &elems) != nil {
		return []roadmap.TaskSpec{}
	}
	out := make([]roadmap.TaskSpec, len(elems))
	for i, el := range elems {
		out[i] = normalizeStep(el, i+1)
	}
	return out
}

func normalizeStep(el json.RawMessage, pos int) roadmap.TaskSpec {
	var f fields
	if KindOf(el) != KindObject || json.Unmarshal(el, &f) != nil {
		f = fields{}
	}

	ts := roadmap.TaskSpec{
		Position:      pos,
		ID:            f.id("id"),
		Title:         f.str("title"),
		Description:   f.str("description"),
		TaskType:      f.str("taskType", "task_type"),
		ResourceURL:   f.str("resourceUrl", "resource_url", "url"),
		EstimatedTime: f.str("estimated_time", "estimatedTime"),
	}
	if h, ok := f.num("estimatedHours", "estimated_hours"); ok {
		ts.EstimatedHours = &h
	}
	if ts.ID == "" {
		ts.ID = strconv.Itoa(pos)
	}
	if ts.Title == "" {
		ts.Title = "Step " + strconv.Itoa(pos)
	}
	if ts.EstimatedTime == "" {
		ts.EstimatedTime = roadmap.DefaultEstimatedTime
	}
	return ts
}

// NormalizeRoadmap unifies both generated shapes into one Spec. A bare array is
// a single milestone of steps titled fallbackTitle and needs at least one
// object element. An object must carry a
// non-empty "milestones" array; its tasks are normalized like steps, task types
// are coerced to the known set and durations default to two weeks.
func NormalizeRoadmap(raw json.RawMessage, fallbackTitle string) (roadmap.Spec, error) {
	switch k := KindOf(raw); k {
	case KindArray:
		if err := RequireObjectElements(raw); err != nil {
			return roadmap.Spec{}, err
		}
		steps := NormalizeRoadmapSteps(raw)
		return roadmap.Spec{
			Title: fallbackTitle,
			Milestones: []roadmap.MilestoneSpec{{
				Title:         fallbackTitle,
				DurationWeeks: roadmap.DefaultDurationWeeks,
				Tasks:         steps,
			}},
		}, nil
	case KindObject:
		return normalizeMilestoneRoadmap(raw, fallbackTitle)
	default:
		return roadmap.Spec{}, &SchemaError{Expected: kindContainer, Actual: k}
	}
}

func normalizeMilestoneRoadmap(raw json.RawMessage, fallbackTitle string) (roadmap.Spec, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return roadmap.Spec{}, &SchemaError{Expected: KindObject, Actual: KindOf(raw)}
	}

	ms, ok := f["milestones"]
	if !ok {
		return roadmap.Spec{}, &SchemaError{Path: "milestones", Expected: KindArray, Actual: KindMissing}
	}
	if k := KindOf(ms); k != KindArray {
		return roadmap.Spec{}, &SchemaError{Path: "milestones", Expected: KindArray, Actual: k}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(ms, &elems); err != nil || len(elems) == 0 {
		return roadmap.Spec{}, &SchemaError{Path: "milestones", Expected: kindNonEmptyArray, Actual: kindEmptyArray}
	}

	spec := roadmap.Spec{
		Title:       f.str("title"),
		TargetRole:  f.str("targetRole", "target_role"),
		Topic:       f.str("topic"),
		Description: f.str("description"),
		Milestones:  make([]roadmap.MilestoneSpec, len(elems)),
	}
	if spec.Title == "" {
		spec.Title = fallbackTitle
	}

	for i, el := range elems {
		var mf fields
		if KindOf(el) != KindObject || json.Unmarshal(el, &mf) != nil {
			mf = fields{}
		}
		m := roadmap.MilestoneSpec{
			Title:         mf.str("title"),
			Description:   mf.str("description"),
			DurationWeeks: roadmap.DefaultDurationWeeks,
			Tasks:         NormalizeRoadmapSteps(mf["tasks"]),
		}
		if m.Title == "" {
			m.Title = "Milestone " + strconv.Itoa(i+1)
		}
		if w, ok := mf.num("durationWeeks", "duration_weeks"); ok && w >= 1 {
			m.DurationWeeks = int(math.Round(w))
		}
		for j := range m.Tasks {
			m.Tasks[j].TaskType = string(roadmap.ParseTaskType(strings.ToLower(m.Tasks[j].TaskType)))
		}
		spec.Milestones[i] = m
	}
	return spec, nil
}

// str returns the first non-empty string value among keys.
func (f fields) str(keys ...string) string {
	for _, k := range keys {
		v, ok := f[k]
		if !ok || KindOf(v) != KindString {
			continue
		}
		var s string
		if json.Unmarshal(v, &s) == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// num returns the first numeric value among keys. Numeric strings are accepted.
func (f fields) num(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := f[k]
		if !ok {
			continue
		}
		switch KindOf(v) {
		case KindNumber:
			var n float64
			if json.Unmarshal(v, &n) == nil {
				return n, true
			}
		case KindString:
			var s string
			if json.Unmarshal(v, &s) == nil {
				n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
				if err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
					return n, true
				}
			}
		}
	}
	return 0, false
}

// id returns a string or non-zero numeric identifier, or "".
func (f fields) id(key string) string {
	v, ok := f[key]
	if !ok {
		return ""
	}
	switch KindOf(v) {
	case KindString:
		return f.str(key)
	case KindNumber:
		var n json.Number
		if json.Unmarshal(v, &n) == nil && n.String() != "0" {
			return n.String()
		}
	}
	return ""
}
