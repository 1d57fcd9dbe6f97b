// Package roadmap contains the domain models for career roadmaps and their
// task progress.
package roadmap

import "time"

// Status represents the lifecycle state of a roadmap.
type Status string

const (
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
	StatusArchived Status = "archived"
)

// TaskType classifies a task in a milestone roadmap.
type TaskType string

const (
	TaskLearning      TaskType = "learning"
	TaskProject       TaskType = "project"
	TaskCertification TaskType = "certification"
	TaskNetworking    TaskType = "networking"
)

// DefaultDurationWeeks is used for milestones that do not state a duration.
const DefaultDurationWeeks = 2

// DefaultEstimatedTime is used for steps that do not state an estimate.
const DefaultEstimatedTime = "Not specified"

// ParseTaskType maps free text onto a TaskType. Unknown values become TaskLearning.
func ParseTaskType(s string) TaskType {
	switch t := TaskType(s); t {
	case TaskLearning, TaskProject, TaskCertification, TaskNetworking:
		return t
	default:
		return TaskLearning
	}
}

// Roadmap is a user's top-level learning plan.
type Roadmap struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Title       string      `json:"title"`
	Topic       string      `json:"topic,omitempty"`
	TargetRole  string      `json:"target_role,omitempty"`
	Description string      `json:"description,omitempty"`
	Status      Status      `json:"status"`
	StartDate   time.Time   `json:"start_date"`
	Milestones  []Milestone `json:"milestones,omitempty"`
	Progress    int         `json:"progress"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Milestone is a titled phase of a roadmap containing ordered tasks.
type Milestone struct {
	ID            string     `json:"id"`
	RoadmapID     string     `json:"roadmap_id"`
	Sequence      int        `json:"sequence"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	DurationWeeks int        `json:"duration_weeks"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Tasks         []Task     `json:"tasks"`
}

// Task is the smallest trackable unit of a roadmap.
type Task struct {
	ID             string     `json:"id"`
	RoadmapID      string     `json:"roadmap_id"`
	MilestoneID    string     `json:"milestone_id"`
	Sequence       int        `json:"sequence"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	TaskType       string     `json:"task_type,omitempty"`
	ResourceURL    string     `json:"resource_url,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	EstimatedTime  string     `json:"estimated_time,omitempty"`
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Summary is a roadmap list entry with derived progress.
type Summary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Topic          string    `json:"topic,omitempty"`
	TargetRole     string    `json:"target_role,omitempty"`
	Status         Status    `json:"status"`
	TotalTasks     int       `json:"total_tasks"`
	CompletedTasks int       `json:"completed_tasks"`
	Progress       int       `json:"progress"`
	CreatedAt      time.Time `json:"created_at"`
}

// TaskState is the result of a completion toggle.
type TaskState struct {
	TaskID      string     `json:"task_id"`
	RoadmapID   string     `json:"roadmap_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Progress    int        `json:"progress"`
}

// Spec is a roadmap recovered from generated text, before persistence.
type Spec struct {
	Title       string          `json:"title"`
	TargetRole  string          `json:"targetRole,omitempty"`
	Topic       string          `json:"topic,omitempty"`
	Description string          `json:"description,omitempty"`
	Milestones  []MilestoneSpec `json:"milestones"`
}

// MilestoneSpec is one phase of a Spec. Order in Spec.Milestones is the sequence.
type MilestoneSpec struct {
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	DurationWeeks int        `json:"durationWeeks"`
	Tasks         []TaskSpec `json:"tasks"`
}

// TaskSpec is a normalized step or task.
type TaskSpec struct {
	Position       int      `json:"-"`
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	TaskType       string   `json:"taskType,omitempty"`
	ResourceURL    string   `json:"resourceUrl,omitempty"`
	EstimatedHours *float64 `json:"estimatedHours"`
	EstimatedTime  string   `json:"estimated_time"`
}

// CreateRequest saves a flat step roadmap.
type CreateRequest struct {
	Title       string     `json:"title"`
	Topic       string     `json:"topic"`
	Description string     `json:"description"`
	Steps       []TaskSpec `json:"steps"`
}

// Spec converts the request into a single-milestone Spec.
func (r *CreateRequest) Spec() Spec {
	steps := make([]TaskSpec, len(r.Steps))
	for i, s := range r.Steps {
		s.Position = i + 1
		if s.EstimatedTime == "" {
			s.EstimatedTime = DefaultEstimatedTime
		}
		steps[i] = s
	}
	return Spec{
		Title:       r.Title,
		Topic:       r.Topic,
		Description: r.Description,
		Milestones: []MilestoneSpec{{
			Title:         r.Title,
			DurationWeeks: DefaultDurationWeeks,
			Tasks:         steps,
		}},
	}
}

// GenerateRequest asks for a milestone roadmap toward a target role.
type GenerateRequest struct {
	TargetRole    string `json:"targetRole"`
	DurationWeeks int    `json:"durationWeeks"`
	Title         string `json:"title"`
}

// Tasks returns every task of the roadmap in milestone then task order.
func (r *Roadmap) Tasks() []Task {
	var out []Task
	for i := range r.Milestones {
		out = append(out, r.Milestones[i].Tasks...)
	}
	return out
}

// RefreshProgress recomputes Progress from the task rows.
func (r *Roadmap) RefreshProgress() {
	r.Progress = ComputeProgress(r.Tasks())
}

// DueDates returns the due date of each milestone. Milestones are scheduled
// back to back from start; a non-positive duration counts as the default.
func (s *Spec) DueDates(start time.Time) []time.Time {
	out := make([]time.Time, len(s.Milestones))
	due := start
	for i, m := range s.Milestones {
		weeks := m.DurationWeeks
		if weeks <= 0 {
			weeks = DefaultDurationWeeks
		}
		due = due.AddDate(0, 0, 7*weeks)
		out[i] = due
	}
	return out
}

// TaskCount returns the number of tasks across all milestones.
func (s *Spec) TaskCount() int {
	n := 0
	for i := range s.Milestones {
		n += len(s.Milestones[i].Tasks)
	}
	return n
}
