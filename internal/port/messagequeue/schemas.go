package messagequeue

// RoadmapGeneratedPayload is the schema for roadmaps.generated messages.
type RoadmapGeneratedPayload struct {
	RoadmapID  string `json:"roadmap_id"`
	UserID     string `json:"user_id"`
	Title      string `json:"title"`
	Milestones int    `json:"milestones"`
	Tasks      int    `json:"tasks"`
}

// RoadmapProgressPayload is the schema for roadmaps.progress messages.
type RoadmapProgressPayload struct {
	RoadmapID string `json:"roadmap_id"`
	UserID    string `json:"user_id"`
	TaskID    string `json:"task_id"`
	Completed bool   `json:"completed"`
	Progress  int    `json:"progress"`
}

// RoadmapDeletedPayload is the schema for roadmaps.deleted messages.
type RoadmapDeletedPayload struct {
	RoadmapID string `json:"roadmap_id"`
	UserID    string `json:"user_id"`
}

// ReminderSentPayload is the schema for reminders.sent messages.
type ReminderSentPayload struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PendingTasks int    `json:"pending_tasks"`
}

// InsightUpdatedPayload is the schema for insights.updated messages.
type InsightUpdatedPayload struct {
	Industry    string `json:"industry"`
	DemandLevel string `json:"demand_level"`
	NextUpdate  string `json:"next_update"`
}
