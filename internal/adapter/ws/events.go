package ws

// ProgressEvent is pushed to the owner when a task completion changes.
type ProgressEvent struct {
	RoadmapID string `json:"roadmap_id"`
	TaskID    string `json:"task_id"`
	Completed bool   `json:"completed"`
	Progress  int    `json:"progress"`
}

// RoadmapEvent is pushed to the owner when a roadmap is created or deleted.
type RoadmapEvent struct {
	RoadmapID string `json:"roadmap_id"`
	Title     string `json:"title,omitempty"`
}
