// Package broadcast defines the port for pushing real-time events to connected clients.
package broadcast

import "context"

// Event types pushed to clients.
const (
	EventRoadmapProgress = "roadmap.progress"
	EventRoadmapCreated  = "roadmap.created"
	EventRoadmapDeleted  = "roadmap.deleted"
)

// Broadcaster sends real-time events to the connections of one user.
type Broadcaster interface {
	BroadcastToUser(ctx context.Context, userID, eventType string, payload any)
}
