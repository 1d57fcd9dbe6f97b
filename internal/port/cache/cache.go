// Package cache defines the port interface for caching rendered roadmap views.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching.
// A miss is reported as found=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RoadmapKey is the cache key of one user's roadmap detail view.
func RoadmapKey(userID, roadmapID string) string {
	return "roadmap:" + userID + ":" + roadmapID
}

// RoadmapListKey is the cache key of one user's roadmap list.
func RoadmapListKey(userID string) string {
	return "roadmaps:" + userID
}

// InsightKey is the cache key of an industry insight.
func InsightKey(industry string) string {
	return "insight:" + industry
}
