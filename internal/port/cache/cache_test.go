package cache

import "testing"

func TestKeysAreDistinct(t *testing.T) {
	keys := map[string]bool{
		RoadmapKey("u1", "r1"): true,
		RoadmapKey("u2", "r1"): true,
		RoadmapListKey("u1"):   true,
		InsightKey("u1"):       true,
	}
	if len(keys) != 4 {
		t.Fatalf("expected 4 distinct keys, got %v", keys)
	}
}
