// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/Strob0t/CareerForge/internal/domain/insight"
	"github.com/Strob0t/CareerForge/internal/domain/roadmap"
	"github.com/Strob0t/CareerForge/internal/domain/user"
)

// Store is the port interface for database operations.
// Every roadmap operation is scoped by the owning user id; a roadmap or task
// owned by another user is reported as domain.ErrNotFound.
type Store interface {
	// Profiles
	EnsureUser(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*user.Profile, error)
	UpsertProfile(ctx context.Context, p *user.Profile) (*user.Profile, error)

	// Roadmaps
	CreateRoadmap(ctx context.Context, userID string, spec *roadmap.Spec, start time.Time) (*roadmap.Roadmap, error)
	ListRoadmaps(ctx context.Context, userID string) ([]roadmap.Summary, error)
	GetRoadmap(ctx context.Context, userID, roadmapID string) (*roadmap.Roadmap, error)
	DeleteRoadmap(ctx context.Context, userID, roadmapID string) error

	// SetTaskCompleted updates one task and returns its state together with the
	// recomputed roadmap progress, all within one transaction.
	SetTaskCompleted(ctx context.Context, userID, roadmapID, taskID string, completed bool, at time.Time) (*roadmap.TaskState, error)

	// Jobs
	ListPendingReminders(ctx context.Context) ([]user.Reminder, error)
	ListIndustries(ctx context.Context) ([]string, error)
	GetInsight(ctx context.Context, industry string) (*insight.Insight, error)
	UpsertInsight(ctx context.Context, in *insight.Insight) error

	Ping(ctx context.Context) error
}
