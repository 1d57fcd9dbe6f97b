package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/CareerForge/internal/port/database"
	"github.com/Strob0t/CareerForge/internal/port/messagequeue"
)

// ReminderService nudges users who still have open tasks on active roadmaps.
type ReminderService struct {
	store database.Store
	queue messagequeue.Queue
}

// NewReminderService creates a ReminderService. A nil queue makes Run a dry run.
func NewReminderService(store database.Store, queue messagequeue.Queue) *ReminderService {
	return &ReminderService{store: store, queue: queue}
}

// Run publishes one reminders.sent message per user with pending tasks and
// returns how many messages were published. Without a queue it only logs how
// many users are due and reports zero sent.
func (s *ReminderService) Run(ctx context.Context) (int, error) {
	pending, err := s.store.ListPendingReminders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending reminders: %w", err)
	}
	if s.queue == nil {
		slog.InfoContext(ctx, "reminders dry run, no queue configured", "due", len(pending))
		return 0, nil
	}

	sent := 0
	for _, r := range pending {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if publishEvent(ctx, s.queue, messagequeue.SubjectReminderSent, messagequeue.ReminderSentPayload{
			UserID:       r.UserID,
			Email:        r.Email,
			Name:         r.Name,
			PendingTasks: r.PendingTasks,
		}) {
			sent++
		}
	}
	slog.InfoContext(ctx, "reminders sent", "sent", sent, "due", len(pending))
	return sent, nil
}
