package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/CareerForge/internal/domain"
	"github.com/Strob0t/CareerForge/internal/domain/roadmap"
)

// --- Roadmaps ---

// CreateRoadmap inserts the roadmap with all milestones and tasks in one
// transaction. Readers never observe a partial roadmap.
func (s *Store) CreateRoadmap(ctx context.Context, userID string, spec *roadmap.Spec, start time.Time) (*roadmap.Roadmap, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return nil, fmt.Errorf("ensure user %s: %w", userID, err)
	}

	rm := roadmap.Roadmap{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       spec.Title,
		Topic:       spec.Topic,
		TargetRole:  spec.TargetRole,
		Description: spec.Description,
		Status:      roadmap.StatusActive,
		StartDate:   start,
		Milestones:  make([]roadmap.Milestone, len(spec.Milestones)),
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO roadmaps (id, user_id, title, topic, target_role, description, status, start_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		rm.ID, rm.UserID, rm.Title, rm.Topic, rm.TargetRole, rm.Description, string(rm.Status), rm.StartDate,
	).Scan(&rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert roadmap: %w", err)
	}

	batch := &pgx.Batch{}
	due := spec.DueDates(start)
	for i := range spec.Milestones {
		ms := &spec.Milestones[i]
		m := roadmap.Milestone{
			ID:            uuid.NewString(),
			RoadmapID:     rm.ID,
			Sequence:      i + 1,
			Title:         ms.Title,
			Description:   ms.Description,
			DurationWeeks: ms.DurationWeeks,
			DueDate:       &due[i],
			Tasks:         make([]roadmap.Task, len(ms.Tasks)),
		}
		batch.Queue(
			`INSERT INTO milestones (id, roadmap_id, sequence, title, description, duration_weeks, due_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ID, m.RoadmapID, m.Sequence, m.Title, m.Description, m.DurationWeeks, m.DueDate)

		for j := range ms.Tasks {
			t := taskFromSpec(&ms.Tasks[j], rm.ID, m.ID, j+1)
			batch.Queue(
				`INSERT INTO tasks (id, roadmap_id, milestone_id, sequence, title, description, task_type,
				                    resource_url, estimated_hours, estimated_time)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				t.ID, t.RoadmapID, t.MilestoneID, t.Sequence, t.Title, t.Description, t.TaskType,
				t.ResourceURL, t.EstimatedHours, t.EstimatedTime)
			m.Tasks[j] = t
		}
		rm.Milestones[i] = m
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert roadmap children: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit roadmap: %w", err)
	}

	rm.RefreshProgress()
	return &rm, nil
}

func taskFromSpec(ts *roadmap.TaskSpec, roadmapID, milestoneID string, seq int) roadmap.Task {
	return roadmap.Task{
		ID:             uuid.NewString(),
		RoadmapID:      roadmapID,
		MilestoneID:    milestoneID,
		Sequence:       seq,
		Title:          ts.Title,
		Description:    ts.Description,
		TaskType:       ts.TaskType,
		ResourceURL:    ts.ResourceURL,
		EstimatedHours: ts.EstimatedHours,
		EstimatedTime:  ts.EstimatedTime,
	}
}

func (s *Store) ListRoadmaps(ctx context.Context, userID string) ([]roadmap.Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.title, r.topic, r.target_role, r.status, r.created_at,
		        COUNT(t.id), COUNT(t.id) FILTER (WHERE t.completed)
		 FROM roadmaps r
		 LEFT JOIN tasks t ON t.roadmap_id = r.id
		 WHERE r.user_id = $1
		 GROUP BY r.id
		 ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	defer rows.Close()

	out := []roadmap.Summary{}
	for rows.Next() {
		var sm roadmap.Summary
		var status string
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.Topic, &sm.TargetRole, &status, &sm.CreatedAt,
			&sm.TotalTasks, &sm.CompletedTasks); err != nil {
			return nil, fmt.Errorf("scan roadmap summary: %w", err)
		}
		sm.Status = roadmap.Status(status)
		sm.Progress = roadmap.Percent(sm.CompletedTasks, sm.TotalTasks)
		out = append(out, sm)
	}
	return out, rows.Err()
}

// GetRoadmap loads the roadmap tree from one read-only snapshot.
func (s *Store) GetRoadmap(ctx context.Context, userID, roadmapID string) (*roadmap.Roadmap, error) {
	if !isUUID(roadmapID) {
		return nil, fmt.Errorf("get roadmap %s: %w", roadmapID, domain.ErrNotFound)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only

	var rm roadmap.Roadmap
	var status string
	err = tx.QueryRow(ctx,
		`SELECT id, user_id, title, topic, target_role, description, status, start_date, created_at, updated_at
		 FROM roadmaps WHERE id = $1 AND user_id = $2`, roadmapID, userID,
	).Scan(&rm.ID, &rm.UserID, &rm.Title, &rm.Topic, &rm.TargetRole, &rm.Description, &status,
		&rm.StartDate, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get roadmap %s", roadmapID)
	}
	rm.Status = roadmap.Status(status)

	mrows, err := tx.Query(ctx,
		`SELECT id, roadmap_id, sequence, title, description, duration_weeks, due_date
		 FROM milestones WHERE roadmap_id = $1 ORDER BY sequence`, roadmapID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	index := map[string]int{}
	for mrows.Next() {
		var m roadmap.Milestone
		if err := mrows.Scan(&m.ID, &m.RoadmapID, &m.Sequence, &m.Title, &m.Description, &m.DurationWeeks, &m.DueDate); err != nil {
			mrows.Close()
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		m.Tasks = []roadmap.Task{}
		index[m.ID] = len(rm.Milestones)
		rm.Milestones = append(rm.Milestones, m)
	}
	mrows.Close()
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}

	trows, err := tx.Query(ctx,
		`SELECT id, roadmap_id, milestone_id, sequence, title, description, task_type, resource_url,
		        estimated_hours, estimated_time, completed, completed_at
		 FROM tasks WHERE roadmap_id = $1 ORDER BY sequence`, roadmapID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		t, err := scanTask(trows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[t.MilestoneID]; ok {
			rm.Milestones[i].Tasks = append(rm.Milestones[i].Tasks, t)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	rm.RefreshProgress()
	return &rm, nil
}

func scanTask(row scannable) (roadmap.Task, error) {
	var t roadmap.Task
	err := row.Scan(&t.ID, &t.RoadmapID, &t.MilestoneID, &t.Sequence, &t.Title, &t.Description, &t.TaskType,
		&t.ResourceURL, &t.EstimatedHours, &t.EstimatedTime, &t.Completed, &t.CompletedAt)
	if err != nil {
		return t, fmt.Errorf("scan task: %w", err)
	}
	return t, nil
}

// DeleteRoadmap removes tasks, then milestones, then the roadmap in one transaction.
func (s *Store) DeleteRoadmap(ctx context.Context, userID, roadmapID string) error {
	if !isUUID(roadmapID) {
		return fmt.Errorf("delete roadmap %s: %w", roadmapID, domain.ErrNotFound)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var id string
	err = tx.QueryRow(ctx,
		`SELECT id FROM roadmaps WHERE id = $1 AND user_id = $2 FOR UPDATE`, roadmapID, userID).Scan(&id)
	if err != nil {
		return notFoundWrap(err, "delete roadmap %s", roadmapID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE roadmap_id = $1`, roadmapID); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM milestones WHERE roadmap_id = $1`, roadmapID); err != nil {
		return fmt.Errorf("delete milestones: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM roadmaps WHERE id = $1 AND user_id = $2`, roadmapID, userID)
	if err := execExpectOne(tag, err, "delete roadmap %s", roadmapID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetTaskCompleted updates the task only if its roadmap is owned by userID.
// The ownership condition is part of the UPDATE itself.
func (s *Store) SetTaskCompleted(ctx context.Context, userID, roadmapID, taskID string, completed bool, at time.Time) (*roadmap.TaskState, error) {
	if !isUUID(roadmapID) || !isUUID(taskID) {
		return nil, fmt.Errorf("set task %s: %w", taskID, domain.ErrNotFound)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	st := roadmap.TaskState{TaskID: taskID, RoadmapID: roadmapID}
	err = tx.QueryRow(ctx,
		`UPDATE tasks t
		 SET completed = $4,
		     completed_at = CASE WHEN $4 THEN COALESCE(t.completed_at, $5) ELSE NULL END
		 FROM roadmaps r
		 WHERE t.id = $1 AND t.roadmap_id = $2 AND r.id = t.roadmap_id AND r.user_id = $3
		 RETURNING t.completed, t.completed_at`,
		taskID, roadmapID, userID, completed, at,
	).Scan(&st.Completed, &st.CompletedAt)
	if err != nil {
		return nil, notFoundWrap(err, "set task %s", taskID)
	}

	var total, done int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE completed) FROM tasks WHERE roadmap_id = $1`,
		roadmapID).Scan(&total, &done)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE roadmaps SET
		   status = CASE WHEN $2 THEN 'complete' WHEN status = 'complete' THEN 'active' ELSE status END,
		   updated_at = now()
		 WHERE id = $1`, roadmapID, total > 0 && done == total)
	if err != nil {
		return nil, fmt.Errorf("touch roadmap: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit task %s: %w", taskID, err)
	}
	st.Progress = roadmap.Percent(done, total)
	return &st, nil
}
