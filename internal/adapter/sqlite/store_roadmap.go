package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/CareerForge/internal/domain"
	"github.com/Strob0t/CareerForge/internal/domain/roadmap"
)

// --- Roadmaps ---

func (s *Store) CreateRoadmap(ctx context.Context, userID string, spec *roadmap.Spec, start time.Time) (*roadmap.Roadmap, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC()
	if err := ensureUser(ctx, tx, userID, now); err != nil {
		return nil, err
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
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO roadmaps (id, user_id, title, topic, target_role, description, status, start_date, created_at, updated_at)
		 VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?9)`,
		rm.ID, rm.UserID, rm.Title, rm.Topic, rm.TargetRole, rm.Description, string(rm.Status),
		formatTime(start), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert roadmap: %w", err)
	}

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
		_, err = tx.ExecContext(ctx,
			`INSERT INTO milestones (id, roadmap_id, sequence, title, description, duration_weeks, due_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.RoadmapID, m.Sequence, m.Title, m.Description, m.DurationWeeks, formatTime(due[i]))
		if err != nil {
			return nil, fmt.Errorf("insert milestone %d: %w", m.Sequence, err)
		}

		for j := range ms.Tasks {
			ts := &ms.Tasks[j]
			t := roadmap.Task{
				ID:             uuid.NewString(),
				RoadmapID:      rm.ID,
				MilestoneID:    m.ID,
				Sequence:       j + 1,
				Title:          ts.Title,
				Description:    ts.Description,
				TaskType:       ts.TaskType,
				ResourceURL:    ts.ResourceURL,
				EstimatedHours: ts.EstimatedHours,
				EstimatedTime:  ts.EstimatedTime,
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO tasks (id, roadmap_id, milestone_id, sequence, title, description, task_type,
				                    resource_url, estimated_hours, estimated_time)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, t.RoadmapID, t.MilestoneID, t.Sequence, t.Title, t.Description, t.TaskType,
				t.ResourceURL, toNullFloat(t.EstimatedHours), t.EstimatedTime)
			if err != nil {
				return nil, fmt.Errorf("insert task %d.%d: %w", m.Sequence, t.Sequence, err)
			}
			m.Tasks[j] = t
		}
		rm.Milestones[i] = m
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit roadmap: %w", err)
	}
	rm.RefreshProgress()
	return &rm, nil
}

func (s *Store) ListRoadmaps(ctx context.Context, userID string) ([]roadmap.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.title, r.topic, r.target_role, r.status, r.created_at,
		        COUNT(t.id), COALESCE(SUM(t.completed), 0)
		 FROM roadmaps r
		 LEFT JOIN tasks t ON t.roadmap_id = r.id
		 WHERE r.user_id = ?
		 GROUP BY r.id
		 ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []roadmap.Summary{}
	for rows.Next() {
		var (
			sm              roadmap.Summary
			status, created string
		)
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.Topic, &sm.TargetRole, &status, &created,
			&sm.TotalTasks, &sm.CompletedTasks); err != nil {
			return nil, fmt.Errorf("scan roadmap summary: %w", err)
		}
		if sm.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		sm.Status = roadmap.Status(status)
		sm.Progress = roadmap.Percent(sm.CompletedTasks, sm.TotalTasks)
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *Store) GetRoadmap(ctx context.Context, userID, roadmapID string) (*roadmap.Roadmap, error) {
	if !isUUID(roadmapID) {
		return nil, fmt.Errorf("get roadmap %s: %w", roadmapID, domain.ErrNotFound)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		rm                     roadmap.Roadmap
		status, start, cr, upd string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, user_id, title, topic, target_role, description, status, start_date, created_at, updated_at
		 FROM roadmaps WHERE id = ? AND user_id = ?`, roadmapID, userID,
	).Scan(&rm.ID, &rm.UserID, &rm.Title, &rm.Topic, &rm.TargetRole, &rm.Description, &status, &start, &cr, &upd)
	if err != nil {
		return nil, notFoundWrap(err, "get roadmap %s", roadmapID)
	}
	rm.Status = roadmap.Status(status)
	for _, f := range []struct {
		dst *time.Time
		src string
	}{{&rm.StartDate, start}, {&rm.CreatedAt, cr}, {&rm.UpdatedAt, upd}} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return nil, err
		}
	}

	if err := loadMilestones(ctx, tx, &rm); err != nil {
		return nil, err
	}
	if err := loadTasks(ctx, tx, &rm); err != nil {
		return nil, err
	}
	rm.RefreshProgress()
	return &rm, nil
}

func loadMilestones(ctx context.Context, tx *sql.Tx, rm *roadmap.Roadmap) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, roadmap_id, sequence, title, description, duration_weeks, due_date
		 FROM milestones WHERE roadmap_id = ? ORDER BY sequence`, rm.ID)
	if err != nil {
		return fmt.Errorf("list milestones: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			m   roadmap.Milestone
			due sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.RoadmapID, &m.Sequence, &m.Title, &m.Description, &m.DurationWeeks, &due); err != nil {
			return fmt.Errorf("scan milestone: %w", err)
		}
		if m.DueDate, err = parseNullTime(due); err != nil {
			return err
		}
		m.Tasks = []roadmap.Task{}
		rm.Milestones = append(rm.Milestones, m)
	}
	return rows.Err()
}

func loadTasks(ctx context.Context, tx *sql.Tx, rm *roadmap.Roadmap) error {
	index := make(map[string]int, len(rm.Milestones))
	for i := range rm.Milestones {
		index[rm.Milestones[i].ID] = i
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, roadmap_id, milestone_id, sequence, title, description, task_type, resource_url,
		        estimated_hours, estimated_time, completed, completed_at
		 FROM tasks WHERE roadmap_id = ? ORDER BY sequence`, rm.ID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			t     roadmap.Task
			hours sql.NullFloat64
			at    sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.RoadmapID, &t.MilestoneID, &t.Sequence, &t.Title, &t.Description,
			&t.TaskType, &t.ResourceURL, &hours, &t.EstimatedTime, &t.Completed, &at); err != nil {
			return fmt.Errorf("scan task: %w", err)
		}
		if hours.Valid {
			t.EstimatedHours = &hours.Float64
		}
		if t.CompletedAt, err = parseNullTime(at); err != nil {
			return err
		}
		if i, ok := index[t.MilestoneID]; ok {
			rm.Milestones[i].Tasks = append(rm.Milestones[i].Tasks, t)
		}
	}
	return rows.Err()
}

func (s *Store) DeleteRoadmap(ctx context.Context, userID, roadmapID string) error {
	if !isUUID(roadmapID) {
		return fmt.Errorf("delete roadmap %s: %w", roadmapID, domain.ErrNotFound)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM roadmaps WHERE id = ? AND user_id = ?`, roadmapID, userID).Scan(&id)
	if err != nil {
		return notFoundWrap(err, "delete roadmap %s", roadmapID)
	}

	for _, q := range []string{
		`DELETE FROM tasks WHERE roadmap_id = ?`,
		`DELETE FROM milestones WHERE roadmap_id = ?`,
		`DELETE FROM roadmaps WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, roadmapID); err != nil {
			return fmt.Errorf("delete roadmap %s: %w", roadmapID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) SetTaskCompleted(ctx context.Context, userID, roadmapID, taskID string, completed bool, at time.Time) (*roadmap.TaskState, error) {
	if !isUUID(roadmapID) || !isUUID(taskID) {
		return nil, fmt.Errorf("set task %s: %w", taskID, domain.ErrNotFound)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		st     = roadmap.TaskState{TaskID: taskID, RoadmapID: roadmapID}
		doneAt sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		`UPDATE tasks
		 SET completed = ?4,
		     completed_at = CASE WHEN ?4 THEN COALESCE(completed_at, ?5) ELSE NULL END
		 WHERE id = ?1 AND roadmap_id = ?2
		   AND EXISTS (SELECT 1 FROM roadmaps r WHERE r.id = tasks.roadmap_id AND r.user_id = ?3)
		 RETURNING completed, completed_at`,
		taskID, roadmapID, userID, completed, formatTime(at),
	).Scan(&st.Completed, &doneAt)
	if err != nil {
		return nil, notFoundWrap(err, "set task %s", taskID)
	}
	if st.CompletedAt, err = parseNullTime(doneAt); err != nil {
		return nil, err
	}

	var total, done int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(completed), 0) FROM tasks WHERE roadmap_id = ?`, roadmapID,
	).Scan(&total, &done)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE roadmaps SET
		   status = CASE WHEN ?2 THEN 'complete' WHEN status = 'complete' THEN 'active' ELSE status END,
		   updated_at = ?3
		 WHERE id = ?1`, roadmapID, total > 0 && done == total, formatTime(s.now()))
	if err != nil {
		return nil, fmt.Errorf("touch roadmap: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit task %s: %w", taskID, err)
	}
	st.Progress = roadmap.Percent(done, total)
	return &st, nil
}

func toNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
