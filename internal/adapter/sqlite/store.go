package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Strob0t/CareerForge/internal/domain/insight"
	"github.com/Strob0t/CareerForge/internal/domain/user"
)

// Store implements database.Store on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store backed by db. The database must already be migrated.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Profiles ---

const profileColumns = `id, email, name, industry, skills, resume, created_at, updated_at`

type scannable interface {
	Scan(dest ...any) error
}

func scanProfile(row scannable) (user.Profile, error) {
	var (
		p                user.Profile
		skills           string
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Industry, &skills, &p.Resume, &created, &updated); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(skills), &p.Skills); err != nil {
		return p, fmt.Errorf("decode skills: %w", err)
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	var err error
	if p.CreatedAt, err = parseTime(created); err != nil {
		return p, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return p, err
	}
	return p, nil
}

func ensureUser(ctx context.Context, e execer, userID string, now time.Time) error {
	ts := formatTime(now)
	_, err := e.ExecContext(ctx,
		`INSERT INTO users (id, created_at, updated_at) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		userID, ts, ts)
	if err != nil {
		return fmt.Errorf("ensure user %s: %w", userID, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) EnsureUser(ctx context.Context, userID string) error {
	return ensureUser(ctx, s.db, userID, s.now())
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*user.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE id = ?`, userID))
	if err != nil {
		return nil, notFoundWrap(err, "get profile %s", userID)
	}
	return &p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p *user.Profile) (*user.Profile, error) {
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}
	raw, err := json.Marshal(skills)
	if err != nil {
		return nil, fmt.Errorf("encode skills: %w", err)
	}
	ts := formatTime(s.now())
	out, err := scanProfile(s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, name, industry, skills, resume, created_at, updated_at)
		 VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?7)
		 ON CONFLICT (id) DO UPDATE SET
		   email = excluded.email, name = excluded.name, industry = excluded.industry,
		   skills = excluded.skills, resume = excluded.resume, updated_at = excluded.updated_at
		 RETURNING `+profileColumns,
		p.ID, p.Email, p.Name, p.Industry, string(raw), p.Resume, ts))
	if err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", p.ID, err)
	}
	return &out, nil
}

// --- Reminders ---

func (s *Store) ListPendingReminders(ctx context.Context) ([]user.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.name, COUNT(t.id)
		 FROM users u
		 JOIN roadmaps r ON r.user_id = u.id AND r.status = 'active'
		 JOIN tasks t ON t.roadmap_id = r.id AND t.completed = 0
		 GROUP BY u.id, u.email, u.name
		 ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("list pending reminders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []user.Reminder
	for rows.Next() {
		var r user.Reminder
		if err := rows.Scan(&r.UserID, &r.Email, &r.Name, &r.PendingTasks); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Insights ---

func (s *Store) ListIndustries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT industry FROM users WHERE industry <> ''
		 UNION
		 SELECT industry FROM industry_insights
		 ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list industries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var ind string
		if err := rows.Scan(&ind); err != nil {
			return nil, fmt.Errorf("scan industry: %w", err)
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

func (s *Store) GetInsight(ctx context.Context, industry string) (*insight.Insight, error) {
	var (
		in              insight.Insight
		raw, last, next string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT industry, report, last_updated, next_update FROM industry_insights WHERE industry = ?`,
		industry).Scan(&in.Industry, &raw, &last, &next)
	if err != nil {
		return nil, notFoundWrap(err, "get insight %s", industry)
	}
	if err := json.Unmarshal([]byte(raw), &in.Report); err != nil {
		return nil, fmt.Errorf("decode insight %s: %w", industry, err)
	}
	if in.LastUpdated, err = parseTime(last); err != nil {
		return nil, err
	}
	if in.NextUpdate, err = parseTime(next); err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *Store) UpsertInsight(ctx context.Context, in *insight.Insight) error {
	raw, err := json.Marshal(in.Report)
	if err != nil {
		return fmt.Errorf("marshal insight %s: %w", in.Industry, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO industry_insights (industry, report, last_updated, next_update)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (industry) DO UPDATE SET
		   report = excluded.report, last_updated = excluded.last_updated, next_update = excluded.next_update`,
		in.Industry, string(raw), formatTime(in.LastUpdated), formatTime(in.NextUpdate))
	if err != nil {
		return fmt.Errorf("upsert insight %s: %w", in.Industry, err)
	}
	return nil
}
