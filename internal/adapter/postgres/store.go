package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/CareerForge/internal/domain/insight"
	"github.com/Strob0t/CareerForge/internal/domain/user"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Profiles ---

const profileColumns = `id, email, name, industry, skills, resume, created_at, updated_at`

func scanProfile(row scannable) (user.Profile, error) {
	var p user.Profile
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Industry, &p.Skills, &p.Resume, &p.CreatedAt, &p.UpdatedAt)
	p.Skills = orEmpty(p.Skills)
	return p, err
}

func (s *Store) EnsureUser(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("ensure user %s: %w", userID, err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*user.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		return nil, notFoundWrap(err, "get profile %s", userID)
	}
	return &p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p *user.Profile) (*user.Profile, error) {
	out, err := scanProfile(s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, industry, skills, resume)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   email = EXCLUDED.email, name = EXCLUDED.name, industry = EXCLUDED.industry,
		   skills = EXCLUDED.skills, resume = EXCLUDED.resume, updated_at = now()
		 RETURNING `+profileColumns,
		p.ID, p.Email, p.Name, p.Industry, pgTextArray(p.Skills), p.Resume))
	if err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", p.ID, err)
	}
	return &out, nil
}

// --- Reminders ---

func (s *Store) ListPendingReminders(ctx context.Context) ([]user.Reminder, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.email, u.name, COUNT(t.id)
		 FROM users u
		 JOIN roadmaps r ON r.user_id = u.id AND r.status = 'active'
		 JOIN tasks t ON t.roadmap_id = r.id AND NOT t.completed
		 GROUP BY u.id, u.email, u.name
		 ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("list pending reminders: %w", err)
	}
	defer rows.Close()

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
	rows, err := s.pool.Query(ctx,
		`SELECT industry FROM users WHERE industry <> ''
		 UNION
		 SELECT industry FROM industry_insights
		 ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list industries: %w", err)
	}
	defer rows.Close()

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
		in  insight.Insight
		raw []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT industry, report, last_updated, next_update FROM industry_insights WHERE industry = $1`,
		industry).Scan(&in.Industry, &raw, &in.LastUpdated, &in.NextUpdate)
	if err != nil {
		return nil, notFoundWrap(err, "get insight %s", industry)
	}
	if err := json.Unmarshal(raw, &in.Report); err != nil {
		return nil, fmt.Errorf("decode insight %s: %w", industry, err)
	}
	return &in, nil
}

func (s *Store) UpsertInsight(ctx context.Context, in *insight.Insight) error {
	raw, err := json.Marshal(in.Report)
	if err != nil {
		return fmt.Errorf("marshal insight %s: %w", in.Industry, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO industry_insights (industry, report, last_updated, next_update)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (industry) DO UPDATE SET
		   report = EXCLUDED.report, last_updated = EXCLUDED.last_updated, next_update = EXCLUDED.next_update`,
		in.Industry, raw, in.LastUpdated, in.NextUpdate)
	if err != nil {
		return fmt.Errorf("upsert insight %s: %w", in.Industry, err)
	}
	return nil
}
