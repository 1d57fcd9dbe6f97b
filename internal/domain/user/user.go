// Package user defines the coaching profile of an authenticated user.
package user

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Strob0t/CareerForge/internal/domain"
)

// maxResumeBytes bounds the resume text stored with a profile.
const maxResumeBytes = 64 << 10

// Profile is the user record keyed by the identity provider's subject.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Industry  string    `json:"industry"`
	Skills    []string  `json:"skills"`
	Resume    string    `json:"resume,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateRequest is the input for creating or replacing a profile.
type UpdateRequest struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Industry string   `json:"industry"`
	Skills   []string `json:"skills"`
	Resume   string   `json:"resume"`
}

// Validate checks the UpdateRequest and normalizes skills.
func (r *UpdateRequest) Validate() error {
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return fmt.Errorf("%w: invalid email format", domain.ErrValidation)
		}
	}
	if len(r.Resume) > maxResumeBytes {
		return fmt.Errorf("%w: resume exceeds %d bytes", domain.ErrValidation, maxResumeBytes)
	}
	r.Industry = strings.TrimSpace(r.Industry)
	skills := r.Skills[:0]
	seen := make(map[string]bool, len(r.Skills))
	for _, s := range r.Skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, s)
	}
	r.Skills = skills
	return nil
}

// Apply copies the request onto p.
func (p *Profile) Apply(r *UpdateRequest) {
	p.Email = r.Email
	p.Name = r.Name
	p.Industry = r.Industry
	p.Skills = r.Skills
	p.Resume = r.Resume
}

// Reminder summarizes a user's pending work for the engagement job.
type Reminder struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PendingTasks int    `json:"pending_tasks"`
}
