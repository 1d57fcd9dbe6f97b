package roadmap

import (
	"fmt"
	"strings"

	"github.com/Strob0t/CareerForge/internal/domain"
)

// ValidateCreate validates a CreateRequest.
func ValidateCreate(req *CreateRequest) error {
	if req.Title == "" || req.Topic == "" || len(req.Steps) == 0 {
		return fmt.Errorf("%w: title, topic, and at least one step are required", domain.ErrValidation)
	}
	return nil
}

// ValidateGenerate validates a GenerateRequest and applies defaults.
func ValidateGenerate(req *GenerateRequest) error {
	if req.TargetRole == "" {
		return fmt.Errorf("%w: targetRole is required", domain.ErrValidation)
	}
	if req.DurationWeeks < 0 || req.DurationWeeks > 104 {
		return fmt.Errorf("%w: durationWeeks must be between 1 and 104", domain.ErrValidation)
	}
	if req.DurationWeeks == 0 {
		req.DurationWeeks = 12
	}
	if req.Title == "" {
		req.Title = "My Career Roadmap"
	}
	return nil
}

// ValidateSpec checks that a Spec can be persisted.
func ValidateSpec(s *Spec) error {
	if s.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(s.Milestones) == 0 {
		return fmt.Errorf("%w: at least one milestone is required", domain.ErrValidation)
	}
	for i := range s.Milestones {
		if len(s.Milestones[i].Tasks) == 0 {
			return fmt.Errorf("%w: milestone %d has no tasks", domain.ErrValidation, i+1)
		}
		for j := range s.Milestones[i].Tasks {
			if strings.TrimSpace(s.Milestones[i].Tasks[j].Title) == "" {
				return fmt.Errorf("%w: task %d.%d has no title", domain.ErrValidation, i+1, j+1)
			}
		}
	}
	return nil
}

// ValidateStatus checks if a roadmap status value is valid.
func ValidateStatus(s Status) error {
	switch s {
	case StatusActive, StatusComplete, StatusArchived:
		return nil
	default:
		return fmt.Errorf("%w: invalid roadmap status: %s", domain.ErrValidation, s)
	}
}
