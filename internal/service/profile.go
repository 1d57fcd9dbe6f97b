package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Strob0t/CareerForge/internal/domain"
	"github.com/Strob0t/CareerForge/internal/domain/user"
	"github.com/Strob0t/CareerForge/internal/port/database"
)

// ProfileService manages the coaching profile used in generation prompts.
type ProfileService struct {
	store database.Store
}

// NewProfileService creates a ProfileService.
func NewProfileService(store database.Store) *ProfileService {
	return &ProfileService{store: store}
}

// Get returns the caller's profile. A user without a stored profile gets an
// empty one bearing their id.
func (s *ProfileService) Get(ctx context.Context) (*user.Profile, error) {
	userID, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &user.Profile{ID: userID, Skills: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Update replaces the caller's profile.
func (s *ProfileService) Update(ctx context.Context, req user.UpdateRequest) (*user.Profile, error) {
	userID, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := &user.Profile{ID: userID}
	p.Apply(&req)
	out, err := s.store.UpsertProfile(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return out, nil
}
