package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dompet/internal/core"
	"dompet/internal/store"
)

type GoalInput struct {
	Name     string
	Target   core.Money
	Current  core.Money
	Deadline *core.Date
}

type GoalService struct {
	store store.GoalStore
	newID func() string
	now   func() time.Time
}

func NewGoalService(st store.GoalStore) *GoalService {
	return &GoalService{store: st, newID: uuid.NewString, now: time.Now}
}

// List returns goals newest first.
func (s *GoalService) List(ctx context.Context, userID string) ([]core.Goal, error) {
	return s.store.ListGoals(ctx, userID)
}

func (s *GoalService) Create(ctx context.Context, userID string, in GoalInput) (core.Goal, error) {
	now := s.now().UTC()
	g := core.Goal{
		ID:        s.newID(),
		UserID:    userID,
		Name:      strings.TrimSpace(in.Name),
		Target:    in.Target,
		Current:   in.Current,
		Deadline:  in.Deadline,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, invalid(err)
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) Update(ctx context.Context, userID, id string, in GoalInput) (core.Goal, error) {
	g, err := s.store.GetGoal(ctx, userID, id)
	if err != nil {
		return core.Goal{}, err
	}
	g.Name = strings.TrimSpace(in.Name)
	g.Target = in.Target
	g.Current = in.Current
	g.Deadline = in.Deadline
	g.UpdatedAt = s.now().UTC()
	if err := g.Validate(); err != nil {
		return core.Goal{}, invalid(err)
	}
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteGoal(ctx, userID, id)
}
