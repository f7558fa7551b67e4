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

type CategoryInput struct {
	Name  string
	Kind  core.Kind
	Color string
}

type CategoryService struct {
	store store.CategoryStore
	newID func() string
	now   func() time.Time
}

func NewCategoryService(st store.CategoryStore) *CategoryService {
	return &CategoryService{store: st, newID: uuid.NewString, now: time.Now}
}

// List returns the user's categories; an empty kind lists both kinds.
func (s *CategoryService) List(ctx context.Context, userID string, kind core.Kind) ([]core.Category, error) {
	if kind != "" && !kind.IsValid() {
		return nil, invalid(core.ErrInvalidKind)
	}
	return s.store.ListCategories(ctx, userID, kind)
}

// Create adds a category. Names are unique per user and kind, ignoring case.
func (s *CategoryService) Create(ctx context.Context, userID string, in CategoryInput) (core.Category, error) {
	c := core.Category{
		ID:        s.newID(),
		UserID:    userID,
		Name:      strings.TrimSpace(in.Name),
		Kind:      in.Kind,
		Color:     strings.TrimSpace(in.Color),
		CreatedAt: s.now().UTC(),
	}
	if c.Color == "" {
		c.Color = core.DefaultCategoryColor
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, invalid(err)
	}

	existing, err := s.store.ListCategories(ctx, userID, c.Kind)
	if err != nil {
		return core.Category{}, fmt.Errorf("list categories: %w", err)
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, c.Name) {
			return core.Category{}, invalid(ErrDuplicateCategory)
		}
	}

	if err := s.store.CreateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	return c, nil
}

// Delete removes a category. Transactions keep existing without it and its
// budgets are dropped.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteCategory(ctx, userID, id)
}
