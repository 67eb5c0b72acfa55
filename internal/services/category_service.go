package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"spendwatch/internal/core"
	"spendwatch/internal/storage"
)

type CategoryService struct {
	categories storage.CategoryStore
	expenses   storage.ExpenseStore
	now        func() time.Time
}

func NewCategoryService(categories storage.CategoryStore, expenses storage.ExpenseStore) *CategoryService {
	return &CategoryService{categories: categories, expenses: expenses, now: time.Now}
}

func (s *CategoryService) WithClock(now func() time.Time) *CategoryService {
	s.now = now
	return s
}

func (s *CategoryService) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateCategoryName(name); err != nil {
		return core.Category{}, err
	}
	c, err := s.categories.CreateCategory(ctx, core.Category{Name: name, CreatedAt: s.now()})
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id string) (core.Category, error) {
	return s.categories.GetCategory(ctx, id)
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.categories.ListCategories(ctx)
}

// RenameCategory changes the only mutable field of a category.
func (s *CategoryService) RenameCategory(ctx context.Context, id, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateCategoryName(name); err != nil {
		return core.Category{}, err
	}
	c, err := s.categories.UpdateCategory(ctx, id, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("rename category: %w", err)
	}
	return c, nil
}

// DeleteCategory refuses to delete a category that expenses still reference.
// The count and the delete are separate statements, so an expense created
// in between can still end up orphaned.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) (core.Category, error) {
	n, err := s.expenses.CountExpensesByCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("count expenses: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Refusing to delete category in use", "category_id", id, "expenses", n)
		return core.Category{}, ErrCategoryInUse
	}
	c, err := s.categories.DeleteCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("delete category: %w", err)
	}
	return c, nil
}
