package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"spendwatch/internal/core"
	"spendwatch/internal/storage"
)

// Reasons attached to spending check messages.
const (
	ReasonExpenseCreated = "expense_created"
	ReasonExpenseUpdated = "expense_updated"
)

// CheckPublisher asks the watchdog worker to re-evaluate the current period.
type CheckPublisher interface {
	PublishSpendingCheck(ctx context.Context, reason, expenseID string) error
}

// ExpenseService validates expense writes, enforces the category reference
// and publishes a spending check after every successful write.
type ExpenseService struct {
	expenses   storage.ExpenseStore
	categories storage.CategoryStore
	publisher  CheckPublisher
	now        func() time.Time
}

// NewExpenseService builds the service. publisher may be nil, in which case
// no spending checks are published.
func NewExpenseService(expenses storage.ExpenseStore, categories storage.CategoryStore, publisher CheckPublisher) *ExpenseService {
	return &ExpenseService{
		expenses:   expenses,
		categories: categories,
		publisher:  publisher,
		now:        time.Now,
	}
}

// WithClock overrides the clock used for CreatedAt.
func (s *ExpenseService) WithClock(now func() time.Time) *ExpenseService {
	s.now = now
	return s
}

// CreateExpense validates e, checks its category and stores it with a fresh
// CreatedAt. Any ID or CreatedAt on the input is ignored.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.CategoryID = strings.TrimSpace(e.CategoryID)
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.ensureCategory(ctx, e.CategoryID); err != nil {
		return core.Expense{}, err
	}

	e.ID = ""
	e.CreatedAt = s.now()
	saved, err := s.expenses.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publishCheck(ctx, ReasonExpenseCreated, saved.ID)
	return saved, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return s.expenses.GetExpense(ctx, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.expenses.ListExpenses(ctx)
}

// UpdateExpense applies a partial update. A changed category must exist.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	if err := patch.Validate(); err != nil {
		return core.Expense{}, err
	}
	if patch.CategoryID != nil {
		if err := s.ensureCategory(ctx, strings.TrimSpace(*patch.CategoryID)); err != nil {
			return core.Expense{}, err
		}
	}

	updated, err := s.expenses.UpdateExpense(ctx, id, patch)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.publishCheck(ctx, ReasonExpenseUpdated, updated.ID)
	return updated, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) (core.Expense, error) {
	deleted, err := s.expenses.DeleteExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}
	return deleted, nil
}

func (s *ExpenseService) ensureCategory(ctx context.Context, id string) error {
	if _, err := s.categories.GetCategory(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("lookup category: %w", err)
	}
	return nil
}

func (s *ExpenseService) publishCheck(ctx context.Context, reason, expenseID string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping spending check", "expense_id", expenseID)
		return
	}
	// The expense is already saved; a failed publish must not fail the request.
	if err := s.publisher.PublishSpendingCheck(ctx, reason, expenseID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish spending check",
			"expense_id", expenseID,
			"reason", reason,
			"error", err)
	}
}
