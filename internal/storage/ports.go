package storage

import (
	"context"
	"errors"
	"time"

	"spendwatch/internal/core"
)

// ErrNotFound is returned when a record with the requested ID does not exist.
var ErrNotFound = errors.New("record not found")

// Ports implemented by the SQLite repository and the in-memory store.
type (
	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
		// ListCategories returns all categories, newest first.
		ListCategories(ctx context.Context) ([]core.Category, error)
		UpdateCategory(ctx context.Context, id, name string) (core.Category, error)
		// DeleteCategory removes the category and returns it as it was.
		DeleteCategory(ctx context.Context, id string) (core.Category, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		// ListExpenses returns all expenses, newest first.
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error)
		DeleteExpense(ctx context.Context, id string) (core.Expense, error)
		CountExpensesByCategory(ctx context.Context, categoryID string) (int64, error)
	}

	// ExpenseSummer sums expense amounts over a creation-time range.
	ExpenseSummer interface {
		// SumExpensesBetween returns the total of all expenses created in
		// [start, end], both inclusive. Zero when nothing matches.
		SumExpensesBetween(ctx context.Context, start, end time.Time) (core.Money, error)
	}

	// NotificationLedger remembers which periods already triggered a notification.
	NotificationLedger interface {
		IsPeriodNotified(ctx context.Context, period core.Period) (bool, error)
		MarkPeriodNotified(ctx context.Context, period core.Period, total core.Money, at time.Time) error
	}

	// Store is everything the application needs from a persistence backend.
	Store interface {
		CategoryStore
		ExpenseStore
		ExpenseSummer
		NotificationLedger
		Ping(ctx context.Context) error
		Close() error
	}
)
