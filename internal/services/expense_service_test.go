package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spendwatch/internal/core"
	"spendwatch/internal/storage"
	"spendwatch/internal/storage/memory"
)

type recordingPublisher struct {
	mu      sync.Mutex
	reasons []string
	ids     []string
	err     error
}

func (p *recordingPublisher) PublishSpendingCheck(_ context.Context, reason, expenseID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reasons = append(p.reasons, reason)
	p.ids = append(p.ids, expenseID)
	return p.err
}

func newServices(t *testing.T, pub CheckPublisher) (*ExpenseService, *CategoryService, core.Category) {
	t.Helper()
	store := memory.New()
	fixed := func() time.Time { return march20 }
	cats := NewCategoryService(store, store).WithClock(fixed)
	exps := NewExpenseService(store, store, pub).WithClock(fixed)

	food, err := cats.CreateCategory(context.Background(), "Food")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return exps, cats, food
}

func TestExpenseService_Create(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _, food := newServices(t, pub)

	e, err := svc.CreateExpense(context.Background(), core.Expense{
		ID:          "client-supplied",
		CategoryID:  food.ID,
		Amount:      core.MustParseMoney("12.50"),
		Description: "  lunch ",
		CreatedAt:   time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID == "" || e.ID == "client-supplied" {
		t.Errorf("expected a generated id, got %q", e.ID)
	}
	if !e.CreatedAt.Equal(march20) {
		t.Errorf("CreatedAt should come from the clock, got %v", e.CreatedAt)
	}
	if e.Description != "lunch" {
		t.Errorf("description should be trimmed, got %q", e.Description)
	}
	if len(pub.reasons) != 1 || pub.reasons[0] != ReasonExpenseCreated || pub.ids[0] != e.ID {
		t.Errorf("expected one created check, got %v %v", pub.reasons, pub.ids)
	}
}

func TestExpenseService_CreateValidation(t *testing.T) {
	svc, _, food := newServices(t, nil)
	long := make([]byte, core.MaxDescriptionLength+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name    string
		expense core.Expense
		wantErr error
	}{
		{"missing category", core.Expense{Amount: core.MustParseMoney("1")}, core.ErrMissingCategory},
		{"zero amount", core.Expense{CategoryID: food.ID}, core.ErrInvalidAmount},
		{"negative amount", core.Expense{CategoryID: food.ID, Amount: core.Money{Millis: -1}}, core.ErrInvalidAmount},
		{"description too long", core.Expense{CategoryID: food.ID, Amount: core.MustParseMoney("1"), Description: string(long)}, core.ErrDescriptionTooLong},
		{"unknown category", core.Expense{CategoryID: "nope", Amount: core.MustParseMoney("1")}, ErrCategoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateExpense(context.Background(), tt.expense)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExpenseService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("channel closed")}
	svc, _, food := newServices(t, pub)

	e, err := svc.CreateExpense(context.Background(), core.Expense{CategoryID: food.ID, Amount: core.MustParseMoney("0.001")})
	if err != nil {
		t.Fatalf("create should succeed when publish fails: %v", err)
	}
	if _, err := svc.GetExpense(context.Background(), e.ID); err != nil {
		t.Fatalf("expense should be stored: %v", err)
	}
}

func TestExpenseService_Update(t *testing.T) {
	pub := &recordingPublisher{}
	svc, cats, food := newServices(t, pub)
	ctx := context.Background()

	e, err := svc.CreateExpense(ctx, core.Expense{CategoryID: food.ID, Amount: core.MustParseMoney("10"), Description: "pizza"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	missing := "missing"
	if _, err := svc.UpdateExpense(ctx, e.ID, core.ExpensePatch{CategoryID: &missing}); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
	if _, err := svc.UpdateExpense(ctx, e.ID, core.ExpensePatch{}); !errors.Is(err, core.ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}

	rent, _ := cats.CreateCategory(ctx, "Rent")
	amount := core.MustParseMoney("25.5")
	updated, err := svc.UpdateExpense(ctx, e.ID, core.ExpensePatch{CategoryID: &rent.ID, Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CategoryID != rent.ID || updated.Amount != amount || updated.Description != "pizza" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if !updated.CreatedAt.Equal(e.CreatedAt) {
		t.Fatalf("CreatedAt must not change on update")
	}
	if got := pub.reasons[len(pub.reasons)-1]; got != ReasonExpenseUpdated {
		t.Fatalf("expected updated check, got %s", got)
	}

	if _, err := svc.UpdateExpense(ctx, "missing", core.ExpensePatch{Amount: &amount}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCategoryService(t *testing.T) {
	exps, cats, food := newServices(t, nil)
	ctx := context.Background()

	if _, err := cats.CreateCategory(ctx, "   "); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := cats.RenameCategory(ctx, food.ID, ""); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName on rename, got %v", err)
	}

	renamed, err := cats.RenameCategory(ctx, food.ID, " Groceries ")
	if err != nil || renamed.Name != "Groceries" {
		t.Fatalf("rename: %+v %v", renamed, err)
	}

	e, err := exps.CreateExpense(ctx, core.Expense{CategoryID: food.ID, Amount: core.MustParseMoney("3")})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if _, err := cats.DeleteCategory(ctx, food.ID); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}

	if _, err := exps.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	deleted, err := cats.DeleteCategory(ctx, food.ID)
	if err != nil || deleted.ID != food.ID {
		t.Fatalf("delete category: %+v %v", deleted, err)
	}
	if _, err := cats.DeleteCategory(ctx, food.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
