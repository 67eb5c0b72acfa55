// Package memory is an in-process implementation of the storage ports,
// used for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendwatch/internal/core"
	"spendwatch/internal/storage"
)

type Store struct {
	mu         sync.Mutex
	categories map[string]core.Category
	expenses   map[string]core.Expense
	notified   map[string]time.Time
	seq        map[string]int // insertion order, breaks created_at ties
	next       int
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		categories: make(map[string]core.Category),
		expenses:   make(map[string]core.Expense),
		notified:   make(map[string]time.Time),
		seq:        make(map[string]int),
	}
}

func normalizeCreatedAt(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Truncate(time.Millisecond).UTC()
}

func (s *Store) track(id string) {
	s.next++
	s.seq[id] = s.next
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Name = strings.TrimSpace(c.Name)
	c.CreatedAt = normalizeCreatedAt(c.CreatedAt)
	s.categories[c.ID] = c
	s.track(c.ID)
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("get category: %w", storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, id, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("update category: %w", storage.ErrNotFound)
	}
	c.Name = strings.TrimSpace(name)
	s.categories[id] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("delete category: %w", storage.ErrNotFound)
	}
	delete(s.categories, id)
	delete(s.seq, id)
	return c, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CategoryID = strings.TrimSpace(e.CategoryID)
	e.Description = strings.TrimSpace(e.Description)
	e.CreatedAt = normalizeCreatedAt(e.CreatedAt)
	s.expenses[e.ID] = e
	s.track(e.ID)
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("get expense: %w", storage.ErrNotFound)
	}
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) UpdateExpense(_ context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("update expense: %w", storage.ErrNotFound)
	}
	e = patch.Apply(e)
	s.expenses[id] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("delete expense: %w", storage.ErrNotFound)
	}
	delete(s.expenses, id)
	delete(s.seq, id)
	return e, nil
}

func (s *Store) CountExpensesByCategory(_ context.Context, categoryID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.expenses {
		if e.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumExpensesBetween(_ context.Context, start, end time.Time) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := core.Period{Start: start.Truncate(time.Millisecond), End: end.Truncate(time.Millisecond)}
	var total core.Money
	for _, e := range s.expenses {
		if p.Contains(e.CreatedAt) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (s *Store) IsPeriodNotified(_ context.Context, period core.Period) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.notified[period.Key()]
	return ok, nil
}

func (s *Store) MarkPeriodNotified(_ context.Context, period core.Period, _ core.Money, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified[period.Key()] = at
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// newer orders by creation time descending, then by insertion order descending.
// Callers hold s.mu.
func (s *Store) newer(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return s.seq[idA] > s.seq[idB]
}
