package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"spendwatch/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c         core.Category
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &createdAt); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = time.UnixMilli(createdAt).UTC()
	return c, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e         core.Expense
		createdAt int64
	)
	if err := row.Scan(&e.ID, &e.CategoryID, &e.Amount.Millis, &e.Description, &createdAt); err != nil {
		return core.Expense{}, err
	}
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	return e, nil
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps everything else.
func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizeCreatedAt(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Truncate(time.Millisecond).UTC()
}

// CreateCategory stores c, assigning an ID and creation time when missing.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Name = strings.TrimSpace(c.Name)
	c.CreatedAt = normalizeCreatedAt(c.CreatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt.UnixMilli())
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category saved to SQLite", "id", c.ID, "name", c.Name)
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFound("get category", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM categories ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id, name string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ? RETURNING id, name, created_at`,
		strings.TrimSpace(name), id)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFound("update category", err)
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM categories WHERE id = ? RETURNING id, name, created_at`, id)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFound("delete category", err)
	}

	slog.InfoContext(ctx, "Category deleted from SQLite", "id", c.ID, "name", c.Name)
	return c, nil
}

// CreateExpense stores e, assigning an ID and creation time when missing.
// The creation time is kept at millisecond resolution.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CategoryID = strings.TrimSpace(e.CategoryID)
	e.Description = strings.TrimSpace(e.Description)
	e.CreatedAt = normalizeCreatedAt(e.CreatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, category_id, amount_millis, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.CategoryID, e.Amount.Millis, e.Description, e.CreatedAt.UnixMilli())
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"category_id", e.CategoryID,
		"amount", e.Amount.String(),
		"created_at", e.CreatedAt)

	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, category_id, amount_millis, description, created_at FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, notFound("get expense", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, amount_millis, description, created_at
		 FROM expenses ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// UpdateExpense applies the non-nil fields of patch. created_at is never changed.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	if patch.IsEmpty() {
		return r.GetExpense(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if patch.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, strings.TrimSpace(*patch.CategoryID))
	}
	if patch.Amount != nil {
		sets = append(sets, "amount_millis = ?")
		args = append(args, patch.Amount.Millis)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, strings.TrimSpace(*patch.Description))
	}
	args = append(args, id)

	query := `UPDATE expenses SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? RETURNING id, category_id, amount_millis, description, created_at`
	e, err := scanExpense(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return core.Expense{}, notFound("update expense", err)
	}

	slog.InfoContext(ctx, "Expense updated in SQLite", "id", e.ID, "fields", len(sets))
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM expenses WHERE id = ? RETURNING id, category_id, amount_millis, description, created_at`, id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, notFound("delete expense", err)
	}

	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", e.ID)
	return e, nil
}

func (r *SQLiteRepository) CountExpensesByCategory(ctx context.Context, categoryID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE category_id = ?`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses by category: %w", err)
	}
	return n, nil
}

// SumExpensesBetween implements ExpenseSummer. Both bounds are inclusive and
// compared at millisecond resolution.
func (r *SQLiteRepository) SumExpensesBetween(ctx context.Context, start, end time.Time) (core.Money, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_millis), 0) FROM expenses WHERE created_at BETWEEN ? AND ?`,
		start.UnixMilli(), end.UnixMilli()).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Millis: total}, nil
}

func (r *SQLiteRepository) IsPeriodNotified(ctx context.Context, period core.Period) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM watchdog_notifications WHERE period_key = ?`, period.Key()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("read notification marker: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) MarkPeriodNotified(ctx context.Context, period core.Period, total core.Money, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watchdog_notifications (period_key, period_start, total_millis, notified_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(period_key) DO UPDATE SET total_millis = excluded.total_millis, notified_at = excluded.notified_at`,
		period.Key(), period.Start.UnixMilli(), total.Millis, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("write notification marker: %w", err)
	}

	slog.InfoContext(ctx, "Watchdog notification marker stored", "period", period.Key(), "total", total.String())
	return nil
}
