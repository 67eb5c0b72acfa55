package core

import (
	"errors"
	"strings"
	"time"
)

const (
	MaxCategoryNameLength = 100
	MaxDescriptionLength  = 200
)

type (
	Category struct {
		ID        string    `json:"_id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Expense struct {
		ID          string    `json:"_id"`
		CategoryID  string    `json:"categoryId"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// ExpensePatch carries the fields of a partial expense update.
	// Nil fields are left untouched.
	ExpensePatch struct {
		CategoryID  *string
		Amount      *Money
		Description *string
	}
)

var (
	ErrEmptyName          = errors.New("name is required")
	ErrNameTooLong        = errors.New("name too long (max 100 characters)")
	ErrMissingCategory    = errors.New("category is required")
	ErrInvalidAmount      = errors.New("amount must be greater than 0")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyPatch         = errors.New("no fields to update")
)

// ValidateCategoryName checks a category name after trimming.
func ValidateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxCategoryNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (c Category) Validate() error {
	return ValidateCategoryName(c.Name)
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrMissingCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return validateDescription(e.Description)
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.CategoryID == nil && p.Amount == nil && p.Description == nil
}

func (p ExpensePatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.CategoryID != nil && strings.TrimSpace(*p.CategoryID) == "" {
		return ErrMissingCategory
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Description != nil {
		return validateDescription(*p.Description)
	}
	return nil
}

// Apply returns a copy of e with the patch applied. CreatedAt is never touched.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.CategoryID != nil {
		e.CategoryID = strings.TrimSpace(*p.CategoryID)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	return e
}
