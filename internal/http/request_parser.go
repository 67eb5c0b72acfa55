// Package http provides HTTP server and handler implementations.
//
// This file implements decoding and validation of JSON request bodies.
// Every problem found in a body is collected so that a single 400 response
// can list all of them.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"spendwatch/internal/core"
)

// maxBodyBytes caps request bodies; the largest valid payload is well under 1KB.
const maxBodyBytes = 64 << 10

// FieldError describes one invalid field of a request body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the list returned under "details".
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// decodeBody reads a single JSON object from r into dst. Unknown fields are
// ignored. Decode failures come back as ValidationErrors.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) ValidationErrors {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ValidationErrors{{Field: "body", Message: fmt.Sprintf("must not exceed %d bytes", tooLarge.Limit)}}
		}
		return ValidationErrors{{Field: "body", Message: "could not be read"}}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ValidationErrors{{Field: "body", Message: "is required"}}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return ValidationErrors{{Field: typeErr.Field, Message: "expected " + jsonTypeName(typeErr.Type.Kind().String())}}
		}
		return ValidationErrors{{Field: "body", Message: "must be a JSON object"}}
	}
	return nil
}

func jsonTypeName(kind string) string {
	if kind == "struct" || kind == "map" {
		return "object"
	}
	return kind
}

type categoryPayload struct {
	Name *string `json:"name"`
}

// ParseCategoryPayload decodes and validates {"name": "..."}.
func ParseCategoryPayload(w http.ResponseWriter, r *http.Request) (string, ValidationErrors) {
	var p categoryPayload
	if errs := decodeBody(w, r, &p); errs != nil {
		return "", errs
	}

	var errs ValidationErrors
	if p.Name == nil {
		errs.add("name", "is required")
		return "", errs
	}
	name := sanitizeInput(*p.Name)
	if err := core.ValidateCategoryName(name); err != nil {
		errs.add("name", err.Error())
		return "", errs
	}
	return name, nil
}

type expensePayload struct {
	CategoryID  *string         `json:"categoryId"`
	Amount      json.RawMessage `json:"amount"`
	Description *string         `json:"description"`
}

func (p expensePayload) hasAmount() bool {
	return len(p.Amount) > 0 && string(p.Amount) != "null"
}

func parseAmount(raw json.RawMessage, errs *ValidationErrors) (core.Money, bool) {
	var m core.Money
	if err := m.UnmarshalJSON(raw); err != nil {
		errs.add("amount", fmt.Sprintf("must be a number with at most %d decimal places", core.MoneyScale))
		return core.Money{}, false
	}
	if err := m.Validate(); err != nil {
		errs.add("amount", err.Error())
		return core.Money{}, false
	}
	return m, true
}

func validateDescriptionField(desc string, errs *ValidationErrors) {
	if len(desc) > core.MaxDescriptionLength {
		errs.add("description", core.ErrDescriptionTooLong.Error())
	}
}

// ParseExpenseCreate decodes {"categoryId", "amount", "description"?}.
// Amount may be sent as a number or a decimal string.
func ParseExpenseCreate(w http.ResponseWriter, r *http.Request) (core.Expense, ValidationErrors) {
	var p expensePayload
	if errs := decodeBody(w, r, &p); errs != nil {
		return core.Expense{}, errs
	}

	var (
		errs ValidationErrors
		e    core.Expense
	)
	if p.CategoryID == nil || sanitizeInput(*p.CategoryID) == "" {
		errs.add("categoryId", "is required")
	} else {
		e.CategoryID = sanitizeInput(*p.CategoryID)
	}

	if !p.hasAmount() {
		errs.add("amount", "is required")
	} else if m, ok := parseAmount(p.Amount, &errs); ok {
		e.Amount = m
	}

	if p.Description != nil {
		e.Description = sanitizeInput(*p.Description)
		validateDescriptionField(e.Description, &errs)
	}

	if len(errs) > 0 {
		return core.Expense{}, errs
	}
	return e, nil
}

// ParseExpensePatch decodes a partial update. At least one field is required;
// null fields count as absent.
func ParseExpensePatch(w http.ResponseWriter, r *http.Request) (core.ExpensePatch, ValidationErrors) {
	var p expensePayload
	if errs := decodeBody(w, r, &p); errs != nil {
		return core.ExpensePatch{}, errs
	}

	var (
		errs  ValidationErrors
		patch core.ExpensePatch
	)
	if p.CategoryID != nil {
		id := sanitizeInput(*p.CategoryID)
		if id == "" {
			errs.add("categoryId", "must not be empty")
		} else {
			patch.CategoryID = &id
		}
	}

	if p.hasAmount() {
		if m, ok := parseAmount(p.Amount, &errs); ok {
			patch.Amount = &m
		}
	}

	if p.Description != nil {
		desc := sanitizeInput(*p.Description)
		validateDescriptionField(desc, &errs)
		patch.Description = &desc
	}

	if len(errs) > 0 {
		return core.ExpensePatch{}, errs
	}
	if patch.IsEmpty() {
		errs.add("body", core.ErrEmptyPatch.Error())
		return core.ExpensePatch{}, errs
	}
	return patch, nil
}

// validationErrorFields maps domain validation errors to request fields.
var validationErrorFields = []struct {
	err   error
	field string
}{
	{core.ErrEmptyName, "name"},
	{core.ErrNameTooLong, "name"},
	{core.ErrMissingCategory, "categoryId"},
	{core.ErrInvalidAmount, "amount"},
	{core.ErrDescriptionTooLong, "description"},
	{core.ErrEmptyPatch, "body"},
}

// asValidationErrors converts a domain validation error returned by a service.
func asValidationErrors(err error) (ValidationErrors, bool) {
	for _, v := range validationErrorFields {
		if errors.Is(err, v.err) {
			return ValidationErrors{{Field: v.field, Message: err.Error()}}, true
		}
	}
	return nil, false
}
