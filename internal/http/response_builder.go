// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for the API's JSON envelopes:
// {"ok": true, ...} on success and {"ok": false, "msg": ...} on failure.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Messages returned to clients.
const (
	MsgNoCategories        = "No categories found"
	MsgNoExpenses          = "No expenses found"
	MsgCategoryNotFound    = "Category not found"
	MsgExpenseNotFound     = "Expense not found"
	MsgCategoryMissing     = "Category does not exist"
	MsgCategoryInUse       = "Category has expenses"
	MsgInternalServerError = "Internal Server Error"
	MsgRateLimited         = "Rate limit exceeded. Please try again later."
	MsgValidationFailed    = "Validation failed"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       map[string]any
	headers    map[string]string
}

// NewJSONResponse creates a 200 response whose body starts as {"ok": true}.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		body:       map[string]any{"ok": true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Set adds a top-level field to the body.
func (b *JSONResponseBuilder) Set(key string, value any) *JSONResponseBuilder {
	b.body[key] = value
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode JSON response", "error", err, "status_code", b.statusCode)
	}
}

// ErrorResponse creates the standard {"ok": false, "msg": ...} error body.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Set("ok", false).
		Set("msg", message)
}

// ValidationErrorResponse creates a 400 response listing every invalid field.
// It keeps the {"error", "details"} shape clients already parse.
func ValidationErrorResponse(details ValidationErrors) *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusBadRequest,
		body: map[string]any{
			"error":   MsgValidationFailed,
			"details": details,
		},
		headers: make(map[string]string),
	}
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// ConflictError creates a 409 Conflict error response.
func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

// InternalServerError creates a 500 response. Details stay in the logs.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, MsgInternalServerError)
}

// TooManyRequestsError creates a 429 Too Many Requests error response.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, MsgRateLimited)
}
