package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestJSONResponseBuilder_Basic(t *testing.T) {
	rr := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Set("category", map[string]string{"name": "Food"}).
		Header("X-Custom", "value").
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", rr.Code, http.StatusCreated)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rr.Header().Get("X-Custom") != "value" {
		t.Error("custom header not set")
	}

	body := decodeMap(t, rr)
	if body["ok"] != true {
		t.Errorf("ok = %v, want true", body["ok"])
	}
	cat, _ := body["category"].(map[string]any)
	if cat["name"] != "Food" {
		t.Errorf("category = %v", body["category"])
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		builder    *JSONResponseBuilder
		wantStatus int
		wantMsg    string
	}{
		{"not found", NotFoundError(MsgExpenseNotFound), http.StatusNotFound, "Expense not found"},
		{"unprocessable", UnprocessableEntityError(MsgCategoryMissing), http.StatusUnprocessableEntity, "Category does not exist"},
		{"conflict", ConflictError(MsgCategoryInUse), http.StatusConflict, "Category has expenses"},
		{"internal", InternalServerError(), http.StatusInternalServerError, "Internal Server Error"},
		{"rate limited", TooManyRequestsError(), http.StatusTooManyRequests, MsgRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.builder.Write(rr)

			if rr.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", rr.Code, tt.wantStatus)
			}
			body := decodeMap(t, rr)
			if body["ok"] != false {
				t.Errorf("ok = %v, want false", body["ok"])
			}
			if body["msg"] != tt.wantMsg {
				t.Errorf("msg = %v, want %q", body["msg"], tt.wantMsg)
			}
		})
	}
}

func TestValidationErrorResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	ValidationErrorResponse(ValidationErrors{
		{Field: "amount", Message: "is required"},
		{Field: "categoryId", Message: "is required"},
	}).Write(rr)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Status code = %d, want 400", rr.Code)
	}

	var body struct {
		OK      *bool        `json:"ok"`
		Error   string       `json:"error"`
		Details []FieldError `json:"details"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.OK != nil {
		t.Error("validation body has no ok field")
	}
	if body.Error != "Validation failed" {
		t.Errorf("error = %q", body.Error)
	}
	if len(body.Details) != 2 || body.Details[0].Field != "amount" {
		t.Errorf("details = %+v", body.Details)
	}
}
