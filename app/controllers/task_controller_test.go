package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nought/app/codec"
	"nought/app/models"
	"nought/app/services"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("lookup: %w", models.ErrNotFound), http.StatusNotFound},
		{"invariant", &models.BadOperationError{Name: "x", Message: "no"}, http.StatusConflict},
		{"illegal argument", models.ErrIllegalArgument, http.StatusBadRequest},
		{"format", &models.FormatError{Field: "due date", Text: "soon"}, http.StatusBadRequest},
		{"schema", &SchemaError{Path: "/name", Message: "expected string"}, http.StatusBadRequest},
		{"bad json", fmt.Errorf("%w: invalid JSON", errBadRequest), http.StatusBadRequest},
		{"parse error wins over not found", &codec.ParseError{Line: 3, Err: models.ErrNotFound}, http.StatusBadRequest},
		{"too large", &http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
		{"ambiguous prefix", services.ErrAmbiguousID, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Fatalf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestDecodeValidatedCreate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"minimal", `{"name":"a"}`, false},
		{"full", `{"name":"a","description":"b","completed":true,"due_date":"2022-11-07","due_time":"23:59","parent_id":null,"children":["60f2abf2-f76d-49f9-a4a5-c87b13a9cbbc"]}`, false},
		{"empty due date", `{"name":"a","due_date":""}`, false},
		{"missing name", `{"description":"b"}`, true},
		{"unknown field", `{"name":"a","priority":1}`, true},
		{"wrong type", `{"name":1}`, true},
		{"bad date", `{"name":"a","due_date":"2022-13-45"}`, true},
		{"bad child id", `{"name":"a","children":["nope"]}`, true},
		{"duplicate child", `{"name":"a","children":["60f2abf2-f76d-49f9-a4a5-c87b13a9cbbc","60f2abf2-f76d-49f9-a4a5-c87b13a9cbbc"]}`, true},
		{"not json", `{"name":`, true},
		{"two values", `{"name":"a"}{"name":"b"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(tt.body))
			var req services.NewTask
			err := decodeValidated(r, createTask, &req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && statusFor(err) != http.StatusBadRequest {
				t.Fatalf("status = %d for %v", statusFor(err), err)
			}
		})
	}
}

func TestDecodeValidatedUpdate(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/tasks/x", strings.NewReader(`{"due_date":"","completed":false}`))
	var u services.TaskUpdate
	if err := decodeValidated(r, updateTask, &u); err != nil {
		t.Fatal(err)
	}
	if u.DueDate == nil || *u.DueDate != "" {
		t.Fatalf("due_date = %v", u.DueDate)
	}
	if u.Completed == nil || *u.Completed {
		t.Fatalf("completed = %v", u.Completed)
	}
	if u.Name != nil || u.DueTime != nil {
		t.Fatal("absent fields must stay nil")
	}

	r = httptest.NewRequest(http.MethodPut, "/tasks/x", strings.NewReader(`{}`))
	err := decodeValidated(r, updateTask, &u)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("empty update: got %v", err)
	}
}
