package utils

import (
	"errors"
	"testing"

	"tracker/model"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"", false},
		{"12345", false},
		{"123456", true},
		{"a much longer passphrase", true},
	}
	for _, tt := range tests {
		if got := ValidatePassword(tt.password); got != tt.valid {
			t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, got, tt.valid)
		}
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
	}{
		{
			name:  "Valid project",
			input: model.Project{Name: "Website", Status: model.ProjectActive, Priority: model.PriorityHigh},
		},
		{
			name:      "Missing project name",
			input:     model.Project{Status: model.ProjectActive, Priority: model.PriorityHigh},
			wantField: "name",
		},
		{
			name:      "Unknown project status",
			input:     model.Project{Name: "Website", Status: "archived", Priority: model.PriorityHigh},
			wantField: "status",
		},
		{
			name:      "Bad due date",
			input:     model.Task{Title: "Design", Status: model.TaskPending, Priority: model.PriorityLow, DueDate: "31/12/2024"},
			wantField: "dueDate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Expected field %q, got %q", tt.wantField, verr.Field)
			}
		})
	}
}

func TestDeviceLabel(t *testing.T) {
	if got := DeviceLabel(""); got != "Unknown Browser on Unknown OS (Desktop)" {
		t.Errorf("Unexpected label for empty agent: %q", got)
	}
}
