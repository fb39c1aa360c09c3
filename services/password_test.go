package services

import (
	"errors"
	"testing"

	"tracker/model"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"Correct password", "secret1", true},
		{"Wrong password", "secret2", false},
		{"Empty password", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComparePasswords(hash, tt.password); got != tt.want {
				t.Errorf("ComparePasswords(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}

	other, _ := HashPassword("secret1")
	if other == hash {
		t.Error("Expected distinct salts for repeated hashes")
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	var verr *model.ValidationError
	if _, err := HashPassword("12345"); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for _, stored := range []string{"", "nodollar", "!!!$!!!"} {
		if _, err := VerifyPassword(stored, "secret1"); err == nil {
			t.Errorf("Expected error for stored hash %q", stored)
		}
	}
}
