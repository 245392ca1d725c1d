package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmailFormat(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@b.c", true},
		{"user@example.com", true},
		{"first.last@sub.example.co", true},
		{"", false},
		{"@b.c", false},
		{"a@", false},
		{"a@b", false},
		{"a@.c", false},
		{"a@b.", false},
		{"no-at-sign", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidEmailFormat(tt.email))
		})
	}
}

func TestIsValidPasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"no uppercase", "abc12345", false},
		{"no digit", "ABCDEFGH", false},
		{"valid", "Abcdef12", true},
		{"too short", "Abc1", false},
		{"empty", "", false},
		{"long valid", "SuperSecret99", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidPasswordStrength(tt.password))
		})
	}
}
