package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercase passthrough",
			input:    "user@example.com",
			expected: "user@example.com",
		},
		{
			name:     "uppercase is folded",
			input:    "User@Example.COM",
			expected: "user@example.com",
		},
		{
			name:     "surrounding whitespace is trimmed",
			input:    "  user@example.com\t",
			expected: "user@example.com",
		},
		{
			name:     "mixed case and whitespace",
			input:    " USER@EXAMPLE.COM ",
			expected: "user@example.com",
		},
		{
			name:     "whitespace only normalizes to empty",
			input:    "   ",
			expected: "",
		},
		{
			name:     "empty stays empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeEmail(tt.input))
		})
	}
}

func TestNormalizeEmailIdempotent(t *testing.T) {
	inputs := []string{"User@Example.com", "  a@b.c ", "ALREADY@lower.io"}

	for _, input := range inputs {
		once := NormalizeEmail(input)
		assert.Equal(t, once, NormalizeEmail(once))
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	session := &Session{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, session.Expired(now))
	assert.False(t, session.Expired(now.Add(time.Hour)))
	assert.True(t, session.Expired(now.Add(time.Hour+time.Second)))
}
