package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"+38 (050) 123-45-67", "380501234567", true},
		{"0501234567", "380501234567", true},
		{"501234567", "380501234567", true},
		{"380501234567", "380501234567", true},
		{"1234567", "", false},
		{"481234567890", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizePhone(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "380501234567", DigitsOnly("+380 50 123 45 67"))
	assert.Equal(t, "", DigitsOnly("abc"))
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("45"))
	assert.False(t, IsNumeric(""))
	assert.False(t, IsNumeric("4a"))
	assert.False(t, IsNumeric("٤٥"))
}

func TestIsUkrainianName(t *testing.T) {
	assert.True(t, IsUkrainianName("Олександр"))
	assert.True(t, IsUkrainianName("Ком'яхова-Ґудзь"))
	assert.False(t, IsUkrainianName("John"))
	assert.False(t, IsUkrainianName("   "))
}
