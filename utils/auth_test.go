package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"9876543210":      "9876543210",
		"+91 98765 43210": "9876543210",
		"919876543210":    "9876543210",
		"09876543210":     "9876543210",
		"98765-43210":     "9876543210",
		"12345":           "12345",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	assert.True(t, ValidatePhoneNumber("9876543210"))
	assert.False(t, ValidatePhoneNumber("987654321"))
	assert.False(t, ValidatePhoneNumber("98765432a0"))
	assert.False(t, ValidatePhoneNumber("+919876543210"))
}

func TestValidatePincode(t *testing.T) {
	assert.True(t, ValidatePincode("560001"))
	assert.False(t, ValidatePincode("56001"))
	assert.False(t, ValidatePincode("5600011"))
	assert.False(t, ValidatePincode("56000a"))
	assert.False(t, ValidatePincode("５６０００１"))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("secret123", hash))
	assert.False(t, CheckPasswordHash("secret124", hash))
}

func TestRandomAlphabets(t *testing.T) {
	digits, err := RandomDigits(6)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, digits)

	letters, err := RandomUppercase(4)
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z]{4}$`, letters)
}
