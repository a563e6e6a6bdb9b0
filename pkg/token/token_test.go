package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAccessCode(t *testing.T) {
	code := NewAccessCode()
	assert.Len(t, code, 8)
	assert.Equal(t, code, NormalizeAccessCode(code))
	assert.Regexp(t, "^[0-9A-F]{8}$", code)
}

func TestNewAccessCodeUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := NewAccessCode()
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestNewSessionToken(t *testing.T) {
	tok := NewSessionToken()
	assert.Len(t, tok, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", tok)
	assert.NotEqual(t, tok, NewSessionToken())
}

func TestNormalizeAccessCode(t *testing.T) {
	assert.Equal(t, "A1B2C3D4", NormalizeAccessCode(" a1b2c3d4 "))
	assert.Equal(t, "A1B2C3D4", NormalizeAccessCode("A1B2C3D4"))
	assert.Equal(t, "", NormalizeAccessCode("  "))
}
