// Package token generates the opaque credentials used by the booking flow:
// guest access codes and bearer session tokens.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	accessCodeBytes   = 4
	sessionTokenBytes = 32
)

// NewAccessCode returns an 8-character uppercase hex code. Codes are
// compared case-insensitively; uppercase is the canonical form.
func NewAccessCode() string {
	return strings.ToUpper(randomHex(accessCodeBytes))
}

// NewSessionToken returns a 64-character hex bearer token.
func NewSessionToken() string {
	return randomHex(sessionTokenBytes)
}

// NormalizeAccessCode maps a user-supplied code to canonical form.
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
