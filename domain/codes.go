package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const codeBytes = 3 // hex-encoded to 6 characters

// NewRoomCode returns a fresh 6-hex-digit uppercase room code.
// Uniqueness against live rooms is the registry's concern.
func NewRoomCode() string {
	buf := make([]byte, codeBytes)
	_, _ = rand.Read(buf)
	return strings.ToUpper(hex.EncodeToString(buf))
}

// NormalizeRoomCode maps client input to the canonical code form.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
