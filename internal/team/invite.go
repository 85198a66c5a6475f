package team

import (
	"crypto/rand"
	"fmt"
)

const (
	inviteAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	inviteLength   = 6
)

// NewInviteCode generates a random 6-character lowercase alphanumeric code.
// Every character is drawn uniformly from the alphabet. Uniqueness against
// existing teams is the caller's responsibility.
func NewInviteCode() (string, error) {
	// Bytes at or above the largest multiple of the alphabet size that fits
	// in a byte are redrawn; a plain modulo would skew toward the low
	// characters.
	const limit = byte(256 / len(inviteAlphabet) * len(inviteAlphabet))

	code := make([]byte, 0, inviteLength)
	buf := make([]byte, inviteLength)
	for len(code) < inviteLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generating invite code: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			code = append(code, inviteAlphabet[int(b)%len(inviteAlphabet)])
			if len(code) == inviteLength {
				break
			}
		}
	}
	return string(code), nil
}
